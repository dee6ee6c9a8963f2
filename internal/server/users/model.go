// Package users holds the user directory core: the record model, the
// repository contract with its in-memory and Postgres implementations,
// the access policy, and the lifecycle/query service.
package users

import "time"

// Gender of a user record.
type Gender int

const (
	GenderFemale Gender = iota
	GenderMale
	GenderUnspecified
)

// Valid reports whether g is one of the three known values.
func (g Gender) Valid() bool {
	return g >= GenderFemale && g <= GenderUnspecified
}

// User is a directory record.
//
// A record is active while RevokedOn is nil and revoked otherwise; the two
// states are mutually exclusive. ModifiedOn/ModifiedBy are always set
// together, as are RevokedOn/RevokedBy.
type User struct {
	ID       string
	Login    string
	Password string
	Name     string
	Gender   Gender
	Birthday *time.Time
	Admin    bool

	CreatedOn time.Time
	CreatedBy string

	ModifiedOn *time.Time
	ModifiedBy string

	RevokedOn *time.Time
	RevokedBy string
}

// Active reports whether the record has not been revoked.
func (u *User) Active() bool {
	return u.RevokedOn == nil
}

// Clone returns a deep copy. Repositories hand out clones so callers can
// never retain a live reference into the store.
func (u *User) Clone() *User {
	c := *u
	if u.Birthday != nil {
		b := *u.Birthday
		c.Birthday = &b
	}
	if u.ModifiedOn != nil {
		m := *u.ModifiedOn
		c.ModifiedOn = &m
	}
	if u.RevokedOn != nil {
		r := *u.RevokedOn
		c.RevokedOn = &r
	}
	return &c
}

// Caller identifies the actor behind a request, as resolved by an
// authenticator. A nil *Caller means the request is unauthenticated.
type Caller struct {
	Login string
	Admin bool
}
