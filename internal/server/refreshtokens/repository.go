// Package refreshtokens stores opaque refresh tokens issued alongside
// access tokens. A token maps to the owning user ID and an expiry instant.
package refreshtokens

import (
	"context"
	"time"
)

type RefreshToken struct {
	UserID  string
	Token   string
	Expires time.Time
}

type Repository interface {
	Create(ctx context.Context, userID string, token string, validity time.Duration) error
	Find(ctx context.Context, token string) (*RefreshToken, error)
	Delete(ctx context.Context, token string) error
}
