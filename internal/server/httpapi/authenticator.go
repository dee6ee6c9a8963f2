package httpapi

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/dmitrijs2005/userdir/internal/server/auth"
	"github.com/dmitrijs2005/userdir/internal/server/users"
)

const callerKey = "caller"

// Authenticator resolves the caller identity of a request. A nil caller
// means the request is unauthenticated; the domain operations decide what
// that implies for each endpoint.
type Authenticator interface {
	Resolve(ctx context.Context, r *http.Request) *users.Caller
}

// TokenAuthenticator accepts an Authorization: Bearer JWT. Claims are
// re-checked against the store so a token outlives neither the record nor
// its admin flag.
type TokenAuthenticator struct {
	store     users.Repository
	jwtSecret []byte
}

func NewTokenAuthenticator(store users.Repository, secretKey string) *TokenAuthenticator {
	return &TokenAuthenticator{store: store, jwtSecret: []byte(secretKey)}
}

func (a *TokenAuthenticator) Resolve(ctx context.Context, r *http.Request) *users.Caller {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return nil
	}

	claims, err := auth.ParseToken(token, a.jwtSecret)
	if err != nil {
		return nil
	}

	user, err := a.store.GetByLogin(ctx, claims.Login)
	if err != nil {
		return nil
	}
	return &users.Caller{Login: user.Login, Admin: user.Admin}
}

// CredentialAuthenticator checks X-Login/X-Password headers directly
// against the store on every request.
type CredentialAuthenticator struct {
	store users.Repository
}

func NewCredentialAuthenticator(store users.Repository) *CredentialAuthenticator {
	return &CredentialAuthenticator{store: store}
}

func (a *CredentialAuthenticator) Resolve(ctx context.Context, r *http.Request) *users.Caller {
	login := r.Header.Get("X-Login")
	password := r.Header.Get("X-Password")
	if login == "" || password == "" {
		return nil
	}

	user, err := a.store.GetByLogin(ctx, login)
	if err != nil || user.Password != password {
		return nil
	}
	return &users.Caller{Login: user.Login, Admin: user.Admin}
}

func (s *HTTPServer) resolveCaller() gin.HandlerFunc {
	return func(c *gin.Context) {
		if caller := s.authenticator.Resolve(c.Request.Context(), c.Request); caller != nil {
			c.Set(callerKey, caller)
		}
		c.Next()
	}
}

func callerFrom(c *gin.Context) *users.Caller {
	v, ok := c.Get(callerKey)
	if !ok {
		return nil
	}
	caller, ok := v.(*users.Caller)
	if !ok {
		return nil
	}
	return caller
}
