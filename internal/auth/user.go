package auth

import (
	"context"
	"time"
)

type User struct {
	ID        string
	Email     string
	Name      string
	CreatedAt time.Time
}

type contextKey struct{}

// WithUser returns a context carrying the signed-in user.
func WithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the signed-in user, or nil.
func UserFromContext(ctx context.Context) *User {
	u, _ := ctx.Value(contextKey{}).(*User)
	return u
}

// Operator is the identity the command-line tool acts as. Holding the
// Railway API token is what authorizes it.
func Operator() *User {
	return &User{ID: "operator", Email: "operator@localhost", Name: "Operator"}
}
