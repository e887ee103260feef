// Package auth holds the identity an operation runs under. It is passed
// explicitly; there is no process-wide current user.
package auth

import (
	"context"

	"inkcircle/internal/model"
)

// Context is the viewer identity. The zero value is anonymous.
type Context struct {
	user *model.UserSummary
}

// Anonymous returns a context with no signed-in user.
func Anonymous() Context { return Context{} }

// Authenticated returns a context for u.
func Authenticated(u model.UserSummary) Context {
	return Context{user: &u}
}

// IsAuthenticated reports whether a user is signed in.
func (c Context) IsAuthenticated() bool { return c.user != nil }

// User returns a copy of the signed-in user, or nil.
func (c Context) User() *model.UserSummary {
	if c.user == nil {
		return nil
	}
	u := *c.user
	return &u
}

// UserID returns the signed-in user's id, or "".
func (c Context) UserID() string {
	if c.user == nil {
		return ""
	}
	return c.user.ID
}

type ctxKey struct{}

// WithContext attaches c to a request context.
func WithContext(ctx context.Context, c Context) context.Context {
	return context.WithValue(ctx, ctxKey{}, c)
}

// FromContext returns the identity attached by WithContext, or Anonymous.
func FromContext(ctx context.Context) Context {
	c, _ := ctx.Value(ctxKey{}).(Context)
	return c
}
