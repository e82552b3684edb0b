// Package session carries the authenticated operator through a request.
//
// A Session is built once by the auth middleware and passed explicitly to
// every collaborator that needs the operator identity or the bearer token
// for the barbershop API.
package session

import (
	"context"
	"time"
)

type Session struct {
	Subject   string
	Name      string
	Email     string
	IsAdmin   bool
	Token     string
	ExpiresAt time.Time
}

type contextKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, contextKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(contextKey{}).(*Session)
	return s, ok && s != nil
}

// BearerToken returns the Authorization header value, or "" for a nil
// session or one without a token.
func (s *Session) BearerToken() string {
	if s == nil || s.Token == "" {
		return ""
	}
	return "Bearer " + s.Token
}
