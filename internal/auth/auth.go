// Package auth supplies the bearer token and user profile that booking submissions
// are made with.
package auth

import (
	"context"
	"strings"
)

// UserProfile mirrors the user object returned by the login endpoint.
type UserProfile struct {
	ID        int64  `json:"id"`
	Email     string `json:"email"`
	Role      string `json:"role"`
	FirstName string `json:"first_name,omitempty"`
	LastName  string `json:"last_name,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

func (u UserProfile) IsAdmin() bool { return strings.EqualFold(u.Role, "admin") }

func (u UserProfile) DisplayName() string {
	if n := strings.TrimSpace(u.FirstName + " " + u.LastName); n != "" {
		return n
	}
	return u.Email
}

// Session is what a signed-in user carries around: the API token and who it belongs to.
type Session struct {
	Token string      `json:"token"`
	User  UserProfile `json:"user"`
}

// CredentialProvider is read at submit time and never cached by callers.
type CredentialProvider interface {
	CurrentToken(ctx context.Context) (string, bool)
	CurrentUser(ctx context.Context) (UserProfile, bool)
}

// Static always returns the same session. An empty token means signed out.
type Static Session

func (s Static) CurrentToken(context.Context) (string, bool) { return s.Token, s.Token != "" }

func (s Static) CurrentUser(context.Context) (UserProfile, bool) {
	return s.User, s.Token != ""
}

type ctxKey struct{}

// NewContext stores s on ctx for FromContext to find.
func NewContext(ctx context.Context, s Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func SessionFromContext(ctx context.Context) (Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(Session)
	return s, ok && s.Token != ""
}

type contextProvider struct{}

// FromContext returns a provider that reads the session placed on the request
// context by SessionStore.Middleware or NewContext.
func FromContext() CredentialProvider { return contextProvider{} }

func (contextProvider) CurrentToken(ctx context.Context) (string, bool) {
	s, ok := SessionFromContext(ctx)
	return s.Token, ok
}

func (contextProvider) CurrentUser(ctx context.Context) (UserProfile, bool) {
	s, ok := SessionFromContext(ctx)
	return s.User, ok
}
