package authentic

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// Authenticator exposes the five user facing auth flows
type Authenticator interface {
	Signup(ctx context.Context, req SignupRequest) (*SignupResponse, error)
	Confirm(ctx context.Context, req ConfirmRequest) (*TokenResponse, error)
	Login(ctx context.Context, req LoginRequest) (*TokenResponse, error)
	ChangePasswordRequest(ctx context.Context, req ChangeRequest) (*MessageResponse, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) (*TokenResponse, error)
}

// CredentialStore owns user records and their lifecycle transitions
type CredentialStore interface {
	CreateUser(ctx context.Context, email, password string) (*User, error)
	ConfirmUser(ctx context.Context, email, token string) (*User, error)
	CheckPassword(ctx context.Context, email, password string) (*User, error)
	CreateChangeToken(ctx context.Context, email string, expiresAt ...time.Time) (*User, error)
	ChangePassword(ctx context.Context, email, newPassword, token string) (*User, error)
}

// TokenIssuer mints and validates signed bearer tokens
type TokenIssuer interface {
	Issue(email string) (string, error)
	Validate(tokenString string) (AuthClaims, error)
	PublicKeyPEM() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
