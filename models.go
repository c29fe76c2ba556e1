package authentic

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// User is the credential record, keyed by normalized email
type User struct {
	bun.BaseModel   `bun:"table:users,alias:usr"`
	ID              uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email           string         `bun:"email,notnull,unique" json:"email,omitempty"`
	PasswordHash    string         `bun:"password_hash,notnull" json:"-"`
	EmailConfirmed  bool           `bun:"is_email_confirmed" json:"email_confirmed"`
	ConfirmToken    string         `bun:"confirm_token,nullzero" json:"-"`
	ChangeToken     string         `bun:"change_token,nullzero" json:"-"`
	ChangeExpiresAt *time.Time     `bun:"change_expires_at,nullzero" json:"-"`
	Metadata        map[string]any `bun:"metadata" json:"metadata,omitempty"`
	CreatedAt       *time.Time     `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt       *time.Time     `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// NormalizeEmail is the single normalization rule applied at every
// store access: lowercase, surrounding whitespace removed.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// CreatedDate returns the creation timestamp in ISO-8601 form.
func (u *User) CreatedDate() string {
	if u.CreatedAt == nil {
		return ""
	}
	return u.CreatedAt.UTC().Format(time.RFC3339)
}

// HasPendingChange reports whether an unexpired change token is outstanding.
// The boundary is strict: a token expiring exactly now is expired.
func (u *User) HasPendingChange(now time.Time) bool {
	if u.ChangeToken == "" || u.ChangeExpiresAt == nil {
		return false
	}
	return now.Before(*u.ChangeExpiresAt)
}

// Clone returns a copy safe to hand out across store boundaries.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}

	clone := *u

	if u.ChangeExpiresAt != nil {
		t := *u.ChangeExpiresAt
		clone.ChangeExpiresAt = &t
	}
	if u.CreatedAt != nil {
		t := *u.CreatedAt
		clone.CreatedAt = &t
	}
	if u.UpdatedAt != nil {
		t := *u.UpdatedAt
		clone.UpdatedAt = &t
	}
	if u.Metadata != nil {
		meta := make(map[string]any, len(u.Metadata))
		for k, v := range u.Metadata {
			meta[k] = v
		}
		clone.Metadata = meta
	}

	return &clone
}

// AddMetadata will append information to a metadata attribute
func (u *User) AddMetadata(key string, val any) *User {
	if u.Metadata == nil {
		u.Metadata = make(map[string]any)
	}
	u.Metadata[key] = val
	return u
}
