package authentic

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DefaultChangeTokenTTL is how long a change token stays usable. The
// reference implementation used both 48h and 90 days depending on the
// code path; we standardize on 48h and make it configurable.
const DefaultChangeTokenTTL = 48 * time.Hour

// Credentials implements CredentialStore over an injected UserStore.
// Every mutation goes through UserStore.Update, so concurrent
// operations against the same email are linearized by the store.
type Credentials struct {
	store          UserStore
	changeTokenTTL time.Duration
	now            func() time.Time
	logger         Logger
}

var _ CredentialStore = (*Credentials)(nil)

type CredentialsOption func(*Credentials)

// WithChangeTokenTTL overrides the default change token lifetime.
func WithChangeTokenTTL(ttl time.Duration) CredentialsOption {
	return func(c *Credentials) {
		if ttl > 0 {
			c.changeTokenTTL = ttl
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) CredentialsOption {
	return func(c *Credentials) {
		if clock != nil {
			c.now = clock
		}
	}
}

// WithCredentialsLogger overrides the logger.
func WithCredentialsLogger(logger Logger) CredentialsOption {
	return func(c *Credentials) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewCredentials returns a credential component on top of store.
func NewCredentials(store UserStore, opts ...CredentialsOption) *Credentials {
	c := &Credentials{
		store:          store,
		changeTokenTTL: DefaultChangeTokenTTL,
		now:            time.Now,
		logger:         defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// CreateUser registers a new unconfirmed user with a fresh confirm
// token. Creation rejects duplicates, it never upserts.
func (c *Credentials) CreateUser(ctx context.Context, email, password string) (*User, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}
	if !ValidPassword(password) {
		return nil, ErrInvalidPassword
	}

	return c.store.Update(ctx, email, func(current *User) (*User, error) {
		if current != nil {
			return nil, ErrUserExists
		}
		return c.newUser(email, password)
	})
}

func (c *Credentials) newUser(email, password string) (*User, error) {
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	token, err := GenerateToken(confirmTokenBytes)
	if err != nil {
		return nil, err
	}

	now := c.now()
	return &User{
		ID:             uuid.New(),
		Email:          NormalizeEmail(email),
		PasswordHash:   hash,
		EmailConfirmed: false,
		ConfirmToken:   token,
		CreatedAt:      &now,
		UpdatedAt:      &now,
	}, nil
}

// ConfirmUser consumes the one-time confirm token. Exactly once: any
// replay fails ErrAlreadyConfirmed, even with the original token.
func (c *Credentials) ConfirmUser(ctx context.Context, email, token string) (*User, error) {
	return c.store.Update(ctx, email, func(current *User) (*User, error) {
		if current == nil {
			return nil, ErrUserNotFound
		}
		if current.EmailConfirmed {
			return nil, ErrAlreadyConfirmed
		}
		if current.ConfirmToken != token {
			return nil, ErrTokenMismatch
		}

		current.EmailConfirmed = true
		current.ConfirmToken = ""
		c.touch(current)

		return current, nil
	})
}

// CheckPassword verifies the password for email. Unknown emails and
// wrong passwords both fail without revealing which.
func (c *Credentials) CheckPassword(ctx context.Context, email, password string) (*User, error) {
	user, err := c.store.Get(ctx, email)
	if err != nil {
		return nil, err
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		return nil, err
	}

	return user, nil
}

// CreateChangeToken issues a change token for email, overwriting any
// outstanding one. Unknown emails are auto provisioned: a confirmed
// account with a random throwaway password, so a reset request for an
// unregistered address is indistinguishable from a registered one.
func (c *Credentials) CreateChangeToken(ctx context.Context, email string, expiresAt ...time.Time) (*User, error) {
	expiry := c.now().Add(c.changeTokenTTL)
	if len(expiresAt) > 0 && !expiresAt[0].IsZero() {
		expiry = expiresAt[0]
	}

	return c.store.Update(ctx, email, func(current *User) (*User, error) {
		if current == nil {
			provisioned, err := c.provisionUser(email)
			if err != nil {
				return nil, err
			}
			current = provisioned
		}

		token, err := GenerateToken(confirmTokenBytes)
		if err != nil {
			return nil, err
		}

		current.ChangeToken = token
		exp := expiry
		current.ChangeExpiresAt = &exp
		c.touch(current)

		return current, nil
	})
}

// provisionUser builds the bootstrap record for a reset request against
// an unknown address: created with a throwaway password and immediately
// confirmed by consuming its own confirm token.
func (c *Credentials) provisionUser(email string) (*User, error) {
	email = NormalizeEmail(email)
	if !ValidEmail(email) {
		return nil, ErrInvalidEmail
	}

	password, err := randomPassword()
	if err != nil {
		return nil, err
	}

	user, err := c.newUser(email, password)
	if err != nil {
		return nil, err
	}

	user.EmailConfirmed = true
	user.ConfirmToken = ""

	return user, nil
}

// ChangePassword consumes the change token and replaces the stored
// password. Completing a reset also confirms the account. A mismatched
// or expired token never mutates the record.
func (c *Credentials) ChangePassword(ctx context.Context, email, newPassword, token string) (*User, error) {
	if !ValidPassword(newPassword) {
		return nil, ErrInvalidPassword
	}

	return c.store.Update(ctx, email, func(current *User) (*User, error) {
		if current == nil {
			return nil, ErrUserNotFound
		}
		if current.ChangeToken == "" {
			return nil, ErrTokenExpired
		}
		if current.ChangeToken != token {
			return nil, ErrTokenMismatch
		}
		// now >= expires means expired
		if current.ChangeExpiresAt == nil || !c.now().Before(*current.ChangeExpiresAt) {
			return nil, ErrTokenExpired
		}

		hash, err := HashPassword(newPassword)
		if err != nil {
			return nil, err
		}

		current.PasswordHash = hash
		current.ChangeToken = ""
		current.ChangeExpiresAt = nil
		current.EmailConfirmed = true
		c.touch(current)

		return current, nil
	})
}

func (c *Credentials) touch(user *User) {
	now := c.now()
	user.UpdatedAt = &now
}
