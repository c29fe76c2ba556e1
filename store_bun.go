package authentic

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	persistence "github.com/goliatone/go-persistence-bun"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// RegisterModels registers the credential models with the persistence
// client so migrations and fixtures pick them up.
func RegisterModels() {
	persistence.RegisterModel((*User)(nil))
}

// BunStore is a durable UserStore backed by bun. Mutations run inside
// a transaction; per-key linearization rides on the database's write
// serialization for the users row.
type BunStore struct {
	db   *bun.DB
	repo repository.Repository[*User]
}

var _ UserStore = (*BunStore)(nil)

func NewBunStore(db *bun.DB) *BunStore {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &BunStore{db: db, repo: repo}
}

func (s *BunStore) Get(ctx context.Context, email string) (*User, error) {
	user, err := s.repo.GetByIdentifier(ctx, NormalizeEmail(email))
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
	}

	return user.Clone(), nil
}

func (s *BunStore) Put(ctx context.Context, user *User) error {
	_, err := s.Update(ctx, user.Email, func(*User) (*User, error) {
		return user, nil
	})
	return err
}

func (s *BunStore) Update(ctx context.Context, email string, fn func(current *User) (*User, error)) (*User, error) {
	key := NormalizeEmail(email)

	var result *User
	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var current *User
		existing, err := s.repo.GetByIdentifierTx(ctx, tx, key)
		if err != nil {
			if !repository.IsRecordNotFound(err) {
				return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to retrieve user")
			}
		} else {
			current = existing.Clone()
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}

		updated.Email = key
		prepareStoreDefaults(updated)

		if current == nil {
			result, err = s.repo.CreateTx(ctx, tx, updated)
		} else {
			updated.ID = current.ID
			result, err = s.repo.UpdateTx(ctx, tx, updated, repository.UpdateByID(current.ID.String()))
		}

		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist user")
		}

		return nil
	})

	if err != nil {
		var richErr *goerrors.Error
		if goerrors.As(err, &richErr) {
			return nil, richErr
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "user update transaction failed")
	}

	return result, nil
}

func (s *BunStore) Delete(ctx context.Context, email string) error {
	_, err := s.db.NewDelete().
		Model((*User)(nil)).
		Where("?TableAlias.email = ?", NormalizeEmail(email)).
		Exec(ctx)

	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}

	return nil
}

func prepareStoreDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		if id, err := hashid.NewUUID(record.Email); err == nil {
			record.ID = id
		} else {
			record.ID = uuid.New()
		}
	}

	now := time.Now()
	if record.CreatedAt == nil {
		record.CreatedAt = &now
	}
	record.UpdatedAt = &now
}
