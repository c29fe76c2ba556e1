package authentic

import (
	"context"
	"sync"

	"github.com/puzpuzpuz/xsync/v3"
)

// UserStore is the persistence contract consumed by the credential
// component. Implementations must linearize mutations per key: Update
// calls against the same normalized email never interleave, while
// distinct emails remain independently mutable.
type UserStore interface {
	// Get returns a copy of the record, or ErrUserNotFound.
	Get(ctx context.Context, email string) (*User, error)
	// Put stores the record under its normalized email.
	Put(ctx context.Context, user *User) error
	// Update runs fn under the key's exclusive lock. fn receives the
	// current record (nil when absent) and returns the record to store.
	Update(ctx context.Context, email string, fn func(current *User) (*User, error)) (*User, error)
	// Delete removes the record if present.
	Delete(ctx context.Context, email string) error
}

type storeEntry struct {
	mu   sync.Mutex
	user *User
}

// MemoryStore is the reference UserStore: an in-process map with one
// mutex per key. Swap it for a durable implementation (see BunStore)
// without touching the credential component.
type MemoryStore struct {
	entries *xsync.MapOf[string, *storeEntry]
}

var _ UserStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: xsync.NewMapOf[string, *storeEntry](),
	}
}

func (s *MemoryStore) Get(ctx context.Context, email string) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	entry, ok := s.entries.Load(NormalizeEmail(email))
	if !ok {
		return nil, ErrUserNotFound
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.user == nil {
		return nil, ErrUserNotFound
	}

	return entry.user.Clone(), nil
}

func (s *MemoryStore) Put(ctx context.Context, user *User) error {
	_, err := s.Update(ctx, user.Email, func(*User) (*User, error) {
		return user, nil
	})
	return err
}

func (s *MemoryStore) Update(ctx context.Context, email string, fn func(current *User) (*User, error)) (*User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	key := NormalizeEmail(email)
	entry, _ := s.entries.LoadOrCompute(key, func() *storeEntry {
		return &storeEntry{}
	})

	entry.mu.Lock()
	defer entry.mu.Unlock()

	updated, err := fn(entry.user.Clone())
	if err != nil {
		return nil, err
	}

	updated.Email = key
	entry.user = updated.Clone()

	return updated, nil
}

func (s *MemoryStore) Delete(ctx context.Context, email string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.entries.Delete(NormalizeEmail(email))
	return nil
}

// Reset drops every record. Test hook, not part of the UserStore contract.
func (s *MemoryStore) Reset() {
	s.entries.Clear()
}
