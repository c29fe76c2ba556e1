package authentic_test

import (
	"context"
	"sync"
	"testing"

	"github.com/goliatone/go-authentic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreGetUnknown(t *testing.T) {
	store := authentic.NewMemoryStore()

	_, err := store.Get(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, authentic.ErrUserNotFound)
}

func TestMemoryStorePutGet(t *testing.T) {
	store := authentic.NewMemoryStore()

	err := store.Put(context.Background(), &authentic.User{
		Email:        "User@Example.com",
		PasswordHash: "hash",
	})
	require.NoError(t, err)

	// lookups normalize the key the same way writes do
	user, err := store.Get(context.Background(), "  user@example.COM ")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestMemoryStoreGetReturnsCopy(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{
		Email:        "user@example.com",
		PasswordHash: "hash",
	}))

	user, err := store.Get(context.Background(), "user@example.com")
	require.NoError(t, err)

	user.PasswordHash = "mutated"

	fresh, err := store.Get(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", fresh.PasswordHash)
}

func TestMemoryStoreUpdate(t *testing.T) {
	store := authentic.NewMemoryStore()

	created, err := store.Update(context.Background(), "user@example.com", func(current *authentic.User) (*authentic.User, error) {
		require.Nil(t, current)
		return &authentic.User{Email: "user@example.com", PasswordHash: "hash"}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", created.Email)

	updated, err := store.Update(context.Background(), "user@example.com", func(current *authentic.User) (*authentic.User, error) {
		require.NotNil(t, current)
		current.EmailConfirmed = true
		return current, nil
	})
	require.NoError(t, err)
	assert.True(t, updated.EmailConfirmed)
}

func TestMemoryStoreUpdateErrorDoesNotMutate(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{
		Email:        "user@example.com",
		PasswordHash: "hash",
	}))

	_, err := store.Update(context.Background(), "user@example.com", func(current *authentic.User) (*authentic.User, error) {
		current.PasswordHash = "mutated"
		return nil, authentic.ErrTokenMismatch
	})
	assert.ErrorIs(t, err, authentic.ErrTokenMismatch)

	user, err := store.Get(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, "hash", user.PasswordHash)
}

func TestMemoryStoreDelete(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{
		Email: "user@example.com",
	}))

	require.NoError(t, store.Delete(context.Background(), "user@example.com"))

	_, err := store.Get(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, authentic.ErrUserNotFound)
}

func TestMemoryStoreConcurrentUpdatesAreNotLost(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{
		Email: "user@example.com",
	}))

	const workers = 32
	var wg sync.WaitGroup
	wg.Add(workers)

	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			_, err := store.Update(context.Background(), "user@example.com", func(current *authentic.User) (*authentic.User, error) {
				count, _ := current.Metadata["count"].(int)
				current.AddMetadata("count", count+1)
				return current, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	user, err := store.Get(context.Background(), "user@example.com")
	require.NoError(t, err)
	assert.Equal(t, workers, user.Metadata["count"])
}

func TestMemoryStoreCrossKeyIndependence(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{Email: "a@example.com", PasswordHash: "a"}))
	require.NoError(t, store.Put(context.Background(), &authentic.User{Email: "b@example.com", PasswordHash: "b"}))

	_, err := store.Update(context.Background(), "a@example.com", func(current *authentic.User) (*authentic.User, error) {
		current.PasswordHash = "a2"
		return current, nil
	})
	require.NoError(t, err)

	b, err := store.Get(context.Background(), "b@example.com")
	require.NoError(t, err)
	assert.Equal(t, "b", b.PasswordHash)
}

func TestMemoryStoreReset(t *testing.T) {
	store := authentic.NewMemoryStore()

	require.NoError(t, store.Put(context.Background(), &authentic.User{Email: "user@example.com"}))
	store.Reset()

	_, err := store.Get(context.Background(), "user@example.com")
	assert.ErrorIs(t, err, authentic.ErrUserNotFound)
}
