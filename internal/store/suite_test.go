package store_test

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/kiranshivaraju/keyserver/internal/store"
	"github.com/kiranshivaraju/keyserver/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite checks the Store contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) store.Store) {
	t.Run("CreateAndGet", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		k := newKey("ABC123", "a@b.com")

		require.NoError(t, s.CreateKey(ctx, k))

		got, err := s.GetKey(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, "ABC123", got.Key)
		assert.Equal(t, "a@b.com", got.UserEmail)
		assert.Nil(t, got.MachineID)
		assert.True(t, k.DateCreated.Equal(got.DateCreated))
		assert.True(t, k.ExpiresAt.Equal(got.ExpiresAt))
		assert.Equal(t, time.UTC, got.DateCreated.Location())
		assert.Equal(t, time.UTC, got.ExpiresAt.Location())
	})

	t.Run("GetMissing", func(t *testing.T) {
		s := newStore(t)
		_, err := s.GetKey(context.Background(), "nope")
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("CreateDuplicate", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("ABC123", "a@b.com")))

		err := s.CreateKey(ctx, newKey("ABC123", "other@b.com"))
		assert.ErrorIs(t, err, store.ErrDuplicateKey)

		all, err := s.ListKeys(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 1)
	})

	t.Run("ListEmpty", func(t *testing.T) {
		s := newStore(t)
		all, err := s.ListKeys(context.Background())
		require.NoError(t, err)
		assert.NotNil(t, all)
		assert.Empty(t, all)
	})

	t.Run("ListOrdered", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		later := newKey("A-LATER", "a@b.com")
		later.DateCreated = later.DateCreated.Add(time.Minute)
		require.NoError(t, s.CreateKey(ctx, later))
		require.NoError(t, s.CreateKey(ctx, newKey("B-FIRST", "a@b.com")))

		all, err := s.ListKeys(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "B-FIRST", all[0].Key)
		assert.Equal(t, "A-LATER", all[1].Key)
		for _, k := range all {
			assert.Equal(t, time.UTC, k.DateCreated.Location())
		}
	})

	t.Run("BindOnce", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("ABC123", "a@b.com")))

		bound, err := s.BindMachine(ctx, "ABC123", "M1")
		require.NoError(t, err)
		assert.True(t, bound)

		bound, err = s.BindMachine(ctx, "ABC123", "M2")
		require.NoError(t, err)
		assert.False(t, bound)

		got, err := s.GetKey(ctx, "ABC123")
		require.NoError(t, err)
		assert.Equal(t, "M1", got.BoundMachine())
	})

	t.Run("BindMissing", func(t *testing.T) {
		s := newStore(t)
		bound, err := s.BindMachine(context.Background(), "nope", "M1")
		require.NoError(t, err)
		assert.False(t, bound)
	})

	t.Run("UserKeys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("K2", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K1", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K3", "other@b.com")))

		keys, err := s.UserKeys(ctx, "a@b.com", "")
		require.NoError(t, err)
		assert.Equal(t, []string{"K1", "K2"}, keys)

		keys, err = s.UserKeys(ctx, "a@b.com", "K2")
		require.NoError(t, err)
		assert.Equal(t, []string{"K2"}, keys)

		keys, err = s.UserKeys(ctx, "a@b.com", "K3")
		require.NoError(t, err)
		assert.Empty(t, keys)

		keys, err = s.UserKeys(ctx, "ghost@b.com", "")
		require.NoError(t, err)
		assert.Empty(t, keys)
	})

	t.Run("DeleteListedKeys", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("K1", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K2", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K3", "other@b.com")))

		removed, err := s.DeleteKeys(ctx, "a@b.com", []string{"K1", "K2"})
		require.NoError(t, err)
		sort.Strings(removed)
		assert.Equal(t, []string{"K1", "K2"}, removed)

		all, err := s.ListKeys(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, "K3", all[0].Key)
	})

	t.Run("DeleteOnlyListed", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("K1", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K2", "a@b.com")))

		removed, err := s.DeleteKeys(ctx, "a@b.com", []string{"K2"})
		require.NoError(t, err)
		assert.Equal(t, []string{"K2"}, removed)

		_, err = s.GetKey(ctx, "K1")
		assert.NoError(t, err)
	})

	t.Run("DeleteKeyOfOtherUser", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()
		require.NoError(t, s.CreateKey(ctx, newKey("K1", "a@b.com")))
		require.NoError(t, s.CreateKey(ctx, newKey("K2", "other@b.com")))

		removed, err := s.DeleteKeys(ctx, "a@b.com", []string{"K2"})
		require.NoError(t, err)
		assert.Empty(t, removed)

		_, err = s.GetKey(ctx, "K2")
		assert.NoError(t, err)
	})

	t.Run("DeleteNothing", func(t *testing.T) {
		s := newStore(t)
		removed, err := s.DeleteKeys(context.Background(), "a@b.com", nil)
		require.NoError(t, err)
		assert.Empty(t, removed)
	})

	t.Run("Ping", func(t *testing.T) {
		s := newStore(t)
		assert.NoError(t, s.Ping(context.Background()))
	})
}

func newKey(key, email string) *models.ActivationKey {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &models.ActivationKey{
		Key:         key,
		UserEmail:   email,
		DateCreated: now,
		ExpiresAt:   now.AddDate(0, 1, 0),
	}
}
