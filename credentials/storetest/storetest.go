// Package storetest holds the behaviour every credentials.Store must share.
package storetest

import (
	"testing"

	"github.com/jrsteele09/go-storefront-client/credentials"
	"github.com/stretchr/testify/require"
)

// Run exercises a fresh store returned by newStore.
func Run(t *testing.T, newStore func(t *testing.T) credentials.Store) {
	t.Run("get missing", func(t *testing.T) {
		s := newStore(t)
		v, ok := s.Get(credentials.KeyAuthToken)
		require.False(t, ok)
		require.Empty(t, v)
	})

	t.Run("set then get", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(credentials.KeyAuthToken, "a.b.c"))
		v, ok := s.Get(credentials.KeyAuthToken)
		require.True(t, ok)
		require.Equal(t, "a.b.c", v)
	})

	t.Run("overwrite", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(credentials.KeyUser, `{"id":"1"}`))
		require.NoError(t, s.Set(credentials.KeyUser, `{"id":"2"}`))
		v, _ := s.Get(credentials.KeyUser)
		require.Equal(t, `{"id":"2"}`, v)
	})

	t.Run("remove", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(credentials.KeyRefreshToken, "r"))
		s.Remove(credentials.KeyRefreshToken)
		_, ok := s.Get(credentials.KeyRefreshToken)
		require.False(t, ok)

		// Removing an absent key is a no-op.
		s.Remove(credentials.KeyRefreshToken)
	})

	t.Run("clear all keeps unrelated keys", func(t *testing.T) {
		s := newStore(t)
		for _, k := range credentials.Keys {
			require.NoError(t, s.Set(k, "value"))
		}
		require.NoError(t, s.Set("theme", "dark"))

		s.ClearAll()

		for _, k := range credentials.Keys {
			_, ok := s.Get(k)
			require.False(t, ok, "key %s should be cleared", k)
		}
		v, ok := s.Get("theme")
		require.True(t, ok)
		require.Equal(t, "dark", v)
	})

	t.Run("purge removes legacy keys", func(t *testing.T) {
		s := newStore(t)
		require.NoError(t, s.Set(credentials.KeyAuthToken, "t"))
		require.NoError(t, s.Set("jwt", "legacy"))

		credentials.Purge(s)

		_, _, ok := credentials.LookupToken(s)
		require.False(t, ok)
	})
}
