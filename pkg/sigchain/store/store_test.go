package store_test

import (
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/sigchain/pkg/sigchain/store"
)

// storeFactory creates a store instance for testing.
type storeFactory func(t *testing.T) store.Store

func factories() map[string]storeFactory {
	return map[string]storeFactory{
		"Memory": func(t *testing.T) store.Store { return store.NewMemoryStore() },
		"SQLite": func(t *testing.T) store.Store {
			s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "docs.db"))
			require.NoError(t, err)
			return s
		},
	}
}

func TestStoreContract(t *testing.T) {
	for name, factory := range factories() {
		t.Run(name, func(t *testing.T) {
			storeContractTest(t, factory)
		})
	}
}

func storeContractTest(t *testing.T, factory storeFactory) {
	t.Run("Save_and_Load", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		data := []byte("version: 1\nchains: []\n")
		require.NoError(t, s.Save("rig", data))

		loaded, err := s.Load("rig")
		require.NoError(t, err)
		assert.Equal(t, data, loaded)
	})

	t.Run("Load_NotFound", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		_, err := s.Load("missing")
		assert.ErrorIs(t, err, store.ErrNotFound)
		_, err = s.LoadRevision("missing", 1)
		assert.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("Save_EmptyName", func(t *testing.T) {
		s := factory(t)
		defer s.Close()
		assert.ErrorIs(t, s.Save("", []byte("x")), store.ErrInvalidName)
	})

	t.Run("Revisions", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("rig", []byte("first")))
		require.NoError(t, s.Save("rig", []byte("second")))
		require.NoError(t, s.Save("rig", []byte("third!")))

		latest, err := s.Load("rig")
		require.NoError(t, err)
		assert.Equal(t, []byte("third!"), latest)

		first, err := s.LoadRevision("rig", 1)
		require.NoError(t, err)
		assert.Equal(t, []byte("first"), first)

		revs, err := s.Revisions("rig")
		require.NoError(t, err)
		require.Len(t, revs, 3)
		for i, r := range revs {
			assert.Equal(t, i+1, r.Revision)
			assert.Equal(t, "rig", r.Name)
			assert.WithinDuration(t, time.Now(), r.Timestamp, time.Minute)
		}
		assert.Equal(t, int64(6), revs[2].Size)
	})

	t.Run("List", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		infos, err := s.List()
		require.NoError(t, err)
		assert.Empty(t, infos)

		require.NoError(t, s.Save("zeta", []byte("z")))
		require.NoError(t, s.Save("alpha", []byte("a1")))
		require.NoError(t, s.Save("alpha", []byte("a2-longer")))

		infos, err = s.List()
		require.NoError(t, err)
		require.Len(t, infos, 2)
		assert.Equal(t, "alpha", infos[0].Name)
		assert.Equal(t, 2, infos[0].Revision)
		assert.Equal(t, int64(9), infos[0].Size)
		assert.Equal(t, "zeta", infos[1].Name)
		assert.Equal(t, 1, infos[1].Revision)
	})

	t.Run("Delete", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		require.NoError(t, s.Save("rig", []byte("a")))
		require.NoError(t, s.Save("rig", []byte("b")))
		require.NoError(t, s.Delete("rig"))
		require.NoError(t, s.Delete("never-saved"))

		_, err := s.Load("rig")
		assert.ErrorIs(t, err, store.ErrNotFound)
		revs, err := s.Revisions("rig")
		require.NoError(t, err)
		assert.Empty(t, revs)
	})

	t.Run("Closed", func(t *testing.T) {
		s := factory(t)
		require.NoError(t, s.Close())

		assert.ErrorIs(t, s.Save("rig", []byte("x")), store.ErrStoreClosed)
		_, err := s.Load("rig")
		assert.ErrorIs(t, err, store.ErrStoreClosed)
		_, err = s.List()
		assert.ErrorIs(t, err, store.ErrStoreClosed)
		assert.ErrorIs(t, s.Delete("rig"), store.ErrStoreClosed)
	})

	t.Run("Concurrent", func(t *testing.T) {
		s := factory(t)
		defer s.Close()

		var wg sync.WaitGroup
		for i := range 10 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				assert.NoError(t, s.Save(fmt.Sprintf("doc-%d", i), []byte("data")))
			}()
		}
		wg.Wait()

		infos, err := s.List()
		require.NoError(t, err)
		assert.Len(t, infos, 10)
	})
}

func TestMemoryStore_CopiesData(t *testing.T) {
	s := store.NewMemoryStore()
	data := []byte("original")
	require.NoError(t, s.Save("rig", data))
	data[0] = 'X'

	loaded, err := s.Load("rig")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), loaded)

	loaded[0] = 'Y'
	again, err := s.Load("rig")
	require.NoError(t, err)
	assert.Equal(t, []byte("original"), again)
	assert.Equal(t, 1, s.Len())
}

func TestSQLiteStore_Persistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "docs.db")

	s1, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	require.NoError(t, s1.Save("rig", []byte("persistent")))
	require.NoError(t, s1.Close())
	require.NoError(t, s1.Close(), "second close is a no-op")

	s2, err := store.NewSQLiteStore(dbPath)
	require.NoError(t, err)
	defer s2.Close()

	data, err := s2.Load("rig")
	require.NoError(t, err)
	assert.Equal(t, []byte("persistent"), data)

	require.NoError(t, s2.Save("rig", []byte("next")))
	revs, err := s2.Revisions("rig")
	require.NoError(t, err)
	assert.Len(t, revs, 2)
}

func TestSQLiteStore_InMemory(t *testing.T) {
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	defer s.Close()

	require.NoError(t, s.Save("rig", []byte("x")))
	data, err := s.Load("rig")
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), data)
}

func TestSQLiteStore_InvalidPath(t *testing.T) {
	_, err := store.NewSQLiteStore("/nonexistent/path/docs.db")
	assert.Error(t, err)
}
