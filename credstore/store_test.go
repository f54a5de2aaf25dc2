package credstore

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "creds.db"))
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"sqlite": sqlite,
		"memory": NewMemory(),
	}
}

func sampleSource(id byte, rpID string) *CredentialSource {
	return &CredentialSource{
		ID:              []byte{id, 0x02, 0x03, 0x04},
		Type:            TypePublicKey,
		RPID:            rpID,
		UserHandle:      []byte("user-1"),
		UserName:        "alice",
		UserDisplayName: "Alice",
		AAGUID:          []byte{0xaa, 0xbb},
		KeyLabel:        fmt.Sprintf("label-%d", id),
	}
}

func TestStoreAndLoad(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := sampleSource(1, "example.com")
			require.NoError(t, store.Store(ctx, src))

			got, err := store.Load(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, src.ID, got.ID)
			assert.Equal(t, "example.com", got.RPID)
			assert.Equal(t, "alice", got.UserName)
			assert.Equal(t, src.KeyLabel, got.KeyLabel)
			assert.Equal(t, uint32(0), got.SignatureCounter)
			assert.False(t, got.CreatedAt.IsZero())
		})
	}
}

func TestLoadMissing(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Load(context.Background(), []byte("nope"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestLoadAllFiltersByRP(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, store.Store(ctx, sampleSource(1, "example.com")))
			require.NoError(t, store.Store(ctx, sampleSource(2, "example.com")))
			require.NoError(t, store.Store(ctx, sampleSource(3, "other.com")))

			matched, err := store.LoadAll(ctx, "example.com")
			require.NoError(t, err)
			assert.Len(t, matched, 2)
			for _, src := range matched {
				assert.Equal(t, "example.com", src.RPID)
			}

			all, err := store.LoadAll(ctx, "")
			require.NoError(t, err)
			assert.Len(t, all, 3)

			none, err := store.LoadAll(ctx, "missing.com")
			require.NoError(t, err)
			assert.Empty(t, none)
		})
	}
}

func TestDelete(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := sampleSource(1, "example.com")
			require.NoError(t, store.Store(ctx, src))

			require.NoError(t, store.Delete(ctx, src.ID))
			_, err := store.Load(ctx, src.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, store.Delete(ctx, src.ID), ErrNotFound)
		})
	}
}

func TestDeleteAllByAAGUID(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			mine := sampleSource(1, "example.com")
			other := sampleSource(2, "example.com")
			other.AAGUID = []byte{0x01}
			require.NoError(t, store.Store(ctx, mine))
			require.NoError(t, store.Store(ctx, other))

			require.NoError(t, store.DeleteAll(ctx, mine.AAGUID))

			_, err := store.Load(ctx, mine.ID)
			assert.ErrorIs(t, err, ErrNotFound)
			_, err = store.Load(ctx, other.ID)
			assert.NoError(t, err, "other aaguid must survive")
		})
	}
}

func TestIncreaseSignatureCounter(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := sampleSource(1, "example.com")
			require.NoError(t, store.Store(ctx, src))

			first, err := store.IncreaseSignatureCounter(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, uint32(1), first)

			second, err := store.IncreaseSignatureCounter(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, uint32(2), second)

			got, err := store.Load(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, uint32(2), got.SignatureCounter)

			_, err = store.IncreaseSignatureCounter(ctx, []byte("nope"))
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestConcurrentIncrementsNeverDuplicate(t *testing.T) {
	const workers = 16

	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := sampleSource(1, "example.com")
			require.NoError(t, store.Store(ctx, src))

			var wg sync.WaitGroup
			results := make(chan uint32, workers)
			for i := 0; i < workers; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					n, err := store.IncreaseSignatureCounter(ctx, src.ID)
					assert.NoError(t, err)
					results <- n
				}()
			}
			wg.Wait()
			close(results)

			seen := make(map[uint32]bool)
			for n := range results {
				assert.False(t, seen[n], "counter value %d returned twice", n)
				seen[n] = true
			}
			assert.Len(t, seen, workers)

			got, err := store.Load(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, uint32(workers), got.SignatureCounter)
		})
	}
}

func TestUpsertPreservesCounter(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			src := sampleSource(1, "example.com")
			require.NoError(t, store.Store(ctx, src))

			_, err := store.IncreaseSignatureCounter(ctx, src.ID)
			require.NoError(t, err)

			src.UserDisplayName = "Alice Example"
			require.NoError(t, store.Store(ctx, src))

			got, err := store.Load(ctx, src.ID)
			require.NoError(t, err)
			assert.Equal(t, "Alice Example", got.UserDisplayName)
			assert.Equal(t, uint32(1), got.SignatureCounter, "upsert must not reset the counter")
		})
	}
}
