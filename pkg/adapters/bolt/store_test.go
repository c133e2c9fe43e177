package bolt_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aretw0/tessera/pkg/adapters/bolt"
	"github.com/aretw0/tessera/pkg/domain"
	"github.com/aretw0/tessera/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBoltStore_Contract(t *testing.T) {
	store, err := bolt.Open(filepath.Join(t.TempDir(), "scripts.db"))
	require.NoError(t, err)
	defer store.Close()

	ports.RunScriptStoreContract(t, store)
}

func TestBoltStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "scripts.db")
	ctx := context.Background()

	store, err := bolt.Open(path, bolt.WithBucket("custom"))
	require.NoError(t, err)
	require.NoError(t, store.Save(ctx, &domain.Script{ID: "keep", Root: &domain.Block{Type: "join"}}))
	require.NoError(t, store.Close())

	store, err = bolt.Open(path, bolt.WithBucket("custom"))
	require.NoError(t, err)
	defer store.Close()

	loaded, err := store.Load(ctx, "keep")
	require.NoError(t, err)
	assert.Equal(t, "join", loaded.Root.Type)

	ids, err := store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"keep"}, ids)
}
