package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/tessera/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func contractScript(id string) *domain.Script {
	return &domain.Script{
		ID:   id,
		Name: "Contract " + id,
		Root: &domain.Block{
			Kind:   domain.KindTrigger,
			Type:   "join",
			Params: domain.Params{"cancel": false},
			Children: []*domain.Block{
				{Kind: domain.KindAction, Type: "send_message", Params: domain.Params{"text": "hi {player}"}},
			},
		},
	}
}

// RunScriptStoreContract runs a suite of tests to verify that a ScriptStore implementation
// adheres to the defined interface contract.
func RunScriptStoreContract(t *testing.T, store ScriptStore) {
	ctx := context.Background()
	id := "contract-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		script := contractScript(id)
		require.NoError(t, store.Save(ctx, script), "Save should not return error")

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, script.ID, loaded.ID)
		assert.Equal(t, script.Name, loaded.Name)
		require.NotNil(t, loaded.Root)
		assert.Equal(t, "join", loaded.Root.Type)
		require.Len(t, loaded.Root.Children, 1)
		assert.Equal(t, "hi {player}", loaded.Root.Children[0].Params["text"])
	})

	t.Run("Saved copy is isolated", func(t *testing.T) {
		script := contractScript(id + "-iso")
		require.NoError(t, store.Save(ctx, script))
		script.Root.Children[0].Params["text"] = "mutated"

		loaded, err := store.Load(ctx, script.ID)
		require.NoError(t, err)
		assert.Equal(t, "hi {player}", loaded.Root.Children[0].Params["text"])
		_ = store.Delete(ctx, script.ID)
	})

	t.Run("Save replaces", func(t *testing.T) {
		script := contractScript(id)
		script.Name = "Replaced"
		require.NoError(t, store.Save(ctx, script))

		loaded, err := store.Load(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "Replaced", loaded.Name)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+id)
		assert.ErrorIs(t, err, domain.ErrScriptNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Delete(ctx, id), "Delete should not return error")

		_, err := store.Load(ctx, id)
		assert.ErrorIs(t, err, domain.ErrScriptNotFound, "Load after Delete should return ErrScriptNotFound")
		assert.NoError(t, store.Delete(ctx, id), "Deleting twice should not fail")
	})

	t.Run("List", func(t *testing.T) {
		id1, id2 := id+"-b", id+"-a"
		require.NoError(t, store.Save(ctx, contractScript(id1)))
		require.NoError(t, store.Save(ctx, contractScript(id2)))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		ids, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, ids, id1)
		assert.Contains(t, ids, id2)
		assert.IsIncreasing(t, ids)
	})
}
