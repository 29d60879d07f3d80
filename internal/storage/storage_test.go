package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/Chronicle/internal/errors"
)

func runSnapshotContract(t *testing.T, store SnapshotStore) {
	t.Helper()
	ctx := context.Background()

	_, err := store.LoadSnapshot(ctx)
	require.Error(t, err)
	assert.True(t, apperrors.IsNotFoundError(err))

	blob := []byte(`{"gameState":{"inventory":["torch"]},"suggestedActions":[],"timestamp":1}`)
	require.NoError(t, store.SaveSnapshot(ctx, blob))

	got, err := store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(blob), string(got))

	require.NoError(t, store.SaveSnapshot(ctx, []byte(`{"timestamp":2}`)))
	got, err = store.LoadSnapshot(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, `{"timestamp":2}`, string(got))

	require.NoError(t, store.DeleteSnapshot(ctx))
	require.NoError(t, store.DeleteSnapshot(ctx))
	_, err = store.LoadSnapshot(ctx)
	assert.True(t, apperrors.IsNotFoundError(err))
}

func TestFileSnapshotStore(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)
	runSnapshotContract(t, NewFileSnapshotStore(fs))
}

func TestRedisSnapshotStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := NewRedisSnapshotStoreFromClient(client)
	defer store.Close()

	require.NoError(t, store.Ping(context.Background()))
	runSnapshotContract(t, store)
}

func TestFileStorageJSON(t *testing.T) {
	fs, err := NewFileStorage(t.TempDir())
	require.NoError(t, err)

	type settings struct {
		Language string `json:"language"`
	}
	assert.False(t, fs.FileExists("", "settings.json"))
	require.NoError(t, fs.SaveJSONFile("", "settings.json", settings{Language: "ru"}))
	assert.True(t, fs.FileExists("", "settings.json"))
	assert.False(t, fs.FileExists("", "settings.json.tmp"))

	var out settings
	require.NoError(t, fs.LoadJSONFile("", "settings.json", &out))
	assert.Equal(t, "ru", out.Language)
}
