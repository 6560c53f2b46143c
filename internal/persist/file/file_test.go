package filebackend

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/pkositsyn/bdayd/internal/birthday"
	"github.com/pkositsyn/bdayd/internal/store"
	"github.com/stretchr/testify/require"
)

func TestFileBackend(t *testing.T) {
	t.Run("missing file loads an empty store", func(t *testing.T) {
		b := New(Config{Path: filepath.Join(t.TempDir(), "absent.json")})
		snap, err := b.Load(context.Background())
		require.NoError(t, err)
		require.Empty(t, snap.Groups)
	})

	t.Run("save and load round trip", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "data", "bdayd.json")
		b := New(Config{Path: path})

		snap := store.Snapshot{Groups: []store.GroupSnapshot{
			{
				Config: birthday.GroupConfig{GroupID: "g1", Timezone: "UTC", AnnounceTarget: "general"},
				Events: []birthday.Event{
					{SubjectID: "alice", OccurrenceAt: time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC), NotifyTarget: "alice"},
					{SubjectID: "bob", OccurrenceAt: time.Date(2025, 6, 1, 12, 30, 0, 0, time.UTC), UsesTimeOfDay: true, NotifyTarget: "bob"},
				},
			},
		}}
		require.NoError(t, b.Save(context.Background(), snap))

		loaded, err := b.Load(context.Background())
		require.NoError(t, err)
		require.Equal(t, snap, loaded)
	})

	t.Run("save replaces atomically", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bdayd.json")
		b := New(Config{Path: path})
		require.NoError(t, b.Save(context.Background(), store.Snapshot{}))
		require.NoError(t, b.Save(context.Background(), store.Snapshot{Groups: []store.GroupSnapshot{
			{Config: birthday.GroupConfig{GroupID: "g1"}},
		}}))

		_, err := os.Stat(path + ".tmp")
		require.True(t, os.IsNotExist(err))

		loaded, err := b.Load(context.Background())
		require.NoError(t, err)
		require.Len(t, loaded.Groups, 1)
	})

	t.Run("corrupt snapshot is an error", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bdayd.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
		b := New(Config{Path: path})
		_, err := b.Load(context.Background())
		require.Error(t, err)
	})
}
