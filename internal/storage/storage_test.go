package storage

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "uploads"))
	require.NoError(t, err)
	return store
}

func TestStageAndPromote(t *testing.T) {
	store := newTestStore(t)

	staged, err := store.Stage(strings.NewReader("report"), ".PNG")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(staged, "tmp-"))
	assert.True(t, strings.HasSuffix(staged, ".png"))
	assert.True(t, store.Exists(staged))

	final := FinalName("timesheet", 7, ".png", time.Unix(1700000000, 0))
	assert.Equal(t, "timesheet_7_1700000000.png", final)

	require.NoError(t, store.Promote(staged, final))
	assert.False(t, store.Exists(staged))

	path, err := store.Path(final)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "report", string(data))
}

func TestPromote_MissingStagedFile(t *testing.T) {
	store := newTestStore(t)
	assert.Error(t, store.Promote("tmp-missing.png", "final.png"))
}

func TestRemove(t *testing.T) {
	store := newTestStore(t)

	staged, err := store.Stage(strings.NewReader("x"), ".jpg")
	require.NoError(t, err)
	require.NoError(t, store.Remove(staged))
	assert.False(t, store.Exists(staged))

	// Removing twice is fine.
	assert.NoError(t, store.Remove(staged))
}

func TestPath_RejectsTraversal(t *testing.T) {
	store := newTestStore(t)

	for _, name := range []string{"", "..", "../secret", "a/b.png"} {
		_, err := store.Path(name)
		assert.ErrorIs(t, err, ErrInvalidName, name)
	}
}

func TestSweep(t *testing.T) {
	store := newTestStore(t)
	now := time.Now()

	old, err := store.Stage(strings.NewReader("old"), ".png")
	require.NoError(t, err)
	oldPath, _ := store.Path(old)
	require.NoError(t, os.Chtimes(oldPath, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	fresh, err := store.Stage(strings.NewReader("fresh"), ".png")
	require.NoError(t, err)

	keptPath := filepath.Join(store.Dir(), "user_1_1700000000.jpg")
	require.NoError(t, os.WriteFile(keptPath, []byte("avatar"), 0o644))
	require.NoError(t, os.Chtimes(keptPath, now.Add(-48*time.Hour), now.Add(-48*time.Hour)))

	removed, err := store.Sweep(24*time.Hour, now)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.False(t, store.Exists(old))
	assert.True(t, store.Exists(fresh))
	assert.True(t, store.Exists("user_1_1700000000.jpg"))
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "image/png", ContentType("a.PNG"))
	assert.Equal(t, "application/octet-stream", ContentType("noext"))
}
