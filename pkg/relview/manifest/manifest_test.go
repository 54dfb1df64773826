package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cnily03/release-viewer/pkg/relview/reconcile"
)

func TestNew_RejectsEmptyDir(t *testing.T) {
	t.Parallel()

	_, err := New("")
	require.Error(t, err)
}

func TestLogSync_PersistsEntry(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	m, err := New(dir)
	require.NoError(t, err)

	entry, err := m.LogSync(Entry{
		Repo:       "acme/widget",
		Summary:    reconcile.Summary{Add: 2, Remove: 1},
		Downloaded: 2,
		Failed: []FailedRecord{
			{Kind: "add", Tag: "v1.0", Filename: "a.zip", Error: "timeout"},
		},
		Published: true,
		Duration:  3 * time.Second,
	})
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(entry.ID, "sync-"))
	assert.False(t, entry.Timestamp.IsZero())

	got, err := m.Get(entry.ID)
	require.NoError(t, err)
	assert.Equal(t, "acme/widget", got.Repo)
	assert.Equal(t, 2, got.Summary.Add)
	require.Len(t, got.Failed, 1)
	assert.Equal(t, "timeout", got.Failed[0].Error)
	assert.True(t, got.Published)
}

func TestList_NewestFirstWithLimit(t *testing.T) {
	t.Parallel()

	m, err := New(filepath.Join(t.TempDir(), "journal"))
	require.NoError(t, err)

	for _, repo := range []string{"acme/one", "acme/two", "acme/three"} {
		_, err := m.LogSync(Entry{Repo: repo})
		require.NoError(t, err)
		time.Sleep(2 * time.Millisecond)
	}

	entries, err := m.List(0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "acme/three", entries[0].Repo)

	limited, err := m.List(2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestList_MissingDirIsEmpty(t *testing.T) {
	t.Parallel()

	m, err := New(filepath.Join(t.TempDir(), "nowhere"))
	require.NoError(t, err)

	entries, err := m.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestList_SkipsCorruptEntries(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	m, err := New(dir)
	require.NoError(t, err)

	_, err = m.LogSync(Entry{Repo: "acme/widget"})
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sync-garbage.json"), []byte("{nope"), 0o644))

	entries, err := m.List(0)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestCleanup_RemovesOldEntries(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "journal")
	m, err := New(dir)
	require.NoError(t, err)

	entry, err := m.LogSync(Entry{Repo: "acme/widget"})
	require.NoError(t, err)

	old := time.Now().AddDate(0, 0, -60)
	oldPath := filepath.Join(dir, entry.ID+".json")
	require.NoError(t, os.Chtimes(oldPath, old, old))

	require.NoError(t, m.Cleanup(30))

	entries, err := m.List(0)
	require.NoError(t, err)
	assert.Empty(t, entries)
}
