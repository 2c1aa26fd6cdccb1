package retention

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/court-causelist/backend/internal/storage/models"
	"github.com/court-causelist/backend/internal/storage/sqlite"
)

func setup(t *testing.T) (*sqlite.Client, string) {
	t.Helper()
	root := t.TempDir()
	store, err := sqlite.NewClient(filepath.Join(root, "causelist.db"))
	require.NoError(t, err)
	require.NoError(t, store.InitSchema())
	t.Cleanup(func() { store.Close() })

	out := filepath.Join(root, "output")
	require.NoError(t, os.MkdirAll(out, 0o755))
	return store, out
}

func writeFile(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
}

func TestSweepRemovesExpiredArtifacts(t *testing.T) {
	store, out := setup(t)
	now := time.Now()

	expired := filepath.Join(out, "cause_lists_old", "causelist_a.pdf")
	live := filepath.Join(out, "cause_lists_new", "causelist_b.pdf")
	writeFile(t, expired)
	writeFile(t, live)

	require.NoError(t, store.InsertArtifact(&models.Artifact{ID: "1", Filename: "causelist_a.pdf", Path: expired, ContentType: "application/pdf", CreatedAt: now.Add(-time.Hour), ExpiresAt: now.Add(-time.Minute)}))
	require.NoError(t, store.InsertArtifact(&models.Artifact{ID: "2", Filename: "causelist_b.pdf", Path: live, ContentType: "application/pdf", CreatedAt: now, ExpiresAt: now.Add(time.Hour)}))

	s := NewSweeper(store, Config{OutputDir: out, Retention: time.Hour}, nil)
	res := s.Sweep()

	assert.Equal(t, 1, res.Files)
	assert.NoFileExists(t, expired)
	assert.FileExists(t, live)

	_, err := store.GetArtifact("causelist_a.pdf")
	assert.ErrorIs(t, err, sqlite.ErrNotFound)
	_, err = store.GetArtifact("causelist_b.pdf")
	assert.NoError(t, err)
}

func TestSweepToleratesMissingFile(t *testing.T) {
	store, out := setup(t)
	now := time.Now()
	require.NoError(t, store.InsertArtifact(&models.Artifact{ID: "1", Filename: "gone.zip", Path: filepath.Join(out, "gone.zip"), ContentType: "application/zip", CreatedAt: now, ExpiresAt: now.Add(-time.Second)}))

	res := NewSweeper(store, Config{OutputDir: out}, nil).Sweep()
	assert.Equal(t, 1, res.Files)
}

func TestSweepRemovesStaleOutputDirs(t *testing.T) {
	store, out := setup(t)

	stale := filepath.Join(out, "cause_lists_20241015_090000")
	fresh := filepath.Join(out, "cause_lists_20241015_100000")
	other := filepath.Join(out, "keep-me")
	writeFile(t, filepath.Join(stale, "a.pdf"))
	writeFile(t, filepath.Join(fresh, "b.pdf"))
	require.NoError(t, os.MkdirAll(other, 0o755))

	old := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(stale, old, old))
	require.NoError(t, os.Chtimes(other, old, old))

	res := NewSweeper(store, Config{OutputDir: out, Retention: 5 * time.Minute}, nil).Sweep()

	assert.Equal(t, 1, res.Dirs)
	assert.NoDirExists(t, stale)
	assert.DirExists(t, fresh)
	assert.DirExists(t, other)
}

func TestSweepPrunesRuns(t *testing.T) {
	store, out := setup(t)
	old := time.Now().Add(-72 * time.Hour)
	require.NoError(t, store.InsertFetchRun(&models.FetchRun{ID: "r1", Site: "ecourts", Status: models.RunEmpty, StartedAt: old, FinishedAt: old}))

	res := NewSweeper(store, Config{OutputDir: out, RunRetention: 24 * time.Hour}, nil).Sweep()
	assert.Equal(t, int64(1), res.Runs)
}

func TestRunStopsWithContext(t *testing.T) {
	store, out := setup(t)
	s := NewSweeper(store, Config{OutputDir: out, Interval: time.Millisecond}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
