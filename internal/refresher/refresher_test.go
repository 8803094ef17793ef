package refresher

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"heroindex/internal"
	"heroindex/internal/catalog"
	"heroindex/internal/config"
	"heroindex/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeSyncer struct {
	calls  atomic.Int32
	result catalog.SyncResult
	err    error
}

func (f *fakeSyncer) Sync(ctx context.Context) (catalog.SyncResult, error) {
	f.calls.Add(1)
	return f.result, f.err
}

func openDB(t *testing.T) *storage.DB {
	t.Helper()
	db, err := storage.Open(filepath.Join(t.TempDir(), "refresh.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestRunCycleExportsOnChange(t *testing.T) {
	db := openDB(t)
	require.NoError(t, db.UpsertHeroes([]internal.Hero{{APIID: 1, Name: "A-Bomb", Teams: []string{"Hulk Family"}}}))

	out := t.TempDir()
	cfg := config.Config{OutputDir: out, HeroBatchSize: 10, RefreshAutoExport: true}
	syncer := &fakeSyncer{result: catalog.SyncResult{Fetched: 1, SyncDiff: catalog.SyncDiff{Added: 1}}}

	require.NoError(t, NewService(db, syncer, cfg, nil).RunCycle(context.Background()))
	_, err := os.Stat(filepath.Join(out, "refresh", "teams.xlsx"))
	assert.NoError(t, err)
}

func TestRunCycleSkipsExportWhenUnchanged(t *testing.T) {
	db := openDB(t)
	out := t.TempDir()
	cfg := config.Config{OutputDir: out, HeroBatchSize: 10, RefreshAutoExport: true}
	syncer := &fakeSyncer{result: catalog.SyncResult{Fetched: 3, SyncDiff: catalog.SyncDiff{Unchanged: 3}}}

	require.NoError(t, NewService(db, syncer, cfg, nil).RunCycle(context.Background()))
	_, err := os.Stat(filepath.Join(out, "refresh", "teams.xlsx"))
	assert.True(t, os.IsNotExist(err))
}

func TestRunCyclePropagatesSyncError(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("upstream down")}
	err := NewService(openDB(t), syncer, config.Config{}, nil).RunCycle(context.Background())
	assert.EqualError(t, err, "upstream down")
}

func TestRunDisabled(t *testing.T) {
	syncer := &fakeSyncer{}
	require.NoError(t, NewService(openDB(t), syncer, config.Config{}, nil).Run(context.Background()))
	assert.Zero(t, syncer.calls.Load())
}

func TestRunStopsOnCancel(t *testing.T) {
	syncer := &fakeSyncer{err: errors.New("flaky")}
	cfg := config.Config{CatalogRefreshIntervalSec: 3600}
	svc := NewService(openDB(t), syncer, cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- svc.Run(ctx) }()

	require.Eventually(t, func() bool { return syncer.calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
