package roster

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"heroindex/internal/storage"
	"heroindex/internal/taxonomy"
)

func TestImport(t *testing.T) {
	dir := t.TempDir()
	db, err := storage.Open(filepath.Join(dir, "roster.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.UpsertHeroes(catalogHeroes))

	path := filepath.Join(dir, "roster.xlsx")
	require.NoError(t, os.WriteFile(path, mkXLSX(t, [][]any{
		{"Hero", "Teams"},
		{"Spider-Man", "Avengers (reserve), ally of Daredevil"},
		{"Superman", "Justice League / Superman Family"},
		{"Kite Man", "Legion of Doom"},
	}), 0o644))

	cfg := matchCfg
	cfg.HeroBatchSize = 2
	report, err := NewService(db, cfg, taxonomy.Default(), nil).Import(path)
	require.NoError(t, err)

	assert.Equal(t, path, report.Path)
	assert.Equal(t, 2, report.OK)
	require.Len(t, report.Results, 3)
	assert.Equal(t, []string{"Avengers"}, report.Results[0].Teams)
	assert.Equal(t, []string{"Justice League", "Superman Family"}, report.Results[1].Teams)
	assert.Equal(t, []string{"Legion of Doom"}, report.Results[2].Teams)
}
