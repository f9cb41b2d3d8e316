package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/pkg/config"
)

func TestLoadAppConfigParsesStorageAndTuningTables(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	doc := `
storage:
  scrape_store_dir: /data/scrapes
  index_dir: /data/index
  backup_dir: /data/backup
scorer:
  age_breakpoint_days: [1, 30]
  hour_scores: [-5, -3, -0.1]
tagger:
  tags:
    languages:
      rust:
        alts: ["rustlang"]
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := config.LoadAppConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "/data/scrapes", cfg.Storage.ScrapeStoreDir)
	assert.Equal(t, [2]float64{1, 30}, cfg.Scorer.AgeBreakpointDays)
	assert.Contains(t, cfg.Tagger.Tags["languages"], "rust")
}

func TestLoadAppConfigReturnsErrorForMissingFile(t *testing.T) {
	t.Parallel()

	_, err := config.LoadAppConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestDefaultAppConfigRootsStoragePaths(t *testing.T) {
	t.Parallel()

	cfg := config.DefaultAppConfig("/data")
	assert.Equal(t, "/data/scrapes", cfg.Storage.ScrapeStoreDir)
	assert.Equal(t, "/data/index", cfg.Storage.IndexDir)
	assert.Equal(t, "/data/backup", cfg.Storage.BackupDir)
}
