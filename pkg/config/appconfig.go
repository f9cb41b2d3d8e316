package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// StorageConfig points at the on-disk roots for the raw scrape store, the
// sharded search index, and backup output (spec.md §6).
type StorageConfig struct {
	ScrapeStoreDir string `yaml:"scrape_store_dir"`
	IndexDir       string `yaml:"index_dir"`
	BackupDir      string `yaml:"backup_dir"`
}

// AppConfig is the top-level file cmd/progscrape loads: storage roots plus
// the tagger/scorer/extract tuning tables, all in one YAML document so an
// operator edits a single file (spec.md §4.4/§4.5 call these "data tables,
// not knobs", hence file-based rather than flag-based).
type AppConfig struct {
	Storage StorageConfig `yaml:"storage"`
	Tagger  TaggerConfig  `yaml:"tagger"`
	Scorer  ScorerConfig  `yaml:"scorer"`
	Extract ExtractConfig `yaml:"extract"`
}

// DefaultAppConfig returns a usable configuration with empty tuning tables
// and storage rooted at dataDir.
func DefaultAppConfig(dataDir string) AppConfig {
	return AppConfig{
		Storage: StorageConfig{
			ScrapeStoreDir: dataDir + "/scrapes",
			IndexDir:       dataDir + "/index",
			BackupDir:      dataDir + "/backup",
		},
		Tagger:  TaggerConfig{Tags: map[string]map[string]TagEntry{}},
		Scorer:  DefaultScorerConfig(),
		Extract: DefaultExtractConfig(),
	}
}

// LoadAppConfig reads and parses an AppConfig from path.
func LoadAppConfig(path string) (AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return AppConfig{}, fmt.Errorf("config: read %s: %w", path, err)
	}

	cfg := DefaultAppConfig(".")

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return AppConfig{}, fmt.Errorf("config: parse %s: %w", path, err)
	}

	return cfg, nil
}
