package cmd_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/progscrape/progscrape-sub000/cmd/progscrape/cmd"
	"github.com/progscrape/progscrape-sub000/pkg/scrape"
	"github.com/progscrape/progscrape-sub000/pkg/storyid"
	"github.com/progscrape/progscrape-sub000/pkg/storyurl"
)

func TestNewDeclaresExpectedSubcommands(t *testing.T) {
	t.Parallel()

	root := cmd.New()
	assert.Equal(t, "progscrape", root.Name)

	names := make([]string, len(root.Commands))
	for i, c := range root.Commands {
		names[i] = c.Name
	}

	assert.ElementsMatch(t, []string{"ingest", "reinsert", "backup", "restore", "search", "stats"}, names)
}

func writeConfig(t *testing.T, dataDir string) string {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "progscrape.yaml")

	doc := "storage:\n" +
		"  scrape_store_dir: " + filepath.Join(dataDir, "scrapes") + "\n" +
		"  index_dir: " + filepath.Join(dataDir, "index") + "\n" +
		"  backup_dir: " + filepath.Join(dataDir, "backup") + "\n"

	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	return path
}

func writeNDJSON(t *testing.T) string {
	t.Helper()

	u, err := storyurl.New("http://example.com/cli-test")
	require.NoError(t, err)

	rec := scrape.HackerNews{
		Common: scrape.Common{ID: storyid.New(storyid.HackerNews, "100"), RawTitle: "CLI test story", URL: u},
		Points: 7,
	}

	payload, err := scrape.Marshal(rec)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "in.ndjson")
	require.NoError(t, os.WriteFile(path, append(payload, '\n'), 0o644))

	return path
}

func TestIngestThenStatsRunsEndToEnd(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)
	inPath := writeNDJSON(t)

	ctx := context.Background()

	require.NoError(t, cmd.New().Run(ctx, []string{"progscrape", "--config", cfgPath, "ingest", "--file", inPath}))
	require.NoError(t, cmd.New().Run(ctx, []string{"progscrape", "--config", cfgPath, "stats"}))
}

func TestSearchRequiresAQueryFlag(t *testing.T) {
	t.Parallel()

	dataDir := t.TempDir()
	cfgPath := writeConfig(t, dataDir)

	err := cmd.New().Run(context.Background(), []string{"progscrape", "--config", cfgPath, "search"})
	require.Error(t, err)
}
