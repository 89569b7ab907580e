package reagentcrawler

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lazuli-inc/reagentcrawler/workbook"
)

func TestReagentCrawlerRunsSitesIndependently(t *testing.T) {
	dir := chdirTemp(t)
	_, good := newCatalogServer(t, pagesOf(map[int][]string{1: {"1", "2"}}))
	_, broken := newCatalogServer(t, func(int) (int, string) {
		return http.StatusInternalServerError, "down"
	})

	goodCfg := catalogConfig(good)
	goodCfg.Name = "zeta"
	brokenCfg := catalogConfig(broken)
	brokenCfg.Name = "alpha"
	invalid := CrawlerConfig{}

	out := filepath.Join(dir, "proteins.xlsx")
	rc := &ReagentCrawler{config: testConfig(map[string]string{"OUTPUT_WORKBOOK": out})}
	rc.AddSite(goodCfg).AddSite(brokenCfg).AddSite(invalid)

	results := rc.Start(context.Background())
	require.Len(t, results, 3)

	assert.Equal(t, "zeta", results[0].Site)
	assert.NoError(t, results[0].Err)
	assert.Len(t, results[0].Sheet.Rows, 3)
	assert.EqualValues(t, 2, results[0].Stats.Emitted)

	assert.NoError(t, results[1].Err)
	assert.Len(t, results[1].Sheet.Rows, 1)
	require.Len(t, results[1].Warnings, 1)
	assert.Equal(t, WarningListing, results[1].Warnings[0].Kind)

	assert.Error(t, results[2].Err)

	sheets, err := workbook.Read(out)
	require.NoError(t, err)
	require.Len(t, sheets, 2)
	assert.Equal(t, "alpha", sheets[0].Name)
	assert.Equal(t, "zeta", sheets[1].Name)
	assert.Len(t, sheets[1].Rows, 3)
}

func TestWriteWorkbookSkipsEmptyResults(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, writeWorkbook(out, []SiteResult{{Site: "failed"}}))
	assert.NoFileExists(t, out)
}

func TestReagentCrawlerLogsWorkbookFailure(t *testing.T) {
	dir := chdirTemp(t)
	_, srv := newCatalogServer(t, pagesOf(map[int][]string{1: {"1"}}))
	blocked := filepath.Join(dir, "blocked")
	require.NoError(t, os.WriteFile(blocked, []byte("not a directory"), 0644))

	cfg := catalogConfig(srv)
	cfg.Name = "zeta"
	out := filepath.Join(blocked, "proteins.xlsx")
	rc := &ReagentCrawler{config: testConfig(map[string]string{"OUTPUT_WORKBOOK": out})}
	results := rc.AddSite(cfg).Start(context.Background())
	require.Len(t, results, 1)
	require.NoError(t, results[0].Err)

	logs, err := filepath.Glob(filepath.Join(dir, "storage", "logs", workbookLogName, "*_application.log"))
	require.NoError(t, err)
	require.Len(t, logs, 1)
	content, err := os.ReadFile(logs[0])
	require.NoError(t, err)
	assert.Contains(t, string(content), "ERROR: Failed to write workbook "+out)
}
