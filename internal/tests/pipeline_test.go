package tests

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/lcalzada-xor/netrisk/internal/adapters/cve"
	"github.com/lcalzada-xor/netrisk/internal/adapters/epss"
	"github.com/lcalzada-xor/netrisk/internal/adapters/storage"
	"github.com/lcalzada-xor/netrisk/internal/core/services/enrich"
	"github.com/lcalzada-xor/netrisk/internal/core/services/ingest"
	"github.com/lcalzada-xor/netrisk/internal/core/services/scoring"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const scanDocument = `<?xml version="1.0"?>
<nmaprun scanner="nmap">
  <host>
    <address addr="10.0.0.5" addrtype="ipv4"/>
    <ports>
      <port protocol="tcp" portid="80">
        <state state="open"/>
        <service name="http" product="Apache httpd" version="2.2.34" extrainfo="Unix"/>
      </port>
      <port protocol="tcp" portid="443">
        <state state="closed"/>
      </port>
    </ports>
  </host>
</nmaprun>`

const cveCache = `{
	"apache httpd:2.2.34": [
		{"cve_id": "CVE-2017-9798", "cvss": 5.0, "description": "Optionsbleed"}
	]
}`

const epssCache = `{"data":[
	{"cve": "CVE-2017-9798", "epss": "0.92", "percentile": "0.991"}
]}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// runPipeline drives one full ingest -> match -> merge -> score -> aggregate
// pass over the given store.
func runPipeline(t *testing.T, adapter *storage.SQLiteAdapter, scanGlob, cvePath, epssPath string) scoring.Summary {
	t.Helper()
	ctx := context.Background()

	_, err := ingest.NewService(adapter).IngestGlob(ctx, scanGlob)
	require.NoError(t, err)

	lookup, err := cve.NewCacheLookup(cvePath)
	require.NoError(t, err)
	_, err = enrich.NewMatcher(adapter, adapter, lookup).Run(ctx)
	require.NoError(t, err)

	source, err := epss.NewCacheSource(epssPath)
	require.NoError(t, err)
	_, err = enrich.NewMerger(adapter, source).Run(ctx, false)
	require.NoError(t, err)

	calc, err := scoring.NewCalculator(scoring.DefaultConfig())
	require.NoError(t, err)
	scorer := scoring.NewScorer(calc, adapter)
	summary, err := scorer.Run(ctx, scoring.Options{})
	require.NoError(t, err)
	require.NoError(t, scorer.Aggregate(ctx))

	return summary
}

func TestPipelineEndToEnd(t *testing.T) {
	dir := t.TempDir()
	scanGlob := filepath.Join(dir, "*.xml")
	writeFile(t, dir, "scan.xml", scanDocument)
	cvePath := writeFile(t, dir, "cve.json", cveCache)
	epssPath := writeFile(t, dir, "epss.json", epssCache)

	adapter, err := storage.NewSQLiteAdapter(filepath.Join(dir, "netrisk.db"))
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	summary := runPipeline(t, adapter, scanGlob, cvePath, epssPath)
	assert.Equal(t, 1, summary.Processed)
	assert.Equal(t, int64(1), summary.Updated)

	// Only the open port made it into inventory.
	services, err := adapter.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, 80, services[0].Port)

	findings, err := adapter.FindingsByService(ctx, services[0].ID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	assert.Equal(t, "CVE-2017-9798", findings[0].CVEID)
	require.NotNil(t, findings[0].EPSS)
	assert.InDelta(t, 0.92, *findings[0].EPSS, 1e-9)
	require.NotNil(t, findings[0].EPSSPercentile)
	assert.InDelta(t, 99.1, *findings[0].EPSSPercentile, 1e-9)

	// 0.45*50 (cvss 5.0) + 0.25*50 (default criticality) + 0.10*92 (epss)
	require.NotNil(t, findings[0].RiskScore)
	assert.InDelta(t, 44.20, *findings[0].RiskScore, 1e-9)

	hosts, err := adapter.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 1)
	require.NotNil(t, hosts[0].MaxRisk)
	assert.InDelta(t, 44.20, *hosts[0].MaxRisk, 1e-9)
}

func TestPipelineRerunIsStable(t *testing.T) {
	dir := t.TempDir()
	scanGlob := filepath.Join(dir, "*.xml")
	writeFile(t, dir, "scan.xml", scanDocument)
	cvePath := writeFile(t, dir, "cve.json", cveCache)
	epssPath := writeFile(t, dir, "epss.json", epssCache)

	adapter, err := storage.NewSQLiteAdapter(filepath.Join(dir, "netrisk.db"))
	require.NoError(t, err)
	defer adapter.Close()
	ctx := context.Background()

	runPipeline(t, adapter, scanGlob, cvePath, epssPath)
	second := runPipeline(t, adapter, scanGlob, cvePath, epssPath)

	// Everything was already matched, merged and scored.
	assert.Zero(t, second.Processed)

	hosts, err := adapter.ListHosts(ctx)
	require.NoError(t, err)
	require.Len(t, hosts, 1)

	services, err := adapter.ListServices(ctx)
	require.NoError(t, err)
	require.Len(t, services, 1)

	findings, err := adapter.FindingsByService(ctx, services[0].ID)
	require.NoError(t, err)
	require.Len(t, findings, 1)
	require.NotNil(t, findings[0].RiskScore)
	assert.InDelta(t, 44.20, *findings[0].RiskScore, 1e-9)
}
