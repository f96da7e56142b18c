package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/lcalzada-xor/netrisk/internal/adapters/storage"
	"github.com/lcalzada-xor/netrisk/internal/core/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestServer(t *testing.T) (*httptest.Server, *storage.SQLiteAdapter) {
	t.Helper()

	adapter, err := storage.NewSQLiteAdapter(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { adapter.Close() })

	server := NewServer("", adapter, adapter)
	ts := httptest.NewServer(SetupRoutes(server))
	t.Cleanup(ts.Close)
	return ts, adapter
}

func seedTestData(t *testing.T, adapter *storage.SQLiteAdapter) (hostID, serviceID uint) {
	t.Helper()
	ctx := context.Background()

	hostIDs, err := adapter.UpsertHosts(ctx, []string{"10.0.0.1"})
	require.NoError(t, err)

	_, err = adapter.UpsertServices(ctx, []domain.ScanRecord{
		{IP: "10.0.0.1", Port: 80, Protocol: "tcp", Product: "nginx", Version: "1.18.0"},
	}, hostIDs)
	require.NoError(t, err)

	services, err := adapter.ServicesByHost(ctx, hostIDs["10.0.0.1"])
	require.NoError(t, err)
	require.Len(t, services, 1)

	_, err = adapter.InsertFindings(ctx, []domain.Finding{
		{ServiceID: services[0].ID, CVEID: "CVE-2021-23017"},
	})
	require.NoError(t, err)

	return hostIDs["10.0.0.1"], services[0].ID
}

func getJSON(t *testing.T, url string, out interface{}) int {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode == http.StatusOK {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestSummaryEndpoint(t *testing.T) {
	ts, adapter := setupTestServer(t)
	seedTestData(t, adapter)

	var summary map[string]interface{}
	status := getJSON(t, ts.URL+"/api/summary", &summary)

	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, summary["hosts"])
	assert.EqualValues(t, 1, summary["services"])
	assert.EqualValues(t, 0, summary["scored_hosts"])
}

func TestHostEndpoints(t *testing.T) {
	ts, adapter := setupTestServer(t)
	hostID, _ := seedTestData(t, adapter)

	var hosts []domain.Host
	status := getJSON(t, ts.URL+"/api/hosts", &hosts)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, hosts, 1)
	assert.Equal(t, "10.0.0.1", hosts[0].IP)

	var services []domain.Service
	status = getJSON(t, ts.URL+"/api/hosts/"+itoa(hostID)+"/services", &services)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, services, 1)
	assert.Equal(t, 80, services[0].Port)
}

func TestServiceFindingsEndpoint(t *testing.T) {
	ts, adapter := setupTestServer(t)
	_, serviceID := seedTestData(t, adapter)

	var findings []domain.Finding
	status := getJSON(t, ts.URL+"/api/services/"+itoa(serviceID)+"/findings", &findings)
	require.Equal(t, http.StatusOK, status)
	require.Len(t, findings, 1)
	assert.Equal(t, "CVE-2021-23017", findings[0].CVEID)
}

func TestNonNumericIDRejected(t *testing.T) {
	ts, _ := setupTestServer(t)

	// The route pattern only admits numeric ids.
	status := getJSON(t, ts.URL+"/api/hosts/abc/services", nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestMetricsEndpoint(t *testing.T) {
	ts, _ := setupTestServer(t)
	status := getJSON(t, ts.URL+"/metrics", nil)
	assert.Equal(t, http.StatusOK, status)
}

func itoa(v uint) string {
	return strconv.FormatUint(uint64(v), 10)
}
