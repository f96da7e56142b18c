package epss

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientFetchBatches(t *testing.T) {
	var requests []int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cves := strings.Split(r.URL.Query().Get("cve"), ",")
		requests = append(requests, len(cves))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"data":[`)
		for i, cve := range cves {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			// The public API encodes numbers as strings.
			fmt.Fprintf(w, `{"cve":%q,"epss":"0.42","percentile":"0.873"}`, cve)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer server.Close()

	cves := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		cves = append(cves, fmt.Sprintf("CVE-2021-%04d", i))
	}

	client := NewClient(server.URL, time.Millisecond)
	records, err := client.Fetch(context.Background(), cves)
	require.NoError(t, err)

	assert.Equal(t, []int{100, 50}, requests, "150 ids must split into two batches")
	require.Len(t, records, 150)

	rec := records["CVE-2021-0000"]
	assert.InDelta(t, 0.42, rec.Score, 1e-9)
	assert.InDelta(t, 87.3, rec.Percentile, 1e-9, "fractional percentile is scaled to 0-100")
}

func TestClientFetchAbortsOnBadStatus(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 2 {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, `{"data":[]}`)
	}))
	defer server.Close()

	cves := make([]string, 0, 150)
	for i := 0; i < 150; i++ {
		cves = append(cves, fmt.Sprintf("CVE-2021-%04d", i))
	}

	client := NewClient(server.URL, time.Millisecond)
	_, err := client.Fetch(context.Background(), cves)
	require.Error(t, err, "a failed batch must abort the whole fetch")
	assert.Contains(t, err.Error(), "429")
}

func TestClientFetchEmpty(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Millisecond)
	records, err := client.Fetch(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, records, "no ids means no requests at all")
}

func TestDecodeRecords(t *testing.T) {
	t.Run("BareArray", func(t *testing.T) {
		records, err := decodeRecords([]byte(`[{"cve":"CVE-2020-1234","epss":0.1,"percentile":87.3}]`))
		require.NoError(t, err)
		require.Len(t, records, 1)

		out := toDomain(records)
		assert.InDelta(t, 87.3, out["CVE-2020-1234"].Percentile, 1e-9,
			"percentile already on 0-100 stays unchanged")
	})

	t.Run("DataWrapper", func(t *testing.T) {
		records, err := decodeRecords([]byte(`{"data":[{"cve":"CVE-2020-1234","epss":"0.1","percentile":"0.5"}]}`))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.InDelta(t, 0.1, float64(records[0].EPSS), 1e-9)
	})

	t.Run("UnparseableNumberDecodesToZero", func(t *testing.T) {
		records, err := decodeRecords([]byte(`[{"cve":"CVE-2020-1234","epss":"n/a","percentile":null}]`))
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Zero(t, float64(records[0].EPSS))
	})

	t.Run("Garbage", func(t *testing.T) {
		_, err := decodeRecords([]byte(`not json`))
		assert.Error(t, err)
	})
}

func TestToDomainSkipsRecordsWithoutCVE(t *testing.T) {
	out := toDomain([]rawRecord{{CVE: "", EPSS: 0.5}, {CVE: "CVE-2020-1", EPSS: 0.5}})
	assert.Len(t, out, 1)
}
