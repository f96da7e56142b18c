package cve

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeCacheFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cve_cache.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestCacheLookup(t *testing.T) {
	path := writeCacheFile(t, `{
		"Apache Httpd:2.2.34": [
			{"cve_id": "CVE-2017-9798", "cvss": 5.0, "description": "Optionsbleed"}
		],
		"openssh:7.4": [
			{"cve_id": "CVE-2017-15906"}
		]
	}`)

	lookup, err := NewCacheLookup(path)
	require.NoError(t, err)
	assert.Equal(t, 2, lookup.Len())

	entries, err := lookup.Lookup(context.Background(), "apache httpd:2.2.34")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "CVE-2017-9798", entries[0].ID)
	require.NotNil(t, entries[0].CVSS)
	assert.InDelta(t, 5.0, *entries[0].CVSS, 1e-9)

	entries, err = lookup.Lookup(context.Background(), "unknown:1.0")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestCacheLookupMissingFile(t *testing.T) {
	_, err := NewCacheLookup(filepath.Join(t.TempDir(), "nope.json"))
	assert.Error(t, err)
}

func TestCacheLookupBadJSON(t *testing.T) {
	path := writeCacheFile(t, `["not", "a", "map"]`)
	_, err := NewCacheLookup(path)
	assert.Error(t, err)
}
