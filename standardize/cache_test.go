package standardize

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchCacheSaveAndLoad(t *testing.T) {
	cache := NewBatchCache(t.TempDir(), nil)

	mapping := map[string]string{
		"ACME PVT LTD":  "ACME PRIVATE LIMITED",
		"GLOBEX CORP":   "GLOBEX CORPORATION",
		"SHIVAM EXPORT": "SHIVAM EXPORTS",
	}
	require.NoError(t, cache.Save("Shipper", 0, mapping))

	loaded := cache.Load("Shipper", 0)
	assert.Equal(t, mapping, loaded)
}

func TestBatchCacheMissingFileIsEmpty(t *testing.T) {
	cache := NewBatchCache(t.TempDir(), nil)

	loaded := cache.Load("Shipper", 7)
	assert.NotNil(t, loaded)
	assert.Empty(t, loaded)
}

func TestBatchCacheCorruptFileDegradesToEmpty(t *testing.T) {
	dir := t.TempDir()
	cache := NewBatchCache(dir, nil)

	require.NoError(t, cache.Save("Shipper", 0, map[string]string{"A": "B"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.NoError(t, os.WriteFile(filepath.Join(dir, entries[0].Name()), []byte("{not json"), 0o644))

	loaded := cache.Load("Shipper", 0)
	assert.Empty(t, loaded)
}

func TestBatchCacheNeverOverwritesEntries(t *testing.T) {
	cache := NewBatchCache(t.TempDir(), nil)

	require.NoError(t, cache.Save("Shipper", 0, map[string]string{"A": "FIRST"}))
	require.NoError(t, cache.Save("Shipper", 0, map[string]string{"A": "SECOND", "B": "NEW"}))

	loaded := cache.Load("Shipper", 0)
	assert.Equal(t, "FIRST", loaded["A"], "existing entry must keep its original value")
	assert.Equal(t, "NEW", loaded["B"], "new entries must still be added")
}

func TestBatchCacheNoPartialFiles(t *testing.T) {
	dir := t.TempDir()
	cache := NewBatchCache(dir, nil)
	require.NoError(t, cache.Save("Consignee", 3, map[string]string{"A": "B"}))

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	for _, entry := range entries {
		assert.NotContains(t, entry.Name(), ".tmp", "temp file must be renamed away")
	}
}

func TestBatchCacheColumnsAreIsolated(t *testing.T) {
	cache := NewBatchCache(t.TempDir(), nil)

	require.NoError(t, cache.Save("Shipper", 0, map[string]string{"A": "SHIPPER"}))
	require.NoError(t, cache.Save("Consignee", 0, map[string]string{"A": "CONSIGNEE"}))

	assert.Equal(t, "SHIPPER", cache.Load("Shipper", 0)["A"])
	assert.Equal(t, "CONSIGNEE", cache.Load("Consignee", 0)["A"])
}

func TestBatchCachePending(t *testing.T) {
	cache := NewBatchCache(t.TempDir(), nil)

	batch := []string{"A", "B", "C"}
	cached := map[string]string{"B": "DONE"}

	pending := cache.Pending(batch, cached)
	assert.Equal(t, []string{"A", "C"}, pending)

	assert.Empty(t, cache.Pending(batch, map[string]string{"A": "1", "B": "2", "C": "3"}))
	assert.Equal(t, batch, cache.Pending(batch, map[string]string{}))
}
