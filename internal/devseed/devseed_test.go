package devseed

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSeed(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoadRecordsJSONList(t *testing.T) {
	path := writeSeed(t, "seed.json", `[{"username":"dandean","first":"Dan"}]`)
	records, err := LoadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"username": "dandean", "first": "Dan"}}, records)
}

func TestLoadRecordsJSONWrapped(t *testing.T) {
	path := writeSeed(t, "seed.json", `{"records":[{"id":1}]}`)
	records, err := LoadRecords(path)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"id": float64(1)}}, records)
}

func TestLoadRecordsYAML(t *testing.T) {
	path := writeSeed(t, "seed.yaml", "records:\n  - id: 1\n    name: one\n  - id: 2\n    name: two\n")
	records, err := LoadRecords(path)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 1, records[0]["id"])
	assert.Equal(t, "two", records[1]["name"])
}

func TestLoadRecordsErrors(t *testing.T) {
	_, err := LoadRecords(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)

	_, err = LoadRecords(writeSeed(t, "bad.yml", "just a string"))
	assert.Error(t, err)

	_, err = LoadRecords(writeSeed(t, "bad.json", "{"))
	assert.Error(t, err)
}

func TestParseEmpty(t *testing.T) {
	records, err := ParseJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, records)
	records, err = ParseYAML([]byte("  "))
	require.NoError(t, err)
	assert.Nil(t, records)
}
