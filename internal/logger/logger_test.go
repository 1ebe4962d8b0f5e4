package logger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInit_WritesJSONLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "objcache.log")
	require.NoError(t, Init(path, "info"))

	Infof("opened %s", "store")
	Warnf("slow sweep: %d", 3)
	require.NoError(t, Close())
	require.NoError(t, Close())

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	require.Len(t, lines, 2)

	var entry map[string]any
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	assert.Equal(t, "info", entry["level"])
	assert.Equal(t, "opened store", entry["message"])
}

func TestInit_BadLevel(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "x.log"), "loud")
	require.Error(t, err)
}
