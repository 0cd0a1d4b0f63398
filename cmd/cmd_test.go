package cmd

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const dataset = `{
  "villages": [
    {"id": "v-a", "name": "Amravati", "population": 200000, "location": {"lat": 21.2, "lng": 79.1}, "wsi": 90},
    {"id": "v-b", "name": "Bhandara", "population": 10000, "location": {"lat": 21.5, "lng": 79.6}, "wsi": 20}
  ],
  "tankers": [{"id": "t-1", "status": "Available"}]
}`

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	seed := filepath.Join(dir, "seed.json")
	require.NoError(t, os.WriteFile(seed, []byte(dataset), 0o600))
	cfg := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(cfg, []byte("store:\n  backend: memory\n  seed: "+seed+"\n"), 0o600))
	return cfg
}

func run(t *testing.T, args ...string) []byte {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		t.Fatalf("%v: %v", args, err)
	}
	return out.Bytes()
}

func TestSummaryCommand(t *testing.T) {
	cfg := writeConfig(t)
	var snap map[string]any
	require.NoError(t, json.Unmarshal(run(t, "summary", "-c", cfg), &snap))
	assert.Equal(t, 1.0, snap["critical_zones"])
	assert.Equal(t, 55.0, snap["average_wsi"])
}

func TestDispatchRouteCommand(t *testing.T) {
	cfg := writeConfig(t)
	var res map[string]any
	require.NoError(t, json.Unmarshal(run(t, "dispatch", "route", "-c", cfg, "t-1", "v-b", "v-a"), &res))
	assert.Len(t, res["logs"], 2)
}

func TestPrioritiesCommand(t *testing.T) {
	cfg := writeConfig(t)
	var ranked []map[string]any
	require.NoError(t, json.Unmarshal(run(t, "villages", "priorities", "-c", cfg), &ranked))
	require.Len(t, ranked, 2)
	assert.Equal(t, "v-a", ranked[0]["village"].(map[string]any)["id"])
}

func TestCommandErrors(t *testing.T) {
	cfg := writeConfig(t)
	rootCmd.SetOut(&bytes.Buffer{})
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetArgs([]string{"dispatch", "complete", "-c", cfg, "missing"})
	assert.Error(t, rootCmd.Execute())
}
