package cli

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/trendengine/journal"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestVersion(t *testing.T) {
	t.Parallel()
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "trendengine dev\n", out)
}

func TestConfigInitAndValidate(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "trendengine.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, path)

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "10000.00 USD")

	bad := writeFile(t, t.TempDir(), "bad.yaml", "store:\n  type: etcd\n")
	_, err = execute(t, "config", "validate", "-f", bad)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "store.type")
}

func TestProfile(t *testing.T) {
	t.Parallel()

	out, err := execute(t, "profile", "usd/jpy")
	require.NoError(t, err)
	assert.Contains(t, out, "USDJPY")
	assert.Regexp(t, `digits\s+3`, out)
	assert.Regexp(t, `pip size\s+0.01\n`, out)

	dir := t.TempDir()
	profiles := writeFile(t, dir, "profiles.yaml", "profiles:\n  - id: USDJPY\n    stop_loss_multiplier: 2.5\n")
	cfg := writeFile(t, dir, "config.yaml", "profiles: "+profiles+"\n")
	out, err = execute(t, "--config", cfg, "profile", "USDJPY")
	require.NoError(t, err)
	assert.Regexp(t, `stop multiplier\s+2.5`, out)

	out, err = execute(t, "profile")
	require.NoError(t, err)
	assert.Contains(t, out, "PROFILE")
	assert.Regexp(t, `(?m)^EURUSD\s+5\s+0.0001\s`, out)
	assert.Regexp(t, `(?m)^USDJPY\s+3\s+0.01\s`, out)

	_, err = execute(t, "profile", "EURUSD", "USDJPY")
	assert.Error(t, err)
}

func TestTurningGetAndReset(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	cfg := writeFile(t, dir, "config.yaml", "store:\n  type: sqlite\n  path: "+filepath.Join(dir, "turning.db")+"\n")

	out, err := execute(t, "--config", cfg, "turning", "get", "eur_usd")
	require.NoError(t, err)
	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, `"turning": true`)

	out, err = execute(t, "--config", cfg, "turning", "reset", "EURUSD")
	require.NoError(t, err)
	assert.Equal(t, "EURUSD reset\n", out)
}

func TestRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	db := filepath.Join(dir, "journal.db")
	cfg := writeFile(t, dir, "config.yaml", `
engine:
  workers: 2
journal:
  type: sqlite
  db_path: `+db+`
log:
  level: error
  console: false
profiles: `+writeFile(t, dir, "profiles.yaml", "profiles:\n  - id: EURUSD\n    split: short_term\n")+`
strategy:
  adjust_margin: 0.0005
`)
	script := writeFile(t, dir, "cycles.yaml", `
steps:
  - snapshot:
      instrument: EURUSD
      bid: 1.2048
      ask: 1.2050
      time: 2024-03-05T10:00:00Z
    readings:
      phase: MiddleUp
      strength: 4
      atr: {primary: 0.005}
      bbs:
        H1: {direction: long, stop: 1.199}
      levels: {support: 1.2, resistance: 1.21}
`)

	out, err := execute(t, "--config", cfg, "run", "-f", script)
	require.NoError(t, err)
	assert.Contains(t, out, "Cycles:  1 (skipped 0, failed 0)")
	assert.Contains(t, out, "Actions: 3")
	assert.Contains(t, out, db)

	j, err := journal.NewSQLite(db)
	require.NoError(t, err)
	defer j.Close()
	start := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	cycles, err := j.ListCycles("EURUSD", start, start.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, cycles, 1)
	assert.Equal(t, 3, cycles[0].Actions)
}

func TestRunRequiresScript(t *testing.T) {
	t.Parallel()
	_, err := execute(t, "run")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "file")
}
