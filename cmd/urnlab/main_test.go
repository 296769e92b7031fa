package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/r3d91ll/urnlab/pkg/config"
	"github.com/r3d91ll/urnlab/pkg/ledger"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	configPath, forceInit = "", false
	var buf bytes.Buffer
	rootCmd.SetOut(&buf)
	rootCmd.SetErr(&buf)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return buf.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Equal(t, "urnlab "+version+"\n", out)
}

func TestInitWritesConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "urnlab.yaml")

	out, err := execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Config initialized at: "+path)
	_, err = config.Load(path)
	require.NoError(t, err)

	out, err = execute(t, "init", "--config", path)
	require.NoError(t, err)
	assert.Contains(t, out, "already exists")
}

func TestStatusBetween(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Experiment.Design = config.DesignBetween
	cfg.Ledger.DataDir = dir
	cfgPath := filepath.Join(dir, "urnlab.yaml")
	require.NoError(t, cfg.Save(cfgPath))

	l, err := ledger.Open(cfg.LedgerPath(), 1)
	require.NoError(t, err)
	for i := 0; i < 4; i++ {
		require.NoError(t, l.Append(ledger.NewRecord(i, "")))
	}

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Participants recorded: 4")
	assert.Contains(t, out, "Next sequence: 5")
	assert.Contains(t, out, "Next assignment: size10 (index 1)")
	assert.Contains(t, out, "Row layout: 11 columns, 1 trial slots")
}

func TestStatusMalformedLedger(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.DataDir = dir
	cfgPath := filepath.Join(dir, "urnlab.yaml")
	require.NoError(t, cfg.Save(cfgPath))
	require.NoError(t, os.WriteFile(cfg.LedgerPath(), []byte("a,\"b\n"), 0644))

	out, err := execute(t, "status", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "unreadable")
	assert.Contains(t, out, "Participants recorded: 0")
	assert.Contains(t, out, "all conditions (size2, size10, size100)")
}

func TestStatusMirrorCountsAreSorted(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Ledger.DataDir = dir
	cfg.Ledger.SQLitePath = filepath.Join(dir, "urnlab.db")
	cfgPath := filepath.Join(dir, "urnlab.yaml")
	require.NoError(t, cfg.Save(cfgPath))

	mirror, err := ledger.OpenSQLite(cfg.Ledger.SQLitePath)
	require.NoError(t, err)
	for i, choices := range [][]string{
		{"urn_10_random", "urn_2_random"},
		{"urn_10_random", "urn_2_equal"},
		{"urn_10_equal", "urn_2_random"},
	} {
		rec := ledger.NewRecord(i, "")
		rec.Trials = []ledger.TrialResult{
			{Condition: "size10", URNPositions: "urn_10_random urn_10_equal", Choice: choices[0], BallColor: "red"},
			{Condition: "size2", URNPositions: "urn_2_equal urn_2_random", Choice: choices[1], BallColor: "blue"},
		}
		require.NoError(t, mirror.Append(rec))
	}
	require.NoError(t, mirror.Close())

	var want []string
	for i := 0; i < 5; i++ {
		out, err := execute(t, "status", "--config", cfgPath)
		require.NoError(t, err)
		assert.Contains(t, out, "3 participants")

		var lines []string
		for _, line := range strings.Split(out, "\n") {
			if strings.Contains(line, "chosen") {
				lines = append(lines, strings.Join(strings.Fields(line), " "))
			}
		}
		if i == 0 {
			want = lines
			assert.Equal(t, []string{
				"size2 urn_2_equal chosen 1 times",
				"size2 urn_2_random chosen 2 times",
				"size10 urn_10_equal chosen 1 times",
				"size10 urn_10_random chosen 2 times",
			}, lines)
			continue
		}
		assert.Equal(t, want, lines)
	}
}

func TestRunRejectsInvalidDesignFlag(t *testing.T) {
	cfgPath := filepath.Join(t.TempDir(), "absent.yaml")
	_, err := execute(t, "run", "--config", cfgPath, "--design", "mixed")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CONFIG_INVALID")
}
