package main

import (
	"context"
	"flag"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/petstriker/matchsim/internal/config"
	"github.com/petstriker/matchsim/internal/match"
	"github.com/petstriker/matchsim/internal/replay"
)

func TestParseGlobalFlags(t *testing.T) {
	path, name, rest, err := parseGlobalFlags([]string{"-config", "x.yaml", "batch", "-a", "4-2", "-json"})
	require.NoError(t, err)
	assert.Equal(t, "x.yaml", path)
	assert.Equal(t, "batch", name)
	assert.Equal(t, []string{"-a", "4-2", "-json"}, rest)

	path, name, rest, err = parseGlobalFlags([]string{"--config=y.yaml", "replay"})
	require.NoError(t, err)
	assert.Equal(t, "y.yaml", path)
	assert.Equal(t, "replay", name)
	assert.Empty(t, rest)

	path, _, _, err = parseGlobalFlags([]string{"live"})
	require.NoError(t, err)
	assert.Equal(t, "config/config.yaml", path)

	_, _, _, err = parseGlobalFlags(nil)
	assert.Error(t, err)
	_, _, _, err = parseGlobalFlags([]string{"-verbose", "batch"})
	assert.Error(t, err)
	_, _, _, err = parseGlobalFlags([]string{"-h"})
	assert.ErrorIs(t, err, flag.ErrHelp)
}

func TestOverrideFlags(t *testing.T) {
	var o overrideFlags
	require.NoError(t, o.Set("A:FW1=90/50/120"))
	require.NoError(t, o.Set("t2:gk=40/99/60"))

	assert.Equal(t, match.Stats{Atk: 90, Def: 50, Spd: 99}, o[match.TeamA][match.Slot{Role: match.RoleFW, Index: 1}])
	assert.Equal(t, match.Stats{Atk: 40, Def: 99, Spd: 60}, o[match.TeamB][match.Slot{Role: match.RoleGK}])

	assert.Error(t, o.Set("FW1=90/50/80"))
	assert.Error(t, o.Set("C:FW1=90/50/80"))
	assert.Error(t, o.Set("A:MF1=90/50/80"))
	assert.Error(t, o.Set("A:FW1=fast"))
}

func TestLiveRecordingReplays(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	logger := zaptest.NewLogger(t)
	out := filepath.Join(t.TempDir(), "match.log.gz")

	err = runLive(context.Background(), []string{"-a", "4-2", "-turns", "5", "-seed", "9", "-out", out}, cfg, logger)
	require.NoError(t, err)

	rc, err := replay.OpenLog(out)
	require.NoError(t, err)
	defer rc.Close()
	pm, err := replay.NewParser(logger).Parse(rc)
	require.NoError(t, err)
	assert.Equal(t, match.Formation42, pm.FormationA)
	assert.Zero(t, pm.Skipped)

	final := replay.Fold(pm)
	assert.True(t, final.Ended)
	assert.Equal(t, 5, final.Turn)

	require.NoError(t, runReplay(context.Background(), []string{"-steps", out}, cfg, logger))
}

func TestLiveHonoursCancellation(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out := filepath.Join(t.TempDir(), "match.log")
	err = runLive(ctx, []string{"-out", out}, cfg, zaptest.NewLogger(t))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBatchRejectsBadFormation(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	err = runBatch(context.Background(), []string{"-a", "diamond", "-quiet"}, cfg, zaptest.NewLogger(t))
	assert.Error(t, err)
}
