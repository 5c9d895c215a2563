// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package abr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ManuGH/aurastream/internal/clock"
	"github.com/ManuGH/aurastream/internal/quality"
)

func testLadder(t *testing.T) Ladder {
	t.Helper()
	l, err := NewLadder([]Level{
		{BitrateKbps: 96, TierName: "low"},
		{BitrateKbps: 160, TierName: "medium"},
		{BitrateKbps: 320, TierName: "high"},
	})
	require.NoError(t, err)
	return l
}

func TestLadder_LevelForBandwidth(t *testing.T) {
	l := testLadder(t)

	assert.Equal(t, 0, l.LevelForBandwidth(50), "falls back to lowest")
	assert.Equal(t, 0, l.LevelForBandwidth(150))
	assert.Equal(t, 1, l.LevelForBandwidth(250))
	assert.Equal(t, 2, l.LevelForBandwidth(8000))
}

func TestController_PoorQualityResolvesToLowestWithoutSwitch(t *testing.T) {
	clk := clock.NewManual(time.Now())
	c := NewController(testLadder(t), DefaultConfig(), clk)

	c.OnQualityChanged(quality.QualityPoor, 400)

	snap := c.Snapshot()
	assert.Equal(t, 0, snap.CurrentLevel)
	assert.Equal(t, StateOptimal, snap.State)
	assert.Equal(t, 0, snap.TotalSwitches, "first resolution is not a switch")
}

func TestController_ConvergesThenStaysStable(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := DefaultConfig()
	c := NewController(testLadder(t), cfg, clk)

	c.OnQualityChanged(quality.QualityPoor, 400)
	require.Equal(t, 0, c.Snapshot().CurrentLevel)

	// Quality improves and stays improved for the full dwell window.
	c.OnQualityChanged(quality.QualityExcellent, 8000)
	assert.Equal(t, 0, c.Snapshot().TotalSwitches, "no switch before dwell elapses")

	clk.Advance(cfg.Dwell)
	c.OnQualityChanged(quality.QualityExcellent, 8000)

	snap := c.Snapshot()
	assert.Equal(t, 2, snap.CurrentLevel)
	assert.Equal(t, 1, snap.TotalSwitches, "exactly one upgrade switch")
	require.Len(t, snap.SwitchHistory, 1)
	assert.Equal(t, 0, snap.SwitchHistory[0].FromLevel)
	assert.Equal(t, 2, snap.SwitchHistory[0].ToLevel)

	// Classification never changes again: the level must not flap.
	for i := 0; i < 10; i++ {
		clk.Advance(time.Second)
		c.OnQualityChanged(quality.QualityExcellent, 8000)
	}
	snap = c.Snapshot()
	assert.Equal(t, 1, snap.TotalSwitches)
	assert.Equal(t, StateOptimal, snap.State, "transient state settles after dwell")
}

func TestController_UnstableForcesDowngradeDespiteBandwidth(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := DefaultConfig()
	c := NewController(testLadder(t), cfg, clk)

	c.OnQualityChanged(quality.QualityExcellent, 8000)
	clk.Advance(cfg.Dwell)
	c.OnQualityChanged(quality.QualityExcellent, 8000)
	require.Equal(t, 2, c.Snapshot().CurrentLevel)

	// Failure rate above threshold, bandwidth alone would keep the top level.
	c.OnFragmentLoaded()
	c.OnFragmentFailed()
	c.OnFragmentFailed()
	c.OnFragmentFailed()

	snap := c.Snapshot()
	assert.Equal(t, StateUnstable, snap.State)
	assert.Less(t, snap.CurrentLevel, 2, "forced downgrade")
	assert.Equal(t, 3, snap.FragmentStats.Failed)

	// Upgrades stay suppressed while unstable.
	c.OnQualityChanged(quality.QualityExcellent, 8000)
	assert.LessOrEqual(t, c.RecommendedLevel(), snap.CurrentLevel)
}

func TestController_BufferStarvationDowngradesImmediately(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := DefaultConfig()
	c := NewController(testLadder(t), cfg, clk)
	c.SetTargetBuffer(30)

	c.OnQualityChanged(quality.QualityExcellent, 8000)
	clk.Advance(cfg.Dwell)
	c.OnQualityChanged(quality.QualityExcellent, 8000)
	require.Equal(t, 2, c.Snapshot().CurrentLevel)

	// Below the safety floor (0.3 * 30s = 9s): no dwell, drop now.
	c.OnBufferUpdate(2)

	snap := c.Snapshot()
	assert.Equal(t, 1, snap.CurrentLevel)
	assert.Equal(t, StateDowngraded, snap.State)
}

func TestController_SwitchHistoryIsCapped(t *testing.T) {
	clk := clock.NewManual(time.Now())
	cfg := DefaultConfig()
	cfg.HistoryCap = 3
	c := NewController(testLadder(t), cfg, clk)

	c.OnQualityChanged(quality.QualityPoor, 400)
	for i := 0; i < 10; i++ {
		c.ApplyLevel((i % 2) + 1)
	}

	snap := c.Snapshot()
	assert.Len(t, snap.SwitchHistory, 3)
	assert.Equal(t, 10, snap.TotalSwitches, "counter keeps the full total")
}

func TestController_ManualApplyDisablesNothing(t *testing.T) {
	clk := clock.NewManual(time.Now())
	c := NewController(testLadder(t), DefaultConfig(), clk)

	c.OnQualityChanged(quality.QualityPoor, 400)
	c.ApplyLevel(2)
	snap := c.Snapshot()
	assert.Equal(t, 2, snap.CurrentLevel)
	assert.True(t, snap.AutoLevelEnabled)
	assert.Equal(t, 1, snap.TotalSwitches)
}

func TestNewLadder_RejectsEmptyAndInvalid(t *testing.T) {
	_, err := NewLadder(nil)
	assert.Error(t, err)

	_, err = NewLadder([]Level{{BitrateKbps: 0}})
	assert.Error(t, err)
}
