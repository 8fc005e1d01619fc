// internal/clock/clock_test.go
package clock

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/retroaegx/shogicenter/engine"
)

func byoyomiOnly(byoyomiMs int64) Config {
	return Config{Buckets: Buckets{ByoyomiMs: byoyomiMs}}
}

func TestDeductionOrder(t *testing.T) {
	cfg := Config{Buckets: Buckets{InitialMs: 1000, ByoyomiMs: 500, DefermentMs: 300}}
	s := New(cfg, 0)

	// 1200ms drains initial fully and eats 200ms of byoyomi.
	s, spent, overflow := s.ApplyElapsed(1200)
	require.EqualValues(t, 1200, spent)
	require.EqualValues(t, 0, overflow)
	assert.EqualValues(t, 0, s.Sides[engine.Sente].InitialMs)
	assert.EqualValues(t, 300, s.Sides[engine.Sente].ByoyomiMs)
	assert.EqualValues(t, 300, s.Sides[engine.Sente].DefermentMs)

	// Another 500ms finishes byoyomi and eats 200ms of deferment.
	s, _, overflow = s.ApplyElapsed(1700)
	require.EqualValues(t, 0, overflow)
	assert.EqualValues(t, 0, s.Sides[engine.Sente].ByoyomiMs)
	assert.EqualValues(t, 100, s.Sides[engine.Sente].DefermentMs)
}

// Byoyomi-only clock: an overflow inside the grace window is not a
// timeout; past it, it is.
func TestTimeoutGraceWindow(t *testing.T) {
	s := New(byoyomiOnly(5000), 0)

	charged, _, overflow := s.ApplyElapsed(5200)
	assert.EqualValues(t, 200, overflow)
	assert.False(t, charged.IsTimeout(overflow), "overflow 200 <= grace 3000")

	charged, _, overflow = s.ApplyElapsed(9000)
	assert.EqualValues(t, 4000, overflow)
	assert.True(t, charged.IsTimeout(overflow), "overflow 4000 > grace 3000")
}

func TestApplyElapsedRebases(t *testing.T) {
	s := New(byoyomiOnly(5000), 0)
	s, _, _ = s.ApplyElapsed(1000)
	// A second call at the same instant charges nothing further.
	s, spent, overflow := s.ApplyElapsed(1000)
	assert.EqualValues(t, 0, spent)
	assert.EqualValues(t, 0, overflow)
	assert.EqualValues(t, 4000, s.Sides[engine.Sente].ByoyomiMs)

	// Clock skew backwards charges nothing.
	_, spent, _ = s.ApplyElapsed(500)
	assert.EqualValues(t, 0, spent)
}

func TestOnMoveResetsByoyomiAndFlips(t *testing.T) {
	cfg := Config{Buckets: Buckets{InitialMs: 10000, ByoyomiMs: 5000}, IncrementMs: 2000}
	s := New(cfg, 0)

	s, _, _ = s.ApplyElapsed(12000) // drains initial, 2000 of byoyomi
	require.EqualValues(t, 3000, s.Sides[engine.Sente].ByoyomiMs)

	s = s.OnMove(12000)
	assert.Equal(t, engine.Gote, s.CurrentSide)
	assert.EqualValues(t, 12000, s.BaseAtMs)
	assert.EqualValues(t, 5000, s.Sides[engine.Sente].ByoyomiMs, "byoyomi restored")
	assert.EqualValues(t, 2000, s.Sides[engine.Sente].InitialMs, "increment granted")
	assert.EqualValues(t, 10000, s.Sides[engine.Gote].InitialMs, "opponent untouched")
}

func TestPauseResumeFoldsPendingOnce(t *testing.T) {
	s := New(byoyomiOnly(10000), 0)

	// Pause at 2000: charged immediately.
	s, spent, overflow := s.Pause(2000)
	require.EqualValues(t, 2000, spent)
	require.EqualValues(t, 0, overflow)
	require.True(t, s.Paused)
	assert.EqualValues(t, 8000, s.Sides[engine.Sente].ByoyomiMs)

	// Time observed while paused accumulates, nothing is deducted.
	s, spent, overflow = s.ApplyElapsed(5000)
	assert.EqualValues(t, 0, spent)
	assert.EqualValues(t, 0, overflow)
	assert.EqualValues(t, 3000, s.PendingSpentMs)
	assert.EqualValues(t, 8000, s.Sides[engine.Sente].ByoyomiMs)

	// Resume folds the pending time exactly once.
	s, _, _ = s.ApplyElapsed(6000)
	s, overflow = s.Resume(6000)
	require.EqualValues(t, 0, overflow)
	assert.False(t, s.Paused)
	assert.EqualValues(t, 0, s.PendingSpentMs)
	assert.EqualValues(t, 4000, s.Sides[engine.Sente].ByoyomiMs)

	// A duplicate resume is a no-op.
	again, overflow := s.Resume(6000)
	assert.EqualValues(t, 0, overflow)
	assert.Equal(t, s, again)
}

func TestResumeCanTimeout(t *testing.T) {
	s := New(byoyomiOnly(5000), 0)
	s, _, _ = s.Pause(1000)
	s, _, _ = s.ApplyElapsed(20000) // 19000ms pending
	s, overflow := s.Resume(20000)
	assert.True(t, s.IsTimeout(overflow))
}

func TestNextDeadline(t *testing.T) {
	cfg := Config{Buckets: Buckets{InitialMs: 1000, ByoyomiMs: 500}}
	s := New(cfg, 100)
	assert.EqualValues(t, 100+1500+DefaultGraceMs, s.NextDeadlineMs())
}

func TestStateValueSemantics(t *testing.T) {
	s := New(byoyomiOnly(5000), 0)
	_, _, _ = s.ApplyElapsed(4000)
	assert.EqualValues(t, 5000, s.Sides[engine.Sente].ByoyomiMs, "receiver must not be mutated")
}
