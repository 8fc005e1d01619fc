// internal/clock/clock.go
package clock

import (
	"github.com/retroaegx/shogicenter/engine"
)

// DefaultGraceMs is the timeout grace window applied when the config
// does not set one: an overflow at or under this value is forgiven.
const DefaultGraceMs = 3000

// Buckets is one side's remaining time, in milliseconds, split across
// the three deduction stages. Deduction order is always initial, then
// byoyomi, then deferment.
type Buckets struct {
	InitialMs   int64 `json:"initialMs"`
	ByoyomiMs   int64 `json:"byoyomiMs"`
	DefermentMs int64 `json:"defermentMs"`
}

// Config is the starting allocation shared by both sides.
type Config struct {
	Buckets     Buckets `json:"buckets"`
	IncrementMs int64   `json:"incrementMs"`
	GraceMs     int64   `json:"graceMs"`
}

// grace returns the configured grace window, or the default.
func (c Config) grace() int64 {
	if c.GraceMs > 0 {
		return c.GraceMs
	}
	return DefaultGraceMs
}

// State is a game clock snapshot. All operations are pure: they return
// a new State and never mutate the receiver, so a State can be read
// concurrently and committed with the rest of the game document. There
// are no timers here; the deadline scheduler drives timeouts.
type State struct {
	Config         Config      `json:"config"`
	Sides          [2]Buckets  `json:"sides"` // indexed by engine.Side
	CurrentSide    engine.Side `json:"currentSide"`
	BaseAtMs       int64       `json:"baseAtMs"`
	Paused         bool        `json:"paused"`
	PendingSpentMs int64       `json:"pendingSpentMs"`
}

// New returns a running clock for a game starting at nowMs, with the
// first side to move on the clock.
func New(cfg Config, nowMs int64) State {
	return State{
		Config:      cfg,
		Sides:       [2]Buckets{cfg.Buckets, cfg.Buckets},
		CurrentSide: engine.Sente,
		BaseAtMs:    nowMs,
	}
}

// deduct removes elapsed from the buckets in order and returns the
// remainder that could not be covered.
func deduct(b Buckets, elapsed int64) (Buckets, int64) {
	take := func(bucket *int64) {
		if elapsed <= 0 {
			return
		}
		if *bucket >= elapsed {
			*bucket -= elapsed
			elapsed = 0
			return
		}
		elapsed -= *bucket
		*bucket = 0
	}
	take(&b.InitialMs)
	take(&b.ByoyomiMs)
	take(&b.DefermentMs)
	return b, elapsed
}

// ApplyElapsed charges the wall-clock time since BaseAtMs to the side
// to move and rebases the clock at nowMs. It returns the new state, the
// elapsed time charged, and the overflow (time the buckets could not
// cover). An overflow beyond the grace window is a timeout; use
// IsTimeout on the result.
//
// On a paused clock nothing is deducted: the elapsed time accumulates
// in PendingSpentMs and is settled by Resume.
func (s State) ApplyElapsed(nowMs int64) (State, int64, int64) {
	elapsed := nowMs - s.BaseAtMs
	if elapsed < 0 {
		elapsed = 0
	}
	if s.Paused {
		s.PendingSpentMs += elapsed
		s.BaseAtMs = nowMs
		return s, 0, 0
	}
	buckets, overflow := deduct(s.Sides[s.CurrentSide], elapsed)
	s.Sides[s.CurrentSide] = buckets
	s.BaseAtMs = nowMs
	return s, elapsed, overflow
}

// IsTimeout reports whether an overflow returned by ApplyElapsed,
// Pause or Resume exceeds the grace window.
func (s State) IsTimeout(overflowMs int64) bool {
	return overflowMs > s.Config.grace()
}

// OnMove commits a successful move at nowMs: the mover's byoyomi is
// restored to its configured value, the increment is granted to the
// mover's initial bucket, and the clock flips to the other side. The
// caller must have already charged elapsed time via ApplyElapsed.
func (s State) OnMove(nowMs int64) State {
	mover := s.CurrentSide
	s.Sides[mover].ByoyomiMs = s.Config.Buckets.ByoyomiMs
	s.Sides[mover].InitialMs += s.Config.IncrementMs
	s.CurrentSide = mover.Flip()
	s.BaseAtMs = nowMs
	return s
}

// Pause charges elapsed time up to nowMs and stops the clock. Elapsed
// time is never left floating across a disconnect. Pausing an already
// paused clock only accumulates PendingSpentMs.
func (s State) Pause(nowMs int64) (State, int64, int64) {
	next, spent, overflow := s.ApplyElapsed(nowMs)
	next.Paused = true
	return next, spent, overflow
}

// Resume restarts a paused clock at nowMs, folding the pending spent
// time into the running side's buckets exactly once. The returned
// overflow must be checked for timeout the same way as ApplyElapsed's.
// Resuming a running clock is a no-op.
func (s State) Resume(nowMs int64) (State, int64) {
	if !s.Paused {
		return s, 0
	}
	buckets, overflow := deduct(s.Sides[s.CurrentSide], s.PendingSpentMs)
	s.Sides[s.CurrentSide] = buckets
	s.PendingSpentMs = 0
	s.Paused = false
	s.BaseAtMs = nowMs
	return s, overflow
}

// RemainingMs returns the total time a side has left across all three
// buckets.
func (s State) RemainingMs(side engine.Side) int64 {
	b := s.Sides[side]
	return b.InitialMs + b.ByoyomiMs + b.DefermentMs
}

// NextDeadlineMs returns the wall-clock instant at which the side to
// move would exceed its buckets plus the grace window, assuming no
// further events. The deadline scheduler arms this after every move.
func (s State) NextDeadlineMs() int64 {
	return s.BaseAtMs + s.RemainingMs(s.CurrentSide) + s.Config.grace()
}
