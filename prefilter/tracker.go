package prefilter

import (
	"sync/atomic"
)

// Tracker wraps a Prefilter with effectiveness tracking.
//
// The tracker monitors the ratio of confirmed match starts to candidate
// offsets. When effectiveness drops below a threshold (too many false
// positives), the prefilter is retired and every offset becomes a candidate
// again, which skips the cost of encoding and scanning the path.
//
// Algorithm:
//  1. Track candidates (offsets the prefilter accepts) and confirms (offsets
//     where a match actually started)
//  2. Every N candidates, check effectiveness ratio
//  3. If ratio < threshold, disable prefilter
//  4. Once disabled, never re-enable (until Reset)
//
// Thread safety: counters are atomic. One Tracker is shared by every search
// of a compiled pattern.
//
// Example usage:
//
//	tracker := prefilter.NewTracker(pf)
//	filter := tracker.StartFilter(p.Labels()) // nil once retired; counts accepted offsets
//	m.SetStartFilter(filter)
//	for match, ok := m.Find(); ok; match, ok = m.Find() {
//	    if !seen[match.Start] { // once per start offset
//	        seen[match.Start] = true
//	        tracker.ConfirmMatch()
//	    }
//	}
type Tracker struct {
	inner Prefilter

	// Statistics
	candidates atomic.Uint64 // Total candidate offsets found
	confirms   atomic.Uint64 // Offsets where a match started

	// Configuration
	checkInterval uint64  // Check effectiveness every N candidates
	minEfficiency float64 // Minimum required efficiency (0.0 to 1.0)
	warmupPeriod  uint64  // Don't disable until this many candidates

	lastCheckpoint atomic.Uint64 // Candidates at last checkpoint
	disabled       atomic.Bool
}

// TrackerConfig tunes when a Tracker gives up on its prefilter.
type TrackerConfig struct {
	// CheckInterval is the number of new candidate offsets between checks.
	// Default: 64
	CheckInterval uint64

	// MinEfficiency is the lowest tolerated share of candidate offsets
	// that begin a match. Below it the prefilter is retired.
	// Default: 0.1 (10%)
	MinEfficiency float64

	// WarmupPeriod is the number of candidate offsets seen before the first check.
	// Default: 128
	WarmupPeriod uint64
}

// DefaultTrackerConfig returns the configuration used by NewTracker.
func DefaultTrackerConfig() TrackerConfig {
	return TrackerConfig{
		CheckInterval: 64,
		MinEfficiency: 0.1,
		WarmupPeriod:  128,
	}
}

// NewTracker wraps inner with DefaultTrackerConfig. A nil inner yields a nil
// Tracker, which callers treat as "no prefilter".
func NewTracker(inner Prefilter) *Tracker {
	return NewTrackerWithConfig(inner, DefaultTrackerConfig())
}

// NewTrackerWithConfig wraps inner with an explicit configuration.
func NewTrackerWithConfig(inner Prefilter, config TrackerConfig) *Tracker {
	if inner == nil {
		return nil
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = 1
	}
	return &Tracker{
		inner:         inner,
		checkInterval: config.CheckInterval,
		minEfficiency: config.MinEfficiency,
		warmupPeriod:  config.WarmupPeriod,
	}
}

// StartFilter returns a start filter for nfa.GroupMatcher.SetStartFilter,
// or nil when the prefilter has been retired. A candidate is counted when
// the filter accepts it, so offsets a search never reaches (because the
// caller stopped early) are not counted.
func (t *Tracker) StartFilter(labels []string) func(int) bool {
	if !t.IsActive() {
		return nil
	}

	candidates := t.inner.Candidates(labels)
	return func(p int) bool {
		if p >= len(candidates) || !candidates[p] {
			return false
		}
		t.candidates.Add(1)
		t.checkEffectiveness()
		return true
	}
}

// ConfirmMatch should be called once per candidate offset where a match
// actually started.
func (t *Tracker) ConfirmMatch() {
	t.confirms.Add(1)
}

// IsActive reports whether the prefilter has not been retired.
func (t *Tracker) IsActive() bool {
	return !t.disabled.Load()
}

// Stats returns the counters, their ratio and whether the prefilter is active.
func (t *Tracker) Stats() (candidates, confirms uint64, efficiency float64, active bool) {
	candidates = t.candidates.Load()
	confirms = t.confirms.Load()
	if candidates > 0 {
		efficiency = float64(confirms) / float64(candidates)
	}
	active = t.IsActive()
	return
}

// Reset zeroes the counters and reactivates a retired prefilter.
func (t *Tracker) Reset() {
	t.candidates.Store(0)
	t.confirms.Store(0)
	t.lastCheckpoint.Store(0)
	t.disabled.Store(false)
}

// Inner returns the wrapped prefilter.
func (t *Tracker) Inner() Prefilter {
	return t.inner
}

// checkEffectiveness retires the prefilter once its hit rate is too low.
// Concurrent callers race on the checkpoint; only the winner checks.
func (t *Tracker) checkEffectiveness() {
	candidates := t.candidates.Load()

	if candidates < t.warmupPeriod {
		return
	}

	last := t.lastCheckpoint.Load()
	if candidates-last < t.checkInterval || !t.lastCheckpoint.CompareAndSwap(last, candidates) {
		return
	}

	efficiency := float64(t.confirms.Load()) / float64(candidates)
	if efficiency < t.minEfficiency {
		t.disabled.Store(true)
	}
}
