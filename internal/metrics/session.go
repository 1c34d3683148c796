// Package metrics implements SessionMetrics, a bounded per-session
// frame-timing histogram shared by the Node dispatcher and the haptic
// actuator, grounded on original_source/power-libperfmgr/aidl/
// SessionMetrics.{h,cpp}.
package metrics

import (
	"sync"
	"time"
)

// bucket edges in milliseconds, mirroring SessionMetrics.h's FrameBuckets:
// a frame over 16.67ms (60fps) at increasing severity is jank.
var bucketEdgesMS = []float64{17, 25, 34, 67, 100}

// bucketLabels names each of the len(bucketEdgesMS) histogram buckets (one
// per edge; frames under the first edge are counted in TotalFrames only),
// in the same order FrameBuckets.toString() reports them.
var bucketLabels = []string{
	"17to25ms",
	"25to34ms",
	"34to67ms",
	"67to100ms",
	"over100ms",
}

// ringCapacity bounds how many raw durations SessionMetrics retains for
// the most recent reporting window.
const ringCapacity = 512

// Histogram counts frame durations by jank-severity bucket.
type Histogram struct {
	TotalFrames int64
	Buckets     map[string]int64
}

func newHistogram() Histogram {
	return Histogram{Buckets: make(map[string]int64, len(bucketLabels))}
}

// SessionMetricsSnapshot is the read-only view returned by Dump.
type SessionMetricsSnapshot struct {
	SessionID       string
	ScenarioType    string
	Histogram       Histogram
	MissedCadence   int64
	TotalFrameTimeMS int64
	AvgFrameTimeMS  float64
}

// SessionMetrics accumulates frame-duration reports for one session,
// bucketing each sample into a jank-severity histogram and tracking a
// "missed cadence" counter (a frame beyond the worst bucket edge),
// mirroring SessionMetrics::addNewFrames's per-frame classification.
type SessionMetrics struct {
	mu sync.Mutex

	sessionID    string
	scenarioType string

	ring       [ringCapacity]time.Duration
	ringLen    int
	ringHead   int
	histogram  Histogram
	missed     int64
	totalMS    int64
}

// NewSessionMetrics starts a fresh session under sessionID (typically a
// uuid minted by the caller) for the given scenario ("DEFAULT" or "GAME").
func NewSessionMetrics(sessionID, scenarioType string) *SessionMetrics {
	return &SessionMetrics{
		sessionID:    sessionID,
		scenarioType: scenarioType,
		histogram:    newHistogram(),
	}
}

// RestoreSessionMetrics rebuilds a SessionMetrics from a snapshot persisted
// by Store.SaveSnapshot, so a process restart resumes the same session's
// histogram/missed-cadence counters instead of starting a fresh window.
// The rolling duration ring used for AvgFrameTimeMS is not persisted (only
// its already-computed average is), so it starts empty; the next Dump call
// reports the restored fields until fresh frames refill the ring.
func RestoreSessionMetrics(snap SessionMetricsSnapshot) *SessionMetrics {
	hist := newHistogram()
	hist.TotalFrames = snap.Histogram.TotalFrames
	for k, v := range snap.Histogram.Buckets {
		hist.Buckets[k] = v
	}
	return &SessionMetrics{
		sessionID:    snap.SessionID,
		scenarioType: snap.ScenarioType,
		histogram:    hist,
		missed:       snap.MissedCadence,
		totalMS:      snap.TotalFrameTimeMS,
	}
}

// ReportActualWorkDuration buckets each sample into the FPS/jank
// histogram and the missed-cadence counter, then retains it in the
// rolling ring for Dump's average.
func (s *SessionMetrics) ReportActualWorkDuration(durations []time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range durations {
		s.classify(d)
		s.ring[s.ringHead] = d
		s.ringHead = (s.ringHead + 1) % ringCapacity
		if s.ringLen < ringCapacity {
			s.ringLen++
		}
		s.totalMS += d.Milliseconds()
	}
}

func (s *SessionMetrics) classify(d time.Duration) {
	ms := float64(d.Milliseconds())
	s.histogram.TotalFrames++
	if ms < bucketEdgesMS[0] {
		return // not jank; no bucket increment, matching FrameBuckets semantics
	}
	for i, edge := range bucketEdgesMS {
		if ms < edge {
			s.histogram.Buckets[bucketLabels[i-1]]++
			return
		}
	}
	s.histogram.Buckets[bucketLabels[len(bucketLabels)-1]]++
	s.missed++
}

// Dump returns a read-only snapshot of the session's accumulated state.
func (s *SessionMetrics) Dump() SessionMetricsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	hist := newHistogram()
	hist.TotalFrames = s.histogram.TotalFrames
	for k, v := range s.histogram.Buckets {
		hist.Buckets[k] = v
	}

	var avg float64
	if s.ringLen > 0 {
		var sum time.Duration
		for i := 0; i < s.ringLen; i++ {
			sum += s.ring[i]
		}
		avg = float64(sum.Milliseconds()) / float64(s.ringLen)
	}

	return SessionMetricsSnapshot{
		SessionID:        s.sessionID,
		ScenarioType:     s.scenarioType,
		Histogram:        hist,
		MissedCadence:    s.missed,
		TotalFrameTimeMS: s.totalMS,
		AvgFrameTimeMS:   avg,
	}
}

// Reset clears all accumulated state, starting a new reporting window
// under the same session id (mirrors SessionMetrics::resetMetric).
func (s *SessionMetrics) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.histogram = newHistogram()
	s.missed = 0
	s.totalMS = 0
	s.ringLen = 0
	s.ringHead = 0
}
