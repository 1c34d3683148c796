package perfmgr

import (
	"log/slog"
	"time"
)

// nodeRequest is one pending (value, deadline) pair held against a Node,
// keyed by the hint that submitted it.
type nodeRequest struct {
	valueIndex int
	deadline   time.Time
	seq        uint64 // insertion order, for tie-breaking equal value indices
}

// Node represents one tunable endpoint: an ordered list of candidate values
// (index 0 is the reset/default), and the set of currently active requests
// competing to set it. Node.Update is called exclusively from the
// NodeLooper goroutine; reads via Dump happen on the same goroutine or take
// a snapshot, so Node itself holds no internal mutex (grounded on
// spec.md §5 "the Node value cache — mutated only on the looper thread").
type Node struct {
	Name     string
	Values   []string
	Capacity int
	Writer   NodeWriter

	requests map[string]*nodeRequest
	applied  int // index into Values currently written; starts at 0, the reset value
	seq      uint64

	clock  Clock
	events EventFunc
}

// NewNode constructs a Node bound to a writer and clock. capacity <= 0
// defaults to 8 per spec.md §6.1.
func NewNode(name string, values []string, capacity int, w NodeWriter, clock Clock, events EventFunc) *Node {
	if capacity <= 0 {
		capacity = 8
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Node{
		Name:     name,
		Values:   values,
		Capacity: capacity,
		Writer:   w,
		requests: make(map[string]*nodeRequest),
		applied:  0,
		clock:    clock,
		events:   events,
	}
}

// AddRequest inserts or refreshes the request for hint. Returns false only
// if valueIndex is out of range for Values.
func (n *Node) AddRequest(valueIndex int, hint string, deadline time.Time) bool {
	if valueIndex < 0 || valueIndex >= len(n.Values) {
		return false
	}
	if _, exists := n.requests[hint]; !exists && len(n.requests) >= n.Capacity {
		n.evictOldest()
	}
	n.seq++
	n.requests[hint] = &nodeRequest{valueIndex: valueIndex, deadline: deadline, seq: n.seq}
	traceEvent(n.events, "node", "enq:+"+hint, "node", n.Name, "value", valueIndex)
	return true
}

// RemoveRequest deletes hint unconditionally; a no-op if absent.
func (n *Node) RemoveRequest(hint string) {
	if _, ok := n.requests[hint]; !ok {
		return
	}
	delete(n.requests, hint)
	traceEvent(n.events, "node", "deq:"+hint+":-", "node", n.Name)
}

// evictOldest drops the request with the smallest insertion sequence,
// making room for a new one when Capacity is exceeded.
func (n *Node) evictOldest() {
	var oldestHint string
	var oldestSeq uint64
	first := true
	for h, r := range n.requests {
		if first || r.seq < oldestSeq {
			oldestHint, oldestSeq, first = h, r.seq, false
		}
	}
	if !first {
		delete(n.requests, oldestHint)
	}
}

// Update purges expired requests, selects the winning value (lowest
// valueIndex, ties by earliest insertion), writes it if it changed, and
// returns the time until the earliest remaining deadline (or Infinite).
// secondPass only affects logging context; the selection algorithm is
// identical on both passes per spec.md §4.1.
func (n *Node) Update(secondPass bool) time.Duration {
	now := n.clock.Now()
	for hint, r := range n.requests {
		if !r.deadline.After(now) {
			delete(n.requests, hint)
			traceEvent(n.events, "node", "deq:"+hint+":x", "node", n.Name)
		}
	}

	winner := -1 // index 0 (reset) if no requests remain
	if len(n.requests) > 0 {
		var winSeq uint64
		first := true
		for _, r := range n.requests {
			if first || r.valueIndex < winner || (r.valueIndex == winner && r.seq < winSeq) {
				winner, winSeq, first = r.valueIndex, r.seq, false
			}
		}
	} else {
		winner = 0
	}

	if winner != n.applied {
		if err := n.write(winner); err != nil {
			slog.Warn("perfmgr: node write failed, retrying next pass",
				"node", n.Name, "value", n.Values[winner], "pass", passLabel(secondPass), "err", err)
		} else {
			n.applied = winner
		}
	}

	return n.nextTimeout(now)
}

func (n *Node) write(valueIndex int) error {
	if n.Writer == nil {
		return nil
	}
	return n.Writer.Write(n.Values[valueIndex])
}

func (n *Node) nextTimeout(now time.Time) time.Duration {
	min := Infinite
	for _, r := range n.requests {
		if isInfinite(r.deadline, now) {
			continue
		}
		d := r.deadline.Sub(now)
		if d < 0 {
			d = 0
		}
		if d < min {
			min = d
		}
	}
	return min
}

// ResetRequest refreshes hint's deadline without changing its value index.
// A no-op if hint is not currently active.
func (n *Node) ResetRequest(hint string, deadline time.Time) {
	if r, ok := n.requests[hint]; ok {
		r.deadline = deadline
	}
}

// AppliedValue returns the currently written value string, or the reset
// value if nothing has been written yet.
func (n *Node) AppliedValue() string {
	if n.applied < 0 {
		if len(n.Values) == 0 {
			return ""
		}
		return n.Values[0]
	}
	return n.Values[n.applied]
}

// ActiveRequest describes one request for Dump rendering.
type ActiveRequest struct {
	Hint         string
	ValueIndex   int
	RemainingDur time.Duration
}

// Snapshot returns the current applied index and a copy of active requests,
// safe to hand to a caller outside the looper goroutine (the caller is
// responsible for only invoking this from the looper or after Stop()).
func (n *Node) Snapshot() (applied int, active []ActiveRequest) {
	now := n.clock.Now()
	for hint, r := range n.requests {
		rem := r.deadline.Sub(now)
		if isInfinite(r.deadline, now) {
			rem = Infinite
		}
		active = append(active, ActiveRequest{Hint: hint, ValueIndex: r.valueIndex, RemainingDur: rem})
	}
	return n.applied, active
}

func passLabel(secondPass bool) string {
	if secondPass {
		return "2"
	}
	return "1"
}
