package perfmgr

import (
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/perfmgr/perfmgrd/internal/metrics"
)

// NodeLooper is the single-thread scheduler binding Node, NodeWriter, and
// JobQueue together (spec.md §4.4). Grounded on internal/nebula/worker.go's
// WorkerGroup dispatch loop, generalized from an N-worker pool to exactly
// one dispatcher goroutine.
type NodeLooper struct {
	nodes  []*Node
	queue  *JobQueue
	flags  *FlagProvider
	props  PropertyStore // consulted for NodeAction.EnableProperty gates
	clock  Clock
	events EventFunc

	mu       sync.Mutex
	cond     *sync.Cond
	running  bool
	stopping bool
	wakeAt   time.Time // used only for Dump/diagnostics
	doneCh   chan struct{}

	// sessionMetrics is optional; when set, Dump reports its snapshot
	// alongside the Node/queue state (SPEC_FULL.md §4.8 cross-subsystem
	// coupling — the same SessionMetrics instance HapticRuntime consults).
	sessionMetrics *metrics.SessionMetrics
}

// SetSessionMetrics attaches the shared SessionMetrics instance consulted
// by Dump. Passing nil detaches it.
func (l *NodeLooper) SetSessionMetrics(m *metrics.SessionMetrics) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.sessionMetrics = m
}

// NewNodeLooper constructs a looper over nodes, dispatching through queue.
// flags, props, and events may be nil (flags defaults to Resolve(), props
// defaults to an empty in-memory store so EnableProperty gates simply never
// fire).
func NewNodeLooper(nodes []*Node, queue *JobQueue, flags *FlagProvider, props PropertyStore, clock Clock, events EventFunc) *NodeLooper {
	if flags == nil {
		flags = Resolve()
	}
	if props == nil {
		props = NewMemPropertyStore()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	l := &NodeLooper{nodes: nodes, queue: queue, flags: flags, props: props, clock: clock, events: events}
	l.cond = sync.NewCond(&l.mu)
	return l
}

// Start launches the dispatcher goroutine. Idempotent: calling Start twice
// is a no-op.
func (l *NodeLooper) Start() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.running {
		return
	}
	l.running = true
	l.stopping = false
	l.doneCh = make(chan struct{})
	go l.run(l.doneCh)
}

// Stop signals the dispatcher to exit and blocks until it has (spec.md
// §4.4 "stop() joins the thread"). Idempotent.
func (l *NodeLooper) Stop() {
	l.mu.Lock()
	if !l.running {
		l.mu.Unlock()
		return
	}
	l.stopping = true
	done := l.doneCh
	l.cond.Broadcast()
	l.mu.Unlock()
	<-done
}

// Request enqueues a non-cancel Job for hint/actions, computed against the
// current clock tick, and wakes the dispatcher. Returns false if the
// looper is stopping (spec.md §4.4).
func (l *NodeLooper) Request(hint string, actions []NodeAction) bool {
	return l.submit(hint, actions, false)
}

// Cancel enqueues a cancel Job for hint/actions (spec.md §4.4).
func (l *NodeLooper) Cancel(hint string, actions []NodeAction) bool {
	return l.submit(hint, actions, true)
}

func (l *NodeLooper) submit(hint string, actions []NodeAction, isCancel bool) bool {
	l.mu.Lock()
	if l.stopping {
		l.mu.Unlock()
		return false
	}
	l.mu.Unlock()

	j := l.queue.AcquireJob()
	j.Hint = hint
	j.Actions = append(j.Actions[:0], actions...)
	j.ScheduledAt = l.clock.Now()
	j.IsCancel = isCancel
	l.queue.Enqueue(j)

	l.mu.Lock()
	l.cond.Broadcast()
	l.mu.Unlock()
	return true
}

// run is the dispatcher's single-goroutine body (spec.md §4.4 steps 1-6).
func (l *NodeLooper) run(done chan struct{}) {
	defer close(done)
	for {
		l.mu.Lock()
		if l.stopping {
			l.running = false
			l.mu.Unlock()
			return
		}
		l.mu.Unlock()

		job := l.queue.Dequeue()
		if job != nil {
			l.applyJob(job)
			l.queue.Release(job)
		}

		t1 := l.runPass(false)
		_ = t1 // Pass 1 timeouts are discarded per spec.md §4.1.
		tStar := l.runPass(true)

		if l.queue.Size() > 0 {
			tStar = 0
		}

		l.waitFor(tStar)
	}
}

// applyJob evaluates every NodeAction in job against property/flag gates
// and either removes or installs the hint's request on the named Node
// (spec.md §4.4 step 2).
func (l *NodeLooper) applyJob(job *Job) {
	for _, a := range job.Actions {
		if a.NodeIndex < 0 || a.NodeIndex >= len(l.nodes) {
			continue
		}
		node := l.nodes[a.NodeIndex]

		if a.EnableProperty != "" {
			if v, ok := l.props.GetProperty(a.EnableProperty); ok && (v == "0" || v == "false") {
				traceEvent(l.events, "node", node.Name+":prop:disabled", "hint", job.Hint, "property", a.EnableProperty)
				continue
			}
		}
		if a.EnableFlag != "" {
			if fn, ok := l.flags.GetterByName(a.EnableFlag); ok && !fn() {
				traceEvent(l.events, "node", node.Name+":disable", "hint", job.Hint, "flag", a.EnableFlag)
				continue
			}
		}
		if a.DisableFlag != "" {
			if fn, ok := l.flags.GetterByName(a.DisableFlag); ok && fn() {
				traceEvent(l.events, "node", node.Name+":disable", "hint", job.Hint, "flag", a.DisableFlag)
				continue
			}
		}

		if job.IsCancel {
			node.RemoveRequest(job.Hint)
			continue
		}

		deadline := addDeadline(job.ScheduledAt, a.Timeout)
		node.AddRequest(a.ValueIndex, job.Hint, deadline)
	}
}

// runPass runs Node.Update across every node once and reduces the returned
// timeouts to a single minimum.
func (l *NodeLooper) runPass(secondPass bool) time.Duration {
	min := Infinite
	for _, n := range l.nodes {
		t := n.Update(secondPass)
		if t < min {
			min = t
		}
	}
	return min
}

// waitFor blocks on the condition variable for d, or until Broadcast is
// called (spec.md §4.4 step 6). sync.Cond has no native timeout, so a timer
// goroutine broadcasts after d to guarantee forward progress; submit()
// broadcasting early is what lets a newly enqueued job wake the dispatcher
// sooner than its computed sleep.
func (l *NodeLooper) waitFor(d time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.stopping || d <= 0 {
		l.wakeAt = l.clock.Now()
		return
	}
	l.wakeAt = l.clock.Now().Add(d)

	timer := time.AfterFunc(cappedDuration(d), func() {
		l.mu.Lock()
		l.cond.Broadcast()
		l.mu.Unlock()
	})
	defer timer.Stop()

	l.cond.Wait()
}

// cappedDuration guards against passing a value time.AfterFunc cannot
// represent when d is the Infinite sentinel.
func cappedDuration(d time.Duration) time.Duration {
	const maxTimer = 24 * time.Hour
	if d > maxTimer {
		return maxTimer
	}
	return d
}

// Dump writes a textual snapshot of every Node and the queue (spec.md
// §6.4).
func (l *NodeLooper) Dump(w io.Writer) {
	for _, n := range l.nodes {
		applied, active := n.Snapshot()
		fmt.Fprintf(w, "node %s: applied=%d(%s)\n", n.Name, applied, n.AppliedValue())
		for _, r := range active {
			rem := "inf"
			if r.RemainingDur != Infinite {
				rem = r.RemainingDur.Round(time.Millisecond).String()
			}
			fmt.Fprintf(w, "  hint=%s value=%d remaining=%s\n", r.Hint, r.ValueIndex, rem)
		}
	}
	l.queue.Dump(w)

	l.mu.Lock()
	sm := l.sessionMetrics
	l.mu.Unlock()
	if sm != nil {
		snap := sm.Dump()
		fmt.Fprintf(w, "session %s: frames=%d missed=%d avg_ms=%.1f\n",
			snap.SessionID, snap.Histogram.TotalFrames, snap.MissedCadence, snap.AvgFrameTimeMS)
	}
}
