package perfmgr

import (
	"container/heap"
	"fmt"
	"io"
	"sync"
)

// jobHeap is a min-heap on Job.ScheduledAt, the ordered container JobQueue
// delegates to (spec.md §4.3 "inserts into an ordered container keyed on
// scheduled_at ascending"). Grounded on container/heap since no pack
// library supplies a priority queue; this is the idiomatic stdlib answer.
type jobHeap []*Job

func (h jobHeap) Len() int            { return len(h) }
func (h jobHeap) Less(i, j int) bool  { return h[i].ScheduledAt.Before(h[j].ScheduledAt) }
func (h jobHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].heapIndex, h[j].heapIndex = i, j
}
func (h *jobHeap) Push(x any) {
	j := x.(*Job)
	j.heapIndex = len(*h)
	*h = append(*h, j)
}
func (h *jobHeap) Pop() any {
	old := *h
	n := len(old)
	j := old[n-1]
	old[n-1] = nil
	j.heapIndex = -1
	*h = old[:n-1]
	return j
}

// JobQueue is a bounded-pool priority queue of submitted Requests/Cancels
// (spec.md §4.3). Thread-safe under a single internal mutex; every
// operation is O(log n). Grounded on internal/nebula/worker.go's
// sync.Mutex-guarded shared WorkerGroup state and internal/neutron/
// reaper.go's stale-resource reclamation idiom for the free-list.
type JobQueue struct {
	mu     sync.Mutex
	heap   jobHeap
	free   []*Job
	events EventFunc

	poolCap     int
	allocations int // jobs created beyond the initial pool, for Dump/metrics
}

// NewJobQueue preallocates a free list of capacity cap (spec.md §3: "a
// fixed pool of capacity >= 64").
func NewJobQueue(capacity int, events EventFunc) *JobQueue {
	if capacity < 64 {
		capacity = 64
	}
	q := &JobQueue{
		heap:    make(jobHeap, 0, capacity),
		free:    make([]*Job, 0, capacity),
		events:  events,
		poolCap: capacity,
	}
	for i := 0; i < capacity; i++ {
		q.free = append(q.free, &Job{heapIndex: -1})
	}
	return q
}

// AcquireJob pops from the free list; if empty, allocates a new Job and
// emits a single-line warning record with the current queue and pool sizes
// (spec.md §4.3, §7 ErrInternal "pool exhaustion (non-fatal; allocation
// continues)").
func (q *JobQueue) AcquireJob() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	n := len(q.free)
	if n == 0 {
		q.allocations++
		traceEvent(q.events, "jobqueue", "pool:exhausted", "queue_size", len(q.heap), "pool_size", q.poolCap, "allocations", q.allocations)
		return &Job{heapIndex: -1}
	}
	j := q.free[n-1]
	q.free = q.free[:n-1]
	return j
}

// Enqueue inserts job into the ordered container keyed on ScheduledAt
// ascending.
func (q *JobQueue) Enqueue(j *Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	heap.Push(&q.heap, j)
	traceEvent(q.events, "jobqueue", "enq:+"+j.Hint, "cancel", j.IsCancel)
}

// Dequeue removes and returns the earliest job, or nil if the queue is
// empty.
func (q *JobQueue) Dequeue() *Job {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.heap) == 0 {
		return nil
	}
	j := heap.Pop(&q.heap).(*Job)
	sign := "+"
	if j.IsCancel {
		sign = "-"
	}
	traceEvent(q.events, "jobqueue", "deq:"+j.Hint+":"+sign)
	return j
}

// Release clears job's fields and returns it to the free list, capping
// free-list growth at poolCap so an allocation burst doesn't retain memory
// indefinitely (extra jobs are simply dropped for GC).
func (q *JobQueue) Release(j *Job) {
	j.reset()
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.free) < q.poolCap {
		q.free = append(q.free, j)
	}
}

// Size returns the number of jobs currently queued.
func (q *JobQueue) Size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.heap)
}

// PoolSize returns the number of jobs currently available in the free list.
func (q *JobQueue) PoolSize() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.free)
}

// Dump enumerates queued jobs, ordered by ScheduledAt, without perturbing
// the live heap (spec.md §4.3 "achieved via a transient container").
func (q *JobQueue) Dump(w io.Writer) {
	q.mu.Lock()
	snap := make(jobHeap, len(q.heap))
	copy(snap, q.heap)
	poolSize := len(q.free)
	q.mu.Unlock()

	heap.Init(&snap)
	fmt.Fprintf(w, "jobqueue: size=%d pool=%d allocations=%d\n", len(snap), poolSize, q.allocations)
	for len(snap) > 0 {
		j := heap.Pop(&snap).(*Job)
		fmt.Fprintf(w, "  job hint=%q cancel=%v scheduled_at=%s actions=%d\n",
			j.Hint, j.IsCancel, j.ScheduledAt.Format("15:04:05.000"), len(j.Actions))
	}
}
