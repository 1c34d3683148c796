package perfmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNode_PriorityWithinNode(t *testing.T) {
	// Property 5: with two active hints requesting value indices i < j, the
	// applied value is values[i].
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("cpu_min", []string{"0", "600", "1200"}, 8, tn, clock, nil)

	n.AddRequest(1, "TOUCH", clock.Now().Add(2*time.Second))
	n.AddRequest(2, "LAUNCH", clock.Now().Add(time.Second))
	n.Update(true)

	assert.Equal(t, "600", n.AppliedValue())
}

func TestNode_RefreshSemantics(t *testing.T) {
	// Property 4: request(h,T1); request(h,T2) leaves one request whose
	// deadline reflects the second call, value index from the second.
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("gpu_freq", []string{"0", "500"}, 8, tn, clock, nil)

	n.AddRequest(1, "H", clock.Now().Add(time.Second))
	n.AddRequest(0, "H", clock.Now().Add(5*time.Second))

	require.Len(t, n.requests, 1)
	r := n.requests["H"]
	assert.Equal(t, 0, r.valueIndex)
	assert.Equal(t, clock.Now().Add(5*time.Second), r.deadline)
}

func TestNode_CancelIdempotence(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 8, tn, clock, nil)
	n.AddRequest(1, "H", clock.Now().Add(time.Second))

	n.RemoveRequest("H")
	n.RemoveRequest("H") // second call is a no-op, not an error

	_, active := n.Snapshot()
	assert.Empty(t, active)
}

func TestNode_AtMostOneWritePerUnchangedValue(t *testing.T) {
	// Property 1: two successive Update(pass=2) calls selecting the same
	// value index issue no additional write.
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 8, tn, clock, nil)
	n.AddRequest(1, "H", clock.Now().Add(10*time.Second))

	n.Update(true)
	n.Update(true)
	n.Update(true)

	assert.Equal(t, []string{"1"}, tn.History())
}

func TestNode_ExpiryLiveness(t *testing.T) {
	// Property 2: a request with timeout T is withdrawn no later than
	// T + one tick after enqueue.
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 8, tn, clock, nil)
	n.AddRequest(1, "H", clock.Now().Add(time.Second))
	n.Update(true)

	clock.Advance(2 * time.Second)
	n.Update(true)

	assert.Equal(t, "0", n.AppliedValue())
	assert.Equal(t, []string{"1", "0"}, tn.History())
}

func TestNode_CapacityEviction(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 2, tn, clock, nil)

	require.True(t, n.AddRequest(1, "a", clock.Now().Add(time.Second)))
	require.True(t, n.AddRequest(1, "b", clock.Now().Add(time.Second)))
	require.True(t, n.AddRequest(1, "c", clock.Now().Add(time.Second)))

	require.Len(t, n.requests, 2)
	_, ok := n.requests["a"]
	assert.False(t, ok, "oldest request should have been evicted")
}

func TestNode_AddRequestOutOfRange(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	n := NewNode("x", []string{"0", "1"}, 8, NewTestNode(), clock, nil)
	assert.False(t, n.AddRequest(5, "h", clock.Now().Add(time.Second)))
}

func TestNode_WriteFailureRetriedNextPass(t *testing.T) {
	clock := newFakeClock(time.Unix(0, 0))
	tn := NewTestNode()
	tn.FailNth = 1
	n := NewNode("x", []string{"0", "1"}, 8, tn, clock, nil)
	n.AddRequest(1, "H", clock.Now().Add(10*time.Second))

	n.Update(false) // pass 1: write fails, applied stays at reset
	assert.Equal(t, "0", n.AppliedValue())

	n.Update(true) // pass 2: retry succeeds
	assert.Equal(t, "1", n.AppliedValue())
}
