package perfmgr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// cur reads a TestNode's current value without racing the looper goroutine.
func cur(tn *TestNode) string {
	v, _ := tn.Read()
	return v
}

// waitUntil polls fn every few ms until it returns true or the overall
// budget elapses, avoiding a single fixed sleep that would make the test
// either slow or flaky.
func waitUntil(t *testing.T, budget time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(budget)
	for {
		if fn() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", budget)
		}
		time.Sleep(2 * time.Millisecond)
	}
}

func TestNodeLooper_S1TwoCompetingHints(t *testing.T) {
	tn := NewTestNode()
	n := NewNode("cpu_min", []string{"0", "600", "1200"}, 8, tn, SystemClock{}, nil)
	m := NewManager([]*Node{n}, Resolve(), nil, SystemClock{}, nil)
	m.Start()
	defer m.Stop()

	m.Request("LAUNCH", []NodeAction{{NodeIndex: 0, ValueIndex: 2, Timeout: 50 * time.Millisecond}})
	waitUntil(t, time.Second, func() bool { return cur(tn) == "1200" })

	time.Sleep(10 * time.Millisecond)
	m.Request("TOUCH", []NodeAction{{NodeIndex: 0, ValueIndex: 1, Timeout: 200 * time.Millisecond}})

	waitUntil(t, time.Second, func() bool { return cur(tn) == "600" })
	waitUntil(t, time.Second, func() bool { return cur(tn) == "0" })

	hist := tn.History()
	require.GreaterOrEqual(t, len(hist), 3)
	assert.Equal(t, []string{"1200", "600", "0"}, hist)
}

func TestNodeLooper_S2CancelBeforeExpiry(t *testing.T) {
	tn := NewTestNode()
	n := NewNode("cpu_min", []string{"0", "600", "1200"}, 8, tn, SystemClock{}, nil)
	m := NewManager([]*Node{n}, Resolve(), nil, SystemClock{}, nil)
	m.Start()
	defer m.Stop()

	m.Request("LAUNCH", []NodeAction{{NodeIndex: 0, ValueIndex: 2, Timeout: 200 * time.Millisecond}})
	waitUntil(t, time.Second, func() bool { return cur(tn) == "1200" })

	m.Cancel("LAUNCH", []NodeAction{{NodeIndex: 0, ValueIndex: 2}})
	waitUntil(t, time.Second, func() bool { return cur(tn) == "0" })

	assert.Equal(t, []string{"1200", "0"}, tn.History())
}

func TestNodeLooper_RequestFailsAfterStop(t *testing.T) {
	n := NewNode("x", []string{"0", "1"}, 8, NewTestNode(), SystemClock{}, nil)
	m := NewManager([]*Node{n}, Resolve(), nil, SystemClock{}, nil)
	m.Start()
	m.Stop()

	assert.False(t, m.Request("H", []NodeAction{{NodeIndex: 0, ValueIndex: 1, Timeout: time.Second}}))
}

func TestNodeLooper_EnableFlagGate(t *testing.T) {
	flags := newFlagProvider()
	flags.SetDefault("my_flag", false)

	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 8, tn, SystemClock{}, nil)
	m := NewManager([]*Node{n}, flags, nil, SystemClock{}, nil)
	m.Start()
	defer m.Stop()

	m.Request("H", []NodeAction{{NodeIndex: 0, ValueIndex: 1, Timeout: 100 * time.Millisecond, EnableFlag: "my_flag"}})
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, tn.History(), "action gated by a false EnableFlag must never write")
}

func TestNodeLooper_EnablePropertyGate(t *testing.T) {
	store := NewMemPropertyStore()
	store.SetProperty("vendor.feature.enabled", "0")

	tn := NewTestNode()
	n := NewNode("x", []string{"0", "1"}, 8, tn, SystemClock{}, nil)
	m := NewManager([]*Node{n}, Resolve(), store, SystemClock{}, nil)
	m.Start()
	defer m.Stop()

	m.Request("H", []NodeAction{{NodeIndex: 0, ValueIndex: 1, Timeout: 100 * time.Millisecond, EnableProperty: "vendor.feature.enabled"}})
	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, tn.History(), "action gated by a \"0\" EnableProperty must never write")

	store.SetProperty("vendor.feature.enabled", "1")
	m.Request("H2", []NodeAction{{NodeIndex: 0, ValueIndex: 1, Timeout: 100 * time.Millisecond, EnableProperty: "vendor.feature.enabled"}})
	waitUntil(t, time.Second, func() bool { return cur(tn) == "1" })
}
