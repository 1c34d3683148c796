package haptics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	mu     sync.Mutex
	writes []string
}

func (w *recordingWriter) Write(value string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.writes = append(w.writes, value)
	return nil
}

func (w *recordingWriter) Writes() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.writes))
	copy(out, w.writes)
	return out
}

type recordingActivator struct {
	mu     sync.Mutex
	events []bool
}

func (a *recordingActivator) SetActive(active bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, active)
	return nil
}

func (a *recordingActivator) Events() []bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]bool, len(a.events))
	copy(out, a.events)
	return out
}

type fakeExtCtrl struct {
	mu      sync.Mutex
	enabled []bool
}

func (f *fakeExtCtrl) SetExternalControl(enabled bool) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.enabled = append(f.enabled, enabled)
	return nil
}

// immediateWatcher reports completion on the first poll, with no delay.
type immediateWatcher struct{}

func (immediateWatcher) WatchBoolean(target bool, _ time.Duration) (bool, error) {
	return true, nil
}

func waitUntilRuntime(t *testing.T, budget time.Duration, fn func() bool) {
	t.Helper()
	deadline := time.Now().Add(budget)
	for {
		if fn() {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("condition not met within %s", budget)
		}
		time.Sleep(time.Millisecond)
	}
}

func newTestRuntime() (*HapticRuntime, *recordingWriter, *recordingActivator, *fakeExtCtrl) {
	bw := &BandwidthAmplitudeMap{}
	for i := range bw.Levels {
		bw.Levels[i] = 1.0
	}
	composer := NewComposer(bw, DefaultVoltageTables(), 150)
	writer := &recordingWriter{}
	activator := &recordingActivator{}
	extCtrl := &fakeExtCtrl{}
	rt := NewHapticRuntime(composer, writer, activator, extCtrl, immediateWatcher{}, nil)
	return rt, writer, activator, extCtrl
}

// S3: compose(...) produces exactly one command-string write before
// activation.
func TestHapticRuntime_ComposeWritesOnceBeforeActivate(t *testing.T) {
	rt, writer, activator, _ := newTestRuntime()

	var done sync.WaitGroup
	done.Add(1)
	err := rt.Compose([]Primitive{Active(10, 0.1, 0.1, 50, 50)}, func() { done.Done() })
	require.NoError(t, err)

	assert.Len(t, writer.Writes(), 1)
	waitUntilRuntime(t, time.Second, func() bool { return len(activator.Events()) >= 2 })
	assert.Equal(t, []bool{true, false}, activator.Events())
}

func TestHapticRuntime_OnShortVsLongWaveform(t *testing.T) {
	rt, writer, _, _ := newTestRuntime()
	require.NoError(t, rt.On(10, nil))
	waitUntilRuntime(t, time.Second, func() bool { return rt.State() == StateIdle })
	assert.Contains(t, writer.Writes()[0], "waveform:short")

	rt2, writer2, _, _ := newTestRuntime()
	require.NoError(t, rt2.On(500, nil))
	waitUntilRuntime(t, time.Second, func() bool { return rt2.State() == StateIdle })
	assert.Contains(t, writer2.Writes()[0], "waveform:long")
}

func TestHapticRuntime_BusyWhileActivationPending(t *testing.T) {
	bw := &BandwidthAmplitudeMap{}
	for i := range bw.Levels {
		bw.Levels[i] = 1.0
	}
	composer := NewComposer(bw, DefaultVoltageTables(), 150)
	writer := &recordingWriter{}
	activator := &recordingActivator{}
	blocking := &blockingWatcher{release: make(chan struct{})}
	rt := NewHapticRuntime(composer, writer, activator, &fakeExtCtrl{}, blocking, nil)

	require.NoError(t, rt.On(100, nil))
	err := rt.On(100, nil)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindBusy, herr.Kind)

	close(blocking.release)
	waitUntilRuntime(t, time.Second, func() bool { return rt.State() == StateIdle })
}

type blockingWatcher struct {
	release chan struct{}
}

func (b *blockingWatcher) WatchBoolean(target bool, _ time.Duration) (bool, error) {
	<-b.release
	return true, nil
}

// S6 (external control): start idle -> set_external_control(true) accepted;
// subsequent on(100) -> fails Busy/UnsupportedOperation; set_amplitude(0.5)
// -> fails UnsupportedOperation; set_external_control(false) -> idle.
func TestHapticRuntime_S6ExternalControl(t *testing.T) {
	rt, _, _, extCtrl := newTestRuntime()

	require.Equal(t, StateIdle, rt.State())
	require.NoError(t, rt.SetExternalControl(true))
	assert.Equal(t, StateExternal, rt.State())

	err := rt.On(100, nil)
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindUnsupportedOperation, herr.Kind)

	err = rt.SetAmplitude(0.5)
	require.Error(t, err)
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindUnsupportedOperation, herr.Kind)

	require.NoError(t, rt.SetExternalControl(false))
	assert.Equal(t, StateIdle, rt.State())
	assert.Equal(t, []bool{true, false}, extCtrl.enabled)
}

func TestHapticRuntime_ExternalControlIdempotentWhenAlreadyExternal(t *testing.T) {
	rt, _, _, extCtrl := newTestRuntime()
	require.NoError(t, rt.SetExternalControl(true))
	require.NoError(t, rt.SetExternalControl(true))
	assert.Equal(t, []bool{true}, extCtrl.enabled)
}

func TestHapticRuntime_OffClearsPending(t *testing.T) {
	rt, _, activator, _ := newTestRuntime()
	require.NoError(t, rt.On(10, nil))
	require.NoError(t, rt.Off())
	assert.Equal(t, StateIdle, rt.State())
	assert.Contains(t, activator.Events(), false)
}
