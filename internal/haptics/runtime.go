package haptics

import (
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/perfmgr/perfmgrd/internal/metrics"
)

// ActuatorState is the HapticRuntime state machine's current mode
// (spec.md §4.7 "State machine (actuator)").
type ActuatorState int

const (
	StateIdle ActuatorState = iota
	StateBusy
	StateExternal
)

func (s ActuatorState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateBusy:
		return "busy"
	case StateExternal:
		return "external"
	default:
		return "unknown"
	}
}

const (
	shortWaveformThresholdMS = 50
	pollMarginMS             = 20
	maxWatchTimeout          = 24 * time.Hour
)

// ActivationWriter is the capability the runtime needs from the
// actuator's backing node: write a command string. Enabling/disabling
// activation is the Activator's job. Grounded on perfmgr's NodeWriter
// capability split.
type ActivationWriter interface {
	Write(value string) error
}

// Activator toggles the actuator on/off independent of the command
// string write (spec.md §4.7 "writes ..., sets duration, activates").
type Activator interface {
	SetActive(active bool) error
}

// ExternalControlToggle flips the ALSA PCM / ASP-enable path
// (spec.md §4.7 "toggles ALSA PCM + ASP-enable toggles").
type ExternalControlToggle interface {
	SetExternalControl(enabled bool) error
}

// StateWatcher is the BooleanWatcher capability the completion watcher
// polls for "state == idle".
type StateWatcher interface {
	WatchBoolean(target bool, timeout time.Duration) (bool, error)
}

// Callback is invoked on successful completion of an on()/compose()
// activation.
type Callback func()

// HapticRuntime binds a Composer to the underlying actuator endpoints and
// runs the completion-watcher state machine (spec.md §4.7).
type HapticRuntime struct {
	composer  *Composer
	writer    ActivationWriter
	activator Activator
	extCtrl   ExternalControlToggle
	watcher   StateWatcher
	clock     Clock

	mu      sync.Mutex
	state   ActuatorState
	pending bool // a completion watcher goroutine is outstanding

	// sessionMetrics is optional; when set, SetAmplitude derates requested
	// amplitude under heavy frame-drop pressure (SPEC_FULL.md §4.8 — the
	// same instance the NodeLooper dump surface reports).
	sessionMetrics *metrics.SessionMetrics
}

// SetSessionMetrics attaches the shared SessionMetrics instance consulted
// by SetAmplitude's frame-pressure derating. Passing nil detaches it.
func (r *HapticRuntime) SetSessionMetrics(m *metrics.SessionMetrics) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessionMetrics = m
}

// framePressureDerate returns a [0,1] multiplier applied to a requested
// amplitude: above a missed-cadence threshold, amplitude is reduced to
// avoid compounding perceived jank with a haptic stutter.
func (r *HapticRuntime) framePressureDerate() float64 {
	if r.sessionMetrics == nil {
		return 1.0
	}
	snap := r.sessionMetrics.Dump()
	if snap.Histogram.TotalFrames == 0 {
		return 1.0
	}
	missedRatio := float64(snap.MissedCadence) / float64(snap.Histogram.TotalFrames)
	if missedRatio > 0.5 {
		return 0.5
	}
	return 1.0
}

// Clock is the same minimal time-source seam perfmgr.Clock uses, so tests
// can drive HapticRuntime deterministically without a real sleep.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// NewHapticRuntime wires composer against the given actuator endpoints.
// clock may be nil to use the real wall clock.
func NewHapticRuntime(composer *Composer, writer ActivationWriter, activator Activator, extCtrl ExternalControlToggle, watcher StateWatcher, clock Clock) *HapticRuntime {
	if clock == nil {
		clock = systemClock{}
	}
	return &HapticRuntime{
		composer:  composer,
		writer:    writer,
		activator: activator,
		extCtrl:   extCtrl,
		watcher:   watcher,
		clock:     clock,
		state:     StateIdle,
	}
}

// SetComposer swaps in a freshly calibrated Composer, e.g. after a
// calibration file hot-reload (config.CalibrationWatcher). In-flight
// activations are unaffected; only the next On()/Compose() call observes
// the new calibration.
func (r *HapticRuntime) SetComposer(composer *Composer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.composer = composer
}

// State reports the current actuator mode.
func (r *HapticRuntime) State() ActuatorState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// On activates a classic waveform by duration threshold (spec.md §4.7
// "writes the effect index for the long/short waveform by threshold").
func (r *HapticRuntime) On(timeoutMS int, callback Callback) error {
	r.mu.Lock()
	if err := r.canActivateLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	waveform := "long"
	if timeoutMS < shortWaveformThresholdMS {
		waveform = "short"
	}
	cmd := fmt.Sprintf("waveform:%s,duration:%d", waveform, timeoutMS)
	if err := r.writer.Write(cmd); err != nil {
		r.mu.Unlock()
		return newError(KindInternal, "on", err)
	}
	r.activateLocked(timeoutMS, callback)
	r.mu.Unlock()
	return nil
}

// Compose runs Composer.ComposePWLE, writes the resulting command, and
// activates (spec.md §4.7 "runs HapticComposer, writes the string,
// activates, spawns the completion watcher").
func (r *HapticRuntime) Compose(primitives []Primitive, callback Callback) error {
	result, err := r.composer.ComposePWLE(primitives)
	if err != nil {
		return err
	}

	r.mu.Lock()
	if err := r.canActivateLocked(); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.writer.Write(result.Command); err != nil {
		r.mu.Unlock()
		return newError(KindInternal, "compose", err)
	}
	r.activateLocked(result.TotalDuration, callback)
	r.mu.Unlock()
	return nil
}

// canActivateLocked enforces "Busy, External: on/compose → reject".
func (r *HapticRuntime) canActivateLocked() error {
	switch r.state {
	case StateBusy:
		return newError(KindBusy, "activate", ErrBusy)
	case StateExternal:
		return newError(KindUnsupportedOperation, "activate", ErrUnsupportedOperation)
	}
	if r.pending {
		return newError(KindBusy, "activate", ErrBusy)
	}
	return nil
}

// activateLocked transitions Idle -> Busy and spawns the sole completion
// watcher goroutine. Caller holds r.mu.
func (r *HapticRuntime) activateLocked(totalDurationMS int, callback Callback) {
	if r.activator != nil {
		if err := r.activator.SetActive(true); err != nil {
			slog.Error("haptics: activate failed", "err", err)
		}
	}
	r.state = StateBusy
	r.pending = true

	timeout := time.Duration(totalDurationMS+pollMarginMS) * time.Millisecond
	if timeout <= 0 || timeout > maxWatchTimeout {
		timeout = maxWatchTimeout
	}
	go r.watchCompletion(timeout, callback)
}

// watchCompletion is the async completion watcher (spec.md §4.7
// "Completion watcher"). Runs off the caller's goroutine.
func (r *HapticRuntime) watchCompletion(timeout time.Duration, callback Callback) {
	ok, err := false, error(nil)
	if r.watcher != nil {
		ok, err = r.watcher.WatchBoolean(false, timeout)
	} else {
		ok = true
	}

	r.mu.Lock()
	r.pending = false
	r.state = StateIdle
	r.mu.Unlock()

	if r.activator != nil {
		if deactErr := r.activator.SetActive(false); deactErr != nil {
			slog.Error("haptics: deactivate failed", "err", deactErr)
		}
	}

	if err != nil || !ok {
		slog.Error("haptics: completion watcher timed out", "err", err)
		return
	}
	if callback != nil {
		callback()
	}
}

// Off deactivates and clears any pending async handle (spec.md §4.7).
func (r *HapticRuntime) Off() error {
	r.mu.Lock()
	r.state = StateIdle
	r.pending = false
	r.mu.Unlock()
	if r.activator != nil {
		return r.activator.SetActive(false)
	}
	return nil
}

// SetAmplitude is forbidden while under external control.
func (r *HapticRuntime) SetAmplitude(amplitude float64) error {
	if amplitude <= 0 || amplitude > 1 {
		return newError(KindInvalidArgument, "set_amplitude", fmt.Errorf("amplitude %v out of (0,1]", amplitude))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateExternal {
		return newError(KindUnsupportedOperation, "set_amplitude", ErrUnsupportedOperation)
	}
	amplitude *= r.framePressureDerate()
	return r.writer.Write(fmt.Sprintf("amplitude:%.4f", amplitude))
}

// SetExternalControl toggles ALSA PCM + ASP-enable (spec.md §4.7;
// DESIGN.md records the idempotent-success decision for enabled==true
// while already External).
func (r *HapticRuntime) SetExternalControl(enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if enabled {
		if r.state == StateExternal {
			return nil
		}
		if r.state == StateBusy || r.pending {
			return newError(KindBusy, "set_external_control", ErrBusy)
		}
		if r.extCtrl != nil {
			if err := r.extCtrl.SetExternalControl(true); err != nil {
				return newError(KindInternal, "set_external_control", err)
			}
		}
		r.state = StateExternal
		return nil
	}

	if r.state != StateExternal {
		return nil
	}
	if r.extCtrl != nil {
		if err := r.extCtrl.SetExternalControl(false); err != nil {
			return newError(KindInternal, "set_external_control", err)
		}
	}
	r.state = StateIdle
	return nil
}
