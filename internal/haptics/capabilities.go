package haptics

// Capability is a single advertised actuator feature bit (spec.md §6.3
// getCapabilities()).
type Capability int

const (
	CapabilityOnCallback Capability = iota
	CapabilityPerformCallback
	CapabilityAmplitudeControl
	CapabilityExternalControl
	CapabilityComposePwle
	CapabilityComposeEffect
)

// CapabilitySet is a bitmask over Capability, grounded on
// original_source's IVibratorCallback capability flags exposed through
// getCapabilities().
type CapabilitySet uint32

func (c CapabilitySet) Has(cap Capability) bool {
	return c&(1<<uint(cap)) != 0
}

func NewCapabilitySet(caps ...Capability) CapabilitySet {
	var s CapabilitySet
	for _, c := range caps {
		s |= 1 << uint(c)
	}
	return s
}

// GetCapabilities computes the advertised capability bitmask from the
// runtime's actual wiring rather than a static table: a bit is set only
// when the collaborator backing that feature is present, mirroring
// original_source's getCapabilities() querying mHwApi for each optional
// sysfs node before advertising it.
func (r *HapticRuntime) GetCapabilities() CapabilitySet {
	r.mu.Lock()
	defer r.mu.Unlock()

	var caps []Capability
	if r.watcher != nil {
		// async completion confirmable -> on()/perform() callbacks are honored
		caps = append(caps, CapabilityOnCallback, CapabilityPerformCallback)
	}
	if r.writer != nil {
		// SetAmplitude writes through the same command endpoint as on()/compose()
		caps = append(caps, CapabilityAmplitudeControl)
	}
	if r.extCtrl != nil {
		caps = append(caps, CapabilityExternalControl)
	}
	if r.composer != nil {
		caps = append(caps, CapabilityComposeEffect)
		if r.composer.GetPwleCompositionSizeMax() > 0 {
			caps = append(caps, CapabilityComposePwle)
		}
	}
	return NewCapabilitySet(caps...)
}

// GetSupportedPrimitives returns the composition-primitive effect kinds
// the composer's waveform index table recognizes (spec.md §6.3
// getSupportedPrimitives()).
func (r *HapticRuntime) GetSupportedPrimitives() []EffectKind {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.GetSupportedPrimitives()
}

// GetSupportedBraking returns the braking kinds ComposePWLE accepts
// (spec.md §6.3 getSupportedBraking()).
func (r *HapticRuntime) GetSupportedBraking() []BrakingKind {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.GetSupportedBraking()
}

// GetPwleCompositionSizeMax reports the effective per-request PWLE segment
// ceiling (spec.md §6.3 getPwleCompositionSizeMax()).
func (r *HapticRuntime) GetPwleCompositionSizeMax() int {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return 0
	}
	return c.GetPwleCompositionSizeMax()
}

// GetBandwidthAmplitudeMap returns the composer's current calibrated map,
// or nil if no calibration has been loaded (spec.md §6.3
// getBandwidthAmplitudeMap()).
func (r *HapticRuntime) GetBandwidthAmplitudeMap() *BandwidthAmplitudeMap {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return nil
	}
	return c.GetBandwidthAmplitudeMap()
}

// GetResonantFrequency reports the calibrated resonant frequency in Hz
// (spec.md §6.3 getResonantFrequency()).
func (r *HapticRuntime) GetResonantFrequency() float64 {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return FrequencyMinHz
	}
	return c.GetResonantFrequency()
}

// GetQFactor reports the calibrated mechanical Q factor (spec.md §6.3
// getQFactor()).
func (r *HapticRuntime) GetQFactor() float64 {
	r.mu.Lock()
	c := r.composer
	r.mu.Unlock()
	if c == nil {
		return qFactorDefault
	}
	return c.GetQFactor()
}

// GetFrequencyMin reports the lower bound of the PWLE carrier frequency
// range (spec.md §6.3 getFrequencyMinimum()).
func (r *HapticRuntime) GetFrequencyMin() float64 {
	return FrequencyMinHz
}

// GetFrequencyResolution reports the bin width of the bandwidth-amplitude
// map (spec.md §6.3 getFrequencyResolution()).
func (r *HapticRuntime) GetFrequencyResolution() float64 {
	return FrequencyResolutionHz
}
