package haptics

import "math"

const (
	// FrequencyMinHz and FrequencyMaxHz bound the PWLE carrier frequency
	// range (spec.md §3 BandwidthAmplitudeMap).
	FrequencyMinHz = 30.0
	FrequencyMaxHz = 300.0
	// FrequencyResolutionHz is the bin width of BandwidthAmplitudeMap.
	FrequencyResolutionHz = 1.0
	// BandwidthMapSize = 1 + (300-30)/1 = 271 (spec.md §3).
	BandwidthMapSize = 1 + int((FrequencyMaxHz-FrequencyMinHz)/FrequencyResolutionHz)

	levelMin       = 0.0
	levelMax       = 1.0
	deviceLevelMax = 0.99 // CS40L2X_PWLE_LEVEL_MAX

	qFactorDefault = 10.0
	blSys          = 1.1
	gravity        = 9.81
	maxVoltageSys  = 12.3
)

// CalibrationRecord holds the per-unit calibration constants
// BandwidthAmplitudeMap is derived from (spec.md §3), recovered from
// original_source/vibrator/cs40l25/Vibrator.cpp's generateBandwidthAmplitudeMap
// and Hardware.h's calibration accessors.
type CalibrationRecord struct {
	ResonantFrequencyHz float64
	QFactor             float64 // 0 means "use qFactorDefault"
	DeviceMassKg        float64
	CouplingCoefficient float64
	CoilResistanceOhm   float64 // already converted from the raw redc fixed-point reading
	LongEffectVolPct    float64 // mLongEffectVol[1], percent of maxVoltageSys
	// DiscreteLimits maps a carrier frequency (Hz) to the hardware's
	// discrete maximum-allowable chirp level at that frequency. A map
	// entry overrides the uniform 1.0 default at every other frequency.
	DiscreteLimits map[float64]float64
}

// BandwidthAmplitudeMap is the normalized maximum safe amplitude per
// carrier-frequency bin (spec.md §3), indexed via Index(freqHz).
type BandwidthAmplitudeMap struct {
	Levels      [BandwidthMapSize]float64
	LimitLevels [BandwidthMapSize]float64 // discrete hardware ceiling, independent of calibration
}

// Index maps a carrier frequency in [30,300] Hz to its bin in Levels.
// Callers must range-check freqHz themselves (Composer does, at
// validation time).
func Index(freqHz float64) int {
	return int(math.Round((freqHz - FrequencyMinHz) / FrequencyResolutionHz))
}

// GenerateBandwidthAmplitudeMap computes the calibrated map from cal,
// porting generateBandwidthAmplitudeMap()'s physics directly: a
// single-degree-of-freedom resonant system's transfer function evaluated
// across the frequency sweep, scaled to [0,1] by its own peak.
func GenerateBandwidthAmplitudeMap(cal CalibrationRecord) (*BandwidthAmplitudeMap, error) {
	if cal.DeviceMassKg <= 0 || cal.CouplingCoefficient <= 0 {
		return nil, ErrMissingCalibration
	}
	if cal.CoilResistanceOhm <= 0 {
		return nil, ErrMissingCalibration
	}
	q := cal.QFactor
	if q <= 0 {
		q = qFactorDefault
	}

	m := &BandwidthAmplitudeMap{}
	for i := range m.LimitLevels {
		m.LimitLevels[i] = 1.0
	}
	for freq, limit := range cal.DiscreteLimits {
		idx := Index(freq)
		if idx >= 0 && idx < BandwidthMapSize {
			m.LimitLevels[idx] = limit
		}
	}

	wnSys := cal.ResonantFrequencyHz * 2 * math.Pi
	maxAsys := 0.0
	freqHz := FrequencyMinHz
	for i := 0; i < BandwidthMapSize; i++ {
		freqRadians := freqHz * 2 * math.Pi
		vLevel := m.LimitLevels[i]
		vSys := (cal.LongEffectVolPct / 100.0) * maxVoltageSys * vLevel

		var1 := math.Pow(math.Pow(wnSys, 2)-math.Pow(freqRadians, 2), 2)
		var2 := math.Pow(wnSys*freqRadians/q, 2)
		pSysAbs := math.Sqrt(var1 + var2)

		amplitudeSys := (vSys * blSys * cal.CouplingCoefficient / cal.CoilResistanceOhm / cal.DeviceMassKg) *
			math.Pow(freqRadians, 2) / pSysAbs / gravity

		m.Levels[i] = amplitudeSys
		if amplitudeSys > maxAsys {
			maxAsys = amplitudeSys
		}
		freqHz += FrequencyResolutionHz
	}

	if maxAsys <= 0 {
		return nil, ErrMissingCalibration
	}
	for i := range m.Levels {
		m.Levels[i] = math.Floor((m.Levels[i]/maxAsys)*100) / 100
	}
	return m, nil
}

// Clip returns amp clipped to this map's safe ceiling at freqHz, then
// further clipped to deviceLevelMax (spec.md §4.6 step 2).
func (m *BandwidthAmplitudeMap) Clip(amp, freqHz float64) float64 {
	idx := Index(freqHz)
	if idx >= 0 && idx < BandwidthMapSize {
		if amp > m.Levels[idx] {
			amp = m.Levels[idx]
		}
	}
	if amp > deviceLevelMax {
		amp = deviceLevelMax
	}
	return amp
}
