package haptics

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

const (
	// maxPrimitivesBasic bounds a classic-effect composition (spec.md §4.6).
	maxPrimitivesBasic = 127
	// maxPrimitivesPwleProbed is the probed hardware ceiling clamp for
	// piecewise composition, originally COMPOSE_PWLE_SIZE_LIMIT.
	maxPrimitivesPwleProbed = 82
	// maxSegmentDurationMS is COMPOSE_PWLE_PRIMITIVE_DURATION_MAX_MS.
	maxSegmentDurationMS = 999
	// maxDelayMS bounds a Delay primitive.
	maxDelayMS = 10000
	// maxCommandLength is CS40L2X_PWLE_LENGTH_MAX.
	maxCommandLength = 4094

	doubleClickSilenceMS   = 100
	maxPauseTimingErrorMS  = 1
)

// effectWeight is the per-effect strength multiplier applied on top of the
// strength tier's intensity (spec.md §4.6 "Strength mapping").
var effectWeight = map[EffectKind]float64{
	EffectLightTick: 0.5, // TEXTURE_TICK analog in the composition-primitive set
	EffectNoop:      0,
}

var classicEffectWeight = map[ClassicEffect]float64{
	ClassicTextureTick: 0.5,
	ClassicTick:        0.5,
	ClassicClick:        0.7,
	ClassicHeavyClick:   1.0,
}

var strengthIntensity = map[Strength]float64{
	StrengthLight:  0.5,
	StrengthMedium: 0.7,
	StrengthStrong: 1.0,
}

// effectIndex mirrors getPrimitiveDetails()'s Effect -> hardware waveform
// index table (spec.md §3 "look up the effect index").
var effectIndex = map[EffectKind]int{
	EffectClick:     2,
	EffectThud:      3,
	EffectSpin:      4,
	EffectQuickRise: 5,
	EffectSlowRise:  6,
	EffectQuickFall: 7,
	EffectLightTick: 8,
	EffectLowTick:   9,
}

// VoltageRange is a calibrated [min,max] voltage-level array for one
// waveform family (distinct for tick/click/long primitives per spec.md
// §4.6), mirroring mTickEffectVol/mClickEffectVol/mLongEffectVol.
type VoltageRange struct {
	Min, Max float64
}

// VoltageTables groups the three calibrated voltage arrays the composer
// consults when converting an effect's intensity to a vol_level.
type VoltageTables struct {
	Tick  VoltageRange
	Click VoltageRange
	Long  VoltageRange
}

// DefaultVoltageTables returns a reasonable uncalibrated default, used
// when no calibration file supplies one.
func DefaultVoltageTables() VoltageTables {
	return VoltageTables{
		Tick:  VoltageRange{Min: 40, Max: 100},
		Click: VoltageRange{Min: 40, Max: 100},
		Long:  VoltageRange{Min: 0, Max: 100},
	}
}

// Composer validates and serializes HapticPrimitive sequences into
// device-specific command strings (spec.md §4.6). Grounded directly on
// original_source/vibrator/cs40l25/Vibrator.cpp's compose()/composePwle().
type Composer struct {
	BWMap             *BandwidthAmplitudeMap
	Voltages          VoltageTables
	MaxBasic          int
	MaxPwle           int
	ResonantFrequency float64
	QFactor           float64 // 0 means "use qFactorDefault"
}

// NewComposer constructs a Composer with spec.md's default caps.
// bwMap may be nil; Active() amplitudes are then only capped at
// deviceLevelMax instead of clipped per frequency.
func NewComposer(bwMap *BandwidthAmplitudeMap, voltages VoltageTables, resonantFrequencyHz float64) *Composer {
	return &Composer{
		BWMap:             bwMap,
		Voltages:          voltages,
		MaxBasic:          maxPrimitivesBasic,
		MaxPwle:           maxPrimitivesPwleProbed,
		ResonantFrequency: resonantFrequencyHz,
	}
}

// Result is the output of a successful Compose call (spec.md §4.6
// "a device command string plus the total duration in milliseconds").
type Result struct {
	Command      string
	TotalDuration int // milliseconds
	SegmentCount  int
}

// ComposePWLE validates and serializes a piecewise (Active/Braking/Delay)
// sequence, porting composePwle()'s loop.
func (c *Composer) ComposePWLE(primitives []Primitive) (*Result, error) {
	if len(primitives) == 0 {
		return nil, newError(KindInvalidArgument, "primitives", fmt.Errorf("composition must contain at least one primitive"))
	}
	max := c.MaxPwle
	if max <= 0 || max > maxPrimitivesPwleProbed {
		max = maxPrimitivesPwleProbed
	}
	if len(primitives) > max {
		return nil, newError(KindInvalidArgument, "primitives", fmt.Errorf("%d primitives exceeds max %d", len(primitives), max))
	}

	hasNonDelay := false
	for _, p := range primitives {
		if p.Kind != KindDelay {
			hasNonDelay = true
		}
	}
	if !hasNonDelay {
		return nil, newError(KindInvalidArgument, "primitives", fmt.Errorf("at least one non-delay primitive is required"))
	}

	var sb strings.Builder
	sb.WriteString("S:0,WF:4,RP:0,WT:0")

	segIdx := 0
	totalDuration := 0
	prevEndAmp := 0.0
	prevEndFreq := c.ResonantFrequency
	if prevEndFreq == 0 {
		prevEndFreq = FrequencyMinHz
	}

	for _, p := range primitives {
		switch p.Kind {
		case KindDelay:
			if p.DurationMS < 0 || p.DurationMS > maxDelayMS {
				return nil, newError(KindInvalidArgument, "delay", fmt.Errorf("duration %dms out of [0,%d]", p.DurationMS, maxDelayMS))
			}
			totalDuration += p.DurationMS

		case KindActive:
			if p.DurationMS < 0 || p.DurationMS > maxSegmentDurationMS {
				return nil, newError(KindInvalidArgument, "active", fmt.Errorf("duration %dms out of [0,%d]", p.DurationMS, maxSegmentDurationMS))
			}
			if p.StartAmp < levelMin || p.StartAmp > levelMax || p.EndAmp < levelMin || p.EndAmp > levelMax {
				return nil, newError(KindInvalidArgument, "active", fmt.Errorf("amplitude out of [0,1]"))
			}
			if p.StartFreq < FrequencyMinHz || p.StartFreq > FrequencyMaxHz ||
				p.EndFreq < FrequencyMinHz || p.EndFreq > FrequencyMaxHz {
				return nil, newError(KindInvalidArgument, "active", fmt.Errorf("frequency out of [%v,%v]", FrequencyMinHz, FrequencyMaxHz))
			}

			startAmp := c.clipAmplitude(p.StartAmp, p.StartFreq)
			endAmp := c.clipAmplitude(p.EndAmp, p.EndFreq)

			if startAmp != prevEndAmp || p.StartFreq != prevEndFreq {
				writeActiveSegment(&sb, segIdx, 0, startAmp, p.StartFreq)
				segIdx++
			}
			writeActiveSegment(&sb, segIdx, p.DurationMS, endAmp, p.EndFreq)
			segIdx++

			prevEndAmp = endAmp
			prevEndFreq = p.EndFreq
			totalDuration += p.DurationMS

		case KindBraking:
			if !isSupportedBraking(p.Braking) {
				return nil, newError(KindInvalidArgument, "braking", fmt.Errorf("unsupported braking kind %q", p.Braking))
			}
			if p.DurationMS < 0 || p.DurationMS > maxSegmentDurationMS {
				return nil, newError(KindInvalidArgument, "braking", fmt.Errorf("duration %dms out of [0,%d]", p.DurationMS, maxSegmentDurationMS))
			}
			writeBrakingSegment(&sb, segIdx, p.DurationMS, p.Braking, prevEndFreq)
			segIdx++
			prevEndAmp = 0
			totalDuration += p.DurationMS

		default:
			return nil, newError(KindInvalidArgument, "primitive", fmt.Errorf("effect primitives are not valid inside a PWLE composition"))
		}
	}

	cmd := sb.String()
	if len(cmd) > maxCommandLength {
		return nil, newError(KindIllegalState, "command", fmt.Errorf("serialized command length %d exceeds max %d", len(cmd), maxCommandLength))
	}

	return &Result{Command: cmd, TotalDuration: totalDuration, SegmentCount: segIdx}, nil
}

func (c *Composer) clipAmplitude(amp, freqHz float64) float64 {
	if c.BWMap != nil {
		amp = c.BWMap.Clip(amp, freqHz)
	} else if amp > deviceLevelMax {
		amp = deviceLevelMax
	}
	return amp
}

func isSupportedBraking(k BrakingKind) bool {
	switch k {
	case BrakingNone, BrakingClab:
		return true
	default:
		return false
	}
}

func writeActiveSegment(sb *strings.Builder, idx, durationMS int, amp, freqHz float64) {
	fmt.Fprintf(sb, ",T%d:%d,L%d:%s,F%d:%d,C%d:1,B%d:0,AR%d:0,V%d:0",
		idx, durationMS, idx, formatLevel(amp), idx, int(math.Round(freqHz)), idx, idx, idx, idx)
}

func writeBrakingSegment(sb *strings.Builder, idx, durationMS int, braking BrakingKind, freqHz float64) {
	fmt.Fprintf(sb, ",T%d:%d,L%d:0,F%d:%d,C%d:0,B%d:%d,AR%d:0,V%d:0",
		idx, durationMS, idx, idx, int(math.Round(freqHz)), idx, idx, brakingCode(braking), idx, idx)
}

func brakingCode(k BrakingKind) int {
	switch k {
	case BrakingClab:
		return 1
	default:
		return 0
	}
}

func formatLevel(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

// ComposeBasic validates and serializes a classic Effect/Delay sequence
// (spec.md §4.6 basic composition), porting compose()'s effect-queue
// building loop (the CompositePrimitive switch in Vibrator.cpp).
func (c *Composer) ComposeBasic(primitives []Primitive) (*Result, error) {
	if len(primitives) == 0 || len(primitives) > maxPrimitivesBasic {
		return nil, newError(KindInvalidArgument, "primitives", fmt.Errorf("count %d out of (0,%d]", len(primitives), maxPrimitivesBasic))
	}

	hasNonDelay := false
	totalDuration := 0
	var parts []string

	for _, p := range primitives {
		switch p.Kind {
		case KindDelay:
			if p.DurationMS < 0 || p.DurationMS > maxDelayMS {
				return nil, newError(KindInvalidArgument, "delay", fmt.Errorf("duration %dms out of [0,%d]", p.DurationMS, maxDelayMS))
			}
			parts = append(parts, strconv.Itoa(p.DurationMS))
			totalDuration += p.DurationMS
			if p.DurationMS > 0 {
				totalDuration += maxPauseTimingErrorMS
			}

		case KindEffect:
			hasNonDelay = true
			if p.Scale < 0 || p.Scale > 1 {
				return nil, newError(KindInvalidArgument, "effect", fmt.Errorf("scale %v out of [0,1]", p.Scale))
			}
			idx, ok := effectIndex[p.Effect]
			if !ok {
				return nil, newError(KindInvalidArgument, "effect", fmt.Errorf("unknown primitive %q", p.Effect))
			}
			weight, ok := effectWeight[p.Effect]
			if !ok {
				weight = 1.0
			}
			intensity := p.Scale * weight
			volLevel := c.intensityToVolLevel(intensity, p.Effect)
			parts = append(parts, fmt.Sprintf("%d.%d", idx, volLevel))
			totalDuration += effectDurationMS(p.Effect)

		default:
			return nil, newError(KindInvalidArgument, "primitive", fmt.Errorf("active/braking primitives are not valid inside a basic composition"))
		}
	}

	if !hasNonDelay {
		return nil, newError(KindInvalidArgument, "primitives", fmt.Errorf("at least one non-delay primitive is required"))
	}

	cmd := strings.Join(parts, ",")
	if len(cmd) > maxCommandLength {
		return nil, newError(KindIllegalState, "command", fmt.Errorf("serialized command length %d exceeds max %d", len(cmd), maxCommandLength))
	}
	return &Result{Command: cmd, TotalDuration: totalDuration, SegmentCount: len(parts)}, nil
}

// ComposeClassic builds the effect queue for a classic Effect/Strength
// pair, including the DOUBLE_CLICK expansion (spec.md §4.6 "DOUBLE_CLICK
// is expanded to CLICK; pause 100ms; HEAVY_CLICK"), porting
// getSimpleDetails()/getCompoundDetails().
func (c *Composer) ComposeClassic(effect ClassicEffect, strength Strength) (*Result, error) {
	base, ok := strengthIntensity[strength]
	if !ok {
		return nil, newError(KindInvalidArgument, "strength", fmt.Errorf("unknown strength %q", strength))
	}

	if effect == ClassicDoubleClick {
		click, err := c.simpleClassicDetails(ClassicClick, base)
		if err != nil {
			return nil, err
		}
		heavy, err := c.simpleClassicDetails(ClassicHeavyClick, base)
		if err != nil {
			return nil, err
		}
		cmd := fmt.Sprintf("%d.%d,%d,%d.%d", click.idx, click.vol, doubleClickSilenceMS, heavy.idx, heavy.vol)
		total := click.durationMS + doubleClickSilenceMS + maxPauseTimingErrorMS + heavy.durationMS
		return &Result{Command: cmd, TotalDuration: total, SegmentCount: 2}, nil
	}

	d, err := c.simpleClassicDetails(effect, base)
	if err != nil {
		return nil, err
	}
	return &Result{Command: fmt.Sprintf("%d.%d", d.idx, d.vol), TotalDuration: d.durationMS, SegmentCount: 1}, nil
}

type classicDetails struct {
	idx, vol, durationMS int
}

func (c *Composer) simpleClassicDetails(effect ClassicEffect, baseIntensity float64) (classicDetails, error) {
	weight, ok := classicEffectWeight[effect]
	if !ok {
		return classicDetails{}, newError(KindInvalidArgument, "effect", fmt.Errorf("unknown classic effect %q", effect))
	}
	intensity := baseIntensity * weight

	var kind EffectKind
	switch effect {
	case ClassicTextureTick:
		kind = EffectLightTick
	default:
		kind = EffectClick
	}
	idx := effectIndex[kind]
	vol := c.intensityToVolLevel(intensity, kind)
	return classicDetails{idx: idx, vol: vol, durationMS: effectDurationMS(kind)}, nil
}

// intensityToVolLevel ports intensityToVolLevel()'s family-specific
// calc(intst, v) = round(intst*(v.Max-v.Min)) + v.Min.
func (c *Composer) intensityToVolLevel(intensity float64, kind EffectKind) int {
	var v VoltageRange
	switch kind {
	case EffectLightTick:
		v = c.Voltages.Tick
	case EffectQuickRise, EffectQuickFall:
		v = c.Voltages.Long
	default:
		v = c.Voltages.Click
	}
	return int(math.Round(intensity*(v.Max-v.Min))) + int(v.Min)
}

// effectDurationMS is a small per-effect nominal duration table; the real
// device reports these via a calibration probe, so this is the composer's
// fallback when no richer duration table is supplied.
var effectDurationTable = map[EffectKind]int{
	EffectClick:     20,
	EffectThud:      60,
	EffectSpin:      180,
	EffectQuickRise: 150,
	EffectSlowRise:  300,
	EffectQuickFall: 100,
	EffectLightTick: 15,
	EffectLowTick:   15,
}

func effectDurationMS(kind EffectKind) int {
	if d, ok := effectDurationTable[kind]; ok {
		return d
	}
	return 0
}

// GetSupportedPrimitives returns the composition-primitive effect kinds
// this composer's waveform index table recognizes (spec.md §6.3
// getSupportedPrimitives()).
func (c *Composer) GetSupportedPrimitives() []EffectKind {
	out := make([]EffectKind, 0, len(effectIndex))
	for k := range effectIndex {
		out = append(out, k)
	}
	return out
}

// GetSupportedBraking returns the braking kinds ComposePWLE accepts
// (spec.md §6.3 getSupportedBraking()).
func (c *Composer) GetSupportedBraking() []BrakingKind {
	all := []BrakingKind{BrakingNone, BrakingClab}
	out := make([]BrakingKind, 0, len(all))
	for _, k := range all {
		if isSupportedBraking(k) {
			out = append(out, k)
		}
	}
	return out
}

// GetPwleCompositionSizeMax reports the effective per-request PWLE segment
// ceiling, applying the same probed-hardware clamp ComposePWLE enforces
// (spec.md §6.3 getPwleCompositionSizeMax()).
func (c *Composer) GetPwleCompositionSizeMax() int {
	if c.MaxPwle <= 0 || c.MaxPwle > maxPrimitivesPwleProbed {
		return maxPrimitivesPwleProbed
	}
	return c.MaxPwle
}

// GetBandwidthAmplitudeMap returns the calibrated map this composer clips
// amplitudes against, or nil if none was supplied (spec.md §6.3
// getBandwidthAmplitudeMap()).
func (c *Composer) GetBandwidthAmplitudeMap() *BandwidthAmplitudeMap {
	return c.BWMap
}

// GetResonantFrequency reports the calibrated resonant frequency in Hz,
// falling back to the PWLE carrier band's floor when uncalibrated (the
// same fallback ComposePWLE's continuity seed uses) (spec.md §6.3
// getResonantFrequency()).
func (c *Composer) GetResonantFrequency() float64 {
	if c.ResonantFrequency == 0 {
		return FrequencyMinHz
	}
	return c.ResonantFrequency
}

// GetQFactor reports the calibrated mechanical Q factor, falling back to
// the same default GenerateBandwidthAmplitudeMap uses when calibration
// omits one (spec.md §6.3 getQFactor()).
func (c *Composer) GetQFactor() float64 {
	if c.QFactor <= 0 {
		return qFactorDefault
	}
	return c.QFactor
}
