// Package haptics implements the HapticComposer primitive sequencer and
// the HapticRuntime actuator state machine from spec.md §4.6/§4.7, grounded
// on original_source/vibrator/cs40l25/Vibrator.cpp's composePwle/compose
// pipeline.
package haptics

// EffectKind is one of the classic preloaded waveform primitives a
// Primitive.Effect selects (spec.md §3 HapticPrimitive).
type EffectKind string

const (
	EffectNoop       EffectKind = "NOOP"
	EffectClick      EffectKind = "CLICK"
	EffectThud       EffectKind = "THUD"
	EffectSpin       EffectKind = "SPIN"
	EffectQuickRise  EffectKind = "QUICK_RISE"
	EffectSlowRise   EffectKind = "SLOW_RISE"
	EffectQuickFall  EffectKind = "QUICK_FALL"
	EffectLightTick  EffectKind = "LIGHT_TICK"
	EffectLowTick    EffectKind = "LOW_TICK"
)

// ClassicEffect additionally covers the "classic" Android Effect enum
// consumed by On()/Perform() (CLICK/TICK/HEAVY_CLICK/TEXTURE_TICK/
// DOUBLE_CLICK), distinct from the composition-primitive set above but
// sharing the same strength-mapping machinery (spec.md §4.6 "Strength
// mapping for classic effects").
type ClassicEffect string

const (
	ClassicTextureTick ClassicEffect = "TEXTURE_TICK"
	ClassicTick        ClassicEffect = "TICK"
	ClassicClick       ClassicEffect = "CLICK"
	ClassicHeavyClick  ClassicEffect = "HEAVY_CLICK"
	ClassicDoubleClick ClassicEffect = "DOUBLE_CLICK"
)

// Strength is the classic-effect amplitude tier (spec.md §4.6).
type Strength string

const (
	StrengthLight  Strength = "LIGHT"
	StrengthMedium Strength = "MEDIUM"
	StrengthStrong Strength = "STRONG"
)

// BrakingKind selects a deceleration waveform for a Braking segment,
// grounded on original_source's Braking enum (NONE, CLAB).
type BrakingKind string

const (
	BrakingNone BrakingKind = "NONE"
	BrakingClab BrakingKind = "CLAB"
)

// Primitive is a single tagged segment accepted by Composer.ComposePWLE/ComposeBasic,
// mirroring spec.md §3 HapticPrimitive's four variants. Exactly one of the
// typed fields is meaningful per Kind.
type Primitive struct {
	Kind PrimitiveKind

	// Delay
	DurationMS int

	// Effect
	Effect EffectKind
	Scale  float64

	// Active
	StartAmp, EndAmp   float64
	StartFreq, EndFreq float64

	// Braking
	Braking BrakingKind
}

// PrimitiveKind tags which fields of Primitive are populated.
type PrimitiveKind int

const (
	KindDelay PrimitiveKind = iota
	KindEffect
	KindActive
	KindBraking
)

// Delay builds a pause-only primitive.
func Delay(durationMS int) Primitive {
	return Primitive{Kind: KindDelay, DurationMS: durationMS}
}

// EffectPrimitive builds a classic-effect composition primitive.
func EffectPrimitive(kind EffectKind, scale float64) Primitive {
	return Primitive{Kind: KindEffect, Effect: kind, Scale: scale}
}

// Active builds a piecewise-linear amplitude/frequency segment, duration
// in milliseconds.
func Active(durationMS int, startAmp, endAmp, startFreq, endFreq float64) Primitive {
	return Primitive{Kind: KindActive, DurationMS: durationMS, StartAmp: startAmp, EndAmp: endAmp, StartFreq: startFreq, EndFreq: endFreq}
}

// BrakingSegment builds a deceleration segment.
func BrakingSegment(durationMS int, kind BrakingKind) Primitive {
	return Primitive{Kind: KindBraking, DurationMS: durationMS, Braking: kind}
}
