package haptics

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testComposer() *Composer {
	bw := &BandwidthAmplitudeMap{}
	for i := range bw.Levels {
		bw.Levels[i] = 1.0
	}
	// S5: bw_map[(150-30)] = 0.4
	bw.Levels[Index(150)] = 0.4
	return NewComposer(bw, DefaultVoltageTables(), 150)
}

// S3: compose([Effect(CLICK,0.7), Delay(100), Effect(HEAVY_CLICK,1.0)])
// produces total_duration = click + 100 + heavy_click + 1 and exactly one
// command-string write before activation (the write-before-activation part
// is exercised by TestHapticRuntime_ComposeWritesOnceBeforeActivate).
func TestComposer_S3BasicClickDelayHeavyClick(t *testing.T) {
	c := testComposer()
	result, err := c.ComposeBasic([]Primitive{
		EffectPrimitive(EffectClick, 0.7),
		Delay(100),
		EffectPrimitive(EffectThud, 1.0), // stand-in heavy primitive in the composition-primitive set
	})
	require.NoError(t, err)
	assert.Equal(t, effectDurationMS(EffectClick)+100+effectDurationMS(EffectThud)+maxPauseTimingErrorMS, result.TotalDuration)
	assert.Equal(t, 3, result.SegmentCount)
}

func TestComposer_S3ClassicDoubleClickExpansion(t *testing.T) {
	c := testComposer()
	result, err := c.ComposeClassic(ClassicDoubleClick, StrengthStrong)
	require.NoError(t, err)

	clickDuration := effectDurationMS(EffectClick)
	wantTotal := clickDuration + doubleClickSilenceMS + maxPauseTimingErrorMS + clickDuration
	assert.Equal(t, wantTotal, result.TotalDuration)
	assert.Equal(t, 2, result.SegmentCount)
	assert.Contains(t, result.Command, ",100,")
}

// S4: compose([Active(10, 0.5, 0.5, 20, 200)]) -> InvalidArgument (start
// frequency below 30 Hz).
func TestComposer_S4OutOfRangeFrequencyRejected(t *testing.T) {
	c := testComposer()
	_, err := c.ComposePWLE([]Primitive{
		Active(10, 0.5, 0.5, 20, 200),
	})
	require.Error(t, err)
	var herr *Error
	require.ErrorAs(t, err, &herr)
	assert.Equal(t, KindInvalidArgument, herr.Kind)
}

// S5: compose([Active(10, 0.9, 0.9, 150, 150)]) where bw_map[(150-30)]=0.4
// emits L:0.4.
func TestComposer_S5AmplitudeClip(t *testing.T) {
	c := testComposer()
	result, err := c.ComposePWLE([]Primitive{
		Active(10, 0.9, 0.9, 150, 150),
	})
	require.NoError(t, err)
	assert.Contains(t, result.Command, "L0:0.4")
}

// Property 6: Composer round-trip — a validated composition serializes to
// a string whose declared segment count equals one plus the number of
// continuity-seed segments emitted. ComposePWLE starts each composition
// with prevEndAmplitude=0, prevEndFrequency=ResonantFrequency, so a single
// Active primitive needs a seed segment exactly when its start doesn't
// match that initial state.
func TestComposer_RoundTripSegmentCount(t *testing.T) {
	c := testComposer() // ResonantFrequency: 150
	result, err := c.ComposePWLE([]Primitive{
		Active(50, 0.3, 0.3, 100, 100), // start != (0, 150) -> one seed segment
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.SegmentCount) // 1 (main) + 1 (seed)
}

func TestComposer_RoundTripNoSeedWhenContinuous(t *testing.T) {
	c := testComposer() // ResonantFrequency: 150
	result, err := c.ComposePWLE([]Primitive{
		Active(50, 0, 0.3, 150, 150), // start matches the initial (0, Resonant) state
	})
	require.NoError(t, err)
	assert.Equal(t, 1, result.SegmentCount) // 1 (main) + 0 seeds
}

// Property 7: amplitude clipping — for every Active(...) with
// start_amp > bw_map[(start_freq-30)], the emitted L value equals
// bw_map[(start_freq-30)] (rounded per format).
func TestComposer_AmplitudeClippingProperty(t *testing.T) {
	c := testComposer()
	result, err := c.ComposePWLE([]Primitive{
		Active(10, 0.95, 0.95, 150, 150),
	})
	require.NoError(t, err)
	assert.True(t, strings.Contains(result.Command, "L0:0.4"), "command = %q", result.Command)
}

func TestComposer_PrimitiveCountExceedsMax(t *testing.T) {
	c := testComposer()
	var prims []Primitive
	for i := 0; i < maxPrimitivesPwleProbed+1; i++ {
		prims = append(prims, Active(1, 0, 0, 30, 30))
	}
	_, err := c.ComposePWLE(prims)
	require.Error(t, err)
}

func TestComposer_RejectsUnsupportedBraking(t *testing.T) {
	c := testComposer()
	_, err := c.ComposePWLE([]Primitive{
		Active(10, 0.1, 0.1, 50, 50),
		{Kind: KindBraking, DurationMS: 5, Braking: BrakingKind("BOGUS")},
	})
	require.Error(t, err)
}

func TestComposer_HeaderPresent(t *testing.T) {
	c := testComposer()
	result, err := c.ComposePWLE([]Primitive{Active(10, 0.1, 0.1, 50, 50)})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(result.Command, "S:0,WF:4,RP:0,WT:0"))
}
