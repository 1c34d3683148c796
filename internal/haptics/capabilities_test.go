package haptics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHapticRuntime_GetCapabilitiesReflectsWiring(t *testing.T) {
	rt, _, _, _ := newTestRuntime()
	caps := rt.GetCapabilities()

	assert.True(t, caps.Has(CapabilityOnCallback))
	assert.True(t, caps.Has(CapabilityPerformCallback))
	assert.True(t, caps.Has(CapabilityAmplitudeControl))
	assert.True(t, caps.Has(CapabilityExternalControl))
	assert.True(t, caps.Has(CapabilityComposePwle))
	assert.True(t, caps.Has(CapabilityComposeEffect))
}

func TestHapticRuntime_GetCapabilitiesDropsMissingCollaborators(t *testing.T) {
	composer := testComposer()
	writer := &recordingWriter{}
	rt := NewHapticRuntime(composer, writer, nil, nil, nil, nil)

	caps := rt.GetCapabilities()
	assert.False(t, caps.Has(CapabilityOnCallback))
	assert.False(t, caps.Has(CapabilityPerformCallback))
	assert.False(t, caps.Has(CapabilityExternalControl))
	assert.True(t, caps.Has(CapabilityAmplitudeControl))
	assert.True(t, caps.Has(CapabilityComposePwle))
}

func TestHapticRuntime_GetSupportedPrimitivesAndBraking(t *testing.T) {
	rt, _, _, _ := newTestRuntime()

	primitives := rt.GetSupportedPrimitives()
	require.NotEmpty(t, primitives)
	assert.Contains(t, primitives, EffectClick)

	braking := rt.GetSupportedBraking()
	assert.ElementsMatch(t, []BrakingKind{BrakingNone, BrakingClab}, braking)
}

func TestHapticRuntime_GetCalibratedLimits(t *testing.T) {
	rt, _, _, _ := newTestRuntime()

	assert.Equal(t, maxPrimitivesPwleProbed, rt.GetPwleCompositionSizeMax())
	assert.Equal(t, 150.0, rt.GetResonantFrequency())
	assert.Equal(t, qFactorDefault, rt.GetQFactor())
	assert.Equal(t, FrequencyMinHz, rt.GetFrequencyMin())
	assert.Equal(t, FrequencyResolutionHz, rt.GetFrequencyResolution())
	require.NotNil(t, rt.GetBandwidthAmplitudeMap())
}

func TestComposer_GetQFactorUsesCalibratedValue(t *testing.T) {
	c := testComposer()
	c.QFactor = 12.5
	assert.Equal(t, 12.5, c.GetQFactor())
}
