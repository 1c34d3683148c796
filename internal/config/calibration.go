package config

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/perfmgr/perfmgrd/internal/haptics"
)

// calibrationFile is the TOML-serializable form of haptics.CalibrationRecord.
type calibrationFile struct {
	ResonantFrequencyHz float64            `toml:"resonant_frequency_hz"`
	QFactor             float64            `toml:"q_factor"`
	DeviceMassKg        float64            `toml:"device_mass_kg"`
	CouplingCoefficient float64            `toml:"coupling_coefficient"`
	CoilResistanceOhm   float64            `toml:"coil_resistance_ohm"`
	LongEffectVolPct    float64            `toml:"long_effect_vol_pct"`
	DiscreteLimits      map[string]float64 `toml:"discrete_limits"`
}

// LoadCalibration reads a haptics.CalibrationRecord from a TOML file at path.
func LoadCalibration(path string) (haptics.CalibrationRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return haptics.CalibrationRecord{}, fmt.Errorf("config: read calibration %s: %w", path, err)
	}
	var cf calibrationFile
	if err := toml.Unmarshal(data, &cf); err != nil {
		return haptics.CalibrationRecord{}, fmt.Errorf("config: parse calibration %s: %w", path, err)
	}

	limits := make(map[float64]float64, len(cf.DiscreteLimits))
	for k, v := range cf.DiscreteLimits {
		var freq float64
		if _, err := fmt.Sscanf(k, "%g", &freq); err != nil {
			return haptics.CalibrationRecord{}, fmt.Errorf("config: discrete_limits key %q: %w", k, err)
		}
		limits[freq] = v
	}

	return haptics.CalibrationRecord{
		ResonantFrequencyHz: cf.ResonantFrequencyHz,
		QFactor:             cf.QFactor,
		DeviceMassKg:        cf.DeviceMassKg,
		CouplingCoefficient: cf.CouplingCoefficient,
		CoilResistanceOhm:   cf.CoilResistanceOhm,
		LongEffectVolPct:    cf.LongEffectVolPct,
		DiscreteLimits:      limits,
	}, nil
}
