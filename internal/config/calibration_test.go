package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadCalibration_ParsesDiscreteLimits(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "calibration.toml")
	data := `
resonant_frequency_hz = 150.0
q_factor = 10.0
device_mass_kg = 0.01
coupling_coefficient = 1.2
coil_resistance_ohm = 8.0
long_effect_vol_pct = 80.0

[discrete_limits]
"150" = 0.4
"200" = 0.6
`
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cal, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration: %v", err)
	}
	if cal.ResonantFrequencyHz != 150.0 {
		t.Errorf("ResonantFrequencyHz = %v, want 150.0", cal.ResonantFrequencyHz)
	}
	if cal.DiscreteLimits[150] != 0.4 {
		t.Errorf("DiscreteLimits[150] = %v, want 0.4", cal.DiscreteLimits[150])
	}
	if cal.DiscreteLimits[200] != 0.6 {
		t.Errorf("DiscreteLimits[200] = %v, want 0.6", cal.DiscreteLimits[200])
	}
}

func TestLoadCalibration_MissingFile(t *testing.T) {
	_, err := LoadCalibration(filepath.Join(t.TempDir(), "missing.toml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
