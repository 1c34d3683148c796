package config

import "github.com/spf13/viper"

// Config holds all runtime configuration for a perfmgrd process. Values
// are populated from .perfmgr.yaml/.perfmgr.toml, PERFMGR_* env vars, and
// CLI flags, in that precedence order (flag > env > file > default).
type Config struct {
	NodeCatalogPath string          `mapstructure:"node_catalog_path"`
	CalibrationPath string          `mapstructure:"calibration_path"`
	TelemetryPath   string          `mapstructure:"telemetry_path"`
	MetricsDBPath   string          `mapstructure:"metrics_db_path"`
	FlagOverrides   map[string]bool `mapstructure:"flag_overrides"`
	Verbose         bool            `mapstructure:"verbose"`

	// Actuator endpoint paths: sysfs-style files backing the haptic
	// runtime's capability-segregated writers.
	ActuatorCommandPath         string `mapstructure:"actuator_command_path"`
	ActuatorActivatePath        string `mapstructure:"actuator_activate_path"`
	ActuatorExternalControlPath string `mapstructure:"actuator_external_control_path"`
	ActuatorStatePath           string `mapstructure:"actuator_state_path"`
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file, environment, or flags.
func Load() (Config, error) {
	viper.SetDefault("node_catalog_path", "nodes.toml")
	viper.SetDefault("calibration_path", "calibration.toml")
	viper.SetDefault("telemetry_path", "perfmgr-events.jsonl")
	viper.SetDefault("metrics_db_path", "perfmgr-metrics.db")
	viper.SetDefault("flag_overrides", map[string]bool{})
	viper.SetDefault("verbose", false)
	viper.SetDefault("actuator_command_path", "/sys/class/haptics/composer")
	viper.SetDefault("actuator_activate_path", "/sys/class/haptics/activate")
	viper.SetDefault("actuator_external_control_path", "/sys/class/haptics/external_control")
	viper.SetDefault("actuator_state_path", "/sys/class/haptics/state")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
