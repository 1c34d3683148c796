package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/perfmgr/perfmgrd/internal/config"
	"github.com/perfmgr/perfmgrd/internal/haptics"
	"github.com/perfmgr/perfmgrd/internal/metrics"
	"github.com/perfmgr/perfmgrd/internal/perfmgr"
	"github.com/perfmgr/perfmgrd/internal/telemetry"
)

// openManager loads config and boots a perfmgr.Manager from the configured
// node catalog, wiring telemetry and its own session metrics store. The
// caller must call the returned cleanup func (which stops the looper and
// closes the telemetry sink) before exiting.
func openManager(cmd *cobra.Command) (*perfmgr.Manager, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	sessionStore, sm, err := openSessionMetrics(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	m, managerCleanup, err := openManagerWithMetrics(cmd, cfg, sm)
	if err != nil {
		if sessionStore != nil {
			sessionStore.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		managerCleanup()
		if sessionStore != nil {
			sessionStore.Close()
		}
	}
	return m, cleanup, nil
}

// openManagerWithMetrics is the shared-instance variant used by "serve",
// which attaches one SessionMetrics to both the NodeLooper dump surface and
// the haptic runtime's amplitude derating (SPEC_FULL.md §4.8).
func openManagerWithMetrics(_ *cobra.Command, cfg config.Config, sm *metrics.SessionMetrics) (*perfmgr.Manager, func(), error) {
	emitter, err := telemetry.NewEmitter(cfg.TelemetryPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open telemetry sink: %w", err)
	}

	m, err := perfmgr.NewManagerFromCatalog(cfg.NodeCatalogPath, nil, perfmgr.SystemClock{}, emitter.AsEventFunc())
	if err != nil {
		emitter.Close()
		return nil, nil, fmt.Errorf("build manager: %w", err)
	}

	for flag, value := range cfg.FlagOverrides {
		m.Flags.Override(flag, value)
	}
	m.Looper.SetSessionMetrics(sm)

	m.Start()
	cleanup := func() {
		m.Stop()
		emitter.Close()
	}
	return m, cleanup, nil
}

// persistentSessionID is the stable key SessionMetrics is saved/loaded
// under when persistence is enabled, so a restart resumes the same
// session's counters instead of a fresh uuid that Store.LoadSnapshot could
// never find.
const persistentSessionID = "perfmgrd-daemon"

// openSessionMetrics opens the shared metrics store and returns a
// SessionMetrics instance for this process invocation, restoring the last
// persisted snapshot when one exists (SPEC_FULL.md §4.8 restart
// survivability). A nil store is returned (not an error) when
// MetricsDBPath is empty, since dump/compose runs are useful without
// persistence.
func openSessionMetrics(ctx context.Context, cfg config.Config) (*metrics.Store, *metrics.SessionMetrics, error) {
	if cfg.MetricsDBPath == "" {
		return nil, metrics.NewSessionMetrics(metrics.NewSessionID(), "cli"), nil
	}
	store, err := metrics.OpenStore(ctx, cfg.MetricsDBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open metrics store: %w", err)
	}
	snap, ok, err := store.LoadSnapshot(ctx, persistentSessionID)
	if err != nil {
		store.Close()
		return nil, nil, fmt.Errorf("load metrics snapshot: %w", err)
	}
	if ok {
		return store, metrics.RestoreSessionMetrics(snap), nil
	}
	return store, metrics.NewSessionMetrics(persistentSessionID, "daemon"), nil
}

// openRuntime loads config, calibration, and boots a HapticRuntime bound to
// the configured sysfs-style actuator endpoints, with its own session
// metrics store. Subcommands that only need the composer (e.g.
// "compose --dry-run") may call buildComposer directly instead.
func openRuntime(cmd *cobra.Command) (*haptics.HapticRuntime, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	sessionStore, sm, err := openSessionMetrics(cmd.Context(), cfg)
	if err != nil {
		return nil, nil, err
	}
	rt, runtimeCleanup, err := openRuntimeWithMetrics(cfg, sm)
	if err != nil {
		if sessionStore != nil {
			sessionStore.Close()
		}
		return nil, nil, err
	}
	cleanup := func() {
		runtimeCleanup()
		if sessionStore != nil {
			sessionStore.Close()
		}
	}
	return rt, cleanup, nil
}

// openRuntimeWithMetrics is the shared-instance variant used by "serve".
func openRuntimeWithMetrics(cfg config.Config, sm *metrics.SessionMetrics) (*haptics.HapticRuntime, func(), error) {
	composer, err := buildComposer(cfg)
	if err != nil {
		return nil, nil, err
	}

	cmdNode, err := perfmgr.NewFileNode(cfg.ActuatorCommandPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open actuator command endpoint: %w", err)
	}
	activateNode, err := perfmgr.NewFileNode(cfg.ActuatorActivatePath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open actuator activate endpoint: %w", err)
	}
	extCtrlNode, err := perfmgr.NewFileNode(cfg.ActuatorExternalControlPath, false)
	if err != nil {
		return nil, nil, fmt.Errorf("open actuator external-control endpoint: %w", err)
	}
	stateNode, err := perfmgr.NewFileNode(cfg.ActuatorStatePath, true)
	if err != nil {
		return nil, nil, fmt.Errorf("open actuator state endpoint: %w", err)
	}

	rt := haptics.NewHapticRuntime(
		composer,
		cmdNode,
		haptics.NewActivateToggle(activateNode),
		haptics.NewExternalControlFile(extCtrlNode),
		stateNode,
		nil,
	)
	rt.SetSessionMetrics(sm)

	cleanup := func() {
		cmdNode.Close()
		activateNode.Close()
		extCtrlNode.Close()
		stateNode.Close()
	}
	return rt, cleanup, nil
}

func buildComposer(cfg config.Config) (*haptics.Composer, error) {
	cal, err := config.LoadCalibration(cfg.CalibrationPath)
	if err != nil {
		return nil, fmt.Errorf("load calibration: %w", err)
	}
	bwMap, err := haptics.GenerateBandwidthAmplitudeMap(cal)
	if err != nil {
		return nil, fmt.Errorf("generate bandwidth-amplitude map: %w", err)
	}
	composer := haptics.NewComposer(bwMap, haptics.DefaultVoltageTables(), cal.ResonantFrequencyHz)
	composer.QFactor = cal.QFactor
	return composer, nil
}
