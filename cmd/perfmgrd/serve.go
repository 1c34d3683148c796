package main

import (
	"context"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/perfmgr/perfmgrd/internal/config"
	"github.com/perfmgr/perfmgrd/internal/haptics"
	"github.com/perfmgr/perfmgrd/internal/metrics"
)

func init() {
	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the NodeLooper and haptic runtime as a long-lived process",
		RunE:  runServe,
	}
	rootCmd.AddCommand(serveCmd)
}

// runServe boots both the perfmgr.Manager and the haptics.HapticRuntime and
// keeps them alive until interrupted, mirroring the teacher's
// errgroup-supervised goroutine style rather than an ad hoc WaitGroup.
func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	sessionStore, sm, err := openSessionMetrics(ctx, cfg)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	if sessionStore != nil {
		defer sessionStore.Close()
	}

	m, managerCleanup, err := openManagerWithMetrics(cmd, cfg, sm)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer managerCleanup()

	rt, runtimeCleanup, err := openRuntimeWithMetrics(cfg, sm)
	if err != nil {
		return fmt.Errorf("serve: %w", err)
	}
	defer runtimeCleanup()

	watcher, err := config.NewCalibrationWatcher(cfg.CalibrationPath, func() {
		cal, err := config.LoadCalibration(cfg.CalibrationPath)
		if err != nil {
			slog.Error("serve: calibration reload failed, keeping previous composer", "err", err)
			return
		}
		composer, err := buildComposerFromCalibration(cal)
		if err != nil {
			slog.Error("serve: calibration reload failed, keeping previous composer", "err", err)
			return
		}
		rt.SetComposer(composer)
		slog.Info("serve: calibration reloaded")
	})
	if err != nil {
		return fmt.Errorf("serve: watch calibration: %w", err)
	}
	defer watcher.Close()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		<-gctx.Done()
		slog.Info("serve: shutting down")
		m.Stop()
		saveSessionSnapshot(sessionStore, sm)
		return rt.Off()
	})

	slog.Info("serve: running", "node_catalog", cfg.NodeCatalogPath, "calibration", cfg.CalibrationPath)
	return g.Wait()
}

// saveSessionSnapshot persists sm's final counters so the next "serve" or
// "tui" invocation resumes this session instead of starting a fresh
// reporting window (SPEC_FULL.md §4.8). A nil store means persistence is
// disabled; failures are logged, not fatal, since shutdown must proceed.
func saveSessionSnapshot(store *metrics.Store, sm *metrics.SessionMetrics) {
	if store == nil || sm == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := store.SaveSnapshot(ctx, sm.Dump()); err != nil {
		slog.Error("serve: save session snapshot failed", "err", err)
	}
}

func buildComposerFromCalibration(cal haptics.CalibrationRecord) (*haptics.Composer, error) {
	bwMap, err := haptics.GenerateBandwidthAmplitudeMap(cal)
	if err != nil {
		return nil, err
	}
	composer := haptics.NewComposer(bwMap, haptics.DefaultVoltageTables(), cal.ResonantFrequencyHz)
	composer.QFactor = cal.QFactor
	return composer, nil
}
