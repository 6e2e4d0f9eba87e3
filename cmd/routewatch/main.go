package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"routewatch/internal/alert"
	"routewatch/internal/config"
	"routewatch/internal/monitor"
	"routewatch/internal/rib"
	"routewatch/internal/state"
	"routewatch/internal/watch"
)

const version = "0.2.0"

// Exit codes. A cycle that detected and alerted on a problem is still a
// successful cycle.
const (
	exitOK       = 0
	exitFailed   = 1
	exitLockHeld = 2
)

// cycleHardLimit bounds a one-shot run so a wedged collaborator cannot hang
// the invoking scheduler indefinitely.
const cycleHardLimit = 5 * time.Minute

func main() {
	configPath := flag.String("config", "configs/routewatch.yaml", "path to config file")
	debug := flag.Bool("debug", false, "print a cycle summary and log at debug level")
	watchMode := flag.Bool("watch", false, "run continuously on an interval instead of one cycle")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println("routewatch " + version)
		os.Exit(exitOK)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(exitFailed)
	}
	if *debug {
		cfg.Debug = true
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})))

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(exitFailed)
	}

	// One instance at a time. The lock covers the whole run so overlapping
	// scheduler invocations cannot race the state file.
	lock, err := state.Acquire(cfg.State.Path)
	if err != nil {
		if errors.Is(err, state.ErrHeld) {
			slog.Error("another routewatch instance is running", "state", cfg.State.Path)
			os.Exit(exitLockHeld)
		}
		slog.Error("failed to acquire state lock", "error", err)
		os.Exit(exitFailed)
	}
	defer lock.Release()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	if *watchMode {
		runner := watch.NewRunner(*configPath, cfg, buildInstance)
		slog.Info("starting routewatch in watch mode",
			"route", cfg.Route.Prefix,
			"interval_seconds", cfg.Watch.IntervalSeconds,
		)
		if err := runner.Run(ctx); err != nil {
			slog.Error("watch loop failed", "error", err)
			os.Exit(exitFailed)
		}
		slog.Info("routewatch stopped")
		os.Exit(exitOK)
	}

	inst, err := buildInstance(cfg)
	if err != nil {
		slog.Error("failed to set up monitor", "error", err)
		os.Exit(exitFailed)
	}
	defer inst.Close()

	cycleCtx, cycleCancel := context.WithTimeout(ctx, cycleHardLimit)
	defer cycleCancel()

	if err := inst.Run(cycleCtx); err != nil {
		slog.Error("monitor cycle failed", "error", err)
		os.Exit(exitFailed)
	}
	os.Exit(exitOK)
}

// buildInstance wires a monitor from a configuration. Used for both the
// one-shot run and each generation of the watch-mode loop.
func buildInstance(cfg *config.Config) (*watch.Instance, error) {
	ribClient, err := rib.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect to router: %w", err)
	}

	var channels []alert.Channel
	if cfg.Alerts.SNMP.Enabled {
		channels = append(channels, alert.NewSNMPChannel(cfg.Alerts.SNMP))
	}
	if cfg.Alerts.Syslog.Enabled {
		sysCh, err := alert.NewSyslogChannel(cfg.Alerts.Syslog)
		if err != nil {
			ribClient.Close()
			return nil, fmt.Errorf("set up syslog channel: %w", err)
		}
		channels = append(channels, sysCh)
	}
	if len(channels) == 0 {
		slog.Warn("no alert channels enabled, transitions will only be logged")
	}

	dispatcher := alert.NewMultiDispatcher(channels,
		time.Duration(cfg.Alerts.CooldownSeconds)*time.Second)

	var metrics *monitor.Metrics
	if cfg.Metrics.PushgatewayURL != "" {
		metrics = monitor.NewMetrics(cfg.Metrics.PushgatewayURL, cfg.Metrics.Job)
	}

	mon := monitor.New(cfg, ribClient, state.NewStore(cfg.State.Path), dispatcher, metrics)

	return &watch.Instance{
		Run: func(ctx context.Context) error {
			summary, err := mon.RunCycle(ctx)
			if err != nil {
				return err
			}
			if cfg.Debug {
				fmt.Println(summary.String())
			}
			if err := metrics.Push(ctx); err != nil {
				slog.Warn("failed to push metrics", "error", err)
			}
			return nil
		},
		Close: ribClient.Close,
	}, nil
}
