// Package watch runs monitor cycles on an interval, reloading the
// configuration when the config file changes on disk.
package watch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/fsnotify/fsnotify"

	"routewatch/internal/config"
)

// Instance is one fully-wired monitor built from a configuration. Close
// releases its resources (the router connection, certificate watchers).
type Instance struct {
	Run   func(ctx context.Context) error
	Close func() error
}

// BuildFunc constructs an Instance from a configuration. It is called on
// startup and again after every successful config reload.
type BuildFunc func(cfg *config.Config) (*Instance, error)

// Runner owns the watch-mode loop. Cycles run sequentially; a config change
// between cycles rebuilds the instance. Everything happens on one goroutine,
// so no state needs locking.
type Runner struct {
	configPath string
	cfg        *config.Config
	build      BuildFunc
}

// NewRunner creates a Runner starting from an already-validated config.
func NewRunner(configPath string, cfg *config.Config, build BuildFunc) *Runner {
	return &Runner{configPath: configPath, cfg: cfg, build: build}
}

// Run executes cycles until ctx is cancelled. The first cycle runs
// immediately; later ones follow the configured interval.
func (r *Runner) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(r.configPath); err != nil {
		return fmt.Errorf("watch config file: %w", err)
	}

	inst, err := r.build(r.cfg)
	if err != nil {
		return fmt.Errorf("build monitor: %w", err)
	}
	defer func() {
		if inst != nil {
			inst.Close()
		}
	}()

	interval := time.Duration(r.cfg.Watch.IntervalSeconds) * time.Second
	timer := time.NewTimer(0) // fire the first cycle immediately
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case <-timer.C:
			if err := inst.Run(ctx); err != nil {
				return err
			}
			timer.Reset(interval)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Has(fsnotify.Rename) || event.Has(fsnotify.Remove) {
				// Editors and config management replace the file; re-watch
				// the path and fall through to the reload.
				watcher.Remove(event.Name)
				time.Sleep(100 * time.Millisecond)
				if err := watcher.Add(r.configPath); err != nil {
					slog.Warn("failed to re-watch config file", "error", err)
					continue
				}
			} else if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}

			next, err := r.reload()
			if err != nil {
				// Keep running on the previous config; a broken edit must
				// not take the monitor down.
				slog.Error("config reload failed, keeping previous config", "error", err)
				continue
			}
			inst.Close()
			inst = next
			interval = time.Duration(r.cfg.Watch.IntervalSeconds) * time.Second
			slog.Info("configuration reloaded", "path", r.configPath, "interval", interval)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("config watcher error", "error", err)
		}
	}
}

func (r *Runner) reload() (*Instance, error) {
	cfg, err := config.Load(r.configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	inst, err := r.build(cfg)
	if err != nil {
		return nil, err
	}
	r.cfg = cfg
	return inst, nil
}
