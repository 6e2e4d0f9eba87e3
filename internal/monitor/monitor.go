// Package monitor runs one observation cycle: query the route, classify
// its stability, compare against the last persisted status, alert on a
// transition, and persist the new status.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"routewatch/internal/alert"
	"routewatch/internal/classify"
	"routewatch/internal/config"
	"routewatch/internal/model"
)

// RouteProvider is the route query collaborator.
type RouteProvider interface {
	Lookup(ctx context.Context, prefix string) (model.RouteInfo, error)
}

// StateStore persists the last observed status between cycles.
type StateStore interface {
	Load() model.MonitorState
	Save(status model.Status) error
}

// Monitor owns the cycle logic. All collaborators are injected.
type Monitor struct {
	cfg        *config.Config
	provider   RouteProvider
	store      StateStore
	dispatcher alert.Dispatcher
	metrics    *Metrics
}

// New creates a Monitor. metrics may be nil when metrics are not configured.
func New(cfg *config.Config, provider RouteProvider, store StateStore, dispatcher alert.Dispatcher, metrics *Metrics) *Monitor {
	return &Monitor{
		cfg:        cfg,
		provider:   provider,
		store:      store,
		dispatcher: dispatcher,
		metrics:    metrics,
	}
}

// Summary describes one completed cycle, for the debug output.
type Summary struct {
	Route     string
	Info      model.RouteInfo
	Threshold int64
	Prior     model.Status
	Current   model.Status
	Alerted   alert.Kind // empty when no alert fired
}

// String renders the plain-text cycle summary printed in debug mode.
func (s Summary) String() string {
	exists := "absent"
	if s.Info.Exists {
		exists = fmt.Sprintf("present (next hop %s, age %ds, metric %d)",
			s.Info.NextHop, s.Info.AgeSeconds, s.Info.Metric)
	}
	action := "no alert"
	if s.Alerted != "" {
		action = fmt.Sprintf("dispatched %s alert", s.Alerted)
	}
	return fmt.Sprintf("route %s: %s; threshold %ds; status %s -> %s; %s",
		s.Route, exists, s.Threshold, s.Prior, s.Current, action)
}

// RunCycle performs one monitor cycle. Collaborator failures are handled
// with documented fallbacks and never returned; the error return is
// reserved for failures that should abort the process.
func (m *Monitor) RunCycle(ctx context.Context) (Summary, error) {
	start := time.Now()
	route := m.cfg.Route.Prefix
	threshold := m.cfg.Route.FlapAgeThresholdSeconds

	// Fetch. Any query failure is folded into absence, matching the
	// behavior of the route query contract.
	info, err := m.provider.Lookup(ctx, route)
	if err != nil {
		slog.Warn("route query failed, treating route as absent", "route", route, "error", err)
		info = model.RouteInfo{}
	}

	if info.Exists && m.cfg.Route.ExpectedNextHop != "" &&
		info.NextHop.String() != m.cfg.Route.ExpectedNextHop {
		slog.Warn("route next hop differs from expected",
			"route", route,
			"next_hop", info.NextHop,
			"expected", m.cfg.Route.ExpectedNextHop,
		)
	}

	current := classify.Classify(info, threshold)
	prior := m.store.Load().LastStatus

	summary := Summary{
		Route:     route,
		Info:      info,
		Threshold: threshold,
		Prior:     prior,
		Current:   current,
	}

	if kind, ok := transition(prior, current); ok {
		summary.Alerted = kind
		actx := m.alertContext(info)
		if err := m.dispatcher.Dispatch(ctx, kind, actx); err != nil {
			// Individual channel failures were already logged; the cycle
			// carries on regardless.
			slog.Warn("alert dispatch incomplete", "kind", kind, "error", err)
			m.metrics.ObserveDispatchFailure(kind)
		}
	} else {
		switch {
		case prior == current:
			slog.Debug("route status unchanged", "route", route, "status", current)
		case prior == model.StatusUnknown && current == model.StatusStable:
			slog.Info("baseline established, route is stable", "route", route, "age_seconds", info.AgeSeconds)
		}
	}

	// Persist unconditionally, every cycle. A write failure must not turn
	// a completed cycle into a process failure.
	if err := m.store.Save(current); err != nil {
		slog.Warn("failed to persist monitor state", "error", err)
	}

	m.metrics.ObserveCycle(current, info, time.Since(start))
	return summary, nil
}

// transition returns the alert kind for a prior → current status change,
// or false when the change warrants no alert. UNKNOWN → STABLE is the cold
// start establishing a baseline, deliberately silent.
func transition(prior, current model.Status) (alert.Kind, bool) {
	if prior == current {
		return "", false
	}
	switch current {
	case model.StatusMissing:
		return alert.KindMissing, true
	case model.StatusFlapping:
		return alert.KindFlapping, true
	case model.StatusStable:
		if prior == model.StatusMissing || prior == model.StatusFlapping {
			return alert.KindRecovered, true
		}
	}
	return "", false
}

func (m *Monitor) alertContext(info model.RouteInfo) alert.Context {
	actx := alert.Context{Route: m.cfg.Route.Prefix}
	if info.Exists {
		actx.NextHop = info.NextHop.String()
		actx.AgeSeconds = info.AgeSeconds
		actx.HasAge = true
	} else {
		// The route is gone; the expected next hop is the most useful
		// locator the alert can carry.
		actx.NextHop = m.cfg.Route.ExpectedNextHop
	}
	return actx
}
