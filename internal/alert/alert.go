// Package alert delivers status-transition alerts through the configured
// channels. A channel failure is logged and never aborts the monitor cycle.
package alert

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/time/rate"
)

// Kind identifies the type of transition being alerted.
type Kind string

const (
	KindMissing   Kind = "MISSING"
	KindFlapping  Kind = "FLAPPING"
	KindRecovered Kind = "RECOVERED"
)

// Severity uses syslog numbering, 0 (emergency) through 7 (debug).
type Severity int

const (
	SeverityEmergency Severity = iota
	SeverityAlert
	SeverityCritical
	SeverityError
	SeverityWarning
	SeverityNotice
	SeverityInfo
	SeverityDebug
)

// Severity returns the severity attached to alerts of this kind.
func (k Kind) Severity() Severity {
	switch k {
	case KindMissing:
		return SeverityCritical
	case KindFlapping:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// trapCode is the numeric trap-type value carried in the SNMP varbind.
func (k Kind) trapCode() int {
	switch k {
	case KindMissing:
		return 1
	case KindFlapping:
		return 2
	default:
		return 3
	}
}

// Context carries the route details included with an alert. HasAge is false
// when the route does not exist and the age field carries no meaning.
type Context struct {
	Route      string
	NextHop    string
	AgeSeconds int64
	HasAge     bool
}

// Message renders the human-readable line sent over the log channel.
func Message(kind Kind, actx Context) string {
	switch kind {
	case KindMissing:
		if actx.NextHop != "" {
			return fmt.Sprintf("route %s is missing from the routing table (expected next hop %s)",
				actx.Route, actx.NextHop)
		}
		return fmt.Sprintf("route %s is missing from the routing table", actx.Route)
	case KindFlapping:
		return fmt.Sprintf("route %s via %s is flapping (age %ds below stability threshold)",
			actx.Route, actx.NextHop, actx.AgeSeconds)
	default:
		return fmt.Sprintf("route %s via %s recovered (stable for %ds)",
			actx.Route, actx.NextHop, actx.AgeSeconds)
	}
}

// Channel is a single alert delivery mechanism. Send performs one delivery
// attempt including the channel's own timeout and retry handling.
type Channel interface {
	Name() string
	Send(ctx context.Context, kind Kind, actx Context) error
}

// Dispatcher fans an alert out to every configured channel.
type Dispatcher interface {
	Dispatch(ctx context.Context, kind Kind, actx Context) error
}

// MultiDispatcher sends each alert through all channels. Channels fail
// independently; a returned error summarizes failures for logging but the
// caller is expected to swallow it.
type MultiDispatcher struct {
	channels []Channel
	cooldown map[Kind]*rate.Limiter
}

// NewMultiDispatcher creates a dispatcher over the given channels. When
// cooldown is positive, repeated alerts of the same kind within the cooldown
// window are suppressed.
func NewMultiDispatcher(channels []Channel, cooldown time.Duration) *MultiDispatcher {
	d := &MultiDispatcher{channels: channels}
	if cooldown > 0 {
		d.cooldown = map[Kind]*rate.Limiter{
			KindMissing:   rate.NewLimiter(rate.Every(cooldown), 1),
			KindFlapping:  rate.NewLimiter(rate.Every(cooldown), 1),
			KindRecovered: rate.NewLimiter(rate.Every(cooldown), 1),
		}
	}
	return d
}

// Dispatch sends one alert through every channel.
func (d *MultiDispatcher) Dispatch(ctx context.Context, kind Kind, actx Context) error {
	if lim, ok := d.cooldown[kind]; ok && !lim.Allow() {
		slog.Debug("alert suppressed by cooldown", "kind", kind, "route", actx.Route)
		return nil
	}

	failed := 0
	for _, ch := range d.channels {
		if err := ch.Send(ctx, kind, actx); err != nil {
			failed++
			slog.Warn("alert channel delivery failed",
				"channel", ch.Name(),
				"kind", kind,
				"route", actx.Route,
				"error", err,
			)
			continue
		}
		slog.Info("alert dispatched",
			"channel", ch.Name(),
			"kind", kind,
			"severity", int(kind.Severity()),
			"route", actx.Route,
		)
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d alert channels failed", failed, len(d.channels))
	}
	return nil
}
