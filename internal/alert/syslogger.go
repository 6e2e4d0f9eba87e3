package alert

import (
	"context"
	"fmt"
	"log/syslog"
	"time"

	"routewatch/internal/config"
)

var facilities = map[string]syslog.Priority{
	"kern":   syslog.LOG_KERN,
	"user":   syslog.LOG_USER,
	"daemon": syslog.LOG_DAEMON,
	"syslog": syslog.LOG_SYSLOG,
	"local0": syslog.LOG_LOCAL0,
	"local1": syslog.LOG_LOCAL1,
	"local2": syslog.LOG_LOCAL2,
	"local3": syslog.LOG_LOCAL3,
	"local4": syslog.LOG_LOCAL4,
	"local5": syslog.LOG_LOCAL5,
	"local6": syslog.LOG_LOCAL6,
	"local7": syslog.LOG_LOCAL7,
}

// SyslogChannel writes a human-readable alert line to the local or a remote
// syslog daemon. An empty address means the local syslog socket.
type SyslogChannel struct {
	cfg      config.SyslogConfig
	facility syslog.Priority
}

// NewSyslogChannel creates a syslog channel from its configuration.
func NewSyslogChannel(cfg config.SyslogConfig) (*SyslogChannel, error) {
	facility, ok := facilities[cfg.Facility]
	if !ok {
		return nil, fmt.Errorf("unknown syslog facility %q", cfg.Facility)
	}
	return &SyslogChannel{cfg: cfg, facility: facility}, nil
}

func (c *SyslogChannel) Name() string { return "syslog" }

// Send writes one line at the kind's severity. The syslog API has no
// deadline support, so each attempt runs in a goroutine bounded by the
// channel timeout; an attempt that outlives its deadline is abandoned.
func (c *SyslogChannel) Send(ctx context.Context, kind Kind, actx Context) error {
	timeout := time.Duration(c.cfg.TimeoutMs) * time.Millisecond
	msg := Message(kind, actx)

	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Second):
			}
		}

		done := make(chan error, 1)
		go func() {
			done <- c.write(kind, msg)
		}()

		select {
		case err := <-done:
			if err == nil {
				return nil
			}
			lastErr = err
		case <-time.After(timeout):
			lastErr = fmt.Errorf("syslog write timed out after %s", timeout)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return lastErr
}

func (c *SyslogChannel) write(kind Kind, msg string) error {
	w, err := syslog.Dial(c.cfg.Network, c.cfg.Address, c.facility, c.cfg.Tag)
	if err != nil {
		return fmt.Errorf("dial syslog: %w", err)
	}
	defer w.Close()

	switch kind.Severity() {
	case SeverityEmergency:
		err = w.Emerg(msg)
	case SeverityAlert:
		err = w.Alert(msg)
	case SeverityCritical:
		err = w.Crit(msg)
	case SeverityError:
		err = w.Err(msg)
	case SeverityWarning:
		err = w.Warning(msg)
	case SeverityNotice:
		err = w.Notice(msg)
	case SeverityDebug:
		err = w.Debug(msg)
	default:
		err = w.Info(msg)
	}
	if err != nil {
		return fmt.Errorf("write syslog message: %w", err)
	}
	return nil
}
