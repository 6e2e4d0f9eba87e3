// Package config loads the routewatch configuration. The configuration is
// constructed once at process start and passed into component constructors;
// no package holds configuration state of its own.
package config

import (
	"fmt"
	"net/netip"
	"os"

	"gopkg.in/yaml.v3"
)

// Match modes for the route lookup.
const (
	MatchExact = "exact"
	MatchLPM   = "lpm"
)

// Config holds all configuration for the monitor process.
type Config struct {
	Route   RouteConfig   `yaml:"route"`
	Router  RouterConfig  `yaml:"router"`
	State   StateConfig   `yaml:"state"`
	Alerts  AlertsConfig  `yaml:"alerts"`
	Metrics MetricsConfig `yaml:"metrics"`
	Watch   WatchConfig   `yaml:"watch"`
	Debug   bool          `yaml:"debug"`
}

// RouteConfig describes the watched route and the stability threshold.
type RouteConfig struct {
	Prefix                  string `yaml:"prefix"`
	ExpectedNextHop         string `yaml:"expected_next_hop"`
	FlapAgeThresholdSeconds int64  `yaml:"flap_age_threshold_seconds"`
	Match                   string `yaml:"match"`
}

// RouterConfig describes the gobgpd instance whose table is queried.
type RouterConfig struct {
	Address        string    `yaml:"address"`
	QueryTimeoutMs uint32    `yaml:"query_timeout_ms"`
	TLS            TLSConfig `yaml:"tls"`
}

type TLSConfig struct {
	Cert       string `yaml:"cert"`
	Key        string `yaml:"key"`
	CA         string `yaml:"ca"`
	ServerName string `yaml:"server_name"`
}

type StateConfig struct {
	Path string `yaml:"path"`
}

// AlertsConfig configures the alert channels. A zero cooldown disables
// suppression so every edge crossing alerts.
type AlertsConfig struct {
	CooldownSeconds int64        `yaml:"cooldown_seconds"`
	SNMP            SNMPConfig   `yaml:"snmp"`
	Syslog          SyslogConfig `yaml:"syslog"`
}

type SNMPConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Target        string `yaml:"target"`
	Port          uint16 `yaml:"port"`
	Community     string `yaml:"community"`
	TimeoutMs     uint32 `yaml:"timeout_ms"`
	Retries       int    `yaml:"retries"`
	EnterpriseOID string `yaml:"enterprise_oid"`
}

type SyslogConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Network   string `yaml:"network"`
	Address   string `yaml:"address"`
	Facility  string `yaml:"facility"`
	Tag       string `yaml:"tag"`
	TimeoutMs uint32 `yaml:"timeout_ms"`
	Retries   int    `yaml:"retries"`
}

type MetricsConfig struct {
	PushgatewayURL string `yaml:"pushgateway_url"`
	Job            string `yaml:"job"`
}

type WatchConfig struct {
	IntervalSeconds int64 `yaml:"interval_seconds"`
}

// Load reads a configuration from a YAML file on top of the defaults and
// applies environment variable overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("ROUTEWATCH_ROUTE_PREFIX"); v != "" {
		cfg.Route.Prefix = v
	}
	if v := os.Getenv("ROUTEWATCH_ROUTER_ADDR"); v != "" {
		cfg.Router.Address = v
	}
	if v := os.Getenv("ROUTEWATCH_STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("ROUTEWATCH_SNMP_TARGET"); v != "" {
		cfg.Alerts.SNMP.Target = v
	}
	if v := os.Getenv("ROUTEWATCH_SNMP_COMMUNITY"); v != "" {
		cfg.Alerts.SNMP.Community = v
	}
	if v := os.Getenv("ROUTEWATCH_SYSLOG_ADDR"); v != "" {
		cfg.Alerts.Syslog.Address = v
	}
	if v := os.Getenv("ROUTEWATCH_PUSHGATEWAY_URL"); v != "" {
		cfg.Metrics.PushgatewayURL = v
	}
}

// Defaults returns a Config with default values.
func Defaults() *Config {
	return &Config{
		Route: RouteConfig{
			FlapAgeThresholdSeconds: 300,
			Match:                   MatchExact,
		},
		Router: RouterConfig{
			Address:        "localhost:50051",
			QueryTimeoutMs: 10000,
		},
		State: StateConfig{
			Path: "/var/lib/routewatch/state.json",
		},
		Alerts: AlertsConfig{
			SNMP: SNMPConfig{
				Port:          162,
				Community:     "public",
				TimeoutMs:     15000,
				Retries:       2,
				EnterpriseOID: ".1.3.6.1.4.1.8072.9999.1",
			},
			Syslog: SyslogConfig{
				Enabled:   true,
				Facility:  "daemon",
				Tag:       "routewatch",
				TimeoutMs: 15000,
				Retries:   2,
			},
		},
		Metrics: MetricsConfig{
			Job: "routewatch",
		},
		Watch: WatchConfig{
			IntervalSeconds: 60,
		},
	}
}

// Validate checks the configuration for values that would make a cycle
// impossible to run.
func (c *Config) Validate() error {
	if c.Route.Prefix == "" {
		return fmt.Errorf("route.prefix is required")
	}
	if _, err := netip.ParsePrefix(c.Route.Prefix); err != nil {
		return fmt.Errorf("route.prefix: %w", err)
	}
	if c.Route.ExpectedNextHop != "" {
		if _, err := netip.ParseAddr(c.Route.ExpectedNextHop); err != nil {
			return fmt.Errorf("route.expected_next_hop: %w", err)
		}
	}
	if c.Route.FlapAgeThresholdSeconds < 0 {
		return fmt.Errorf("route.flap_age_threshold_seconds must not be negative")
	}
	if c.Route.Match != MatchExact && c.Route.Match != MatchLPM {
		return fmt.Errorf("route.match must be %q or %q, got %q", MatchExact, MatchLPM, c.Route.Match)
	}
	if c.Router.Address == "" {
		return fmt.Errorf("router.address is required")
	}
	if c.Alerts.SNMP.Enabled && c.Alerts.SNMP.Target == "" {
		return fmt.Errorf("alerts.snmp.target is required when the SNMP channel is enabled")
	}
	if c.Alerts.CooldownSeconds < 0 {
		return fmt.Errorf("alerts.cooldown_seconds must not be negative")
	}
	if c.Watch.IntervalSeconds <= 0 {
		return fmt.Errorf("watch.interval_seconds must be positive")
	}
	return nil
}
