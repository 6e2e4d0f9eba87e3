package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "routewatch.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	t.Run("minimal config gets defaults for everything else", func(t *testing.T) {
		path := writeConfig(t, `
route:
  prefix: "203.0.113.0/24"
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Route.Prefix != "203.0.113.0/24" {
			t.Errorf("Route.Prefix = %q, want 203.0.113.0/24", cfg.Route.Prefix)
		}
		if cfg.Route.FlapAgeThresholdSeconds != 300 {
			t.Errorf("FlapAgeThresholdSeconds = %d, want default 300", cfg.Route.FlapAgeThresholdSeconds)
		}
		if cfg.Route.Match != MatchExact {
			t.Errorf("Match = %q, want default exact", cfg.Route.Match)
		}
		if cfg.Alerts.SNMP.TimeoutMs != 15000 || cfg.Alerts.SNMP.Retries != 2 {
			t.Errorf("SNMP timeout/retries = %d/%d, want defaults 15000/2",
				cfg.Alerts.SNMP.TimeoutMs, cfg.Alerts.SNMP.Retries)
		}
		if !cfg.Alerts.Syslog.Enabled {
			t.Error("Syslog.Enabled = false, want enabled by default")
		}
	})

	t.Run("explicit values override defaults", func(t *testing.T) {
		path := writeConfig(t, `
route:
  prefix: "2001:db8::/32"
  expected_next_hop: "2001:db8::1"
  flap_age_threshold_seconds: 600
  match: lpm
router:
  address: "router1.example.net:50051"
alerts:
  snmp:
    enabled: true
    target: "nms.example.net"
    community: "ops"
`)
		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Route.FlapAgeThresholdSeconds != 600 {
			t.Errorf("FlapAgeThresholdSeconds = %d, want 600", cfg.Route.FlapAgeThresholdSeconds)
		}
		if cfg.Route.Match != MatchLPM {
			t.Errorf("Match = %q, want lpm", cfg.Route.Match)
		}
		if cfg.Alerts.SNMP.Target != "nms.example.net" {
			t.Errorf("SNMP.Target = %q, want nms.example.net", cfg.Alerts.SNMP.Target)
		}
		// Untouched nested defaults survive a partial section.
		if cfg.Alerts.SNMP.Port != 162 {
			t.Errorf("SNMP.Port = %d, want default 162", cfg.Alerts.SNMP.Port)
		}
	})

	t.Run("environment variables override the file", func(t *testing.T) {
		path := writeConfig(t, `
route:
  prefix: "203.0.113.0/24"
router:
  address: "from-file:50051"
`)
		t.Setenv("ROUTEWATCH_ROUTER_ADDR", "from-env:50051")
		t.Setenv("ROUTEWATCH_STATE_PATH", "/tmp/rw-state.json")

		cfg, err := Load(path)
		if err != nil {
			t.Fatalf("Load returned error: %v", err)
		}
		if cfg.Router.Address != "from-env:50051" {
			t.Errorf("Router.Address = %q, want env override", cfg.Router.Address)
		}
		if cfg.State.Path != "/tmp/rw-state.json" {
			t.Errorf("State.Path = %q, want env override", cfg.State.Path)
		}
	})

	t.Run("missing file is an error", func(t *testing.T) {
		if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("Load of missing file succeeded, want error")
		}
	})

	t.Run("malformed YAML is an error", func(t *testing.T) {
		path := writeConfig(t, "route: [not a mapping")
		if _, err := Load(path); err == nil {
			t.Error("Load of malformed YAML succeeded, want error")
		}
	})
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg := Defaults()
		cfg.Route.Prefix = "203.0.113.0/24"
		return cfg
	}

	t.Run("defaults plus a prefix validate", func(t *testing.T) {
		if err := valid().Validate(); err != nil {
			t.Errorf("Validate returned error: %v", err)
		}
	})

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing prefix", func(c *Config) { c.Route.Prefix = "" }},
		{"unparsable prefix", func(c *Config) { c.Route.Prefix = "not-a-prefix" }},
		{"bare IP instead of prefix", func(c *Config) { c.Route.Prefix = "203.0.113.1" }},
		{"unparsable next hop", func(c *Config) { c.Route.ExpectedNextHop = "router-1" }},
		{"negative threshold", func(c *Config) { c.Route.FlapAgeThresholdSeconds = -1 }},
		{"unknown match mode", func(c *Config) { c.Route.Match = "longest" }},
		{"missing router address", func(c *Config) { c.Router.Address = "" }},
		{"snmp enabled without target", func(c *Config) { c.Alerts.SNMP.Enabled = true }},
		{"negative cooldown", func(c *Config) { c.Alerts.CooldownSeconds = -5 }},
		{"zero watch interval", func(c *Config) { c.Watch.IntervalSeconds = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate succeeded, want error")
			}
		})
	}
}
