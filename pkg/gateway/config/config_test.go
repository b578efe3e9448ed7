package config

import (
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
		Addr:                ":8080",
		PublicBaseURL:       "https://gw.example.com",
		Topology:            TopologyTurns,
		CallerID:            "+18005550100",
		BackendTimeout:      8 * time.Second,
		GatherTimeout:       5,
		ArtifactTTL:         10 * time.Minute,
		ArtifactMaxEntries:  256,
		CallTTL:             time.Hour,
		ReadHeaderTimeout:   10 * time.Second,
		ReadTimeout:         30 * time.Second,
		ShutdownGracePeriod: 30 * time.Second,
	}
}

func TestValidate_OK(t *testing.T) {
	t.Parallel()

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestValidate_Failures(t *testing.T) {
	t.Parallel()

	cases := map[string]func(*Config){
		"bad topology":           func(c *Config) { c.Topology = "webrtc" },
		"missing base url":       func(c *Config) { c.PublicBaseURL = "" },
		"relative base url":      func(c *Config) { c.PublicBaseURL = "gw.example.com" },
		"turns without callerid": func(c *Config) { c.CallerID = "" },
		"stream without url":     func(c *Config) { c.Topology = TopologyStream; c.CallerID = "" },
		"zero backend timeout":   func(c *Config) { c.BackendTimeout = 0 },
		"zero gather timeout":    func(c *Config) { c.GatherTimeout = 0 },
		"zero artifact ttl":      func(c *Config) { c.ArtifactTTL = 0 },
		"zero artifact cap":      func(c *Config) { c.ArtifactMaxEntries = 0 },
		"zero call ttl":          func(c *Config) { c.CallTTL = 0 },
	}
	for name, mutate := range cases {
		c := validConfig()
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Errorf("%s: Validate accepted invalid config", name)
		}
	}
}

func TestLoadFromEnv_DefaultsAndOverrides(t *testing.T) {
	t.Setenv("VW_PUBLIC_BASE_URL", "https://gw.example.com/")
	t.Setenv("VW_CALLER_ID", "+18005550100")
	t.Setenv("VW_BACKEND_TIMEOUT", "3s")

	cfg, err := LoadFromEnv()
	if err != nil {
		t.Fatalf("LoadFromEnv: %v", err)
	}
	if cfg.PublicBaseURL != "https://gw.example.com" {
		t.Errorf("PublicBaseURL=%q, want trailing slash trimmed", cfg.PublicBaseURL)
	}
	if cfg.Topology != TopologyTurns {
		t.Errorf("Topology=%q, want default turns", cfg.Topology)
	}
	if cfg.BackendTimeout != 3*time.Second {
		t.Errorf("BackendTimeout=%v", cfg.BackendTimeout)
	}
	if cfg.ArtifactMaxEntries != 256 {
		t.Errorf("ArtifactMaxEntries=%d, want default 256", cfg.ArtifactMaxEntries)
	}
}

func TestLoadFromEnv_StreamTopologyRequiresStreamURL(t *testing.T) {
	t.Setenv("VW_PUBLIC_BASE_URL", "https://gw.example.com")
	t.Setenv("VW_TOPOLOGY", "stream")
	t.Setenv("VW_STREAM_URL", "")

	if _, err := LoadFromEnv(); err == nil {
		t.Fatal("expected error for stream topology without stream url")
	}
}

func TestPublicURL(t *testing.T) {
	t.Parallel()

	c := validConfig()
	if got := c.PublicURL("/audio/abc"); got != "https://gw.example.com/audio/abc" {
		t.Errorf("PublicURL=%q", got)
	}
	if got := c.PublicURL("process"); got != "https://gw.example.com/process" {
		t.Errorf("PublicURL without slash=%q", got)
	}
}
