// Package config holds the gateway's explicit configuration. Everything is
// loaded once from the environment, validated, and passed to components at
// construction time; there are no process-wide mutable settings.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Topology selects how an inbound call is driven. It is a deployment choice,
// not a per-call one.
type Topology string

const (
	// TopologyTurns runs the explicit greet/gather/complete/synthesize/play
	// loop over discrete webhook turns.
	TopologyTurns Topology = "turns"
	// TopologyStream bridges the inbound call straight to a continuous
	// media stream; all turn-taking happens inside the streamed session.
	TopologyStream Topology = "stream"
)

type Config struct {
	Addr string

	// PublicBaseURL is the externally reachable base for audio fetch links
	// and webhook action URLs, e.g. "https://gw.example.com".
	PublicBaseURL string

	Topology Topology

	// StreamURL is the media-stream target for TopologyStream.
	StreamURL string

	// AgentSIPURI, when set, bridges answered calls to this endpoint instead
	// of running the gather loop.
	AgentSIPURI string

	// CallerID is presented on outbound dials (TopologyTurns).
	CallerID string

	// Greeting opens the first gather of a turn-based call.
	Greeting string

	// FallbackLine is spoken before hanging up on unrecoverable failure.
	FallbackLine string

	// RePrompt is spoken when a gather returns without speech.
	RePrompt string

	OpenAIKey          string
	OpenAIBaseURL      string
	OpenAIModel        string
	OpenAISystemPrompt string

	ElevenLabsKey       string
	ElevenLabsWSBaseURL string
	VoiceID             string

	// BackendTimeout bounds each turn's completion+synthesis work; it must
	// stay under the carrier's own webhook timeout.
	BackendTimeout time.Duration

	// GatherTimeout is how long the carrier listens for speech, in seconds.
	GatherTimeout int

	ArtifactTTL        time.Duration
	ArtifactMaxEntries int

	// CallTTL bounds how long an inactive call stays in the lifecycle
	// tracker. The carrier sends no webhook when a caller simply hangs up,
	// so abandoned calls are dropped by expiry.
	CallTTL time.Duration

	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

func LoadFromEnv() (Config, error) {
	cfg := Config{
		Addr:                envOr("VW_ADDR", ":8080"),
		PublicBaseURL:       strings.TrimRight(envOr("VW_PUBLIC_BASE_URL", ""), "/"),
		Topology:            Topology(envOr("VW_TOPOLOGY", string(TopologyTurns))),
		StreamURL:           envOr("VW_STREAM_URL", ""),
		AgentSIPURI:         envOr("VW_AGENT_SIP_URI", ""),
		CallerID:            envOr("VW_CALLER_ID", ""),
		Greeting:            envOr("VW_GREETING", "Hello! This is an automated assistant. How can I help you today?"),
		FallbackLine:        envOr("VW_FALLBACK_LINE", "Sorry, something went wrong on our side. Goodbye."),
		RePrompt:            envOr("VW_REPROMPT", "Sorry, I did not catch that. Could you say it again?"),
		OpenAIKey:           os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:       envOr("VW_OPENAI_BASE_URL", ""),
		OpenAIModel:         envOr("VW_OPENAI_MODEL", ""),
		OpenAISystemPrompt:  envOr("VW_OPENAI_SYSTEM_PROMPT", ""),
		ElevenLabsKey:       os.Getenv("ELEVENLABS_API_KEY"),
		ElevenLabsWSBaseURL: envOr("VW_ELEVENLABS_WS_BASE_URL", ""),
		VoiceID:             envOr("VW_VOICE_ID", "21m00Tcm4TlvDq8ikWAM"),
		BackendTimeout:      envDurationOr("VW_BACKEND_TIMEOUT", 8*time.Second),
		GatherTimeout:       envIntOr("VW_GATHER_TIMEOUT_SECONDS", 5),
		ArtifactTTL:         envDurationOr("VW_ARTIFACT_TTL", 10*time.Minute),
		ArtifactMaxEntries:  envIntOr("VW_ARTIFACT_MAX_ENTRIES", 256),
		CallTTL:             envDurationOr("VW_CALL_TTL", time.Hour),
		ReadHeaderTimeout:   envDurationOr("VW_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("VW_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("VW_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks cross-field consistency. It is exported so tests and the
// readiness probe can re-run it on a constructed Config.
func (c Config) Validate() error {
	switch c.Topology {
	case TopologyTurns, TopologyStream:
	default:
		return fmt.Errorf("VW_TOPOLOGY must be one of turns|stream")
	}
	if c.PublicBaseURL == "" {
		return fmt.Errorf("VW_PUBLIC_BASE_URL must be set")
	}
	if u, err := url.Parse(c.PublicBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("VW_PUBLIC_BASE_URL must be an absolute URL")
	}
	if c.Topology == TopologyStream && c.StreamURL == "" {
		return fmt.Errorf("VW_STREAM_URL must be set when VW_TOPOLOGY=stream")
	}
	if c.Topology == TopologyTurns && c.CallerID == "" {
		return fmt.Errorf("VW_CALLER_ID must be set when VW_TOPOLOGY=turns")
	}
	if c.BackendTimeout <= 0 {
		return fmt.Errorf("VW_BACKEND_TIMEOUT must be > 0")
	}
	if c.GatherTimeout <= 0 {
		return fmt.Errorf("VW_GATHER_TIMEOUT_SECONDS must be > 0")
	}
	if c.ArtifactTTL <= 0 {
		return fmt.Errorf("VW_ARTIFACT_TTL must be > 0")
	}
	if c.ArtifactMaxEntries <= 0 {
		return fmt.Errorf("VW_ARTIFACT_MAX_ENTRIES must be > 0")
	}
	if c.CallTTL <= 0 {
		return fmt.Errorf("VW_CALL_TTL must be > 0")
	}
	if c.ReadHeaderTimeout <= 0 {
		return fmt.Errorf("VW_READ_HEADER_TIMEOUT must be > 0")
	}
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("VW_READ_TIMEOUT must be > 0")
	}
	if c.ShutdownGracePeriod <= 0 {
		return fmt.Errorf("VW_SHUTDOWN_GRACE_PERIOD must be > 0")
	}
	return nil
}

// PublicURL joins path onto the public base.
func (c Config) PublicURL(path string) string {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return c.PublicBaseURL + path
}

func envOr(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func envIntOr(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func envDurationOr(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}
