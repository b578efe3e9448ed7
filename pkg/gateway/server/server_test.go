package server

import (
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicewire/voicewire/pkg/gateway/config"
)

const replyAudio = "fake-mp3-reply-bytes"

// completionBackend mimics the chat-completions endpoint.
func completionBackend(t *testing.T, reply string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"role": "assistant", "content": reply}},
			},
		})
	}))
}

// synthesisBackend mimics the stream-input websocket: it consumes messages
// until the flush, then streams one audio chunk and the final marker.
func synthesisBackend(t *testing.T) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()

		for {
			var msg struct {
				Text  string `json:"text"`
				Flush bool   `json:"flush"`
			}
			if err := conn.ReadJSON(&msg); err != nil {
				return
			}
			if msg.Flush {
				break
			}
		}
		_ = conn.WriteJSON(map[string]any{
			"audio":   base64.StdEncoding.EncodeToString([]byte(replyAudio)),
			"isFinal": false,
		})
		_ = conn.WriteJSON(map[string]any{"isFinal": true})
	}))
}

func testConfig(completionURL, synthesisURL string) config.Config {
	return config.Config{
		Addr:                ":0",
		PublicBaseURL:       "https://gw.example.com",
		Topology:            config.TopologyTurns,
		CallerID:            "+12025550100",
		Greeting:            "Hello, how can I help?",
		FallbackLine:        "Sorry, something went wrong. Goodbye.",
		RePrompt:            "I did not catch that.",
		OpenAIKey:           "test-key",
		OpenAIBaseURL:       completionURL,
		ElevenLabsKey:       "test-key",
		ElevenLabsWSBaseURL: synthesisURL,
		VoiceID:             "voice-1",
		BackendTimeout:      5 * time.Second,
		GatherTimeout:       5,
		ArtifactTTL:         time.Minute,
		ArtifactMaxEntries:  16,
		CallTTL:             time.Hour,
		ReadHeaderTimeout:   5 * time.Second,
		ReadTimeout:         10 * time.Second,
		ShutdownGracePeriod: time.Second,
	}
}

func newTestServer(t *testing.T, reply string) (http.Handler, config.Config) {
	t.Helper()
	completions := completionBackend(t, reply)
	t.Cleanup(completions.Close)
	synthesis := synthesisBackend(t)
	t.Cleanup(synthesis.Close)

	cfg := testConfig(completions.URL, synthesis.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(cfg, logger).Handler(), cfg
}

func post(h http.Handler, path string, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestFullTurnBasedCall(t *testing.T) {
	h, _ := newTestServer(t, "Our rates start at ten dollars a month.")

	// New call: the gateway dials the normalized target.
	rec := post(h, "/start-call", url.Values{"To": {"sip:+12025550123@example.com"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("start-call status = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<Number>+12025550123</Number>",
		`callerId="+12025550100"`,
		`action="https://gw.example.com/customer-answered"`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("dial document %q missing %q", body, want)
		}
	}

	// Customer answers: greeting plus gather.
	rec = post(h, "/customer-answered", url.Values{})
	body = rec.Body.String()
	if !strings.Contains(body, "Hello, how can I help?") || !strings.Contains(body, "<Gather") {
		t.Fatalf("greeting document = %q", body)
	}

	// One turn: speech in, playable artifact out.
	rec = post(h, "/process", url.Values{"SpeechResult": {"what are your rates"}})
	body = rec.Body.String()
	if !strings.Contains(body, "<Play>https://gw.example.com/audio/") {
		t.Fatalf("turn document = %q", body)
	}

	// The referenced artifact must serve the synthesized bytes, repeatably.
	start := strings.Index(body, "/audio/")
	end := strings.Index(body[start:], "<")
	path := body[start : start+end]
	for range 2 {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		fetch := httptest.NewRecorder()
		h.ServeHTTP(fetch, req)
		if fetch.Code != http.StatusOK {
			t.Fatalf("audio fetch status = %d", fetch.Code)
		}
		if got := fetch.Body.String(); got != replyAudio {
			t.Fatalf("audio bytes = %q, want %q", got, replyAudio)
		}
		if ct := fetch.Header().Get("Content-Type"); ct != "audio/mpeg" {
			t.Fatalf("audio content type = %q", ct)
		}
	}
}

func TestCompletionFailureSpeaksGoodbye(t *testing.T) {
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"overloaded"}}`, http.StatusServiceUnavailable)
	}))
	defer failing.Close()
	synthesis := synthesisBackend(t)
	defer synthesis.Close()

	cfg := testConfig(failing.URL, synthesis.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(cfg, logger).Handler()

	rec := post(h, "/process", url.Values{"SpeechResult": {"hello"}})
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, telephony routes must stay 200", rec.Code)
	}
	body := rec.Body.String()
	if body == "" {
		t.Fatal("empty body on backend failure")
	}
	if !strings.Contains(body, "Sorry, something went wrong. Goodbye.") || !strings.Contains(body, "<Hangup>") {
		t.Fatalf("fallback document = %q", body)
	}
}

func TestSynthesisFailureFallsBackToCarrierVoice(t *testing.T) {
	completions := completionBackend(t, "We open at nine.")
	defer completions.Close()
	failing := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no", http.StatusUnauthorized)
	}))
	defer failing.Close()

	cfg := testConfig(completions.URL, failing.URL)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := New(cfg, logger).Handler()

	rec := post(h, "/process", url.Values{"SpeechResult": {"when do you open"}})
	if !strings.Contains(rec.Body.String(), "<Say>We open at nine.</Say>") {
		t.Fatalf("degraded document = %q", rec.Body.String())
	}
}

func TestAskEndpoint(t *testing.T) {
	h, _ := newTestServer(t, "Hi there.")

	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"prompt":"say hi"}`))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		Reply    string `json:"reply"`
		AudioURL string `json:"audio_url"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatal(err)
	}
	if resp.Reply != "Hi there." {
		t.Fatalf("reply = %q", resp.Reply)
	}
	if !strings.HasPrefix(resp.AudioURL, "https://gw.example.com/audio/") {
		t.Fatalf("audio_url = %q", resp.AudioURL)
	}
}

func TestMetricsExposition(t *testing.T) {
	h, _ := newTestServer(t, "ok")
	post(h, "/start-call", url.Values{"To": {"+12025550123"}})

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "voicewire_calls_started_total 1") {
		t.Fatal("calls counter not incremented")
	}
}

func TestHealthRoutes(t *testing.T) {
	h, _ := newTestServer(t, "ok")
	for _, path := range []string{"/", "/healthz"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("%s status = %d", path, rec.Code)
		}
	}
}

func TestUnknownPathsAreNotSwallowedByRoot(t *testing.T) {
	h, _ := newTestServer(t, "ok")

	for _, req := range []*http.Request{
		httptest.NewRequest(http.MethodGet, "/nonexistent", nil),
		httptest.NewRequest(http.MethodPost, "/nonexistent", nil),
		httptest.NewRequest(http.MethodGet, "/audio", nil),
	} {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("%s %s status = %d, want 404", req.Method, req.URL.Path, rec.Code)
		}
	}

	// Wrong method on a known route is rejected, not answered as health.
	req := httptest.NewRequest(http.MethodGet, "/process", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("GET /process status = %d, want 405", rec.Code)
	}
}
