package tts

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voicewire/voicewire/pkg/core"
)

const (
	elevenLabsDefaultWSBase = "wss://api.elevenlabs.io/v1/text-to-speech/{voice_id}/stream-input"

	elevenLabsWriteTimeout = 5 * time.Second
)

// ElevenLabsProvider synthesizes speech over the ElevenLabs stream-input
// websocket. One Synthesize call opens a connection, sends the text plus a
// flush, and collects audio chunks until the backend signals the final one.
type ElevenLabsProvider struct {
	apiKey    string
	wsBaseURL string
	dialer    *websocket.Dialer
}

// NewElevenLabs creates a provider.
func NewElevenLabs(apiKey string) *ElevenLabsProvider {
	return &ElevenLabsProvider{
		apiKey:    strings.TrimSpace(apiKey),
		wsBaseURL: elevenLabsDefaultWSBase,
		dialer:    websocket.DefaultDialer,
	}
}

// WithWSBaseURL overrides the websocket endpoint (used by tests).
func (e *ElevenLabsProvider) WithWSBaseURL(base string) *ElevenLabsProvider {
	if base = strings.TrimSpace(base); base != "" {
		e.wsBaseURL = base
	}
	return e
}

// Name returns the provider identifier.
func (e *ElevenLabsProvider) Name() string {
	return "elevenlabs"
}

// Synthesize converts text to one audio artifact. Failures carry the
// backend's HTTP status when the websocket handshake was answered at all.
func (e *ElevenLabsProvider) Synthesize(ctx context.Context, text string, opts SynthesizeOptions) (*Synthesis, error) {
	if e.apiKey == "" {
		return nil, core.NewSynthesisError(fmt.Errorf("elevenlabs api key is required"), 0)
	}
	voiceID := strings.TrimSpace(opts.Voice)
	if voiceID == "" {
		return nil, core.NewSynthesisError(fmt.Errorf("voice id is required"), 0)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, core.NewSynthesisError(fmt.Errorf("text is empty"), 0)
	}

	wsURL, err := buildElevenLabsWSURL(e.wsBaseURL, voiceID, opts)
	if err != nil {
		return nil, core.NewSynthesisError(err, 0)
	}

	header := http.Header{}
	header.Set("xi-api-key", e.apiKey)
	conn, resp, err := e.dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return nil, core.NewSynthesisError(fmt.Errorf("dial synthesis backend: %w", err), status)
	}
	defer conn.Close()

	// Abandon the read loop when the caller's deadline expires.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			_ = conn.Close()
		case <-stop:
		}
	}()

	if err := e.send(conn, map[string]any{"text": " ", "voice_id": voiceID}); err != nil {
		return nil, core.NewSynthesisError(fmt.Errorf("open stream: %w", err), 0)
	}
	if err := e.send(conn, map[string]any{"text": text + " "}); err != nil {
		return nil, core.NewSynthesisError(fmt.Errorf("send text: %w", err), 0)
	}
	if err := e.send(conn, map[string]any{"text": "", "flush": true}); err != nil {
		return nil, core.NewSynthesisError(fmt.Errorf("flush: %w", err), 0)
	}

	var audio []byte
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, core.NewSynthesisError(ctxErr, 0)
			}
			return nil, core.NewSynthesisError(fmt.Errorf("read audio: %w", err), 0)
		}

		var msg struct {
			Audio   string  `json:"audio"`
			IsFinal bool    `json:"isFinal"`
			Error   string  `json:"error"`
			Code    float64 `json:"code"`
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			continue
		}
		if msg.Error != "" {
			return nil, core.NewSynthesisError(fmt.Errorf("backend: %s", msg.Error), int(msg.Code))
		}
		if msg.Audio != "" {
			chunk, err := base64.StdEncoding.DecodeString(msg.Audio)
			if err == nil && len(chunk) > 0 {
				audio = append(audio, chunk...)
			}
		}
		if msg.IsFinal {
			break
		}
	}

	if len(audio) == 0 {
		return nil, core.NewSynthesisError(fmt.Errorf("backend returned no audio"), 0)
	}
	return &Synthesis{
		Audio:       audio,
		ContentType: ContentTypeFor(opts.Format),
	}, nil
}

func (e *ElevenLabsProvider) send(conn *websocket.Conn, payload map[string]any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(elevenLabsWriteTimeout))
	return conn.WriteJSON(payload)
}

func buildElevenLabsWSURL(base, voiceID string, opts SynthesizeOptions) (string, error) {
	if strings.TrimSpace(base) == "" {
		base = elevenLabsDefaultWSBase
	}
	base = strings.ReplaceAll(base, "{voice_id}", url.PathEscape(voiceID))
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("invalid elevenlabs ws url: %w", err)
	}
	switch u.Scheme {
	case "ws", "wss":
	case "http":
		u.Scheme = "ws"
	case "https", "":
		u.Scheme = "wss"
	}
	q := u.Query()
	if q.Get("model_id") == "" {
		q.Set("model_id", "eleven_flash_v2_5")
	}
	if q.Get("output_format") == "" {
		q.Set("output_format", outputFormat(opts))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func outputFormat(opts SynthesizeOptions) string {
	switch opts.Format {
	case "pcm":
		rate := opts.SampleRate
		if rate == 0 {
			rate = 24000
		}
		return fmt.Sprintf("pcm_%d", rate)
	default:
		// Carriers fetch <Play> URLs as MP3.
		return "mp3_44100_128"
	}
}
