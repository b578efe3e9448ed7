package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicewire/voicewire/pkg/core"
	"github.com/voicewire/voicewire/pkg/core/voice/tts"
	"github.com/voicewire/voicewire/pkg/gateway/audiocache"
	"github.com/voicewire/voicewire/pkg/gateway/config"
	"github.com/voicewire/voicewire/pkg/gateway/metrics"
)

// AskHandler is the JSON surface over the same turn pipeline the telephony
// callbacks use. Unlike those, it is allowed to answer 4xx and 5xx.
type AskHandler struct {
	Config  config.Config
	Engine  ConversationEngine
	TTS     tts.Provider
	Cache   *audiocache.Cache
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

type askRequest struct {
	Prompt string `json:"prompt"`
}

type askResponse struct {
	Reply    string `json:"reply"`
	AudioURL string `json:"audio_url,omitempty"`
}

func (h AskHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logWith(h.Logger, r)

	prompt, err := h.readPrompt(r)
	if err != nil {
		writeErrorJSON(w, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.BackendTimeout)
	defer cancel()

	reply, err := h.Engine.Complete(ctx, prompt)
	if err != nil {
		h.Metrics.CompletionFailures.Inc()
		logger.Error("completion failed", "error", err)
		writeErrorJSON(w, err)
		return
	}

	resp := askResponse{Reply: reply}
	syn, err := h.TTS.Synthesize(ctx, reply, tts.SynthesizeOptions{
		Voice:  h.Config.VoiceID,
		Format: "mp3",
	})
	if err != nil {
		// The textual reply is still useful without audio.
		h.Metrics.SynthesisFailures.Inc()
		logger.Error("synthesis failed", "error", err)
	} else {
		id := h.Cache.Put(syn.Audio, syn.ContentType)
		h.Metrics.ArtifactsStored.Inc()
		resp.AudioURL = h.Config.PublicURL("/audio/" + id)
	}

	h.Metrics.TurnsCompleted.Inc()
	writeJSON(w, http.StatusOK, resp)
}

func (h AskHandler) readPrompt(r *http.Request) (string, error) {
	ct := r.Header.Get("Content-Type")
	if strings.HasPrefix(ct, "application/json") {
		var req askRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return "", core.NewMissingInputError("prompt")
		}
		if strings.TrimSpace(req.Prompt) == "" {
			return "", core.NewMissingInputError("prompt")
		}
		return req.Prompt, nil
	}
	prompt := strings.TrimSpace(r.FormValue("prompt"))
	if prompt == "" {
		return "", core.NewMissingInputError("prompt")
	}
	return prompt, nil
}
