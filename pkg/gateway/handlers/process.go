package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/voicewire/voicewire/pkg/core"
	"github.com/voicewire/voicewire/pkg/core/voice/tts"
	"github.com/voicewire/voicewire/pkg/gateway/audiocache"
	"github.com/voicewire/voicewire/pkg/gateway/callflow"
	"github.com/voicewire/voicewire/pkg/gateway/config"
	"github.com/voicewire/voicewire/pkg/gateway/metrics"
	"github.com/voicewire/voicewire/pkg/gateway/twiml"
)

// ConversationEngine produces a reply for one captured utterance.
type ConversationEngine interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ProcessHandler runs one conversation turn: captured speech in, a playable
// reply out. Backend failures never surface as HTTP errors; the caller always
// receives a speakable control document.
type ProcessHandler struct {
	Config  config.Config
	Engine  ConversationEngine
	TTS     tts.Provider
	Cache   *audiocache.Cache
	Flow    *callflow.Tracker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (h ProcessHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logWith(h.Logger, r)
	callID := r.FormValue("CallSid")
	action := h.Config.PublicURL("/process")

	speech := strings.TrimSpace(r.FormValue("SpeechResult"))
	if speech == "" {
		if r.URL.Query().Get("retry") == "1" {
			advanceFlow(h.Flow, callID, callflow.EventHangup)
			logger.Info("no speech after re-prompt, ending call")
			writeTwiML(w, twiml.SayHangup(h.Config.FallbackLine))
			return
		}
		advanceFlow(h.Flow, callID, callflow.EventSilence)
		logger.Info("no speech captured, re-prompting")
		writeTwiML(w, twiml.SayGather(h.Config.RePrompt, action+"?retry=1", h.Config.GatherTimeout))
		return
	}

	advanceFlow(h.Flow, callID, callflow.EventSpeechCaptured)

	ctx, cancel := context.WithTimeout(r.Context(), h.Config.BackendTimeout)
	defer cancel()

	reply, err := h.Engine.Complete(ctx, speech)
	if err != nil {
		h.Metrics.CompletionFailures.Inc()
		h.Metrics.FallbacksServed.Inc()
		advanceFlow(h.Flow, callID, callflow.EventFailure)
		logger.Error("completion failed", "error", err, "kind", core.KindOf(err))
		writeTwiML(w, twiml.SayHangup(h.Config.FallbackLine))
		return
	}

	syn, err := h.TTS.Synthesize(ctx, reply, tts.SynthesizeOptions{
		Voice:  h.Config.VoiceID,
		Format: "mp3",
	})
	if err != nil {
		// Synthesis down is not fatal: the carrier's own voice reads
		// the reply instead.
		h.Metrics.SynthesisFailures.Inc()
		h.Metrics.FallbacksServed.Inc()
		h.Metrics.TurnsCompleted.Inc()
		advanceFlow(h.Flow, callID, callflow.EventReplyReady, callflow.EventReplyPlayed)
		logger.Error("synthesis failed, falling back to carrier voice", "error", err)
		writeTwiML(w, twiml.SayGather(reply, action, h.Config.GatherTimeout))
		return
	}

	id := h.Cache.Put(syn.Audio, syn.ContentType)
	h.Metrics.ArtifactsStored.Inc()
	h.Metrics.TurnsCompleted.Inc()
	state := advanceFlow(h.Flow, callID, callflow.EventReplyReady, callflow.EventReplyPlayed)
	logger.Info("turn completed", "artifact_id", id, "reply_chars", len(reply), "call_state", state)
	writeTwiML(w, twiml.PlayGather(h.Config.PublicURL("/audio/"+id), action, h.Config.GatherTimeout))
}
