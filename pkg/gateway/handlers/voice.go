package handlers

import (
	"log/slog"
	"net/http"

	"github.com/voicewire/voicewire/pkg/gateway/callflow"
	"github.com/voicewire/voicewire/pkg/gateway/config"
	"github.com/voicewire/voicewire/pkg/gateway/metrics"
	"github.com/voicewire/voicewire/pkg/gateway/number"
	"github.com/voicewire/voicewire/pkg/gateway/twiml"
)

// StartCallHandler answers the carrier's webhook for a new call. It reads the
// dial target from the To field, normalizes it, and returns the control
// document that places the outbound leg or opens the media stream.
type StartCallHandler struct {
	Config  config.Config
	Flow    *callflow.Tracker
	Metrics *metrics.Metrics
	Logger  *slog.Logger
}

func (h StartCallHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logWith(h.Logger, r)
	callID := r.FormValue("CallSid")

	raw := r.FormValue("To")
	dialable, ok := number.Normalize(raw)
	if !ok {
		logger.Warn("rejected dial target", "to", raw)
		advanceFlow(h.Flow, callID, callflow.EventFailure)
		h.Metrics.FallbacksServed.Inc()
		writeTwiML(w, twiml.SayHangup("Invalid number."))
		return
	}

	h.Metrics.CallsStarted.Inc()

	switch h.Config.Topology {
	case config.TopologyStream:
		state := advanceFlow(h.Flow, callID, callflow.EventStreamOpened)
		logger.Info("opening media stream", "to", dialable, "call_state", state)
		writeTwiML(w, twiml.ConnectStream(h.Config.StreamURL))
	default:
		state := advanceFlow(h.Flow, callID, callflow.EventDialPlaced)
		logger.Info("dialing", "to", dialable, "call_state", state)
		action := h.Config.PublicURL("/customer-answered")
		writeTwiML(w, twiml.DialNumber(dialable, h.Config.CallerID, action))
	}
}
