package handlers

import (
	"log/slog"
	"net/http"

	"github.com/voicewire/voicewire/pkg/gateway/callflow"
	"github.com/voicewire/voicewire/pkg/gateway/config"
	"github.com/voicewire/voicewire/pkg/gateway/twiml"
)

// CustomerAnsweredHandler runs when the outbound leg connects. With an agent
// SIP endpoint configured it bridges the two legs; otherwise it speaks the
// greeting and starts listening for the first turn.
type CustomerAnsweredHandler struct {
	Config config.Config
	Flow   *callflow.Tracker
	Logger *slog.Logger
}

func (h CustomerAnsweredHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	logger := logWith(h.Logger, r)
	callID := r.FormValue("CallSid")

	if h.Config.AgentSIPURI != "" {
		// The call leaves our control once bridged.
		advanceFlow(h.Flow, callID, callflow.EventCustomerAnswered, callflow.EventHangup)
		logger.Info("bridging to agent", "sip_uri", h.Config.AgentSIPURI)
		writeTwiML(w, twiml.BridgeSIP(h.Config.AgentSIPURI))
		return
	}

	state := advanceFlow(h.Flow, callID, callflow.EventCustomerAnswered, callflow.EventGreetingPlayed)
	logger.Info("customer answered, greeting", "call_state", state)
	action := h.Config.PublicURL("/process")
	writeTwiML(w, twiml.SayGather(h.Config.Greeting, action, h.Config.GatherTimeout))
}
