package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/voicewire/voicewire/pkg/core"
	"github.com/voicewire/voicewire/pkg/gateway/callflow"
	"github.com/voicewire/voicewire/pkg/gateway/mw"
	"github.com/voicewire/voicewire/pkg/gateway/twiml"
)

// Envelope wraps every JSON error body.
type Envelope struct {
	Error *core.Error `json:"error"`
}

func writeTwiML(w http.ResponseWriter, doc twiml.Document) {
	w.Header().Set("Content-Type", twiml.ContentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(twiml.Render(doc))
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErrorJSON(w http.ResponseWriter, err error) {
	coreErr, ok := err.(*core.Error)
	if !ok {
		coreErr = core.NewCompletionError(err)
	}
	writeJSON(w, statusForKind(coreErr.Kind), Envelope{Error: coreErr})
}

func statusForKind(kind core.ErrorKind) int {
	switch kind {
	case core.ErrInvalidNumber, core.ErrMissingInput:
		return http.StatusBadRequest
	case core.ErrNotFound:
		return http.StatusNotFound
	case core.ErrCompletion, core.ErrSynthesis:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// advanceFlow moves a tracked call through the lifecycle table. The tracker
// is optional wiring; without one the call is simply not followed.
func advanceFlow(flow *callflow.Tracker, callID string, events ...callflow.Event) callflow.State {
	state := callflow.StateTerminated
	if flow == nil || callID == "" {
		return state
	}
	for _, e := range events {
		state, _ = flow.Advance(callID, e)
	}
	return state
}

func logWith(logger *slog.Logger, r *http.Request) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	if reqID, ok := mw.RequestIDFrom(r.Context()); ok {
		return logger.With("request_id", reqID)
	}
	return logger
}
