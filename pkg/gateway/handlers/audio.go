package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/voicewire/voicewire/pkg/core"
	"github.com/voicewire/voicewire/pkg/gateway/audiocache"
)

// AudioHandler serves cached synthesis artifacts. The carrier fetches these
// URLs to play a reply, so fetches must be repeatable while the entry lives.
type AudioHandler struct {
	Cache  *audiocache.Cache
	Logger *slog.Logger
}

func (h AudioHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	art, ok := h.Cache.Get(id)
	if !ok {
		logWith(h.Logger, r).Warn("artifact not found", "artifact_id", id)
		writeErrorJSON(w, core.NewNotFoundError("audio artifact not found"))
		return
	}
	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}
