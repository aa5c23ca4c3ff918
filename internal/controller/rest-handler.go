package controller

import (
	"net/http"
	"path/filepath"

	"github.com/audiolyze/server/pkg/rest"
)

// publicSessions serves the directory over plain HTTP for clients that want
// it before opening a websocket.
func (c *controller) publicSessions(w http.ResponseWriter, r *http.Request) {
	sessions, err := c.sessionService.GetPublicSessions(r.Context())
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to get public sessions", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "internal error"})
		return
	}

	rest.WriteJSON(w, http.StatusOK, rest.Envelope{"sessions": sessions})
}

const maxUploadSize = 512 << 20

// uploadAudio stores a track in object storage and hands back the URL the
// host can queue.
func (c *controller) uploadAudio(w http.ResponseWriter, r *http.Request) {
	if c.mediaRepo == nil {
		rest.WriteJSON(w, http.StatusServiceUnavailable, rest.Envelope{"error": "uploads are not configured"})
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		c.logger.DebugContext(r.Context(), "failed to read upload", "error", err)
		rest.WriteJSON(w, http.StatusBadRequest, rest.Envelope{"error": "file is required"})
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	objectName := c.generateTimeBasedId() + filepath.Ext(header.Filename)

	url, err := c.mediaRepo.Upload(r.Context(), objectName, file, header.Size, contentType)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upload audio", "error", err)
		rest.WriteJSON(w, http.StatusInternalServerError, rest.Envelope{"error": "upload failed"})
		return
	}

	rest.WriteJSON(w, http.StatusCreated, rest.Envelope{"url": url, "title": header.Filename})
}
