package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jonathan/voice-audit/internal/store"
)

// SSEWriter helps write Server-Sent Events.
type SSEWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
}

// NewSSEWriter creates a new SSE writer.
func NewSSEWriter(w http.ResponseWriter) (*SSEWriter, error) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return nil, fmt.Errorf("streaming not supported")
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	return &SSEWriter{w: w, flusher: flusher}, nil
}

// WriteEvent sends an SSE event.
func (s *SSEWriter) WriteEvent(event string, data any) error {
	jsonData, err := json.Marshal(data)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(s.w, "event: %s\n", event); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(s.w, "data: %s\n\n", jsonData); err != nil {
		return err
	}
	s.flusher.Flush()
	return nil
}

// changeEvent is the SSE payload for one observed store write.
type changeEvent struct {
	Path  string          `json:"path"`
	Value json.RawMessage `json:"value"`
}

// handleEvents streams every store write under the profile's subtree as SSE
// until the client disconnects. The dashboard uses this for live prompt and
// progress updates during a run.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	profileID := r.PathValue("id")

	sse, err := NewSSEWriter(w)
	if err != nil {
		s.errorResponse(w, http.StatusInternalServerError, err.Error())
		return
	}

	events, cancel := s.store.Subscribe(r.Context(), store.ProfilePath(profileID))
	defer cancel()

	if err := sse.WriteEvent("connected", map[string]string{"profileId": profileID}); err != nil {
		return
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if err := sse.WriteEvent("change", changeEvent{Path: event.Path, Value: event.Value}); err != nil {
				return
			}
		}
	}
}
