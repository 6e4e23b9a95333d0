package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/hupe1980/supportagent/invocation"
)

func (s *Server) decodeRequest(w http.ResponseWriter, r *http.Request) (invocation.Request, bool) {
	var req invocation.Request
	if err := decodeJSONBody(w, r, s.opts.MaxBodyBytes, &req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return invocation.Request{}, false
	}
	if err := req.Validate(); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return invocation.Request{}, false
	}
	return req, true
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	res, err := s.adapter.Query(r.Context(), req)
	if err != nil {
		if errors.Is(err, invocation.ErrInvalidRequest) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Agent execution failed: %s", err))
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// handleStream serves the invocation as Server-Sent Events. A client
// disconnect cancels the request context and with it the agent run.
func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming is unsupported by response writer")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	err := s.adapter.Stream(r.Context(), req, func(ev invocation.Event) error {
		return writeSSEEvent(w, flusher, ev)
	})
	if err != nil {
		s.opts.Logger.Debug("stream.client_gone", "error", err)
	}
}

func writeSSEEvent(w http.ResponseWriter, flusher http.Flusher, ev invocation.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
		return err
	}
	flusher.Flush()
	return nil
}
