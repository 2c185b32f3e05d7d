package server

import (
	"fmt"
	"net/http"
	"strconv"


	"github.com/SSRS-Innovation/redis-communication/pkg/client"
	"github.com/SSRS-Innovation/redis-communication/pkg/stream"
)

func toMessage(m stream.Message) client.Message {
	out := client.Message{
		ID:        m.ID.String(),
		Timestamp: m.Timestamp,
		Content:   m.Value,
	}
	if m.Failed() {
		out.Error = m.Err.Error()
	}
	return out
}

func (s *Server) addHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathName(w, r)
	if !ok {
		return
	}
	log := s.requestLog(r).With("stream", name)

	log.Debugw("handle request", "command", "add")
	defer log.Debugw("request handled", "command", "add")

	content, err := readContent(w, r)
	if err != nil {
		errf(w, log, http.StatusBadRequest, err)
		return
	}

	id, err := s.client.AddStreamMessage(r.Context(), name, content)
	if err != nil {
		errf(w, log, statusOf(err), err)
		return
	}

	writeJSON(w, log, http.StatusOK, client.AddResponse{ID: id.String()})
}

func (s *Server) latestHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathName(w, r)
	if !ok {
		return
	}
	log := s.requestLog(r).With("stream", name)

	log.Debugw("handle request", "command", "latest")
	defer log.Debugw("request handled", "command", "latest")

	msg, ok, err := s.client.LatestStreamMessage(r.Context(), name)
	if err != nil {
		errf(w, log, statusOf(err), err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}

	writeJSON(w, log, http.StatusOK, toMessage(msg))
}

func (s *Server) unreadHandler(w http.ResponseWriter, r *http.Request) {
	name, ok := s.pathName(w, r)
	if !ok {
		return
	}
	log := s.requestLog(r).With("stream", name)

	log.Debugw("handle request", "command", "unread")
	defer log.Debugw("request handled", "command", "unread")

	var maxMessages int
	if v := r.URL.Query().Get("max"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			errf(w, log, http.StatusBadRequest, fmt.Errorf("max must be a positive integer, got %q", v))
			return
		}
		maxMessages = n
	}

	msgs, err := s.client.UnreadStreamMessages(r.Context(), name, maxMessages)
	if err != nil {
		errf(w, log, statusOf(err), err)
		return
	}

	resp := client.UnreadResponse{Messages: make([]client.Message, 0, len(msgs))}
	for _, m := range msgs {
		resp.Messages = append(resp.Messages, toMessage(m))
	}
	writeJSON(w, log, http.StatusOK, resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	log := s.requestLog(r)

	if err := s.client.Redis().WithContext(r.Context()).Ping().Err(); err != nil {
		errf(w, log, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, log, http.StatusOK, map[string]string{"status": "ok"})
}
