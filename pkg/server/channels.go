package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/SSRS-Innovation/redis-communication/pkg/client"
	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/rediscomm"
)

const maxBodySize = 1 << 20

// readContent decodes the JSON request body.
func readContent(w http.ResponseWriter, r *http.Request) (interface{}, error) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("failed to read request body: %w", err)
	}
	return codec.Decode(body)
}

func (s *Server) publishHandler(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.pathName(w, r)
	if !ok {
		return
	}
	log := s.requestLog(r).With("channel", channel)

	log.Debugw("handle request", "command", "publish")
	defer log.Debugw("request handled", "command", "publish")

	content, err := readContent(w, r)
	if err != nil {
		errf(w, log, http.StatusBadRequest, err)
		return
	}

	n, err := s.client.SendMessage(r.Context(), channel, content)
	if err != nil {
		errf(w, log, statusOf(err), err)
		return
	}

	writeJSON(w, log, http.StatusOK, client.PublishResponse{Receivers: n})
}

func (s *Server) subscribeHandler(w http.ResponseWriter, r *http.Request) {
	channel, ok := s.pathName(w, r)
	if !ok {
		return
	}
	log := s.requestLog(r).With("channel", channel)

	log.Debugw("handle request", "command", "subscribe")
	defer log.Debugw("request handled", "command", "subscribe")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	// subscribe before upgrading, so that a failure can still be reported
	// with a status code.
	sub, err := s.client.Subscribe(ctx, channel)
	if err != nil {
		errf(w, log, statusOf(err), err)
		return
	}
	defer sub.Close()

	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Accept requests from all domains.
	})
	if err != nil {
		log.Warnf("could not upgrade connection: %v", err)
		return
	}

	// nothing is expected from the peer; CloseRead cancels ctx once it goes away.
	ctx = c.CloseRead(ctx)

	err = s.forward(ctx, c, sub.C())
	switch {
	case err == nil:
		_ = c.Close(websocket.StatusNormalClosure, "")
	case errors.Is(err, context.Canceled),
		websocket.CloseStatus(err) == websocket.StatusNormalClosure,
		websocket.CloseStatus(err) == websocket.StatusGoingAway:
		log.Info("client closed connection")
		_ = c.Close(websocket.StatusNormalClosure, "")
	default:
		log.Warnf("websocket closed unexpectedly: %v", err)
		_ = c.Close(websocket.StatusInternalError, "")
	}
}

// forward writes every event as an envelope until the subscription ends or
// ctx is done.
func (s *Server) forward(ctx context.Context, c *websocket.Conn, events <-chan *rediscomm.Event) error {
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			msg := codec.Envelope{Timestamp: ev.Timestamp, Content: ev.Content}
			if err := wsjson.Write(ctx, c, msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
