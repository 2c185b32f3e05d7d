// Package server exposes a rediscomm.Client over HTTP and websockets.
package server

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/rediscomm"
)

const headerRequestID = "X-Request-ID"

type Server struct {
	client *rediscomm.Client
	router *mux.Router
	server *http.Server
	l      net.Listener
	log    *zap.SugaredLogger
	doneCh chan struct{}
}

// New creates a new Server listening on listenAddr and attaches the
// following handlers:
//
// * POST /channels/{name}: publishes the JSON body on a channel.
// * GET /channels/{name}/ws: streams channel messages over a websocket.
// * POST /streams/{name}: appends the JSON body to a stream.
// * GET /streams/{name}/latest: peeks at the newest stream entry.
// * GET /streams/{name}/unread: reads the entries past the stream cursor.
// * GET /healthz: pings redis.
func New(log *zap.SugaredLogger, client *rediscomm.Client, listenAddr string) (srv *Server, err error) {
	srv = &Server{
		client: client,
		log:    log,
		doneCh: make(chan struct{}),
	}

	// match on the escaped path, so that names may contain an encoded slash.
	r := mux.NewRouter().UseEncodedPath()

	// Set a unique request ID, unless the caller supplied one.
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(headerRequestID)
			if id == "" {
				id = uuid.New().String()[:8]
				r.Header.Set(headerRequestID, id)
			}
			w.Header().Set(headerRequestID, id)
			next.ServeHTTP(w, r)
		})
	})

	r.HandleFunc("/channels/{name}", srv.publishHandler).Methods("POST")
	r.HandleFunc("/channels/{name}/ws", srv.subscribeHandler).Methods("GET")
	r.HandleFunc("/streams/{name}", srv.addHandler).Methods("POST")
	r.HandleFunc("/streams/{name}/latest", srv.latestHandler).Methods("GET")
	r.HandleFunc("/streams/{name}/unread", srv.unreadHandler).Methods("GET")
	r.HandleFunc("/healthz", srv.healthHandler).Methods("GET")
	srv.router = r

	// no write timeout; websocket subscriptions are long lived.
	srv.server = &http.Server{
		Handler:     r,
		ReadTimeout: 60 * time.Second,
	}

	srv.l, err = net.Listen("tcp", listenAddr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", listenAddr, err)
	}

	return srv, nil
}

// Handler returns the router of this server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Serve starts the server and blocks until the server is closed, either
// explicitly via Shutdown, or due to a fault condition. It propagates the
// non-nil err return value from http.Serve.
func (s *Server) Serve() error {
	select {
	case <-s.doneCh:
		return fmt.Errorf("tried to reuse a stopped server")
	default:
	}

	s.log.Infow("gateway listening", "addr", s.Addr())
	return s.server.Serve(s.l)
}

func (s *Server) Addr() string {
	return s.l.Addr().String()
}

func (s *Server) Port() int {
	return s.l.Addr().(*net.TCPAddr).Port
}

func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.doneCh)
	return s.server.Shutdown(ctx)
}

func (s *Server) requestLog(r *http.Request) *zap.SugaredLogger {
	return s.log.With("ruid", r.Header.Get(headerRequestID))
}

// pathName returns the unescaped {name} route variable, or reports a bad
// request if it cannot be unescaped.
func (s *Server) pathName(w http.ResponseWriter, r *http.Request) (string, bool) {
	name, err := url.PathUnescape(mux.Vars(r)["name"])
	if err != nil {
		errf(w, s.requestLog(r), http.StatusBadRequest, fmt.Errorf("invalid name: %w", err))
		return "", false
	}
	return name, true
}
