package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/SSRS-Innovation/redis-communication/pkg/client"
	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/rediscomm"
)

// statusOf maps an error to the HTTP status reported to the caller.
func statusOf(err error) int {
	var (
		serr *codec.SerializationError
		derr *codec.DeserializationError
		cerr *rediscomm.ConnectionError
	)
	switch {
	case errors.As(err, &serr), errors.As(err, &derr):
		return http.StatusBadRequest
	case errors.As(err, &cerr), errors.Is(err, rediscomm.ErrClientClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// errf logs an error and forwards it back to the caller.
func errf(w http.ResponseWriter, log *zap.SugaredLogger, status int, err error, keysAndValues ...interface{}) {
	log.Warnw(err.Error(), append(keysAndValues, "status", status)...)
	writeJSON(w, log, status, client.ErrorResponse{Error: err.Error()})
}

func writeJSON(w http.ResponseWriter, log *zap.SugaredLogger, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Errorw("could not write response", "err", err)
	}
}
