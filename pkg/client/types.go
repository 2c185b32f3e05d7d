package client

import "github.com/SSRS-Innovation/redis-communication/pkg/codec"

// PublishResponse is the response of `POST /channels/{name}`.
type PublishResponse struct {
	Receivers int64 `json:"receivers"`
}

// AddResponse is the response of `POST /streams/{name}`.
type AddResponse struct {
	ID string `json:"id"`
}

// Message is a stream entry as served by the gateway. Error is set, and
// Content is null, when the entry could not be decoded.
type Message struct {
	ID        string          `json:"id"`
	Timestamp codec.Timestamp `json:"timestamp"`
	Content   interface{}     `json:"content"`
	Error     string          `json:"error,omitempty"`
}

// UnreadResponse is the response of `GET /streams/{name}/unread`.
type UnreadResponse struct {
	Messages []Message `json:"messages"`
}

// ErrorResponse is returned by the gateway alongside any non-2xx status.
type ErrorResponse struct {
	Error string `json:"error"`
}
