// Package client is a type-safe client for the redcomm gateway.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/SSRS-Innovation/redis-communication/pkg/codec"
	"github.com/SSRS-Innovation/redis-communication/pkg/logging"
)

// Client performs requests against a redcomm gateway.
type Client struct {
	// client used to send and receive http requests.
	client   *http.Client
	endpoint string
}

// StatusError is returned when the gateway answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("gateway returned %d: %s", e.StatusCode, e.Message)
}

// New initializes a new client for the gateway at endpoint, e.g.
// "http://localhost:8077".
func New(endpoint string) *Client {
	logging.S().Infow("gateway client initialized", "addr", endpoint)

	return &Client{
		client:   &http.Client{},
		endpoint: strings.TrimSuffix(endpoint, "/"),
	}
}

// Close the transport used by the client.
func (c *Client) Close() error {
	c.client.CloseIdleConnections()
	return nil
}

// Publish sends content on a channel and returns the number of receivers.
func (c *Client) Publish(ctx context.Context, channel string, content interface{}) (int64, error) {
	var resp PublishResponse
	err := c.do(ctx, "POST", "/channels/"+url.PathEscape(channel), content, &resp)
	return resp.Receivers, err
}

// Add appends content to a stream and returns the entry id.
func (c *Client) Add(ctx context.Context, stream string, content interface{}) (string, error) {
	var resp AddResponse
	err := c.do(ctx, "POST", "/streams/"+url.PathEscape(stream), content, &resp)
	return resp.ID, err
}

// Latest returns the newest message of a stream. ok is false when the stream
// is empty.
func (c *Client) Latest(ctx context.Context, stream string) (msg Message, ok bool, err error) {
	var raw json.RawMessage
	if err = c.do(ctx, "GET", "/streams/"+url.PathEscape(stream)+"/latest", nil, &raw); err != nil {
		return Message{}, false, err
	}
	if len(raw) == 0 {
		return Message{}, false, nil
	}
	if err = json.Unmarshal(raw, &msg); err != nil {
		return Message{}, false, fmt.Errorf("failed to decode message: %w", err)
	}
	return msg, true, nil
}

// Unread returns the messages past the gateway's cursor for a stream,
// advancing it. maxMessages of zero reads everything.
func (c *Client) Unread(ctx context.Context, stream string, maxMessages int) ([]Message, error) {
	path := "/streams/" + url.PathEscape(stream) + "/unread"
	if maxMessages > 0 {
		path += "?max=" + strconv.Itoa(maxMessages)
	}

	var resp UnreadResponse
	if err := c.do(ctx, "GET", path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

// Healthcheck returns nil if the gateway can reach redis.
func (c *Client) Healthcheck(ctx context.Context) error {
	return c.do(ctx, "GET", "/healthz", nil, nil)
}

// Subscribe streams the messages published on channel until ctx is done or
// the connection drops. The returned channel is closed when that happens.
func (c *Client) Subscribe(ctx context.Context, channel string) (<-chan codec.Envelope, error) {
	u := "ws" + strings.TrimPrefix(c.endpoint, "http") + "/channels/" + url.PathEscape(channel) + "/ws"

	conn, _, err := websocket.Dial(ctx, u, &websocket.DialOptions{HTTPClient: c.client})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", channel, err)
	}

	out := make(chan codec.Envelope)
	go func() {
		defer close(out)
		defer conn.Close(websocket.StatusNormalClosure, "")

		for {
			var env codec.Envelope
			if err := wsjson.Read(ctx, conn, &env); err != nil {
				logging.S().Debugw("subscription ended", "channel", channel, "err", err)
				return
			}
			select {
			case out <- env:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

func (c *Client) do(ctx context.Context, method, path string, content interface{}, out interface{}) error {
	var body io.Reader
	if content != nil || method == "POST" {
		b, err := codec.Encode(content)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.endpoint+path, body)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		var e ErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return &StatusError{StatusCode: resp.StatusCode, Message: e.Error}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
