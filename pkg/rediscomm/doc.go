// Package rediscomm exchanges timestamped JSON messages over Redis.
//
// Channels are fire-and-forget: SendMessage publishes an envelope holding a
// timestamp and the content, and Listen hands every envelope received on a
// subscribed channel to the handler registered for it.
//
// Streams are durable: AddStreamMessage appends to a Redis stream, and
// UnreadStreamMessages returns everything appended since the previous call,
// tracked by a per-stream cursor (see package stream).
package rediscomm
