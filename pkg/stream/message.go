package stream

import "github.com/SSRS-Innovation/redis-communication/pkg/codec"

// Message is a decoded stream entry.
//
// When the entry could not be decoded, Err holds the *codec.DeserializationError
// and Value is nil. Timestamp is set whenever the entry carried a readable
// one.
type Message struct {
	ID        ID
	Timestamp codec.Timestamp
	Value     interface{}
	Err       error
}

// Failed reports whether the entry could not be decoded.
func (m Message) Failed() bool {
	return m.Err != nil
}

func decodeEntry(e Entry) Message {
	ts, v, err := codec.DecodeFields(e.Fields)
	return Message{ID: e.ID, Timestamp: ts, Value: v, Err: err}
}
