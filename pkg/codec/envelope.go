package codec

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Field names of a stream entry.
const (
	FieldMessage       = "message"
	FieldTimestampSec  = "timestamp_sec"
	FieldTimestampUsec = "timestamp_usec"
)

// Envelope is the wrapper published on channels.
type Envelope struct {
	Timestamp Timestamp   `json:"timestamp"`
	Content   interface{} `json:"content"`
}

// EncodeEnvelope stamps content with ts and serializes the envelope.
func EncodeEnvelope(ts Timestamp, content interface{}) ([]byte, error) {
	if _, err := Encode(content); err != nil {
		return nil, err
	}
	return Encode(&Envelope{Timestamp: ts, Content: content})
}

// DecodeEnvelope parses a channel payload. The payload must be an object
// holding exactly the keys "timestamp" and "content".
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(payload, &raw); err != nil {
		return nil, newDeserializationError(payload, err)
	}

	ts, okTs := raw["timestamp"]
	content, okContent := raw["content"]
	if len(raw) != 2 || !okTs || !okContent {
		return nil, newDeserializationError(payload, errors.New("envelope must contain exactly 'timestamp' and 'content'"))
	}

	env := new(Envelope)
	if err := json.Unmarshal(ts, &env.Timestamp); err != nil {
		return nil, newDeserializationError(payload, err)
	}
	v, err := Decode(content)
	if err != nil {
		return nil, err
	}
	env.Content = v
	return env, nil
}

// EncodeFields serializes v into the field set of a stream entry, stamped
// with ts.
func EncodeFields(ts Timestamp, v interface{}) (map[string]string, error) {
	b, err := Encode(v)
	if err != nil {
		return nil, err
	}
	return map[string]string{
		FieldMessage:       string(b),
		FieldTimestampSec:  strconv.FormatInt(ts.Sec, 10),
		FieldTimestampUsec: strconv.FormatInt(ts.Usec, 10),
	}, nil
}

// DecodeFields parses the field set of a stream entry. When the timestamp
// is readable but the message is not, the timestamp is still returned
// alongside the DeserializationError.
func DecodeFields(fields map[string]string) (Timestamp, interface{}, error) {
	var ts Timestamp

	sec, err := parseField(fields, FieldTimestampSec)
	if err != nil {
		return ts, nil, err
	}
	usec, err := parseField(fields, FieldTimestampUsec)
	if err != nil {
		return ts, nil, err
	}
	ts = Timestamp{Sec: sec, Usec: usec}

	msg, ok := fields[FieldMessage]
	if !ok {
		return ts, nil, &DeserializationError{Err: fmt.Errorf("missing field %q", FieldMessage)}
	}
	v, err := Decode([]byte(msg))
	return ts, v, err
}

func parseField(fields map[string]string, name string) (int64, error) {
	s, ok := fields[name]
	if !ok {
		return 0, &DeserializationError{Err: fmt.Errorf("missing field %q", name)}
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, newDeserializationError([]byte(s), fmt.Errorf("field %q: %w", name, err))
	}
	return n, nil
}
