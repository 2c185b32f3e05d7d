package codec

import "fmt"

// maxPayloadInError bounds how much of a bad payload is echoed back in a
// DeserializationError.
const maxPayloadInError = 128

// SerializationError is returned by Encode when a value cannot be
// represented as JSON (functions, channels, cycles, NaN, ...). It signals a
// programming error on the caller's side and is never retried.
type SerializationError struct {
	Type string
	Err  error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("codec: value of type %s is not serializable: %s", e.Type, e.Err)
}

func (e *SerializationError) Unwrap() error { return e.Err }

// DeserializationError is returned by Decode when a payload is not well
// formed. Stream readers record it per entry instead of aborting a batch.
type DeserializationError struct {
	Payload string
	Err     error
}

func (e *DeserializationError) Error() string {
	return fmt.Sprintf("codec: could not decode payload %q: %s", e.Payload, e.Err)
}

func (e *DeserializationError) Unwrap() error { return e.Err }

func newDeserializationError(payload []byte, err error) *DeserializationError {
	p := string(payload)
	if len(p) > maxPayloadInError {
		p = p[:maxPayloadInError] + "..."
	}
	return &DeserializationError{Payload: p, Err: err}
}
