package codec

import (
	"encoding/json"
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// Encode serializes v to its JSON text.
func Encode(v interface{}) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, &SerializationError{Type: fmt.Sprintf("%T", v), Err: err}
	}
	return b, nil
}

// Decode is the inverse of Encode.
func Decode(payload []byte) (interface{}, error) {
	var v interface{}
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, newDeserializationError(payload, err)
	}
	return v, nil
}

// DecodeInto converts a decoded generic value (as returned by Decode) into
// the struct, map or slice pointed to by out. Struct fields are matched by
// their json tags.
func DecodeInto(v interface{}, out interface{}) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           out,
		TagName:          "json",
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("codec: failed to decode value into %T: %w", out, err)
	}
	return nil
}
