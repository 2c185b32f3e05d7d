// Package codec serializes application values into the JSON payloads stored
// on streams and published on channels, and decodes them back.
//
// Values are restricted to the JSON domain: nil, bool, numbers, strings,
// slices and string-keyed maps, recursively. Decoded numbers are float64,
// following encoding/json.
package codec
