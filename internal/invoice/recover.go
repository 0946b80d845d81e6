package invoice

import (
	"encoding/json"
	"strings"
)

// ParseWhole parses raw as one complete JSON document.
func ParseWhole(raw string) (any, error) {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ParseBraced parses the text between the first '{' and the last '}' of raw,
// both included. It returns ErrNoJSON when raw has no such pair.
//
// The outermost pair is taken as is: a reply with several independent
// objects, or with stray braces in the surrounding prose, does not parse.
func ParseBraced(raw string) (any, error) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < start {
		return nil, ErrNoJSON
	}
	return ParseWhole(raw[start : end+1])
}

// Recover extracts the JSON value from a model reply. The whole reply is
// tried first; if it is not valid JSON the outermost braces are tried. When
// both fail it returns a *RecoveryError that carries raw.
func Recover(raw string) (any, error) {
	if v, err := ParseWhole(raw); err == nil {
		return v, nil
	}
	v, err := ParseBraced(raw)
	if err != nil {
		return nil, &RecoveryError{Raw: raw, Err: err}
	}
	return v, nil
}
