package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// authFailedMessage is the msg value the API uses for a rejected access token.
const authFailedMessage = "Authentication failed"

// Response is a decoded API response object.
type Response map[string]any

// Success reports the value of the "success" field and whether it was a
// JSON boolean.
func (r Response) Success() (value, ok bool) {
	value, ok = r["success"].(bool)
	return value, ok
}

// String returns the field as a string, or "" when absent or not a string.
func (r Response) String(key string) string {
	s, _ := r[key].(string)
	return s
}

// Has reports whether the field is present, whatever its value.
func (r Response) Has(key string) bool {
	_, ok := r[key]
	return ok
}

// Decode re-encodes r into v, which should be a pointer to a struct with
// json tags.
func (r Response) Decode(v any) error {
	b, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode response: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify turns a fully buffered body into a Response or a typed error.
func classify(body []byte) (Response, error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var parsed any
	if err := dec.Decode(&parsed); err != nil {
		return nil, newParseError()
	}
	// Anything but whitespace after the first value is not valid JSON.
	if _, err := dec.Token(); err != io.EOF {
		return nil, newParseError()
	}
	if falsy(parsed) {
		return nil, newParseError()
	}
	obj, ok := parsed.(map[string]any)
	if !ok {
		return nil, newParseError()
	}
	resp := Response(obj)

	if success, isBool := resp.Success(); isBool && !success {
		msg := resp.String("msg")
		if msg == authFailedMessage {
			return nil, &Error{Kind: KindAccessTokenExpired}
		}
		if msg == "" {
			msg = resp.String("error_msg")
		}
		return nil, newRequestError(msg)
	}
	return resp, nil
}

func falsy(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case bool:
		return !t
	case string:
		return t == ""
	case json.Number:
		f, err := t.Float64()
		return err == nil && f == 0
	}
	return false
}
