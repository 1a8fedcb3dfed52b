// Package apiresp interprets ice-plant API response bodies: success decoding,
// empty-body handling and structured error extraction.
package apiresp

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Decode unmarshals a successful response body into out. A 204 response (or an
// otherwise empty body) leaves out at its zero value, since decoding an empty
// body would fail. Decode failures carry the endpoint, method and timestamp so
// malformed payloads can be traced back to a specific call.
func Decode(method, path string, status int, body []byte, out any) error {
	if out == nil {
		return nil
	}
	trimmed := bytes.TrimSpace(body)
	if status == http.StatusNoContent || len(trimmed) == 0 {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return fmt.Errorf("decode %s %s response at %s: %w",
			method, path, time.Now().UTC().Format(time.RFC3339), err)
	}
	return nil
}

// ErrorMessage extracts a human-readable message from an error response body.
// It prefers the JSON "detail" or "message" field, falls back to the raw body,
// and finally to a generic status-line message.
func ErrorMessage(status int, body []byte) string {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 {
		var payload struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if err := json.Unmarshal(trimmed, &payload); err == nil {
			if payload.Detail != "" {
				return payload.Detail
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
		if json.Valid(trimmed) {
			return string(trimmed)
		}
	}
	return fmt.Sprintf("HTTP error! Status: %d", status)
}
