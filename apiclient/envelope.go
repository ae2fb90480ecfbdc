package apiclient

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/jrsteele09/warranty-portal/internal/errors"
)

const maxBodyBytes = 1 << 20

// Envelope is a decoded backend response. The backend returns some payloads
// flat and others nested under "data"; both are kept so each payload type can
// normalise field by field.
type Envelope[T any] struct {
	Status  *bool
	Message string
	Error   string
	Flat    T
	Nested  *T
}

// ErrorMessage is the backend-supplied human readable failure, if any.
func (e Envelope[T]) ErrorMessage() string {
	if e.Message != "" {
		return e.Message
	}
	return e.Error
}

type envelopeMeta struct {
	Status  *bool           `json:"status"`
	Message json.RawMessage `json:"message"`
	Error   json.RawMessage `json:"error"`
	Data    json.RawMessage `json:"data"`
}

// DecodeEnvelope parses body as a JSON object. Non-JSON bodies and non-object
// documents return ErrInvalidResponse.
func DecodeEnvelope[T any](body []byte) (Envelope[T], error) {
	var env Envelope[T]
	body = bytes.TrimSpace(body)
	if len(body) == 0 || body[0] != '{' {
		return env, errors.ErrInvalidResponse
	}

	var meta envelopeMeta
	if err := json.Unmarshal(body, &meta); err != nil {
		return env, fmt.Errorf("%w: %v", errors.ErrInvalidResponse, err)
	}
	// Payload fields that don't match T's types are tolerated: the envelope
	// carries what it could read and callers check for required fields.
	_ = json.Unmarshal(body, &env.Flat)

	env.Status = meta.Status
	env.Message = rawString(meta.Message)
	env.Error = rawString(meta.Error)
	if data := bytes.TrimSpace(meta.Data); len(data) > 0 && data[0] == '{' {
		var nested T
		if err := json.Unmarshal(data, &nested); err == nil {
			env.Nested = &nested
		}
	}
	return env, nil
}

// rawString returns v when it is a JSON string, and "" for any other shape.
func rawString(v json.RawMessage) string {
	var s string
	if len(v) == 0 || json.Unmarshal(v, &s) != nil {
		return ""
	}
	return s
}

// ReadBody reads and closes a response body, capped at 1 MiB.
func ReadBody(resp *http.Response) ([]byte, error) {
	defer resp.Body.Close()
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("[apiclient ReadBody] %w", err)
	}
	return b, nil
}

// IsSuccess reports a 2xx status.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}

// Discard drains and closes a response body so the connection can be reused.
func Discard(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
	resp.Body.Close()
}
