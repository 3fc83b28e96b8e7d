package transport

import (
	"encoding/json"

	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
)

// Envelope is the { success, data, message } wrapper used by every endpoint.
type Envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// HasData reports whether the envelope carried a non-null data field.
func (e *Envelope) HasData() bool {
	return len(e.Data) > 0 && string(e.Data) != "null"
}

// DecodeEnvelope parses raw as an Envelope.
func DecodeEnvelope(raw json.RawMessage) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode envelope: %v", err)
	}
	return &env, nil
}
