package collections

import (
	"bytes"
	"encoding/json"
	"fmt"

	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
)

// snapshot is the collection content carried by a response. Servers answer
// with a bare array (wishlist), {items,total,itemCount} (cart) or, for some
// wishlist adds, the single new item.
type snapshot struct {
	items  []Item
	total  *float64
	single bool
}

type responseEnvelope struct {
	Success *bool           `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
}

// unwrapData returns the data field of an envelope, or raw itself when the
// body is not enveloped.
func unwrapData(raw json.RawMessage) (json.RawMessage, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		return trimmed, nil
	}

	var env responseEnvelope
	if err := json.Unmarshal(trimmed, &env); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode envelope: %v", err)
	}
	if env.Success != nil && !*env.Success {
		return nil, rejected(env.Message)
	}
	if env.Success == nil && len(env.Data) == 0 {
		return trimmed, nil
	}
	return env.Data, nil
}

func decodeSnapshot(data json.RawMessage) (*snapshot, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil, nil
	}

	if data[0] == '[' {
		var items []Item
		if err := json.Unmarshal(data, &items); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode items: %v", err)
		}
		return &snapshot{items: dedupe(items)}, nil
	}

	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode collection: %v", err)
	}
	if _, ok := probe["items"]; ok {
		var body struct {
			Items []Item   `json:"items"`
			Total *float64 `json:"total"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode collection: %v", err)
		}
		return &snapshot{items: dedupe(body.Items), total: body.Total}, nil
	}
	if _, ok := probe["course"]; ok {
		var item Item
		if err := json.Unmarshal(data, &item); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode item: %v", err)
		}
		return &snapshot{items: []Item{item}, single: true}, nil
	}
	return nil, nil
}

func rejected(message string) error {
	if message == "" {
		return apperrors.ErrRequestRejected
	}
	return fmt.Errorf("%w: %s", apperrors.ErrRequestRejected, message)
}

// DecodeCourses reads a course list from a bare array, an envelope whose
// data is the array, or an envelope whose data is {courses: [...]}.
func DecodeCourses(raw json.RawMessage) ([]CourseSummary, error) {
	data, err := unwrapData(raw)
	if err != nil {
		return nil, err
	}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return []CourseSummary{}, nil
	}
	if data[0] == '{' {
		var body struct {
			Courses json.RawMessage `json:"courses"`
		}
		if err := json.Unmarshal(data, &body); err != nil {
			return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode courses: %v", err)
		}
		data = body.Courses
		if len(data) == 0 {
			return []CourseSummary{}, nil
		}
	}

	var courses []CourseSummary
	if err := json.Unmarshal(data, &courses); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode courses: %v", err)
	}
	return courses, nil
}
