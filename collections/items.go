package collections

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"
)

// CourseSummary is the course embedded in a cart or wishlist item.
type CourseSummary struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Description string  `json:"description,omitempty"`
	Instructor  string  `json:"instructor,omitempty"`
	Price       float64 `json:"price"`
	Thumbnail   string  `json:"thumbnail,omitempty"`
	Duration    string  `json:"duration,omitempty"`
	Rating      float64 `json:"rating,omitempty"`
}

// UnmarshalJSON accepts "_id" for the id and a numeric duration.
func (c *CourseSummary) UnmarshalJSON(data []byte) error {
	type alias CourseSummary
	var aux struct {
		alias
		DocumentID string          `json:"_id"`
		Duration   json.RawMessage `json:"duration"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*c = CourseSummary(aux.alias)
	if c.ID == "" {
		c.ID = aux.DocumentID
	}
	c.Duration = flexString(aux.Duration)
	return nil
}

// Item is one entry in a collection.
type Item struct {
	ID      string        `json:"id"`
	Course  CourseSummary `json:"course"`
	AddedAt time.Time     `json:"addedAt"`
}

func (i *Item) UnmarshalJSON(data []byte) error {
	type alias Item
	var aux struct {
		alias
		DocumentID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*i = Item(aux.alias)
	if i.ID == "" {
		i.ID = aux.DocumentID
	}
	return nil
}

// State is a snapshot of a collection. Items is never shared with the
// collection that produced it.
type State struct {
	Items   []Item
	Total   float64
	Loading bool
	Error   string
}

// Count returns the number of items.
func (s State) Count() int {
	return len(s.Items)
}

// Contains reports whether courseID is in the snapshot.
func (s State) Contains(courseID string) bool {
	return indexOf(s.Items, courseID) >= 0
}

func (s State) clone() State {
	s.Items = append(make([]Item, 0, len(s.Items)), s.Items...)
	return s
}

func indexOf(items []Item, courseID string) int {
	for i, item := range items {
		if item.Course.ID == courseID {
			return i
		}
	}
	return -1
}

func sumPrices(items []Item) float64 {
	var total float64
	for _, item := range items {
		total += item.Course.Price
	}
	return total
}

// dedupe keeps the first item for each course id.
func dedupe(items []Item) []Item {
	seen := make(map[string]struct{}, len(items))
	out := make([]Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Course.ID]; ok {
			continue
		}
		seen[item.Course.ID] = struct{}{}
		out = append(out, item)
	}
	return out
}

func flexString(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if f, err := strconv.ParseFloat(string(raw), 64); err == nil {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	return string(raw)
}
