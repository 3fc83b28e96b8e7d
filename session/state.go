package session

import (
	"encoding/json"
	"time"
)

// Status is the authentication state of a Manager.
type Status string

const (
	StatusAnonymous     Status = "anonymous"
	StatusLoading       Status = "loading" // login or registration in flight
	StatusAuthenticated Status = "authenticated"
	StatusError         Status = "error"
)

// UserRecord is the signed-in user as returned by the API.
type UserRecord struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Avatar string `json:"avatar,omitempty"`
	Role   string `json:"role,omitempty"`
}

// UnmarshalJSON accepts both "id" and the document-store style "_id".
func (u *UserRecord) UnmarshalJSON(data []byte) error {
	type alias UserRecord
	var aux struct {
		alias
		DocumentID string `json:"_id"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*u = UserRecord(aux.alias)
	if u.ID == "" {
		u.ID = aux.DocumentID
	}
	return nil
}

func (u *UserRecord) valid() bool {
	return u != nil && (u.ID != "" || u.Email != "")
}

// State is a snapshot of the session. It is returned by value; callers
// cannot change the manager's state through it.
type State struct {
	Status    Status
	User      *UserRecord
	Token     string
	Error     string
	ExpiresAt time.Time // from the token's exp claim, zero when unknown
	Degraded  bool      // authenticated but the credential could not be persisted
}

// IsAuthenticated is true iff the session holds both a token and a user.
func (s State) IsAuthenticated() bool {
	return s.Status == StatusAuthenticated && s.Token != "" && s.User.valid()
}

func (s State) clone() State {
	if s.User != nil {
		u := *s.User
		s.User = &u
	}
	return s
}

func (s State) sameIdentity(other State) bool {
	if s.Status != other.Status || s.Token != other.Token {
		return false
	}
	if s.User == nil || other.User == nil {
		return s.User == other.User
	}
	return *s.User == *other.User
}
