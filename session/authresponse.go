package session

import (
	"encoding/json"
	"sort"
	"strings"

	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/pkg/errors"
)

// Auth responses have changed shape across backend versions. The token may
// be flat ("token"), nested ("data.token") or renamed ("accessToken"). This
// file is the only place that knows about those shapes.

var (
	ErrMissingToken = errors.New("auth response carried no token")
	ErrMissingUser  = errors.New("auth response carried no user")
)

// tokenPaths are checked in order before falling back to a scan.
var tokenPaths = [][]string{
	{"token"},
	{"accessToken"},
	{"authToken"},
	{"jwt"},
	{"access_token"},
	{"auth_token"},
	{"data", "token"},
	{"data", "accessToken"},
	{"user", "token"},
}

// refreshTokenFields are never adopted as the access token by the scan.
var refreshTokenFields = map[string]struct{}{
	"refreshToken":  {},
	"refresh_token": {},
}

type authPayload struct {
	Token        string
	RefreshToken string
	User         *UserRecord
	Message      string
}

// RejectedError is a 2xx response whose body reports success:false.
type RejectedError struct {
	Message string
}

func (e *RejectedError) Error() string {
	return e.Message
}

func (e *RejectedError) Unwrap() error {
	return apperrors.ErrRequestRejected
}

func parseAuthResponse(raw json.RawMessage) (*authPayload, error) {
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode auth response: %v", err)
	}

	message, _ := doc["message"].(string)
	if success, ok := doc["success"].(bool); ok && !success {
		if message == "" {
			message = "request was not successful"
		}
		return nil, &RejectedError{Message: message}
	}

	payload := &authPayload{
		Token:        findToken(doc),
		RefreshToken: firstString(doc, []string{"refreshToken"}, []string{"data", "refreshToken"}),
		Message:      message,
	}

	user, err := findUser(doc)
	if err != nil {
		return nil, err
	}
	payload.User = user
	return payload, nil
}

func findToken(doc map[string]any) string {
	for _, path := range tokenPaths {
		if s, ok := lookupPath(doc, path).(string); ok && s != "" {
			return s
		}
	}
	token, _ := scanForSignedToken(doc)
	return token
}

// scanForSignedToken walks every object in key order and returns the first
// string shaped like a JWT.
func scanForSignedToken(v any) (string, bool) {
	switch node := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(node))
		for k := range node {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			if _, skip := refreshTokenFields[k]; skip {
				continue
			}
			if s, ok := node[k].(string); ok {
				if looksSigned(s) {
					return s, true
				}
				continue
			}
			if token, ok := scanForSignedToken(node[k]); ok {
				return token, true
			}
		}
	case []any:
		for _, item := range node {
			if token, ok := scanForSignedToken(item); ok {
				return token, true
			}
		}
	}
	return "", false
}

// looksSigned reports whether s has three non-empty base64url segments.
func looksSigned(s string) bool {
	parts := strings.Split(s, ".")
	if len(parts) != 3 {
		return false
	}
	for _, p := range parts {
		if p == "" || strings.IndexFunc(p, notBase64URL) >= 0 {
			return false
		}
	}
	return true
}

func notBase64URL(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '=':
		return false
	}
	return true
}

func findUser(doc map[string]any) (*UserRecord, error) {
	raw := lookupPath(doc, []string{"user"})
	if raw == nil {
		raw = lookupPath(doc, []string{"data", "user"})
	}
	if raw == nil {
		return nil, nil
	}
	if _, ok := raw.(map[string]any); !ok {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, errors.Wrap(err, "re-encode user")
	}
	var user UserRecord
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode user: %v", err)
	}
	return &user, nil
}

func lookupPath(doc map[string]any, path []string) any {
	var cur any = doc
	for _, part := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		cur, ok = obj[part]
		if !ok {
			return nil
		}
	}
	return cur
}

func firstString(doc map[string]any, paths ...[]string) string {
	for _, p := range paths {
		if s, ok := lookupPath(doc, p).(string); ok && s != "" {
			return s
		}
	}
	return ""
}
