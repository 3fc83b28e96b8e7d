package session

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-storefront-client/credentials"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	msgSessionExpired = "Session expired. Please login again."
	msgNetwork        = "Unable to reach the server. Please check your connection."
)

// Listener is called after every state transition with the previous and
// the new state.
type Listener func(prev, next State)

type subscription struct {
	id       int
	listener Listener
}

// Manager owns the session state machine and is the only writer of the
// credential store, apart from the transport discarding a rejected token.
type Manager struct {
	store   credentials.Store
	api     transport.Doer
	nowTime func() time.Time

	lock      sync.Mutex
	state     State
	authSeq   uint64 // bumped by every login, register, logout and expiry
	subs      []subscription
	nextSubID int
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithNowTime sets the clock used for token expiry checks (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// NewManager creates an anonymous Manager. Call Rehydrate to adopt a
// credential persisted by a previous run.
func NewManager(store credentials.Store, api transport.Doer, options ...ManagerOption) (*Manager, error) {
	if store == nil {
		return nil, errors.New("[NewManager] credential store is required")
	}
	if api == nil {
		return nil, errors.New("[NewManager] transport is required")
	}

	m := &Manager{
		store:   store,
		api:     api,
		nowTime: time.Now,
		state:   State{Status: StatusAnonymous},
	}
	for _, opt := range options {
		opt(m)
	}
	return m, nil
}

// State returns a copy of the current state.
func (m *Manager) State() State {
	m.lock.Lock()
	defer m.lock.Unlock()
	return m.state.clone()
}

// IsAuthenticated reports whether the session holds a token and a user.
func (m *Manager) IsAuthenticated() bool {
	return m.State().IsAuthenticated()
}

// Token returns the in-memory access token of an authenticated session.
func (m *Manager) Token() string {
	s := m.State()
	if !s.IsAuthenticated() {
		return ""
	}
	return s.Token
}

// TokenExpired reports whether the current token carries an exp claim that
// has passed. Tokens without one never expire client-side.
func (m *Manager) TokenExpired() bool {
	s := m.State()
	return !s.ExpiresAt.IsZero() && !m.nowTime().Before(s.ExpiresAt)
}

// Subscribe registers l for state transitions and returns a function that
// removes it.
func (m *Manager) Subscribe(l Listener) func() {
	m.lock.Lock()
	m.nextSubID++
	id := m.nextSubID
	m.subs = append(m.subs, subscription{id: id, listener: l})
	m.lock.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.lock.Lock()
			defer m.lock.Unlock()
			for i, s := range m.subs {
				if s.id == id {
					m.subs = append(m.subs[:i:i], m.subs[i+1:]...)
					return
				}
			}
		})
	}
}

// Login authenticates with email and password.
func (m *Manager) Login(ctx context.Context, creds LoginCredentials) (State, error) {
	if err := creds.Validate(); err != nil {
		return m.State(), err
	}
	seq := m.beginAuth()
	raw, err := m.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: transport.PathLogin, Body: creds})
	return m.completeAuth(seq, "login", raw, err)
}

// Register validates data locally and, when it passes, creates the account
// and signs in. A validation failure makes no network call and leaves the
// state untouched.
func (m *Manager) Register(ctx context.Context, data RegistrationData) (State, error) {
	if err := data.Validate(); err != nil {
		return m.State(), err
	}
	seq := m.beginAuth()
	raw, err := m.api.Do(ctx, transport.Request{Method: http.MethodPost, Path: transport.PathRegister, Body: data.request()})
	return m.completeAuth(seq, "register", raw, err)
}

// Logout tells the server the session is over and then clears the local
// credential. The local clear happens even when the server call fails.
func (m *Manager) Logout(ctx context.Context) State {
	token := m.Token()
	if _, _, ok := credentials.LookupToken(m.store); ok || token != "" {
		if _, err := m.api.Do(ctx, transport.Request{
			Method:        http.MethodPost,
			Path:          transport.PathLogout,
			Body:          struct{}{},
			Authenticated: true,
			Token:         token,
		}); err != nil {
			log.Warn().Err(err).Msg("server logout failed, clearing local session")
		}
	}

	m.lock.Lock()
	m.authSeq++
	m.lock.Unlock()

	credentials.Purge(m.store)
	m.setState(State{Status: StatusAnonymous})
	return m.State()
}

// Rehydrate adopts the persisted credential when both a token and a user
// are stored, and is Anonymous otherwise. It makes no network call.
func (m *Manager) Rehydrate() State {
	next := State{Status: StatusAnonymous}

	token, ok := m.store.Get(credentials.KeyAuthToken)
	userJSON, hasUser := m.store.Get(credentials.KeyUser)
	if ok && token != "" && hasUser {
		var user UserRecord
		if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
			log.Warn().Err(err).Msg("stored user is unreadable, staying anonymous")
		} else if user.valid() {
			next = State{
				Status:    StatusAuthenticated,
				User:      &user,
				Token:     token,
				ExpiresAt: tokenExpiry(token),
			}
		}
	}

	if m.State().sameIdentity(next) {
		return m.State()
	}
	m.setState(next)
	return m.State()
}

// Profile fetches the signed-in user and updates the stored record.
func (m *Manager) Profile(ctx context.Context) (*UserRecord, error) {
	raw, err := m.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: transport.PathProfile, Authenticated: true, Token: m.Token()})
	if err != nil {
		m.expireOn(err)
		return nil, err
	}

	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, apperrors.Wrapf(apperrors.ErrInvalidResponseBody, "decode profile: %v", err)
	}
	user, err := findUser(doc)
	if err != nil {
		return nil, err
	}
	if user == nil {
		// Some versions return the user as the data field itself.
		if data, ok := doc["data"].(map[string]any); ok {
			user, err = findUser(map[string]any{"user": data})
			if err != nil {
				return nil, err
			}
		}
	}
	if !user.valid() {
		return nil, ErrMissingUser
	}

	m.lock.Lock()
	current := m.state.clone()
	m.lock.Unlock()
	if current.IsAuthenticated() {
		if err := m.storeUser(user); err != nil {
			log.Warn().Err(err).Msg("could not persist refreshed profile")
		}
		current.User = user
		m.setState(current)
	}
	u := *user
	return &u, nil
}

// Refresh exchanges the stored refresh token for a new credential. Any
// failure ends the session.
func (m *Manager) Refresh(ctx context.Context) (State, error) {
	refreshToken, ok := m.store.Get(credentials.KeyRefreshToken)
	if !ok || refreshToken == "" {
		m.Expire(apperrors.ErrAuthRequired)
		return m.State(), errors.Wrap(apperrors.ErrAuthRequired, "no refresh token")
	}

	m.lock.Lock()
	seq := m.authSeq
	prevUser := m.state.User
	m.lock.Unlock()

	raw, err := m.api.Do(ctx, transport.Request{
		Method: http.MethodPost,
		Path:   transport.PathRefresh,
		Body:   map[string]string{"refreshToken": refreshToken},
	})
	if err == nil {
		var payload *authPayload
		payload, err = parseAuthResponse(raw)
		if err == nil && payload.Token == "" {
			err = ErrMissingToken
		}
		if err == nil {
			if payload.User == nil && prevUser != nil {
				u := *prevUser
				payload.User = &u
			}
			if payload.RefreshToken == "" {
				payload.RefreshToken = refreshToken
			}
			return m.adopt(seq, "refresh", payload)
		}
	}

	log.Warn().Err(err).Msg("token refresh failed, ending session")
	m.Expire(err)
	return m.State(), apperrors.Wrapf(apperrors.ErrSessionExpired, "refresh: %v", err)
}

// Expire ends an authenticated session after the server rejected its
// credential. It is a no-op for sessions that are not authenticated.
func (m *Manager) Expire(cause error) {
	m.lock.Lock()
	wasAuthenticated := m.state.Status == StatusAuthenticated
	if wasAuthenticated {
		m.authSeq++
	}
	m.lock.Unlock()

	credentials.Purge(m.store)
	if !wasAuthenticated {
		return
	}
	log.Info().AnErr("cause", cause).Msg("session expired")
	m.setState(State{Status: StatusAnonymous, Error: msgSessionExpired})
}

func (m *Manager) expireOn(err error) {
	if errors.Is(err, apperrors.ErrSessionExpired) {
		m.Expire(err)
	}
}

func (m *Manager) beginAuth() uint64 {
	m.lock.Lock()
	m.authSeq++
	seq := m.authSeq
	m.lock.Unlock()

	m.setState(State{Status: StatusLoading})
	return seq
}

func (m *Manager) completeAuth(seq uint64, op string, raw json.RawMessage, err error) (State, error) {
	if err != nil {
		return m.fail(seq, op, err)
	}
	payload, err := parseAuthResponse(raw)
	if err != nil {
		return m.fail(seq, op, err)
	}
	if payload.Token == "" {
		return m.fail(seq, op, ErrMissingToken)
	}
	if !payload.User.valid() {
		return m.fail(seq, op, ErrMissingUser)
	}
	return m.adopt(seq, op, payload)
}

// adopt persists payload and moves to Authenticated unless a later
// operation has already superseded seq.
func (m *Manager) adopt(seq uint64, op string, payload *authPayload) (State, error) {
	m.lock.Lock()
	stale := seq != m.authSeq
	m.lock.Unlock()
	if stale {
		log.Debug().Str("op", op).Msg("discarding superseded auth response")
		return m.State(), errors.Errorf("%s superseded by a later session change", op)
	}

	next := State{
		Status:    StatusAuthenticated,
		User:      payload.User,
		Token:     payload.Token,
		ExpiresAt: tokenExpiry(payload.Token),
	}
	if err := m.persist(payload); err != nil {
		log.Warn().Err(err).Str("op", op).Msg("signed in but credential was not persisted")
		next.Degraded = true
		next.Error = "Signed in, but the session could not be saved: " + err.Error()
	}

	log.Info().Str("op", op).Str("user", payload.User.Email).Msg("signed in")
	m.setState(next)
	return m.State(), nil
}

func (m *Manager) fail(seq uint64, op string, err error) (State, error) {
	m.lock.Lock()
	stale := seq != m.authSeq
	m.lock.Unlock()

	log.Err(err).Str("op", op).Msg("authentication failed")
	if !stale {
		m.setState(State{Status: StatusError, Error: failureMessage(err)})
	}
	return m.State(), err
}

func (m *Manager) persist(payload *authPayload) error {
	if err := m.store.Set(credentials.KeyAuthToken, payload.Token); err != nil {
		return errors.Wrap(err, "store token")
	}
	if err := m.storeUser(payload.User); err != nil {
		return err
	}
	if payload.RefreshToken != "" {
		if err := m.store.Set(credentials.KeyRefreshToken, payload.RefreshToken); err != nil {
			return errors.Wrap(err, "store refresh token")
		}
	} else {
		m.store.Remove(credentials.KeyRefreshToken)
	}
	return nil
}

func (m *Manager) storeUser(user *UserRecord) error {
	data, err := json.Marshal(user)
	if err != nil {
		return errors.Wrap(err, "encode user")
	}
	return errors.Wrap(m.store.Set(credentials.KeyUser, string(data)), "store user")
}

func (m *Manager) setState(next State) {
	m.lock.Lock()
	prev := m.state
	m.state = next.clone()
	subs := append([]subscription(nil), m.subs...)
	m.lock.Unlock()

	for _, s := range subs {
		s.listener(prev.clone(), next.clone())
	}
}

func failureMessage(err error) string {
	var rejected *RejectedError
	var httpErr *apperrors.HTTPError
	switch {
	case errors.As(err, &rejected):
		return rejected.Message
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.Is(err, apperrors.ErrNetworkUnavailable):
		return msgNetwork
	case errors.Is(err, apperrors.ErrSessionExpired):
		return msgSessionExpired
	}
	return err.Error()
}

// tokenExpiry reads the exp claim without verifying the signature; the
// client never holds the signing key.
func tokenExpiry(token string) time.Time {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}
