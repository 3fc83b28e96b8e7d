package collections

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// SessionGate is the view of the session a collection needs. Token is the
// in-memory credential, sent explicitly so a session the store failed to
// persist can still reach the API.
type SessionGate interface {
	IsAuthenticated() bool
	Token() string
	Expire(cause error)
}

// kind describes the endpoints and semantics of one collection.
type kind struct {
	name      string
	path      string
	clearPath string
	hasTotal  bool
}

// collection is the state machine shared by Cart and Wishlist.
type collection struct {
	kind kind
	api  transport.Doer
	gate SessionGate

	lock        sync.Mutex
	state       State
	pending     int    // operations in flight, drives State.Loading
	epoch       uint64 // bumped by Reset, older responses are dropped
	fetchSeq    uint64
	cancelFetch context.CancelFunc
	mutating    int
	overlapped  bool // a mutation started while another was in flight
}

func newCollection(k kind, api transport.Doer, gate SessionGate) (*collection, error) {
	if api == nil {
		return nil, errors.Errorf("[New%s] transport is required", k.name)
	}
	if gate == nil {
		return nil, errors.Errorf("[New%s] session gate is required", k.name)
	}
	return &collection{
		kind:  k,
		api:   api,
		gate:  gate,
		state: State{Items: []Item{}},
	}, nil
}

// State returns a copy of the current state.
func (c *collection) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.snapshotLocked()
}

// Contains reports whether courseID is in the local state.
func (c *collection) Contains(courseID string) bool {
	c.lock.Lock()
	defer c.lock.Unlock()
	return indexOf(c.state.Items, courseID) >= 0
}

// Reset empties the collection and discards the result of any request
// still in flight.
func (c *collection) Reset() {
	c.lock.Lock()
	defer c.lock.Unlock()

	c.epoch++
	if c.cancelFetch != nil {
		c.cancelFetch()
		c.cancelFetch = nil
	}
	c.state = State{Items: []Item{}}
}

// Fetch replaces the local state with the server's. An anonymous session
// has an empty collection and makes no request. When fetches overlap only
// the most recently issued one is applied.
func (c *collection) Fetch(ctx context.Context) (State, error) {
	if !c.gate.IsAuthenticated() {
		c.Reset()
		return c.State(), nil
	}

	c.lock.Lock()
	c.fetchSeq++
	seq, epoch := c.fetchSeq, c.epoch
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	fetchCtx, cancel := context.WithCancel(ctx)
	c.cancelFetch = cancel
	c.pending++
	c.lock.Unlock()
	defer cancel()

	raw, err := c.api.Do(fetchCtx, transport.Request{Method: http.MethodGet, Path: c.kind.path, Authenticated: true, Token: c.gate.Token()})

	var snap *snapshot
	if err == nil {
		snap, err = c.decode(raw)
	}

	c.lock.Lock()
	c.pending--
	current := seq == c.fetchSeq && epoch == c.epoch
	if current {
		c.cancelFetch = nil
	}
	if !current {
		state := c.snapshotLocked()
		c.lock.Unlock()
		log.Debug().Str("collection", c.kind.name).Msg("dropping superseded fetch")
		if ctxErr := ctx.Err(); ctxErr != nil {
			return state, ctxErr
		}
		return state, nil
	}

	switch {
	case err == nil:
		c.replaceLocked(snap)
		state := c.snapshotLocked()
		c.lock.Unlock()
		return state, nil

	case ctx.Err() != nil:
		state := c.snapshotLocked()
		c.lock.Unlock()
		return state, ctx.Err()

	case apperrors.IsAuthError(err):
		c.state = State{Items: []Item{}}
		state := c.snapshotLocked()
		c.lock.Unlock()
		c.expireOn(err)
		return state, nil

	default:
		c.state.Error = errorMessage(err)
		state := c.snapshotLocked()
		c.lock.Unlock()
		log.Err(err).Str("collection", c.kind.name).Msg("fetch failed")
		return state, err
	}
}

// Add puts courseID into the collection. The server's snapshot becomes the
// new local state.
func (c *collection) Add(ctx context.Context, courseID string) (State, error) {
	if strings.TrimSpace(courseID) == "" {
		return c.State(), apperrors.NewValidationError("courseId", "Course ID is required.")
	}
	if err := c.requireSignIn("add items to"); err != nil {
		return c.State(), err
	}

	req := transport.Request{
		Method:        http.MethodPost,
		Path:          c.kind.path,
		Body:          map[string]string{"courseId": courseID},
		Authenticated: true,
	}
	return c.mutate(ctx, "add", req, func(raw json.RawMessage) error {
		snap, err := c.decode(raw)
		if err != nil {
			return err
		}
		if snap != nil && snap.single {
			c.mergeLocked(snap.items[0])
			return nil
		}
		if snap == nil {
			return errReconcile
		}
		c.replaceLocked(snap)
		return nil
	})
}

// Remove deletes courseID on the server and then locally. It is not guarded
// by local membership; the server decides whether the item exists.
func (c *collection) Remove(ctx context.Context, courseID string) (State, error) {
	if strings.TrimSpace(courseID) == "" {
		return c.State(), apperrors.NewValidationError("courseId", "Course ID is required.")
	}
	if err := c.requireSignIn("remove items from"); err != nil {
		return c.State(), err
	}
	req := transport.Request{
		Method:        http.MethodDelete,
		Path:          transport.ItemPath(c.kind.path, courseID),
		Authenticated: true,
	}
	return c.mutate(ctx, "remove", req, func(raw json.RawMessage) error {
		if _, err := unwrapData(raw); err != nil {
			return err
		}
		if i := indexOf(c.state.Items, courseID); i >= 0 {
			c.state.Items = append(c.state.Items[:i:i], c.state.Items[i+1:]...)
		}
		c.recomputeTotalLocked()
		return nil
	})
}

func (c *collection) clear(ctx context.Context) (State, error) {
	if err := c.requireSignIn("clear"); err != nil {
		return c.State(), err
	}
	req := transport.Request{Method: http.MethodDelete, Path: c.kind.clearPath, Authenticated: true}
	return c.mutate(ctx, "clear", req, func(raw json.RawMessage) error {
		if _, err := unwrapData(raw); err != nil {
			return err
		}
		c.state.Items = []Item{}
		c.state.Total = 0
		return nil
	})
}

// errReconcile asks mutate to follow a successful response with a fetch.
var errReconcile = errors.New("response carried no snapshot")

// mutate runs req and applies its response under the lock. Failures leave
// the state unchanged. When mutations overlapped, the last to finish
// fetches so the state reflects every confirmed change.
func (c *collection) mutate(ctx context.Context, op string, req transport.Request, apply func(raw json.RawMessage) error) (State, error) {
	req.Token = c.gate.Token()

	c.lock.Lock()
	epoch := c.epoch
	c.pending++
	c.mutating++
	if c.mutating > 1 {
		c.overlapped = true
	}
	c.lock.Unlock()

	raw, err := c.api.Do(ctx, req)

	c.lock.Lock()
	c.pending--
	c.mutating--
	reconcile := c.mutating == 0 && c.overlapped
	if reconcile {
		c.overlapped = false
	}
	stale := epoch != c.epoch
	if err == nil && !stale {
		before := c.state.clone()
		if applyErr := apply(raw); applyErr != nil {
			c.state = before
			if errors.Is(applyErr, errReconcile) {
				reconcile = true
			} else {
				err = applyErr
			}
		}
	}
	state := c.snapshotLocked()
	c.lock.Unlock()

	if err != nil {
		err = c.classify(err)
		if stale {
			log.Debug().Err(err).Str("collection", c.kind.name).Str("op", op).Msg("ignoring failure from a reset session")
			return state, err
		}
		c.expireOn(err)
		log.Debug().Err(err).Str("collection", c.kind.name).Str("op", op).Msg("mutation failed")
		if apperrors.IsAuthError(err) {
			return state, err
		}
	}

	if reconcile && c.gate.IsAuthenticated() {
		if fetched, fetchErr := c.Fetch(ctx); fetchErr == nil {
			state = fetched
		} else {
			log.Warn().Err(fetchErr).Str("collection", c.kind.name).Msg("reconcile fetch failed")
		}
	}
	return state, err
}

func (c *collection) requireSignIn(action string) error {
	if c.gate.IsAuthenticated() {
		return nil
	}
	return errors.Wrapf(apperrors.ErrNotSignedIn, "Please sign in to %s your %s", action, c.kind.name)
}

func (c *collection) decode(raw json.RawMessage) (*snapshot, error) {
	data, err := unwrapData(raw)
	if err != nil {
		return nil, err
	}
	return decodeSnapshot(data)
}

// classify maps "already present" rejections onto ErrAlreadyInCollection.
func (c *collection) classify(err error) error {
	var httpErr *apperrors.HTTPError
	if errors.As(err, &httpErr) {
		if httpErr.Status == http.StatusConflict ||
			(httpErr.Status == http.StatusBadRequest && mentionsAlready(httpErr.Message)) {
			return errors.Wrap(apperrors.ErrAlreadyInCollection, httpErr.Message)
		}
		return err
	}
	if errors.Is(err, apperrors.ErrRequestRejected) && mentionsAlready(err.Error()) {
		return errors.Wrap(apperrors.ErrAlreadyInCollection, err.Error())
	}
	return err
}

func (c *collection) expireOn(err error) {
	if errors.Is(err, apperrors.ErrSessionExpired) {
		c.gate.Expire(err)
	}
}

func (c *collection) replaceLocked(snap *snapshot) {
	if snap == nil {
		c.state.Items = []Item{}
		c.state.Total = 0
		c.state.Error = ""
		return
	}
	c.state.Items = snap.items
	c.state.Error = ""
	if c.kind.hasTotal && snap.total != nil {
		c.state.Total = *snap.total
	} else {
		c.recomputeTotalLocked()
	}
}

func (c *collection) mergeLocked(item Item) {
	if indexOf(c.state.Items, item.Course.ID) < 0 {
		c.state.Items = append(c.state.Items, item)
	}
	c.recomputeTotalLocked()
}

func (c *collection) recomputeTotalLocked() {
	if c.kind.hasTotal {
		c.state.Total = sumPrices(c.state.Items)
	} else {
		c.state.Total = 0
	}
}

func (c *collection) snapshotLocked() State {
	s := c.state.clone()
	s.Loading = c.pending > 0
	return s
}

func mentionsAlready(message string) bool {
	return strings.Contains(strings.ToLower(message), "already")
}

func errorMessage(err error) string {
	var httpErr *apperrors.HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr.Message
	case errors.Is(err, apperrors.ErrNetworkUnavailable):
		return "Unable to reach the server. Please check your connection."
	}
	return err.Error()
}
