package transportfake

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-storefront-client/credentials"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/transport"
)

// Responder produces the result of one fake call.
type Responder func(req transport.Request) (json.RawMessage, error)

// FakeAPI is an in-memory transport.Doer with scripted routes
type FakeAPI struct {
	lock   sync.RWMutex
	store  credentials.Store
	routes map[string]Responder
	calls  []transport.Request
}

var _ transport.Doer = (*FakeAPI)(nil)

// NewFakeAPI creates a FakeAPI. When store is non-nil, authenticated
// requests without a stored token fail with ErrAuthRequired and are not
// recorded, mirroring the real client.
func NewFakeAPI(store credentials.Store) *FakeAPI {
	return &FakeAPI{
		store:  store,
		routes: make(map[string]Responder),
	}
}

// Handle scripts the response for method and path.
func (f *FakeAPI) Handle(method, path string, r Responder) {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.routes[method+" "+path] = r
}

// Do records req and runs its responder. Unscripted routes return 404.
func (f *FakeAPI) Do(ctx context.Context, req transport.Request) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	if req.Authenticated && req.Token == "" && f.store != nil {
		if _, _, ok := credentials.LookupToken(f.store); !ok {
			return nil, apperrors.ErrAuthRequired
		}
	}

	f.lock.Lock()
	f.calls = append(f.calls, req)
	r, ok := f.routes[req.Method+" "+req.Path]
	f.lock.Unlock()

	if !ok {
		return nil, &apperrors.HTTPError{Status: http.StatusNotFound, Message: "Route not found"}
	}
	return r(req)
}

// Calls returns every recorded request in order.
func (f *FakeAPI) Calls() []transport.Request {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return append([]transport.Request(nil), f.calls...)
}

// CallCount returns the number of recorded requests.
func (f *FakeAPI) CallCount() int {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return len(f.calls)
}

// JSON always answers body.
func JSON(body string) Responder {
	return func(transport.Request) (json.RawMessage, error) {
		return json.RawMessage(body), nil
	}
}

// Fail always answers err.
func Fail(err error) Responder {
	return func(transport.Request) (json.RawMessage, error) {
		return nil, err
	}
}
