package collections_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-storefront-client/collections"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/transport"
	"github.com/jrsteele09/go-storefront-client/transport/transportfake"
	"github.com/stretchr/testify/require"
)

const coursePrice = 19.99

// fakeGate stands in for the session manager.
type fakeGate struct {
	authenticated atomic.Bool
	lock          sync.Mutex
	token         string
	expired       []error
}

func (g *fakeGate) IsAuthenticated() bool {
	return g.authenticated.Load()
}

func (g *fakeGate) Token() string {
	g.lock.Lock()
	defer g.lock.Unlock()
	return g.token
}

func (g *fakeGate) Expire(cause error) {
	g.lock.Lock()
	defer g.lock.Unlock()
	g.authenticated.Store(false)
	g.expired = append(g.expired, cause)
}

func (g *fakeGate) expiries() int {
	g.lock.Lock()
	defer g.lock.Unlock()
	return len(g.expired)
}

// fakeBackend is a server-side collection answering like the storefront API.
type fakeBackend struct {
	lock      sync.Mutex
	courseIDs []string
	name      string
}

func itemJSON(courseID string) string {
	return fmt.Sprintf(`{"_id":"item-%s","course":{"_id":"%s","title":"Course %s","price":%v,"duration":12},"addedAt":"2026-01-01T00:00:00Z"}`,
		courseID, courseID, courseID, coursePrice)
}

func (b *fakeBackend) snapshotLocked() string {
	items := make([]string, 0, len(b.courseIDs))
	for _, id := range b.courseIDs {
		items = append(items, itemJSON(id))
	}
	list := "[" + strings.Join(items, ",") + "]"
	if b.name == "wishlist" {
		return `{"success":true,"data":` + list + `}`
	}
	return fmt.Sprintf(`{"success":true,"data":{"items":%s,"total":%v,"itemCount":%d}}`, list, coursePrice*float64(len(items)), len(items))
}

func (b *fakeBackend) get(transport.Request) (json.RawMessage, error) {
	b.lock.Lock()
	defer b.lock.Unlock()
	return json.RawMessage(b.snapshotLocked()), nil
}

func (b *fakeBackend) add(req transport.Request) (json.RawMessage, error) {
	courseID := req.Body.(map[string]string)["courseId"]
	b.lock.Lock()
	defer b.lock.Unlock()
	for _, id := range b.courseIDs {
		if id == courseID {
			return nil, &apperrors.HTTPError{Status: http.StatusConflict, Message: "Course already in " + b.name}
		}
	}
	b.courseIDs = append(b.courseIDs, courseID)
	return json.RawMessage(b.snapshotLocked()), nil
}

func (b *fakeBackend) remove(courseID string) transportfake.Responder {
	return func(transport.Request) (json.RawMessage, error) {
		b.lock.Lock()
		defer b.lock.Unlock()
		for i, id := range b.courseIDs {
			if id == courseID {
				b.courseIDs = append(b.courseIDs[:i], b.courseIDs[i+1:]...)
				return json.RawMessage(`{"success":true,"message":"Removed"}`), nil
			}
		}
		return nil, &apperrors.HTTPError{Status: http.StatusNotFound, Message: "Course not found in " + b.name}
	}
}

// testFixture holds a cart and wishlist wired to a scripted API
type testFixture struct {
	api      *transportfake.FakeAPI
	gate     *fakeGate
	cart     *collections.Cart
	wishlist *collections.Wishlist
	carts    *fakeBackend
	wishes   *fakeBackend
}

func setupTestFixture(t *testing.T, courseIDs ...string) *testFixture {
	t.Helper()

	f := &testFixture{
		api:    transportfake.NewFakeAPI(nil),
		gate:   &fakeGate{},
		carts:  &fakeBackend{name: "cart"},
		wishes: &fakeBackend{name: "wishlist"},
	}
	f.gate.authenticated.Store(true)
	f.gate.token = "a.b.session"

	f.api.Handle(http.MethodGet, transport.PathCart, f.carts.get)
	f.api.Handle(http.MethodPost, transport.PathCart, f.carts.add)
	f.api.Handle(http.MethodGet, transport.PathWishlist, f.wishes.get)
	f.api.Handle(http.MethodPost, transport.PathWishlist, f.wishes.add)
	for _, id := range courseIDs {
		f.api.Handle(http.MethodDelete, transport.ItemPath(transport.PathCart, id), f.carts.remove(id))
		f.api.Handle(http.MethodDelete, transport.ItemPath(transport.PathWishlist, id), f.wishes.remove(id))
	}

	var err error
	f.cart, err = collections.NewCart(f.api, f.gate)
	require.NoError(t, err)
	f.wishlist, err = collections.NewWishlist(f.api, f.gate)
	require.NoError(t, err)
	return f
}

func courseIDs(s collections.State) []string {
	ids := make([]string, 0, len(s.Items))
	for _, item := range s.Items {
		ids = append(ids, item.Course.ID)
	}
	return ids
}

func TestNewCart_Validation(t *testing.T) {
	_, err := collections.NewCart(nil, &fakeGate{})
	require.Error(t, err)

	_, err = collections.NewWishlist(transportfake.NewFakeAPI(nil), nil)
	require.Error(t, err)
}

func TestFetch_Anonymous(t *testing.T) {
	f := setupTestFixture(t)
	f.gate.authenticated.Store(false)

	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, s.Items)
	require.Zero(t, s.Total)

	_, err = f.wishlist.Fetch(context.Background())
	require.NoError(t, err)
	require.Zero(t, f.api.CallCount())
}

func TestFetch_Cart(t *testing.T) {
	f := setupTestFixture(t)
	f.carts.courseIDs = []string{"c1", "c2"}

	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"c1", "c2"}, courseIDs(s))
	require.InDelta(t, 2*coursePrice, s.Total, 0.001)
	require.Equal(t, "item-c1", s.Items[0].ID)
	require.Equal(t, "12", s.Items[0].Course.Duration)
	require.False(t, s.Loading)
	require.True(t, f.cart.Contains("c2"))
}

func TestFetch_Wishlist(t *testing.T) {
	f := setupTestFixture(t)
	f.wishes.courseIDs = []string{"w1"}

	s, err := f.wishlist.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"w1"}, courseIDs(s))
	require.Zero(t, s.Total)
}

func TestFetch_DeduplicatesByCourse(t *testing.T) {
	f := setupTestFixture(t)
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.JSON(
		`{"success":true,"data":{"items":[`+itemJSON("c1")+`,`+itemJSON("c1")+`]}}`))

	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, s.Items, 1)
	require.InDelta(t, coursePrice, s.Total, 0.001)
}

func TestFetch_AuthErrorDegrades(t *testing.T) {
	f := setupTestFixture(t)
	f.carts.courseIDs = []string{"c1"}
	_, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)

	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.Fail(apperrors.ErrSessionExpired))
	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, s.Items)
	require.Equal(t, 1, f.gate.expiries())
}

func TestFetch_FailureKeepsItems(t *testing.T) {
	f := setupTestFixture(t)
	f.carts.courseIDs = []string{"c1"}
	_, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)

	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.Fail(apperrors.Wrapf(apperrors.ErrNetworkUnavailable, "dial")))
	s, err := f.cart.Fetch(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
	require.Equal(t, []string{"c1"}, courseIDs(s))
	require.NotEmpty(t, s.Error)

	f.api.Handle(http.MethodGet, transport.PathCart, f.carts.get)
	s, err = f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Empty(t, s.Error)
}

func TestFetch_LastIssuedWins(t *testing.T) {
	f := setupTestFixture(t)
	release := make(chan struct{})
	var calls atomic.Int32
	f.api.Handle(http.MethodGet, transport.PathCart, func(req transport.Request) (json.RawMessage, error) {
		if calls.Add(1) == 1 {
			<-release
			return json.RawMessage(`{"success":true,"data":{"items":[` + itemJSON("old") + `]}}`), nil
		}
		return json.RawMessage(`{"success":true,"data":{"items":[` + itemJSON("new") + `]}}`), nil
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.cart.Fetch(context.Background())
		done <- err
	}()
	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	require.True(t, f.cart.State().Loading)

	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"new"}, courseIDs(s))

	close(release)
	require.NoError(t, <-done)
	require.Equal(t, []string{"new"}, courseIDs(f.cart.State()))
	require.False(t, f.cart.State().Loading)
}

func TestReset_DropsInFlightResponse(t *testing.T) {
	f := setupTestFixture(t)
	release := make(chan struct{})
	f.api.Handle(http.MethodGet, transport.PathCart, func(transport.Request) (json.RawMessage, error) {
		<-release
		return json.RawMessage(`{"success":true,"data":{"items":[` + itemJSON("c1") + `]}}`), nil
	})

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, _ = f.cart.Fetch(context.Background())
	}()
	require.Eventually(t, func() bool { return f.api.CallCount() == 1 }, time.Second, 5*time.Millisecond)

	f.cart.Reset()
	close(release)
	<-done
	require.Empty(t, f.cart.State().Items)
}

func TestAdd_RequiresSignIn(t *testing.T) {
	f := setupTestFixture(t)
	f.gate.authenticated.Store(false)

	_, err := f.cart.Add(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	_, err = f.wishlist.Add(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	require.Zero(t, f.api.CallCount())
}

func TestRemoveClear_RequireSignIn(t *testing.T) {
	f := setupTestFixture(t, "c1")
	f.gate.authenticated.Store(false)

	_, err := f.cart.Remove(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	_, err = f.wishlist.Remove(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	_, err = f.cart.Clear(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNotSignedIn)
	require.Zero(t, f.api.CallCount())
}

func TestRequests_SendSessionToken(t *testing.T) {
	f := setupTestFixture(t, "c1")
	f.api.Handle(http.MethodDelete, transport.PathCartClear, transportfake.JSON(`{"success":true}`))

	_, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)
	_, err = f.cart.Add(context.Background(), "c1")
	require.NoError(t, err)
	_, err = f.cart.Remove(context.Background(), "c1")
	require.NoError(t, err)
	_, err = f.cart.Clear(context.Background())
	require.NoError(t, err)

	calls := f.api.Calls()
	require.Len(t, calls, 4)
	for _, call := range calls {
		require.Equal(t, "a.b.session", call.Token, "%s %s", call.Method, call.Path)
	}
}

func TestAdd_FailureAfterResetDoesNotExpire(t *testing.T) {
	f := setupTestFixture(t)
	release := make(chan struct{})
	f.api.Handle(http.MethodPost, transport.PathCart, func(transport.Request) (json.RawMessage, error) {
		<-release
		return nil, apperrors.ErrSessionExpired
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.cart.Add(context.Background(), "c1")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.api.CallCount() == 1 }, time.Second, 5*time.Millisecond)

	// The session ends and a new one starts before the old request answers.
	f.cart.Reset()
	f.gate.lock.Lock()
	f.gate.token = "a.b.next"
	f.gate.lock.Unlock()
	close(release)

	require.ErrorIs(t, <-done, apperrors.ErrSessionExpired)
	require.Zero(t, f.gate.expiries())
	require.True(t, f.gate.IsAuthenticated())
	require.Empty(t, f.cart.State().Items)
}

func TestAdd_EmptyCourseID(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.cart.Add(context.Background(), " ")
	require.ErrorIs(t, err, apperrors.ErrValidation)
	require.Zero(t, f.api.CallCount())
}

func TestAddRemove_RoundTrip(t *testing.T) {
	f := setupTestFixture(t, "c1")
	initial, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)

	s, err := f.cart.Add(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, []string{"c1"}, courseIDs(s))
	require.InDelta(t, coursePrice, s.Total, 0.001)

	s, err = f.cart.Remove(context.Background(), "c1")
	require.NoError(t, err)
	require.Equal(t, initial, s)

	calls := f.api.Calls()
	require.Equal(t, map[string]string{"courseId": "c1"}, calls[1].Body)
	require.Equal(t, "/api/cart/c1", calls[2].Path)
	require.True(t, calls[2].Authenticated)
}

func TestAdd_Duplicate(t *testing.T) {
	f := setupTestFixture(t)
	_, err := f.cart.Add(context.Background(), "c1")
	require.NoError(t, err)

	s, err := f.cart.Add(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyInCollection)
	require.Contains(t, err.Error(), "Course already in cart")
	require.Equal(t, []string{"c1"}, courseIDs(s))
}

func TestAdd_AlreadyAsBadRequest(t *testing.T) {
	f := setupTestFixture(t)
	f.api.Handle(http.MethodPost, transport.PathWishlist, transportfake.Fail(&apperrors.HTTPError{Status: http.StatusBadRequest, Message: "Course is already in your wishlist"}))

	_, err := f.wishlist.Add(context.Background(), "w1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyInCollection)

	f.api.Handle(http.MethodPost, transport.PathWishlist, transportfake.Fail(&apperrors.HTTPError{Status: http.StatusBadRequest, Message: "Invalid course ID"}))
	_, err = f.wishlist.Add(context.Background(), "w1")
	require.NotErrorIs(t, err, apperrors.ErrAlreadyInCollection)
	require.Equal(t, http.StatusBadRequest, apperrors.StatusCode(err))
}

func TestAdd_RejectedBody(t *testing.T) {
	f := setupTestFixture(t)
	f.api.Handle(http.MethodPost, transport.PathCart, transportfake.JSON(`{"success":false,"message":"Course already purchased"}`))

	s, err := f.cart.Add(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrAlreadyInCollection)
	require.Empty(t, s.Items)
}

func TestAdd_SessionExpired(t *testing.T) {
	f := setupTestFixture(t)
	f.api.Handle(http.MethodPost, transport.PathCart, transportfake.Fail(apperrors.ErrSessionExpired))

	_, err := f.cart.Add(context.Background(), "c1")
	require.ErrorIs(t, err, apperrors.ErrSessionExpired)
	require.Equal(t, 1, f.gate.expiries())
}

func TestRemove_Absent(t *testing.T) {
	f := setupTestFixture(t, "c1", "zz")
	_, err := f.cart.Add(context.Background(), "c1")
	require.NoError(t, err)
	before := f.cart.State()
	callsBefore := f.api.CallCount()

	s, err := f.cart.Remove(context.Background(), "zz")
	require.ErrorIs(t, err, apperrors.ErrNotFound)
	require.Equal(t, before, s)
	require.Equal(t, callsBefore+1, f.api.CallCount())
}

func TestWishlist_SingleItemAdd(t *testing.T) {
	f := setupTestFixture(t)
	f.wishes.courseIDs = []string{"w1"}
	_, err := f.wishlist.Fetch(context.Background())
	require.NoError(t, err)

	f.api.Handle(http.MethodPost, transport.PathWishlist, transportfake.JSON(`{"success":true,"data":`+itemJSON("w2")+`}`))
	s, err := f.wishlist.Add(context.Background(), "w2")
	require.NoError(t, err)
	require.Equal(t, []string{"w1", "w2"}, courseIDs(s))
}

func TestWishlist_AddWithoutData(t *testing.T) {
	f := setupTestFixture(t)
	f.wishes.courseIDs = []string{"w1"}
	f.api.Handle(http.MethodPost, transport.PathWishlist, transportfake.JSON(`{"success":true,"message":"Added"}`))

	s, err := f.wishlist.Add(context.Background(), "w1")
	require.NoError(t, err)
	require.Equal(t, []string{"w1"}, courseIDs(s))
	require.Equal(t, transport.PathWishlist, f.api.Calls()[1].Path)
}

func TestWishlist_Toggle(t *testing.T) {
	f := setupTestFixture(t, "w1")

	s, added, err := f.wishlist.Toggle(context.Background(), "w1")
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, s.Contains("w1"))

	s, added, err = f.wishlist.Toggle(context.Background(), "w1")
	require.NoError(t, err)
	require.False(t, added)
	require.Empty(t, s.Items)
}

func TestCart_Clear(t *testing.T) {
	f := setupTestFixture(t)
	f.carts.courseIDs = []string{"c1", "c2"}
	f.api.Handle(http.MethodDelete, transport.PathCartClear, transportfake.JSON(`{"success":true}`))
	_, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)

	s, err := f.cart.Clear(context.Background())
	require.NoError(t, err)
	require.Empty(t, s.Items)
	require.Zero(t, s.Total)
}

func TestAdd_ConcurrentDifferentCourses(t *testing.T) {
	f := setupTestFixture(t)
	release := make(chan struct{})
	f.api.Handle(http.MethodPost, transport.PathCart, func(req transport.Request) (json.RawMessage, error) {
		raw, err := f.carts.add(req)
		if req.Body.(map[string]string)["courseId"] == "a" {
			// a's snapshot predates b and arrives last.
			<-release
		}
		return raw, err
	})

	done := make(chan error, 1)
	go func() {
		_, err := f.cart.Add(context.Background(), "a")
		done <- err
	}()
	require.Eventually(t, func() bool { return f.api.CallCount() == 1 }, time.Second, 5*time.Millisecond)

	_, err := f.cart.Add(context.Background(), "b")
	require.NoError(t, err)
	close(release)
	require.NoError(t, <-done)

	s := f.cart.State()
	require.ElementsMatch(t, []string{"a", "b"}, courseIDs(s))
	require.InDelta(t, 2*coursePrice, s.Total, 0.001)
	require.False(t, s.Loading)
}

func TestState_IsACopy(t *testing.T) {
	f := setupTestFixture(t)
	f.carts.courseIDs = []string{"c1"}
	s, err := f.cart.Fetch(context.Background())
	require.NoError(t, err)

	s.Items[0].Course.Title = "changed"
	require.Equal(t, "Course c1", f.cart.State().Items[0].Course.Title)
}
