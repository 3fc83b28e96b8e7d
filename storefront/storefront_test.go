package storefront_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/go-storefront-client/credentials"
	"github.com/jrsteele09/go-storefront-client/credentials/memstore"
	"github.com/jrsteele09/go-storefront-client/internal/config"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/mockapi"
	"github.com/jrsteele09/go-storefront-client/session"
	"github.com/jrsteele09/go-storefront-client/storefront"
	"github.com/jrsteele09/go-storefront-client/transport"
	"github.com/jrsteele09/go-storefront-client/transport/transportfake"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	demoEmail    = "demo@example.com"
	demoPassword = "secret123"
)

var demoLogin = session.LoginCredentials{Email: demoEmail, Password: demoPassword}

// liveFixture runs the storefront against the mock API over HTTP.
type liveFixture struct {
	server *httptest.Server
	store  *memstore.MemStore
	sf     *storefront.Storefront
}

func setupLiveFixture(t *testing.T) *liveFixture {
	t.Helper()
	return setupLiveFixtureWith(t, nil, nil)
}

// setupLiveFixtureWith lets a test replace the store the client sees and
// put a handler in front of the mock API.
func setupLiveFixtureWith(t *testing.T, storeFor func(*memstore.MemStore) credentials.Store, front func(http.Handler) http.Handler) *liveFixture {
	t.Helper()
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("MOCK_DEMO_EMAIL", demoEmail)
	t.Setenv("MOCK_DEMO_PASSWORD", demoPassword)

	api, err := mockapi.New(config.New())
	require.NoError(t, err)
	var handler http.Handler = api
	if front != nil {
		handler = front(api)
	}
	f := &liveFixture{server: httptest.NewServer(handler), store: memstore.New()}
	t.Cleanup(f.server.Close)

	var store credentials.Store = f.store
	if storeFor != nil {
		store = storeFor(f.store)
	}
	client, err := transport.New(f.server.URL, store, transport.WithTimeout(5*time.Second))
	require.NoError(t, err)
	f.sf, err = storefront.New(store, client)
	require.NoError(t, err)
	t.Cleanup(func() { require.NoError(t, f.sf.Close()) })
	return f
}

// fakeFixture runs the storefront against scripted responses.
type fakeFixture struct {
	store *memstore.MemStore
	api   *transportfake.FakeAPI
	sf    *storefront.Storefront
}

func setupFakeFixture(t *testing.T) *fakeFixture {
	t.Helper()
	f := &fakeFixture{store: memstore.New()}
	f.api = transportfake.NewFakeAPI(f.store)
	sf, err := storefront.New(f.store, f.api)
	require.NoError(t, err)
	f.sf = sf
	return f
}

// signIn stores a credential directly and rehydrates.
func (f *fakeFixture) signIn(t *testing.T) {
	t.Helper()
	require.NoError(t, f.store.Set(credentials.KeyAuthToken, "a.b.c"))
	require.NoError(t, f.store.Set(credentials.KeyUser, `{"_id":"u1","name":"Ada","email":"ada@example.com"}`))
	require.True(t, f.sf.Session().Rehydrate().IsAuthenticated())
}

// readOnlyStore accepts reads but refuses writes.
type readOnlyStore struct {
	*memstore.MemStore
}

func (readOnlyStore) Set(credentials.Key, string) error {
	return errors.New("storage quota exceeded")
}

const cartBody = `{"success":true,"data":{"items":[{"_id":"i1","course":{"_id":"c1","title":"Go","price":10}}],"total":10}}`
const wishlistBody = `{"success":true,"data":[{"_id":"w1","course":{"_id":"c2","title":"Redis","price":5}}]}`

func TestNew_Validation(t *testing.T) {
	_, err := storefront.New(nil, transportfake.NewFakeAPI(nil))
	require.Error(t, err)
	_, err = storefront.New(memstore.New(), nil)
	require.Error(t, err)
}

func TestOpenStore(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")

	t.Run("memory", func(t *testing.T) {
		t.Setenv("STOREFRONT_CREDENTIAL_STORE", config.StoreMemory)
		store, closer, err := storefront.OpenStore(config.New())
		require.NoError(t, err)
		require.NotNil(t, store)
		require.Nil(t, closer)
	})

	t.Run("file", func(t *testing.T) {
		t.Setenv("STOREFRONT_CREDENTIAL_STORE", config.StoreFile)
		t.Setenv("STOREFRONT_CREDENTIAL_FILE", t.TempDir()+"/creds.json")
		store, _, err := storefront.OpenStore(config.New())
		require.NoError(t, err)
		require.NoError(t, store.Set(credentials.KeyAuthToken, "x"))
	})

	t.Run("unknown", func(t *testing.T) {
		t.Setenv("STOREFRONT_CREDENTIAL_STORE", "floppy")
		_, _, err := storefront.OpenStore(config.New())
		require.Error(t, err)
	})
}

func TestLogin_LoadsCollections(t *testing.T) {
	f := setupFakeFixture(t)
	f.api.Handle(http.MethodPost, transport.PathLogin, transportfake.JSON(`{"success":true,"token":"x.y.z","user":{"_id":"u1","email":"ada@example.com"}}`))
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.JSON(cartBody))
	f.api.Handle(http.MethodGet, transport.PathWishlist, transportfake.JSON(wishlistBody))

	state, err := f.sf.Login(context.Background(), session.LoginCredentials{Email: "ada@example.com", Password: "pw"})
	require.NoError(t, err)
	require.True(t, state.IsAuthenticated())

	snap := f.sf.State()
	require.True(t, snap.Cart.Contains("c1"))
	require.Equal(t, 10.0, snap.Cart.Total)
	require.True(t, snap.Wishlist.Contains("c2"))
}

func TestLogout_ClearsEverythingWhenServerUnreachable(t *testing.T) {
	f := setupFakeFixture(t)
	f.signIn(t)
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.JSON(cartBody))
	f.api.Handle(http.MethodGet, transport.PathWishlist, transportfake.JSON(wishlistBody))
	f.api.Handle(http.MethodPost, transport.PathLogout, transportfake.Fail(apperrors.ErrNetworkUnavailable))
	require.NoError(t, f.sf.Sync(context.Background()))
	require.Equal(t, 1, f.sf.Cart().State().Count())

	state := f.sf.Logout(context.Background())
	require.Equal(t, session.StatusAnonymous, state.Status)
	require.Zero(t, f.sf.Cart().State().Count())
	require.Zero(t, f.sf.Wishlist().State().Count())
	require.Zero(t, f.store.Len())
}

func TestSessionExpiry_DuringFetch(t *testing.T) {
	f := setupFakeFixture(t)
	f.signIn(t)
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.Fail(apperrors.ErrSessionExpired))
	f.api.Handle(http.MethodGet, transport.PathWishlist, transportfake.JSON(wishlistBody))

	_ = f.sf.Sync(context.Background())

	snap := f.sf.State()
	require.Equal(t, session.StatusAnonymous, snap.Session.Status)
	require.Equal(t, "Session expired. Please login again.", snap.Session.Error)
	require.Zero(t, snap.Cart.Count())
	require.Zero(t, snap.Wishlist.Count())
	_, ok := f.store.Get(credentials.KeyAuthToken)
	require.False(t, ok)
}

func TestSync_Anonymous(t *testing.T) {
	f := setupFakeFixture(t)
	require.NoError(t, f.sf.Sync(context.Background()))
	require.Zero(t, f.api.CallCount())
}

func TestSync_ReportsBothFailures(t *testing.T) {
	f := setupFakeFixture(t)
	f.signIn(t)
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.Fail(apperrors.ErrNetworkUnavailable))

	err := f.sf.Sync(context.Background())
	require.ErrorIs(t, err, apperrors.ErrNetworkUnavailable)
	require.ErrorIs(t, err, apperrors.ErrNotFound, "unscripted wishlist route answers 404")
	require.True(t, f.sf.Session().IsAuthenticated())
}

func TestMoveToWishlist_AlreadySaved(t *testing.T) {
	f := setupFakeFixture(t)
	f.signIn(t)
	f.api.Handle(http.MethodGet, transport.PathCart, transportfake.JSON(cartBody))
	f.api.Handle(http.MethodGet, transport.PathWishlist, transportfake.JSON(wishlistBody))
	require.NoError(t, f.sf.Sync(context.Background()))

	f.api.Handle(http.MethodPost, transport.PathWishlist, transportfake.Fail(&apperrors.HTTPError{Status: http.StatusConflict, Message: "Course already in wishlist"}))
	f.api.Handle(http.MethodDelete, transport.ItemPath(transport.PathCart, "c1"), transportfake.JSON(`{"success":true}`))

	snap, err := f.sf.MoveToWishlist(context.Background(), "c1")
	require.NoError(t, err)
	require.False(t, snap.Cart.Contains("c1"))
}

func TestLive_ShoppingFlow(t *testing.T) {
	f := setupLiveFixture(t)
	ctx := context.Background()

	courses, err := f.sf.Courses(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, courses)

	state, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)
	require.True(t, state.IsAuthenticated())
	require.Equal(t, demoEmail, state.User.Email)
	require.False(t, state.ExpiresAt.IsZero())

	cart, err := f.sf.Cart().Add(ctx, "course-go-basics")
	require.NoError(t, err)
	require.Equal(t, 49.99, cart.Total)

	_, err = f.sf.Cart().Add(ctx, "course-go-basics")
	require.ErrorIs(t, err, apperrors.ErrAlreadyInCollection)

	wishlist, added, err := f.sf.Wishlist().Toggle(ctx, "course-redis")
	require.NoError(t, err)
	require.True(t, added)
	require.True(t, wishlist.Contains("course-redis"))

	snap, err := f.sf.MoveToCart(ctx, "course-redis")
	require.NoError(t, err)
	require.True(t, snap.Cart.Contains("course-redis"))
	require.False(t, snap.Wishlist.Contains("course-redis"))

	snap, err = f.sf.MoveToWishlist(ctx, "course-go-basics")
	require.NoError(t, err)
	require.False(t, snap.Cart.Contains("course-go-basics"))
	require.True(t, snap.Wishlist.Contains("course-go-basics"))

	_, err = f.sf.Cart().Clear(ctx)
	require.NoError(t, err)
	require.Zero(t, f.sf.Cart().State().Count())

	state = f.sf.Logout(ctx)
	require.False(t, state.IsAuthenticated())
	require.Zero(t, f.store.Len())
}

func TestLive_RevokedTokenExpiresSession(t *testing.T) {
	f := setupLiveFixture(t)
	ctx := context.Background()

	_, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)
	token, ok := f.store.Get(credentials.KeyAuthToken)
	require.True(t, ok)

	// Sign the same token out from elsewhere
	req, err := http.NewRequest(http.MethodPost, f.server.URL+transport.PathLogout, nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	_, err = f.sf.Cart().Fetch(ctx)
	require.NoError(t, err)
	require.False(t, f.sf.Session().IsAuthenticated())
	require.Zero(t, f.store.Len())
}

func TestLive_RefreshKeepsUser(t *testing.T) {
	f := setupLiveFixture(t)
	ctx := context.Background()

	before, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)

	after, err := f.sf.Session().Refresh(ctx)
	require.NoError(t, err)
	require.True(t, after.IsAuthenticated())
	require.Equal(t, before.User.ID, after.User.ID)
	require.NotEqual(t, before.Token, after.Token)

	_, err = f.sf.Cart().Fetch(ctx)
	require.NoError(t, err)
	require.True(t, f.sf.Session().IsAuthenticated())
}

func TestLive_UnsavedSessionStillShops(t *testing.T) {
	f := setupLiveFixtureWith(t, func(m *memstore.MemStore) credentials.Store { return readOnlyStore{m} }, nil)
	ctx := context.Background()

	state, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)
	require.True(t, state.IsAuthenticated())
	require.True(t, state.Degraded)
	require.Zero(t, f.store.Len())

	cart, err := f.sf.Cart().Add(ctx, "course-http-apis")
	require.NoError(t, err)
	require.True(t, cart.Contains("course-http-apis"))

	_, added, err := f.sf.Wishlist().Toggle(ctx, "course-redis")
	require.NoError(t, err)
	require.True(t, added)
	require.NoError(t, f.sf.Sync(ctx))
	require.Equal(t, 1, f.sf.Wishlist().State().Count())
	require.True(t, f.sf.Session().IsAuthenticated())
}

func TestLive_LateRejectionKeepsNewSession(t *testing.T) {
	var holdNext atomic.Bool
	held := make(chan struct{})
	release := make(chan struct{})
	front := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodPost && r.URL.Path == transport.PathCart && holdNext.CompareAndSwap(true, false) {
				close(held)
				<-release
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"success":false,"message":"Not authorized, token failed"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
	f := setupLiveFixtureWith(t, nil, front)
	ctx := context.Background()

	first, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)

	holdNext.Store(true)
	done := make(chan error, 1)
	go func() {
		_, err := f.sf.Cart().Add(ctx, "course-go-basics")
		done <- err
	}()
	<-held

	f.sf.Logout(ctx)
	second, err := f.sf.Login(ctx, demoLogin)
	require.NoError(t, err)
	require.NotEqual(t, first.Token, second.Token)

	close(release)
	require.ErrorIs(t, <-done, apperrors.ErrSessionExpired)

	state := f.sf.Session().State()
	require.Equal(t, session.StatusAuthenticated, state.Status)
	require.Equal(t, second.Token, state.Token)
	stored, ok := f.store.Get(credentials.KeyAuthToken)
	require.True(t, ok)
	require.Equal(t, second.Token, stored)

	_, err = f.sf.Cart().Fetch(ctx)
	require.NoError(t, err)
	require.True(t, f.sf.Session().IsAuthenticated())
}

func TestInitialize_RestoresSession(t *testing.T) {
	t.Setenv("STOREFRONT_CONFIG", "")
	t.Setenv("ENV", "TEST")
	t.Setenv("MOCK_DEMO_EMAIL", demoEmail)
	t.Setenv("MOCK_DEMO_PASSWORD", demoPassword)
	api, err := mockapi.New(config.New())
	require.NoError(t, err)
	server := httptest.NewServer(api)
	defer server.Close()

	t.Setenv("STOREFRONT_API_URL", server.URL)
	t.Setenv("STOREFRONT_CREDENTIAL_STORE", config.StoreFile)
	t.Setenv("STOREFRONT_CREDENTIAL_FILE", t.TempDir()+"/credentials.json")
	ctx := context.Background()

	first, err := storefront.Initialize(ctx, config.New())
	require.NoError(t, err)
	require.False(t, first.Session().IsAuthenticated())
	_, err = first.Login(ctx, demoLogin)
	require.NoError(t, err)
	_, err = first.Cart().Add(ctx, "course-testing")
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := storefront.Initialize(ctx, config.New())
	require.NoError(t, err)
	defer second.Close()
	require.True(t, second.Session().IsAuthenticated())
	require.True(t, second.Cart().Contains("course-testing"))
}
