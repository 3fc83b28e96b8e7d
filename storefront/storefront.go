// Package storefront wires the credential store, transport, session manager
// and collections into one context object. A process builds exactly one with
// Initialize and passes it to whatever needs the session.
package storefront

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"sync"

	"github.com/jrsteele09/go-storefront-client/collections"
	"github.com/jrsteele09/go-storefront-client/credentials"
	"github.com/jrsteele09/go-storefront-client/credentials/filestore"
	"github.com/jrsteele09/go-storefront-client/credentials/memstore"
	"github.com/jrsteele09/go-storefront-client/credentials/redisstore"
	"github.com/jrsteele09/go-storefront-client/internal/config"
	apperrors "github.com/jrsteele09/go-storefront-client/internal/errors"
	"github.com/jrsteele09/go-storefront-client/session"
	"github.com/jrsteele09/go-storefront-client/transport"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

// Snapshot is the combined state of the session and both collections.
type Snapshot struct {
	Session  session.State
	Cart     collections.State
	Wishlist collections.State
}

// Storefront is the session context.
type Storefront struct {
	store    credentials.Store
	api      transport.Doer
	session  *session.Manager
	cart     *collections.Cart
	wishlist *collections.Wishlist

	closers     []io.Closer
	unsubscribe func()
}

// Initialize builds the store, transport, session and collections described
// by cfg, restores any persisted session and, when one is restored, loads
// both collections. Collection load failures are logged and left in the
// collection state rather than failing start-up.
func Initialize(ctx context.Context, cfg config.Config) (*Storefront, error) {
	store, closer, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	api, err := transport.New(cfg.GetAPIBaseURL(), store, transport.WithTimeout(cfg.GetRequestTimeout()))
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}

	sf, err := New(store, api)
	if err != nil {
		closeQuietly(closer)
		return nil, err
	}
	if closer != nil {
		sf.closers = append(sf.closers, closer)
	}

	state := sf.session.Rehydrate()
	log.Info().
		Str("api", cfg.GetAPIBaseURL()).
		Str("store", cfg.GetCredentialStore()).
		Str("status", string(state.Status)).
		Msg("storefront initialized")

	if state.IsAuthenticated() {
		if err := sf.Sync(ctx); err != nil {
			log.Warn().Err(err).Msg("initial collection load failed")
		}
	}
	return sf, nil
}

// OpenStore returns the credential store selected by cfg and, for stores
// holding a connection, the io.Closer that releases it.
func OpenStore(cfg config.CredentialConfig) (credentials.Store, io.Closer, error) {
	switch cfg.GetCredentialStore() {
	case config.StoreMemory:
		return memstore.New(), nil, nil
	case config.StoreFile:
		store, err := filestore.New(cfg.GetCredentialFile())
		return store, nil, err
	case config.StoreRedis:
		client, err := redisstore.Connect(cfg.GetRedisAddr(), cfg.GetRedisPassword(), cfg.GetRedisDB())
		if err != nil {
			return nil, nil, err
		}
		return redisstore.New(client, cfg.GetRedisNamespace()), client, nil
	}
	return nil, nil, errors.Errorf("unknown credential store %q", cfg.GetCredentialStore())
}

// New wires a Storefront around an existing store and transport. The
// collections are reset whenever the session leaves Authenticated.
func New(store credentials.Store, api transport.Doer, options ...session.ManagerOption) (*Storefront, error) {
	manager, err := session.NewManager(store, api, options...)
	if err != nil {
		return nil, err
	}
	cart, err := collections.NewCart(api, manager)
	if err != nil {
		return nil, err
	}
	wishlist, err := collections.NewWishlist(api, manager)
	if err != nil {
		return nil, err
	}

	sf := &Storefront{
		store:    store,
		api:      api,
		session:  manager,
		cart:     cart,
		wishlist: wishlist,
	}
	sf.unsubscribe = manager.Subscribe(sf.onSessionChange)
	return sf, nil
}

func (sf *Storefront) onSessionChange(prev, next session.State) {
	if prev.IsAuthenticated() && !next.IsAuthenticated() {
		sf.cart.Reset()
		sf.wishlist.Reset()
	}
}

func (sf *Storefront) Session() *session.Manager {
	return sf.session
}

func (sf *Storefront) Cart() *collections.Cart {
	return sf.cart
}

func (sf *Storefront) Wishlist() *collections.Wishlist {
	return sf.wishlist
}

// State returns the session and both collections.
func (sf *Storefront) State() Snapshot {
	return Snapshot{
		Session:  sf.session.State(),
		Cart:     sf.cart.State(),
		Wishlist: sf.wishlist.State(),
	}
}

// Login signs in and loads both collections.
func (sf *Storefront) Login(ctx context.Context, creds session.LoginCredentials) (session.State, error) {
	state, err := sf.session.Login(ctx, creds)
	if err != nil {
		return state, err
	}
	sf.syncAfterSignIn(ctx)
	return state, nil
}

// Register creates an account, signs in and loads both collections.
func (sf *Storefront) Register(ctx context.Context, data session.RegistrationData) (session.State, error) {
	state, err := sf.session.Register(ctx, data)
	if err != nil {
		return state, err
	}
	sf.syncAfterSignIn(ctx)
	return state, nil
}

func (sf *Storefront) syncAfterSignIn(ctx context.Context) {
	if err := sf.Sync(ctx); err != nil {
		log.Warn().Err(err).Msg("could not load collections after sign in")
	}
}

// Logout ends the session. Both collections are empty afterwards whatever
// the server answered.
func (sf *Storefront) Logout(ctx context.Context) session.State {
	state := sf.session.Logout(ctx)
	sf.cart.Reset()
	sf.wishlist.Reset()
	return state
}

// Sync fetches the cart and wishlist concurrently.
func (sf *Storefront) Sync(ctx context.Context) error {
	var (
		wg                  sync.WaitGroup
		cartErr, wishlistErr error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		_, cartErr = sf.cart.Fetch(ctx)
	}()
	go func() {
		defer wg.Done()
		_, wishlistErr = sf.wishlist.Fetch(ctx)
	}()
	wg.Wait()

	return errors.WithStack(stderrors.Join(
		apperrors.Wrapf(cartErr, "fetch cart"),
		apperrors.Wrapf(wishlistErr, "fetch wishlist"),
	))
}

// MoveToWishlist saves courseID for later and takes it out of the cart.
// A course already on the wishlist still leaves the cart.
func (sf *Storefront) MoveToWishlist(ctx context.Context, courseID string) (Snapshot, error) {
	if _, err := sf.wishlist.Add(ctx, courseID); err != nil && !errors.Is(err, apperrors.ErrAlreadyInCollection) {
		return sf.State(), err
	}
	if _, err := sf.cart.Remove(ctx, courseID); err != nil {
		return sf.State(), err
	}
	return sf.State(), nil
}

// MoveToCart puts courseID in the cart and takes it off the wishlist.
func (sf *Storefront) MoveToCart(ctx context.Context, courseID string) (Snapshot, error) {
	if _, err := sf.cart.Add(ctx, courseID); err != nil && !errors.Is(err, apperrors.ErrAlreadyInCollection) {
		return sf.State(), err
	}
	if _, err := sf.wishlist.Remove(ctx, courseID); err != nil {
		return sf.State(), err
	}
	return sf.State(), nil
}

// Courses lists the public catalog. It needs no session.
func (sf *Storefront) Courses(ctx context.Context) ([]collections.CourseSummary, error) {
	raw, err := sf.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: transport.PathCourses})
	if err != nil {
		return nil, err
	}
	return collections.DecodeCourses(raw)
}

// Health asks the API whether it is up. It needs no session.
func (sf *Storefront) Health(ctx context.Context) (*transport.Envelope, error) {
	raw, err := sf.api.Do(ctx, transport.Request{Method: http.MethodGet, Path: transport.PathHealth})
	if err != nil {
		return nil, err
	}
	return transport.DecodeEnvelope(raw)
}

// Close detaches from the session and releases store connections.
func (sf *Storefront) Close() error {
	if sf.unsubscribe != nil {
		sf.unsubscribe()
	}
	var errs []error
	for _, c := range sf.closers {
		if err := c.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return stderrors.Join(errs...)
}

func closeQuietly(c io.Closer) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		log.Warn().Err(err).Msg("close credential store")
	}
}
