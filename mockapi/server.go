// Package mockapi is an in-memory implementation of the storefront REST API
// for local development and tests.
package mockapi

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/go-storefront-client/internal/config"
	"github.com/jrsteele09/go-storefront-client/token"
	"github.com/jrsteele09/go-storefront-client/token/jwt"
	"github.com/jrsteele09/go-storefront-client/token/refresh"
	refreshrepofake "github.com/jrsteele09/go-storefront-client/token/refresh/repofake"
	"github.com/jrsteele09/go-storefront-client/users"
	fakeuserrepo "github.com/jrsteele09/go-storefront-client/users/repofake"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env       string // Environment (e.g., "DEV", "PROD")
	mux       *http.ServeMux
	routes    []string
	config    config.Config
	users     users.UserRepo
	tokens    *token.Manager
	catalog   *Catalog
	carts     *collectionStore
	wishlists *collectionStore
	nowTime   func() time.Time
}

type ServerOption func(*Server)

// WithNowTime sets the clock for token issue and item timestamps (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ServerOption {
	return func(s *Server) {
		s.nowTime = nowFunc
	}
}

// WithUserRepo replaces the in-memory user repository
func WithUserRepo(repo users.UserRepo) ServerOption {
	return func(s *Server) {
		s.users = repo
	}
}

// WithCatalog replaces the seeded course catalog
func WithCatalog(c *Catalog) ServerOption {
	return func(s *Server) {
		s.catalog = c
	}
}

func New(cfg config.Config, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, fmt.Errorf("[mockapi New] config is required")
	}

	s := &Server{
		env:       cfg.GetEnv(),
		mux:       http.NewServeMux(),
		config:    cfg,
		users:     fakeuserrepo.NewFakeUserRepo(),
		catalog:   SeedCatalog(),
		carts:     newCollectionStore(),
		wishlists: newCollectionStore(),
		nowTime:   time.Now,
	}
	for _, opt := range options {
		opt(s)
	}

	creator, err := jwt.NewCreator(cfg.GetJWTSecret(), cfg.GetIssuer(), cfg.GetAccessTokenTTL(), jwt.WithNowTime(s.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[mockapi New] failed to create token creator: %w", err)
	}
	refreshManager := refresh.NewManager(refreshrepofake.NewFakeRefreshTokenRepo(), cfg.GetRefreshTokenLength(), cfg.GetRefreshTokenTTL(), s.nowTime)
	s.tokens, err = token.NewManager(creator, refreshManager, token.NewRevocationList(), token.WithNowFunc(s.nowTime))
	if err != nil {
		return nil, fmt.Errorf("[mockapi New] failed to create token manager: %w", err)
	}

	if err := s.seedDemoUser(cfg.GetDemoEmail(), cfg.GetDemoPassword()); err != nil {
		return nil, fmt.Errorf("[mockapi New] failed to seed demo user: %w", err)
	}

	s.initRoutes()
	s.logRoutes()
	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) seedDemoUser(email, password string) error {
	if email == "" || password == "" {
		return nil
	}
	hash, err := users.HashPassword(password)
	if err != nil {
		return err
	}
	err = s.users.Create(&users.User{
		Name:         "Demo Student",
		Email:        users.NormaliseEmail(email),
		PasswordHash: hash,
		Role:         users.RoleStudent,
		DateJoined:   s.nowTime(),
	})
	if err != nil {
		return err
	}
	log.Info().Str("email", email).Msg("seeded demo user")
	return nil
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
