package mockapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-storefront-client/token/refresh"
	"github.com/jrsteele09/go-storefront-client/users"
	"github.com/rs/zerolog/log"
)

const minPasswordLength = 6

type registerBody struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type loginBody struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshBody struct {
	RefreshToken string `json:"refreshToken"`
}

// RegisterHandler creates an account and signs it in. The tokens are
// nested under data, unlike login.
func (s *Server) RegisterHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body registerBody
		if err := decodeJSON(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		name := strings.TrimSpace(body.Name)
		email := users.NormaliseEmail(body.Email)
		if name == "" || email == "" || body.Password == "" {
			writeFailure(w, http.StatusBadRequest, "Please provide name, email and password")
			return
		}
		if len(body.Password) < minPasswordLength {
			writeFailure(w, http.StatusBadRequest, "Password must be at least 6 characters")
			return
		}

		hash, err := users.HashPassword(body.Password)
		if err != nil {
			log.Err(err).Msg("failed to hash password")
			writeFailure(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		now := s.nowTime()
		user := &users.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         users.ParseRole(body.Role),
			DateJoined:   now,
			LastLogin:    now,
			LoggedIn:     true,
		}
		if err := s.users.Create(user); err != nil {
			if errors.Is(err, users.ErrEmailTaken) {
				writeFailure(w, http.StatusBadRequest, "User already exists with this email")
				return
			}
			log.Err(err).Msg("failed to create user")
			writeFailure(w, http.StatusInternalServerError, "Registration failed")
			return
		}

		pair, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
		if err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
			writeFailure(w, http.StatusInternalServerError, "Registration failed")
			return
		}
		log.Info().Str("user_id", user.ID).Msg("user registered")
		writeSuccess(w, http.StatusCreated, map[string]any{
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
			"user":         user,
		}, "User registered successfully")
	}
}

// LoginHandler answers with the token and user at the top level of the body.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body loginBody
		if err := decodeJSON(r, &body); err != nil {
			writeFailure(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(body.Email) == "" || body.Password == "" {
			writeFailure(w, http.StatusBadRequest, "Please provide email and password")
			return
		}

		user, err := s.users.GetByEmail(body.Email)
		if err != nil || !user.CheckPassword(body.Password) {
			writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}

		pair, err := s.tokens.Issue(user.ID, user.Email, string(user.Role))
		if err != nil {
			log.Err(err).Str("user_id", user.ID).Msg("failed to issue tokens")
			writeFailure(w, http.StatusInternalServerError, "Login failed")
			return
		}
		now := s.nowTime()
		if err := s.users.SetLoggedIn(user.ID, true, now); err != nil {
			log.Warn().Err(err).Str("user_id", user.ID).Msg("failed to record login")
		}
		user.LastLogin = now

		writeJSON(w, http.StatusOK, map[string]any{
			"success":      true,
			"message":      "Login successful",
			"token":        pair.AccessToken,
			"refreshToken": pair.RefreshToken,
			"user":         user,
		})
	}
}

// RefreshHandler rotates a refresh token into a new pair.
func (s *Server) RefreshHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body refreshBody
		if err := decodeJSON(r, &body); err != nil || body.RefreshToken == "" {
			writeFailure(w, http.StatusUnauthorized, "Refresh token is required")
			return
		}

		pair, userID, err := s.tokens.Refresh(body.RefreshToken, func(userID string) (string, string, error) {
			user, err := s.users.GetByID(userID)
			if err != nil {
				return "", "", err
			}
			return user.Email, string(user.Role), nil
		})
		if err != nil {
			if !errors.Is(err, refresh.ErrNotFound) {
				log.Warn().Err(err).Msg("refresh failed")
			}
			writeFailure(w, http.StatusUnauthorized, "Invalid or expired refresh token")
			return
		}
		log.Debug().Str("user_id", userID).Msg("tokens refreshed")
		writeSuccess(w, http.StatusOK, map[string]any{
			"accessToken":  pair.AccessToken,
			"refreshToken": pair.RefreshToken,
		}, "")
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := claimsFrom(r)
		if err := s.tokens.Revoke(claims); err != nil {
			log.Err(err).Str("user_id", claims.Subject).Msg("failed to revoke tokens")
			writeFailure(w, http.StatusInternalServerError, "Logout failed")
			return
		}
		if err := s.users.SetLoggedIn(claims.Subject, false, s.nowTime()); err != nil {
			log.Warn().Err(err).Str("user_id", claims.Subject).Msg("failed to record logout")
		}
		writeSuccess(w, http.StatusOK, nil, "Logged out successfully")
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, err := s.users.GetByID(userIDFrom(r))
		if err != nil {
			writeFailure(w, http.StatusNotFound, "User not found")
			return
		}
		writeSuccess(w, http.StatusOK, user, "")
	}
}
