package users

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// RoleType is the storefront role of an account
type RoleType string

const (
	RoleStudent    RoleType = "student"
	RoleInstructor RoleType = "instructor"
	RoleAdmin      RoleType = "admin"
)

// ParseRole maps a requested role onto a known one, defaulting to student.
// Admin cannot be self-assigned.
func ParseRole(role string) RoleType {
	switch RoleType(strings.ToLower(strings.TrimSpace(role))) {
	case RoleInstructor:
		return RoleInstructor
	default:
		return RoleStudent
	}
}

type User struct {
	ID           string    `json:"_id"`                 // Unique identifier for the user
	Name         string    `json:"name"`                // Display name
	Email        string    `json:"email"`               // Login email, unique
	PasswordHash string    `json:"-"`                   // Hashed version of the user's password - never serialize
	Avatar       string    `json:"avatar,omitempty"`    // Avatar URL
	Role         RoleType  `json:"role"`                // Storefront role
	DateJoined   time.Time `json:"createdAt"`           // Date and time when the user registered
	LastLogin    time.Time `json:"lastLogin,omitempty"` // Last time the user logged in
	LoggedIn     bool      `json:"-"`                   // LoggedIn, Is the user currently loggedIn
}

// NormaliseEmail is the key users are stored and looked up by.
func NormaliseEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CheckPassword checks a password against the user's hash
func (u *User) CheckPassword(password string) bool {
	return CheckPasswordHash(password, u.PasswordHash)
}
