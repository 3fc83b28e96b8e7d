package users

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrEmailTaken   = errors.New("email already registered")
)

type UserRepo interface {
	// Create stores a new user, assigning an ID when empty. It fails with
	// ErrEmailTaken when the email is already registered.
	Create(user *User) error
	Upsert(user *User) error
	GetByEmail(email string) (*User, error)
	GetByID(ID string) (*User, error)
	SetLoggedIn(id string, loggedIn bool, at time.Time) error
}
