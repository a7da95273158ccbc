// Package auth carries the logged-in learner. The user is passed
// explicitly to sessions and screens; there is no package-level current
// user.
package auth

import (
	"errors"
	"strings"
)

// ErrNoUser is returned when an operation needs a logged-in user.
var ErrNoUser = errors.New("no user logged in")

// User identifies the learner to the backend.
type User struct {
	ID   string
	Name string
}

// New builds a User from a raw id, trimming whitespace.
func New(id, name string) User {
	return User{ID: strings.TrimSpace(id), Name: strings.TrimSpace(name)}
}

// IsZero reports whether no user is set.
func (u User) IsZero() bool {
	return u.ID == ""
}

// Require returns ErrNoUser when u is empty.
func (u User) Require() error {
	if u.IsZero() {
		return ErrNoUser
	}
	return nil
}

// DisplayName returns Name, falling back to ID.
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.ID
}
