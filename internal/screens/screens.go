// Package screens holds what the TUI screens share: their dependencies
// and the app-level messages they emit.
package screens

import (
	"log/slog"

	"github.com/abhisek/prepquiz/internal/auth"
	"github.com/abhisek/prepquiz/internal/practice"
	"github.com/abhisek/prepquiz/internal/store"
)

// Deps are passed to every screen constructor.
type Deps struct {
	Practice *practice.Service

	// Attempts backs the dashboard and history. Nil hides them.
	Attempts store.AttemptRepo

	// User is the signed-in learner. Screens receive it explicitly.
	User auth.User

	Logger *slog.Logger
}

// Log returns the logger, falling back to the default.
func (d Deps) Log() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

// LoginMsg reports that a learner signed in. The app switches to home.
type LoginMsg struct {
	User auth.User
}

// LogoutMsg asks the app to return to the login screen.
type LogoutMsg struct{}
