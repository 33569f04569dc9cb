package main

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/urfave/cli/v3"

	"spotify-cli/internal/shared"
	"spotify-cli/internal/ui"
)

// statusView is the JSON projection of the saved auth state.
type statusView struct {
	Authenticated bool      `json:"authenticated"`
	TokenPath     string    `json:"token_path"`
	Valid         bool      `json:"valid"`
	CanRefresh    bool      `json:"can_refresh"`
	ExpiresAt     time.Time `json:"expires_at"`
	Scopes        []string  `json:"scopes,omitempty"`
}

// AuthLogin runs the browser authorization flow and saves the token pair.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	if err := r.requireCredentials(); err != nil {
		return err
	}

	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	pair, err := r.authorize(ctx)
	if err != nil {
		return err
	}

	r.writePlainln("✓ Authorization successful")
	r.writePlain("✓ Tokens saved to %s\n", store.Path())
	if !pair.ExpiresAt.IsZero() {
		r.writePlain("  Access token expires %s\n", pair.ExpiresAt.Format(time.RFC1123))
	}
	r.writePlain("\nYou can now use: spotify-cli playback\n")

	return nil
}

// AuthStatus reports the saved auth state from the token file alone. It
// never touches the network, so an expired token is reported as such rather
// than refreshed.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	view := statusView{TokenPath: store.Path()}

	pair, err := store.Load()
	if err != nil && !errors.Is(err, shared.ErrNotAuthenticated) {
		return err
	}
	if err == nil {
		view.Authenticated = true
		view.Valid = pair.ValidAt(time.Now())
		view.CanRefresh = pair.RefreshToken != ""
		view.ExpiresAt = pair.ExpiresAt
		view.Scopes = pair.Scope
	}

	if r.jsonOut {
		return r.writeJSON(view, true)
	}

	if !view.Authenticated {
		r.writePlain("%s\n", ui.Failure("Not logged in"))
		r.writePlain("Token file: %s\n", view.TokenPath)
		r.writePlain("%s\n", ui.Hint("Run `spotify-cli auth login` to authorize."))
		return nil
	}

	r.writePlain("%s\n", ui.Success("Logged in"))
	r.writePlain("Token file: %s\n", view.TokenPath)

	switch {
	case view.Valid:
		r.writePlain("Access token: valid, expires %s\n", view.ExpiresAt.Format(time.RFC1123))
	case view.CanRefresh:
		r.writePlain("Access token: expired %s, refreshes on next use\n", view.ExpiresAt.Format(time.RFC1123))
	default:
		r.writePlain("Access token: expired, no refresh token saved\n")
	}

	if len(view.Scopes) > 0 {
		r.writePlain("Scopes: %s\n", strings.Join(view.Scopes, " "))
	}

	return nil
}

// AuthReset clears the saved token pair.
func (r *Runner) AuthReset(ctx context.Context, cmd *cli.Command) error {
	store, err := r.tokenStore()
	if err != nil {
		return err
	}

	if err := store.Clear(); err != nil {
		return err
	}

	r.writePlain("%s\n", ui.Success(fmt.Sprintf("Cleared saved credentials at %s", store.Path())))
	return nil
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Authorize with Spotify in the browser and save the tokens",
				Action: r.AuthLogin,
			},
			{
				Name:   "status",
				Usage:  "Show the saved auth state without touching the network",
				Action: r.AuthStatus,
			},
			{
				Name:   "reset",
				Usage:  "Delete the saved tokens",
				Action: r.AuthReset,
			},
		},
	}
}
