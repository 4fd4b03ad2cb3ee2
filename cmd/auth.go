package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"
	"golang.org/x/oauth2"

	"github.com/desertthunder/mcx/internal/auth"
)

// AuthLogin stores a signed-in session in the keyring.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	token := &oauth2.Token{
		AccessToken:  cmd.String("access-token"),
		RefreshToken: cmd.String("refresh-token"),
		TokenType:    "Bearer",
	}
	if ttl := cmd.Duration("expires-in"); ttl > 0 {
		token.Expiry = time.Now().Add(ttl)
	}

	session := &auth.Session{
		Username: cmd.String("username"),
		UUID:     cmd.String("uuid"),
		Token:    token,
	}
	if err := r.sessions.Login(session); err != nil {
		return err
	}

	r.logger.Info("session stored", "username", session.Username)
	return r.writePlain("✓ Logged in as %s\n", session.Username)
}

// AuthLogout removes the stored session.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.sessions.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Logged out\n")
}

// AuthWhoami prints the profile a launch would use, refreshing the token if needed.
func (r *Runner) AuthWhoami(ctx context.Context, cmd *cli.Command) error {
	account, err := r.sessions.GetProfile(ctx)
	if err != nil {
		return fmt.Errorf("no usable session: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(struct {
			Username string `json:"username"`
			UUID     string `json:"uuid"`
		}{account.Username, account.UUID}, true)
	}
	return r.writePlain("%s (%s)\n", account.Username, account.UUID)
}
