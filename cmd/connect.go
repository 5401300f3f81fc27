package main

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/urfave/cli/v3"

	"flowbeat/internal/server"
	"flowbeat/internal/shared"
)

func connectCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "connect",
		Usage: "Link a stored account to Spotify via the browser OAuth flow",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   "config.toml",
			},
			&cli.StringFlag{
				Name:     "email",
				Aliases:  []string{"e"},
				Usage:    "Email of the account to connect",
				Required: true,
			},
		},
		Action: r.Connect,
	}
}

// Connect runs the authorization-code flow for a stored account.
//
// Starts a temporary local callback server, opens the browser for consent,
// and persists the exchanged tokens.
func (r *Runner) Connect(ctx context.Context, cmd *cli.Command) error {
	config := r.loadConfig(cmd.String("config"))

	s, err := r.buildStack(config)
	if err != nil {
		return err
	}
	defer s.Close()

	user, err := s.users.GetByEmail(cmd.String("email"))
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	state := shared.GenerateID()
	handler := server.NewOAuthHandler(s.authenticator, state)

	serverAddr := fmt.Sprintf("%s:%d", config.Server.Host, config.Server.Port)
	httpServer := &http.Server{
		Addr:    serverAddr,
		Handler: handler,
	}

	serverErrors := make(chan error, 1)
	go func() {
		r.logger.Info("starting OAuth callback server", "addr", serverAddr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrors <- err
		}
	}()

	time.Sleep(100 * time.Millisecond)

	authURL := s.authenticator.AuthURL(state)
	r.writePlain("→ Opening browser for Spotify authorization...\n")
	if err := shared.OpenBrowser(authURL); err != nil {
		r.logger.Warnf("failed to open browser automatically %v", err)
		r.writePlainln("⚠ Could not open browser automatically.")
		r.writePlain("Please open this URL in your browser:\n%s\n\n", authURL)
	}

	r.writePlain("→ Waiting for authorization (2 minute timeout)...\n")

	timeout := time.NewTimer(2 * time.Minute)
	defer timeout.Stop()

	var result server.OAuthResult

	select {
	case result = <-handler.Result():
	case err := <-serverErrors:
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after 2 minutes", shared.ErrTimeout)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		r.logger.Warn("error shutting down server", "error", err)
	}

	if result.Error() != nil {
		return fmt.Errorf("authorization failed: %w", result.Error())
	}

	if err := s.users.UpdateSpotifyTokens(user.ID(), result.Tokens); err != nil {
		return fmt.Errorf("failed to persist tokens: %w", err)
	}

	r.writePlainln("✓ Spotify account connected")
	r.writePlain("You can now use: flowbeat recommend --email %s --context \"...\"\n", user.Email())
	return nil
}
