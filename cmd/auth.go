package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/ytloop/internal/server"
	"github.com/desertthunder/ytloop/internal/shared"
)

const (
	defaultLoginTimeout = 2 * time.Minute
	shutdownTimeout     = 5 * time.Second
)

// Login runs the browser sign-in and prints the resulting session.
func (r *Runner) Login(ctx context.Context, cmd *cli.Command) error {
	if err := r.signIn(ctx); err != nil {
		return err
	}

	view := r.engine.View()
	session, _ := r.creds.Session()

	r.writePlain("✓ Signed in\n")
	r.writePlain("  Session expires: %s\n", session.ExpiresAt.Local().Format(time.DateTime))
	r.writePlain("  Playlists: %d\n", len(view.Collections))
	return nil
}

// signIn opens the engine and completes a login, unless a session already exists.
func (r *Runner) signIn(ctx context.Context) error {
	if err := r.open(ctx); err != nil {
		return err
	}
	if r.engine.Authenticated() {
		return nil
	}
	return r.doLogin(ctx, r.output)
}

// doLogin executes the implicit-grant flow with a local HTTP server.
//
// The callback handler completes the login on the engine, which also fetches the playlists.
// Progress is written to w.
func (r *Runner) doLogin(ctx context.Context, w io.Writer) error {
	if r.config.Credentials.YouTube.ClientID == "" {
		return fmt.Errorf("%w: credentials.youtube.client_id is not set", shared.ErrMissingCredentials)
	}

	authURL, err := r.engine.BeginLogin()
	if err != nil {
		return fmt.Errorf("failed to start login: %w", err)
	}

	handler := server.NewCallbackHandler(r.engine.CompleteLogin)
	router := server.NewBasicRouter()
	router.Use(server.Recover(r.logger), server.NoStore, server.Logging(r.logger))
	router.Handler(handler)

	local, err := server.Start(r.config.CallbackAddr(), router, r.logger)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrServiceUnavailable, err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := local.Shutdown(shutdownCtx); err != nil {
			r.logger.Warn("error shutting down server", "error", err)
		}
	}()
	r.logger.Infof("started callback server at %v", local.Addr())

	fmt.Fprintf(w, "→ Opening browser for Google sign-in...\n")
	if err := r.openBrowser(authURL); err != nil {
		r.logger.Warn("failed to open browser automatically", "error", err, "url", authURL)
		fmt.Fprintf(w, "\n⚠ Could not open browser automatically.\n")
		fmt.Fprintf(w, "Please open this URL in your browser:\n%s\n\n", authURL)
	}

	wait := r.config.Session.LoginTimeout.Duration
	if wait <= 0 {
		wait = defaultLoginTimeout
	}
	fmt.Fprintf(w, "→ Waiting for authorization (%v timeout)...\n", wait)

	timeout := time.NewTimer(wait)
	defer timeout.Stop()

	select {
	case result := <-handler.Result():
		if err := result.Error(); err != nil {
			if r.engine.Authenticated() {
				return fmt.Errorf("signed in, but failed to load playlists: %w", err)
			}
			return fmt.Errorf("authorization failed: %w", err)
		}
		return nil
	case err, ok := <-local.Errors():
		if !ok {
			return fmt.Errorf("%w: callback server stopped", shared.ErrServiceUnavailable)
		}
		return fmt.Errorf("server error: %w", err)
	case <-timeout.C:
		return fmt.Errorf("%w: authorization timed out after %v", shared.ErrTimeout, wait)
	case <-ctx.Done():
		return ctx.Err()
	}
}
