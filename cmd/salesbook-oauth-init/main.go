// Command salesbook-oauth-init runs the OAuth consent flow once and saves a
// user token the report worker can write spreadsheets with, for accounts
// that cannot share a sheet with a service account.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"salesbook/internal/cli"
	gsheet "salesbook/internal/sheets/google"
)

func main() {
	cli.LoadEnvFile()
	logger := cli.SetupLogger(os.Getenv("LOG_LEVEL"), os.Stderr)

	cfg, err := gsheet.OAuthConfigFromEnv()
	if err != nil {
		logger.Error("Failed to load OAuth client", "error", err)
		os.Exit(1)
	}

	// The redirect URI must be registered on the OAuth client.
	redirectPort := os.Getenv("OAUTH_REDIRECT_PORT")
	if redirectPort == "" {
		redirectPort = "8085"
	}
	cfg.RedirectURL = "http://localhost:" + redirectPort + "/callback"

	state := uuid.NewString()
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /callback", func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch {
		case q.Get("error") != "":
			http.Error(w, "OAuth error: "+q.Get("error"), http.StatusBadRequest)
			errCh <- fmt.Errorf("consent denied: %s", q.Get("error"))
		case q.Get("state") != state:
			http.Error(w, "state mismatch", http.StatusBadRequest)
		default:
			fmt.Fprintln(w, "You may close this window and return to the terminal.")
			codeCh <- q.Get("code")
		}
	})
	srv := &http.Server{Addr: "localhost:" + redirectPort, Handler: mux, ReadHeaderTimeout: 10 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	defer srv.Close()

	fmt.Printf("Open this URL to authorize:\n%s\n", cfg.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	select {
	case code := <-codeCh:
		tok, err := cfg.Exchange(ctx, code)
		if err != nil {
			logger.Error("Token exchange failed", "error", err)
			os.Exit(1)
		}
		out := gsheet.TokenFile()
		if err := gsheet.SaveToken(out, tok); err != nil {
			logger.Error("Failed to save token", "error", err)
			os.Exit(1)
		}
		logger.Info("Saved OAuth token", "path", out)
		fmt.Printf("Set GOOGLE_OAUTH_TOKEN_FILE=%s for salesbook-worker\n", out)
	case err := <-errCh:
		logger.Error("Authorization failed", "error", err)
		os.Exit(1)
	case <-ctx.Done():
		logger.Error("Authorization did not complete", "reason", ctx.Err())
		os.Exit(1)
	}
}
