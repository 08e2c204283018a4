package google

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

const testOAuthClient = `{"installed":{"client_id":"id.apps.googleusercontent.com","client_secret":"secret",` +
	`"redirect_uris":["http://localhost"],"auth_uri":"https://accounts.google.com/o/oauth2/auth",` +
	`"token_uri":"https://oauth2.googleapis.com/token"}}`

func clearOAuthEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{"GOOGLE_OAUTH_CLIENT_JSON", "GOOGLE_OAUTH_CLIENT_FILE", "GOOGLE_OAUTH_TOKEN_FILE"} {
		t.Setenv(k, "")
	}
}

func TestOAuthConfigFromEnv(t *testing.T) {
	clearOAuthEnv(t)
	if _, err := OAuthConfigFromEnv(); !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("error = %v, want ErrNoOAuthClient", err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		t.Fatalf("OAuthConfigFromEnv() error = %v", err)
	}
	if cfg.ClientID != "id.apps.googleusercontent.com" || len(cfg.Scopes) != 1 || !strings.Contains(cfg.Scopes[0], "spreadsheets") {
		t.Fatalf("config = %+v", cfg)
	}

	path := filepath.Join(t.TempDir(), "client.json")
	if err := os.WriteFile(path, []byte(testOAuthClient), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", "")
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", path)
	if _, err := OAuthConfigFromEnv(); err != nil {
		t.Fatalf("from file: %v", err)
	}
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "token.json")
	want := &oauth2.Token{AccessToken: "a", RefreshToken: "r", TokenType: "Bearer", Expiry: time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC)}
	if err := SaveToken(path, want); err != nil {
		t.Fatalf("SaveToken() error = %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("token mode = %v, want 0600", info.Mode().Perm())
	}

	got, err := LoadToken(path)
	if err != nil {
		t.Fatalf("LoadToken() error = %v", err)
	}
	if got.RefreshToken != "r" || !got.Expiry.Equal(want.Expiry) {
		t.Fatalf("token = %+v", got)
	}

	if err := os.WriteFile(path, []byte(`{}`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadToken(path); err == nil {
		t.Fatal("expected error for empty token")
	}
}

func TestUserTokenOption(t *testing.T) {
	clearOAuthEnv(t)
	if _, ok, err := userTokenOption(context.Background()); ok || err != nil {
		t.Fatalf("without token file: ok=%v err=%v", ok, err)
	}

	tokenPath := filepath.Join(t.TempDir(), "token.json")
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", tokenPath)
	if _, ok, err := userTokenOption(context.Background()); !ok || !errors.Is(err, ErrNoOAuthClient) {
		t.Fatalf("without client: ok=%v err=%v", ok, err)
	}

	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", testOAuthClient)
	if err := SaveToken(tokenPath, &oauth2.Token{RefreshToken: "r"}); err != nil {
		t.Fatal(err)
	}
	opt, ok, err := userTokenOption(context.Background())
	if !ok || err != nil || opt == nil {
		t.Fatalf("with token: ok=%v err=%v", ok, err)
	}
}
