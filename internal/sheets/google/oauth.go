package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// ErrNoOAuthClient is returned when neither GOOGLE_OAUTH_CLIENT_JSON nor
// GOOGLE_OAUTH_CLIENT_FILE is set.
var ErrNoOAuthClient = errors.New("set GOOGLE_OAUTH_CLIENT_JSON or GOOGLE_OAUTH_CLIENT_FILE")

// OAuthConfigFromEnv builds the user consent config for the Sheets scope
// from an OAuth client definition downloaded from the Cloud console.
func OAuthConfigFromEnv() (*oauth2.Config, error) {
	var (
		b   []byte
		err error
	)
	switch {
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON")) != "":
		b = []byte(os.Getenv("GOOGLE_OAUTH_CLIENT_JSON"))
	case strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")) != "":
		b, err = os.ReadFile(strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_CLIENT_FILE")))
		if err != nil {
			return nil, fmt.Errorf("read oauth client file: %w", err)
		}
	default:
		return nil, ErrNoOAuthClient
	}

	cfg, err := goauth.ConfigFromJSON(b, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("oauth config: %w", err)
	}
	return cfg, nil
}

// TokenFile returns GOOGLE_OAUTH_TOKEN_FILE, defaulting to token.json.
func TokenFile() string {
	if p := strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")); p != "" {
		return p
	}
	return "token.json"
}

// LoadToken reads a token saved by SaveToken.
func LoadToken(path string) (*oauth2.Token, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("decode token %s: %w", path, err)
	}
	if tok.RefreshToken == "" && tok.AccessToken == "" {
		return nil, fmt.Errorf("token %s holds no credentials", path)
	}
	return &tok, nil
}

// SaveToken writes tok readable by the current user only.
func SaveToken(path string, tok *oauth2.Token) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return fmt.Errorf("open token file: %w", err)
	}
	if err := json.NewEncoder(f).Encode(tok); err != nil {
		f.Close()
		return fmt.Errorf("write token: %w", err)
	}
	return f.Close()
}

// userTokenOption authenticates as the user who ran salesbook-oauth-init.
// It reports false when GOOGLE_OAUTH_TOKEN_FILE is unset, so callers fall
// back to a service account.
func userTokenOption(ctx context.Context) (goption.ClientOption, bool, error) {
	if strings.TrimSpace(os.Getenv("GOOGLE_OAUTH_TOKEN_FILE")) == "" {
		return nil, false, nil
	}
	cfg, err := OAuthConfigFromEnv()
	if err != nil {
		return nil, true, err
	}
	tok, err := LoadToken(TokenFile())
	if err != nil {
		return nil, true, err
	}
	return goption.WithTokenSource(cfg.TokenSource(ctx, tok)), true, nil
}
