package gmail

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gm "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// Scopes needed to read, draft, send and file mail.
var Scopes = []string{
	gm.GmailModifyScope,
	gm.GmailComposeScope,
}

// storedToken is the token.json layout written by the google-auth Python
// library, so a token minted by those tools keeps working.
type storedToken struct {
	Token        string   `json:"token"`
	RefreshToken string   `json:"refresh_token"`
	TokenURI     string   `json:"token_uri"`
	ClientID     string   `json:"client_id"`
	ClientSecret string   `json:"client_secret"`
	Scopes       []string `json:"scopes"`
	Expiry       string   `json:"expiry"`
}

const expiryLayout = "2006-01-02T15:04:05.999999Z"

// NewService returns an authenticated Gmail service. tokenPath is a file or
// a keyring reference; a refreshed token is written back to it.
func NewService(ctx context.Context, credentialsPath, tokenPath string, log *slog.Logger) (*gm.Service, error) {
	client, err := httpClient(ctx, credentialsPath, tokenPath, log)
	if err != nil {
		return nil, fmt.Errorf("get oauth client: %w", err)
	}
	return gm.NewService(ctx, option.WithHTTPClient(client))
}

func httpClient(ctx context.Context, credentialsPath, tokenPath string, log *slog.Logger) (*http.Client, error) {
	config, err := oauthConfig(credentialsPath)
	if err != nil {
		return nil, err
	}
	token, err := readToken(tokenPath)
	if err != nil {
		return nil, fmt.Errorf("load token from %s: %w", tokenPath, err)
	}

	ts := config.TokenSource(ctx, token)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token: %w", err)
	}
	if fresh.AccessToken != token.AccessToken {
		if err := writeToken(tokenPath, fresh, config); err != nil {
			log.Warn("could not save refreshed token", "path", tokenPath, "err", err)
		}
	}
	return oauth2.NewClient(ctx, ts), nil
}

func oauthConfig(credentialsPath string) (*oauth2.Config, error) {
	data, err := os.ReadFile(credentialsPath)
	if err != nil {
		return nil, fmt.Errorf("read credentials from %s: %w", credentialsPath, err)
	}
	config, err := google.ConfigFromJSON(data, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return config, nil
}

func readToken(ref string) (*oauth2.Token, error) {
	data, err := loadTokenData(ref)
	if err != nil {
		return nil, fmt.Errorf("read token: %w", err)
	}
	var st storedToken
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, fmt.Errorf("parse token: %w", err)
	}
	return st.oauth(), nil
}

func (st storedToken) oauth() *oauth2.Token {
	var expiry time.Time
	for _, layout := range []string{expiryLayout, time.RFC3339Nano} {
		if t, err := time.Parse(layout, st.Expiry); err == nil {
			expiry = t
			break
		}
	}
	return &oauth2.Token{
		AccessToken:  st.Token,
		RefreshToken: st.RefreshToken,
		TokenType:    "Bearer",
		Expiry:       expiry,
	}
}

func writeToken(ref string, token *oauth2.Token, config *oauth2.Config) error {
	st := storedToken{
		Token:        token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenURI:     config.Endpoint.TokenURL,
		ClientID:     config.ClientID,
		ClientSecret: config.ClientSecret,
		Scopes:       Scopes,
		Expiry:       token.Expiry.UTC().Format(expiryLayout),
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	return saveTokenData(ref, data)
}
