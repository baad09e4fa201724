// Package livechat holds the OAuth2 wiring for the LiveChat accounts
// service.
package livechat

import (
	"crypto/rand"
	"encoding/hex"

	"golang.org/x/oauth2"
)

// stateToken protects the callback against CSRF for the lifetime of the
// process.
var stateToken string

func init() {
	b := make([]byte, 16)
	rand.Read(b)
	stateToken = hex.EncodeToString(b)
}

// OAuthConfig returns the OAuth2 config for the accounts service. The token
// endpoint expects client credentials form-encoded in the request body.
func OAuthConfig(clientID, clientSecret, redirectURL, authURL, tokenURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Endpoint: oauth2.Endpoint{
			AuthURL:   authURL,
			TokenURL:  tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the authorization redirect target.
func AuthCodeURL(cfg *oauth2.Config) string {
	return cfg.AuthCodeURL(stateToken)
}

// StateToken returns the current CSRF state token for validation.
func StateToken() string {
	return stateToken
}
