// Package twitchapi contains minimal helpers to interact with Twitch Helix APIs:
// stream liveness, user id resolution, clips, and starting commercials. App
// access tokens come from the client-credentials grant; StartCommercial needs
// a broadcaster user token supplied by the caller.
package twitchapi

import (
	"errors"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
	"golang.org/x/oauth2/twitch"
)

// NewAppTokenSource returns a cached, auto-refreshing app access token source
// using the client-credentials grant. tokenURL overrides the Twitch endpoint
// for tests; pass "" in production.
func NewAppTokenSource(clientID, clientSecret, tokenURL string) (oauth2.TokenSource, error) {
	if clientID == "" || clientSecret == "" {
		return nil, errors.New("missing client id/secret for twitch app token")
	}
	if tokenURL == "" {
		tokenURL = twitch.Endpoint.TokenURL
	}
	cc := &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
	return cc.TokenSource(oauth2.NoContext), nil
}

// StaticTokenSource wraps a fixed token, used in tests.
func StaticTokenSource(tok string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: tok})
}

func defaultHTTP(hc *http.Client) *http.Client {
	if hc != nil {
		return hc
	}
	return http.DefaultClient
}
