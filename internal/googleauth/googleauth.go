// Package googleauth builds OAuth2 token sources for the Google API
// clients from credentials and token files on disk. Obtaining the
// initial token (the browser consent flow) is an operator task; this
// package only consumes its output and lets the library refresh it.
package googleauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Scopes requested for the pipeline: read and send mail, manage
// calendar events.
var Scopes = []string{
	"https://www.googleapis.com/auth/gmail.modify",
	"https://www.googleapis.com/auth/calendar",
}

// TokenSource loads the OAuth2 client config and stored token and
// returns a self-refreshing token source.
func TokenSource(ctx context.Context, credentialsFile, tokenFile string) (oauth2.TokenSource, error) {
	credentials, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading google credentials: %w", err)
	}

	cfg, err := google.ConfigFromJSON(credentials, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parsing google credentials: %w", err)
	}

	tokenBytes, err := os.ReadFile(tokenFile)
	if err != nil {
		return nil, fmt.Errorf("reading google token: %w", err)
	}

	var token oauth2.Token
	if err := json.Unmarshal(tokenBytes, &token); err != nil {
		return nil, fmt.Errorf("parsing google token: %w", err)
	}

	return cfg.TokenSource(ctx, &token), nil
}
