package sheets

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const readonlyScope = "https://www.googleapis.com/auth/spreadsheets.readonly"

// serviceAccountClient builds an HTTP client that signs requests with a
// Google service account, the way production roster sheets are shared.
// Tokens are fetched lazily and refreshed by the oauth2 transport.
func serviceAccountClient(credentialsJSON []byte, timeout time.Duration) (*http.Client, error) {
	cfg, err := google.JWTConfigFromJSON(credentialsJSON, readonlyScope)
	if err != nil {
		return nil, fmt.Errorf("sheets: parse service account credentials: %w", err)
	}
	client := oauth2.NewClient(context.Background(), cfg.TokenSource(context.Background()))
	client.Timeout = timeout
	return client, nil
}
