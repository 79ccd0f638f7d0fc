package services

import (
	"context"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/auth"
	"google.golang.org/api/option"
)

// NewAuthClient builds the Firebase auth verifier subscribers authenticate
// against. With an empty credPath the SDK falls back to application default
// credentials, which is how the server runs on GCP.
func NewAuthClient(ctx context.Context, credPath string) (*auth.Client, error) {
	var opts []option.ClientOption
	if credPath != "" {
		opts = append(opts, option.WithCredentialsFile(credPath))
	}
	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("initializing firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("building auth client: %w", err)
	}
	return client, nil
}
