package application

import (
	"context"
	"fmt"
	"net/http"

	"github.com/bnema/perch/internal/adapters/bluesky"
	"github.com/bnema/perch/internal/adapters/mastodon"
	"github.com/bnema/perch/internal/domain"
	"github.com/bnema/perch/internal/ports"
)

// Resolver turns a stored account into an authenticated network client.
type Resolver interface {
	Resolve(ctx context.Context, account domain.Account) (ports.SocialClient, error)
}

// ClientResolver reads the account's credential from the secret store and
// builds the matching adapter. Credentials are fetched fresh on every call
// so a rotated secret takes effect immediately; Bluesky additionally pays
// a session login per resolution.
type ClientResolver struct {
	secrets    ports.SecretStore
	httpClient *http.Client
}

var _ Resolver = (*ClientResolver)(nil)

func NewClientResolver(secrets ports.SecretStore, httpClient *http.Client) *ClientResolver {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &ClientResolver{secrets: secrets, httpClient: httpClient}
}

func (r *ClientResolver) Resolve(ctx context.Context, account domain.Account) (ports.SocialClient, error) {
	secret, err := r.secrets.Get(ctx, account.SecretKey())
	if err != nil {
		return nil, fmt.Errorf("credentials for %s: %w", account.FullHandle(), err)
	}
	if secret == "" {
		return nil, fmt.Errorf("credentials for %s: %w", account.FullHandle(), domain.ErrCredentialsNotFound)
	}

	switch account.Network {
	case domain.NetworkMastodon:
		return mastodon.NewClient(account.Server, secret, r.httpClient), nil
	case domain.NetworkBluesky:
		client, err := bluesky.Login(ctx, account.Server, account.Handle, secret, r.httpClient)
		if err != nil {
			return nil, fmt.Errorf("login %s: %w", account.FullHandle(), err)
		}
		return client, nil
	default:
		return nil, fmt.Errorf("unknown network %q", account.Network)
	}
}
