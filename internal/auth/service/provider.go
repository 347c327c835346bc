package service

import (
	"context"

	"github.com/relayworks/jirabot/internal/auth/domain"
)

// Provider is the outbound identity provider surface the services depend on.
// The production implementation lives in internal/auth/provider; tests swap
// in fakes.
type Provider interface {
	AuthorizeURL(state string) string
	Exchange(ctx context.Context, code string) (domain.ProviderToken, error)
	Refresh(ctx context.Context, refreshToken string) (domain.ProviderToken, error)
	Revoke(ctx context.Context, token string) error
	ResolveCloudID(ctx context.Context, accessToken string) (string, error)
}
