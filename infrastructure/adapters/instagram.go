package adapters

import (
	"context"

	"socialhub/domain/model"
)

// InstagramAdapter rides the Facebook Graph app: Instagram Business
// accounts authorize through the same dialog and token endpoints, including
// the long-lived exchange in place of a refresh-token grant.
type InstagramAdapter struct {
	graph *FacebookAdapter
}

func NewInstagramAdapter(creds model.PlatformCredentials) *InstagramAdapter {
	return &InstagramAdapter{graph: NewFacebookAdapter(creds)}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (a *InstagramAdapter) WithBaseURL(base string) *InstagramAdapter {
	a.graph.WithBaseURL(base)
	return a
}

func (a *InstagramAdapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*model.OAuthTokenData, error) {
	return a.graph.ExchangeCode(ctx, code, redirectURI, codeVerifier)
}

func (a *InstagramAdapter) RefreshToken(ctx context.Context, userToken string) (*model.OAuthTokenData, error) {
	return a.graph.RefreshToken(ctx, userToken)
}

func (a *InstagramAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	return a.graph.RevokeToken(ctx, accessToken)
}
