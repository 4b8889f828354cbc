package adapters

import (
	"context"

	"socialhub/domain/model"
)

// WhatsAppAdapter covers WhatsApp Business numbers, which authorize through
// the same Graph app and token endpoints as Facebook pages (embedded signup
// hands back a Graph authorization code).
type WhatsAppAdapter struct {
	graph *FacebookAdapter
}

func NewWhatsAppAdapter(creds model.PlatformCredentials) *WhatsAppAdapter {
	return &WhatsAppAdapter{graph: NewFacebookAdapter(creds)}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (a *WhatsAppAdapter) WithBaseURL(base string) *WhatsAppAdapter {
	a.graph.WithBaseURL(base)
	return a
}

func (a *WhatsAppAdapter) ExchangeCode(ctx context.Context, code, redirectURI, codeVerifier string) (*model.OAuthTokenData, error) {
	return a.graph.ExchangeCode(ctx, code, redirectURI, codeVerifier)
}

func (a *WhatsAppAdapter) RefreshToken(ctx context.Context, userToken string) (*model.OAuthTokenData, error) {
	return a.graph.RefreshToken(ctx, userToken)
}

func (a *WhatsAppAdapter) RevokeToken(ctx context.Context, accessToken string) error {
	return a.graph.RevokeToken(ctx, accessToken)
}
