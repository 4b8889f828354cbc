package usecase

import (
	"context"
	"fmt"
	"strings"

	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/configuration"
	"socialhub/infrastructure/logger"
)

// ICredentialResolver resolves the OAuth app credentials to use for a
// platform. DB-backed integration rows take priority over static
// configuration.
type ICredentialResolver interface {
	Resolve(ctx context.Context, platform model.Platform) (model.PlatformCredentials, error)
}

type credentialResolver struct {
	integrations repository.IPlatformIntegration
}

func NewCredentialResolver(integrations repository.IPlatformIntegration) ICredentialResolver {
	return &credentialResolver{integrations: integrations}
}

// Resolve never fails on missing configuration: it returns empty
// credentials and lets the adapter surface the platform's rejection. The
// warning is the only signal of a misconfigured platform.
func (r *credentialResolver) Resolve(ctx context.Context, platform model.Platform) (model.PlatformCredentials, error) {
	if r.integrations != nil {
		row, err := r.integrations.GetActive(ctx, platform)
		if err != nil {
			return model.PlatformCredentials{}, fmt.Errorf("load platform integration: %w", err)
		}
		if row != nil {
			return credentialsFromIntegration(platform, row), nil
		}
	}

	cfg := configuration.ClientFor(string(platform))
	creds := model.PlatformCredentials{
		AppID:       cfg.ClientID,
		AppSecret:   cfg.ClientSecret,
		RedirectURI: cfg.RedirectURI,
		APIVersion:  cfg.APIVersion,
		Scopes:      cfg.Scopes,
	}
	if creds.RedirectURI == "" {
		creds.RedirectURI = configuration.DefaultRedirectURI(string(platform))
	}
	if len(creds.Scopes) == 0 {
		creds.Scopes = defaultScopes(platform)
	}
	if creds.Empty() {
		logger.GetLogger().
			WithField("platform", platform).
			Warn("No credentials configured for platform; returning empty credentials")
	}
	return creds, nil
}

func credentialsFromIntegration(platform model.Platform, row *model.PlatformIntegration) model.PlatformCredentials {
	redirect := configuration.DefaultRedirectURI(string(platform))
	if row.CallbackBase != "" {
		redirect = fmt.Sprintf("%s/api/v1/oauth/%s/callback", strings.TrimRight(row.CallbackBase, "/"), platform)
	}
	scopes := defaultScopes(platform)
	if row.Scopes != "" {
		scopes = strings.Split(row.Scopes, ",")
		for i := range scopes {
			scopes[i] = strings.TrimSpace(scopes[i])
		}
	}
	return model.PlatformCredentials{
		AppID:       row.AppID,
		AppSecret:   row.AppSecret,
		RedirectURI: redirect,
		APIVersion:  row.APIVersion,
		Scopes:      scopes,
	}
}

func defaultScopes(platform model.Platform) []string {
	switch platform {
	case model.PlatformFacebook:
		return []string{"pages_show_list", "pages_read_engagement", "pages_manage_posts", "read_insights"}
	case model.PlatformInstagram:
		return []string{"instagram_basic", "instagram_content_publish", "instagram_manage_insights", "pages_show_list"}
	case model.PlatformWhatsApp:
		return []string{"whatsapp_business_management", "whatsapp_business_messaging"}
	case model.PlatformLinkedIn:
		return []string{"openid", "profile", "w_member_social"}
	case model.PlatformTwitter:
		return []string{"tweet.read", "tweet.write", "users.read", "offline.access"}
	case model.PlatformYouTube:
		return []string{"https://www.googleapis.com/auth/youtube", "https://www.googleapis.com/auth/youtube.upload"}
	}
	return nil
}
