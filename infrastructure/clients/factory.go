// Package clients selects the content/analytics client for a connected
// account. One client per platform; Twitter stays a stub pending elevated
// API access.
package clients

import (
	"socialhub/domain/model"
	"socialhub/domain/repository"
	"socialhub/infrastructure/clients/facebook"
	"socialhub/infrastructure/clients/instagram"
	"socialhub/infrastructure/clients/linkedin"
	"socialhub/infrastructure/clients/twitter"
	"socialhub/infrastructure/clients/youtube"
	"socialhub/infrastructure/ratelimit"
)

// LimiterFor builds the rate-limit gate for one platform. The same limiter
// backend is shared across workspaces; the quota belongs to the platform
// app, not the tenant.
type LimiterFor func(p model.Platform) repository.IRateLimiter

// NewFactory returns the per-account client constructor used by the
// publishing layer. WhatsApp Business accounts are served through the
// Graph client, same as the OAuth side.
func NewFactory(limiterFor LimiterFor, graphAPIVersion string) func(account *model.SocialAccount) repository.IPlatformClient {
	return func(account *model.SocialAccount) repository.IPlatformClient {
		key := ratelimit.Key(account.Platform, account.PlatformAccountID)
		switch account.Platform {
		case model.PlatformFacebook, model.PlatformWhatsApp:
			return facebook.NewClient(graphAPIVersion, limiterFor(account.Platform), key)
		case model.PlatformInstagram:
			return instagram.NewClient(graphAPIVersion, limiterFor(account.Platform), key)
		case model.PlatformLinkedIn:
			return linkedin.NewClient(limiterFor(account.Platform), key)
		case model.PlatformYouTube:
			return youtube.NewClient(limiterFor(account.Platform), key)
		default:
			return twitter.NewClient()
		}
	}
}
