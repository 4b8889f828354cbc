package model

import (
	"fmt"
	"strings"
)

// Platform identifies a supported social network.
type Platform string

const (
	PlatformFacebook  Platform = "facebook"
	PlatformInstagram Platform = "instagram"
	PlatformLinkedIn  Platform = "linkedin"
	PlatformTwitter   Platform = "twitter"
	PlatformYouTube   Platform = "youtube"
	PlatformWhatsApp  Platform = "whatsapp"
)

// AllPlatforms lists every platform in a stable order.
func AllPlatforms() []Platform {
	return []Platform{
		PlatformFacebook,
		PlatformInstagram,
		PlatformLinkedIn,
		PlatformTwitter,
		PlatformYouTube,
		PlatformWhatsApp,
	}
}

// ParsePlatform normalizes a raw platform string.
func ParsePlatform(s string) (Platform, error) {
	p := Platform(strings.ToLower(strings.TrimSpace(s)))
	switch p {
	case PlatformFacebook, PlatformInstagram, PlatformLinkedIn, PlatformTwitter, PlatformYouTube, PlatformWhatsApp:
		return p, nil
	}
	return "", fmt.Errorf("unsupported platform: %s", s)
}

func (p Platform) String() string { return string(p) }

// UsesGraphAPI reports whether the platform is served through the Facebook
// Graph API. Instagram Business accounts and WhatsApp Business numbers are
// managed via the same Graph app as Facebook pages.
func (p Platform) UsesGraphAPI() bool {
	return p == PlatformFacebook || p == PlatformInstagram || p == PlatformWhatsApp
}
