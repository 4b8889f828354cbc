// Package adapters normalizes the OAuth dialects of the supported social
// platforms behind one exchange/refresh/revoke contract. Adapters are the
// token-lifecycle half of a platform integration; content and analytics
// calls live in infrastructure/clients.
package adapters

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialhub/domain/model"
	"socialhub/domain/repository"
)

const httpTimeout = 30 * time.Second

// NewAdapter builds the adapter for a platform. This is the single place
// that maps the platform enum onto a concrete OAuth dialect.
func NewAdapter(platform model.Platform, creds model.PlatformCredentials) (repository.ISocialPlatformAdapter, error) {
	switch platform {
	case model.PlatformFacebook:
		return NewFacebookAdapter(creds), nil
	case model.PlatformInstagram:
		return NewInstagramAdapter(creds), nil
	case model.PlatformLinkedIn:
		return NewLinkedInAdapter(creds), nil
	case model.PlatformTwitter:
		return NewTwitterAdapter(creds), nil
	case model.PlatformYouTube:
		return NewYouTubeAdapter(creds), nil
	case model.PlatformWhatsApp:
		return NewWhatsAppAdapter(creds), nil
	}
	return nil, fmt.Errorf("no adapter for platform: %s", platform)
}

// tokenResponse is the common shape most token endpoints answer with.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	Scope        string `json:"scope"`
}

// decodeTokenBody decodes a token endpoint response, surfacing the
// platform's JSON error envelope when the request was rejected.
func decodeTokenBody(resp *http.Response) (*tokenResponse, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("token endpoint returned %d: %s", resp.StatusCode, extractAPIError(body))
	}
	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("decode token response: %w", err)
	}
	if tok.AccessToken == "" {
		return nil, fmt.Errorf("token endpoint returned no access_token")
	}
	return &tok, nil
}

// extractAPIError digs the human-readable message out of the differing
// error envelopes: Graph uses {"error":{"message":...}}, LinkedIn uses
// {"message":...} or {"error":...,"error_description":...}.
func extractAPIError(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			return envelope.Error.Message
		}
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.ErrorDescription != "" {
			return envelope.ErrorDescription
		}
	}
	// "error" may also be a bare string
	var alt struct {
		Error            string `json:"error"`
		ErrorDescription string `json:"error_description"`
	}
	if err := json.Unmarshal(body, &alt); err == nil {
		if alt.ErrorDescription != "" {
			return alt.ErrorDescription
		}
		if alt.Error != "" {
			return alt.Error
		}
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

// postForm issues a POST with application/x-www-form-urlencoded body, the
// exchange style used by LinkedIn and Twitter.
func postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}
	return client.Do(req)
}
