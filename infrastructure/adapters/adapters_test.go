package adapters

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/domain/model"
)

var testCreds = model.PlatformCredentials{
	AppID:       "app-id",
	AppSecret:   "app-secret",
	RedirectURI: "https://hub.example.com/api/v1/oauth/facebook/callback",
}

func TestNewAdapterCoversAllPlatforms(t *testing.T) {
	for _, p := range model.AllPlatforms() {
		adapter, err := NewAdapter(p, testCreds)
		require.NoError(t, err, "platform %s", p)
		assert.NotNil(t, adapter)
	}
	_, err := NewAdapter(model.Platform("myspace"), testCreds)
	assert.Error(t, err)
}

func TestFacebookExchangeRunsLongLivedExchange(t *testing.T) {
	var grants []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth/access_token", r.URL.Path)
		grants = append(grants, r.URL.Query().Get("grant_type"))
		if r.URL.Query().Get("grant_type") == "fb_exchange_token" {
			assert.Equal(t, "short-lived", r.URL.Query().Get("fb_exchange_token"))
			_ = json.NewEncoder(w).Encode(map[string]interface{}{
				"access_token": "long-lived", "token_type": "bearer", "expires_in": 5183944,
			})
			return
		}
		assert.Equal(t, "the-code", r.URL.Query().Get("code"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "short-lived", "token_type": "bearer", "expires_in": 3600,
		})
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(testCreds).WithBaseURL(srv.URL)
	tok, err := adapter.ExchangeCode(context.Background(), "the-code", testCreds.RedirectURI, "")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "fb_exchange_token"}, grants,
		"code exchange must be followed by the long-lived exchange")
	assert.Equal(t, "long-lived", tok.AccessToken)
	assert.Equal(t, int64(5183944), tok.ExpiresIn)
	assert.Equal(t, "long-lived", tok.Metadata["user_token"])
}

func TestFacebookRefreshIsLongLivedExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "fb_exchange_token", r.URL.Query().Get("grant_type"))
		assert.Equal(t, "user-token", r.URL.Query().Get("fb_exchange_token"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "re-derived", "expires_in": 5183944,
		})
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(testCreds).WithBaseURL(srv.URL)
	tok, err := adapter.RefreshToken(context.Background(), "user-token")
	require.NoError(t, err)
	assert.Equal(t, "re-derived", tok.AccessToken)
}

func TestFacebookExchangeErrorEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid verification code format.","type":"OAuthException","code":100}}`))
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(testCreds).WithBaseURL(srv.URL)
	_, err := adapter.ExchangeCode(context.Background(), "bad-code", testCreds.RedirectURI, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid verification code format.")
}

func TestInstagramDelegatesToGraph(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "tok", "expires_in": 3600})
	}))
	defer srv.Close()

	adapter := NewInstagramAdapter(testCreds)
	adapter.WithBaseURL(srv.URL)
	tok, err := adapter.ExchangeCode(context.Background(), "c", testCreds.RedirectURI, "")
	require.NoError(t, err)
	assert.Equal(t, "tok", tok.AccessToken)
	assert.Equal(t, 2, calls)
}

func TestLinkedInExchangePostsForm(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/accessToken", r.URL.Path)
		assert.Equal(t, "application/x-www-form-urlencoded", r.Header.Get("Content-Type"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
		assert.Equal(t, "the-code", r.PostForm.Get("code"))
		assert.Equal(t, "app-id", r.PostForm.Get("client_id"))
		assert.Equal(t, "app-secret", r.PostForm.Get("client_secret"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "li-token", "refresh_token": "li-refresh", "expires_in": 5184000,
		})
	}))
	defer srv.Close()

	adapter := NewLinkedInAdapter(testCreds).WithBaseURL(srv.URL)
	tok, err := adapter.ExchangeCode(context.Background(), "the-code", testCreds.RedirectURI, "")
	require.NoError(t, err)
	assert.Equal(t, "li-token", tok.AccessToken)
	assert.Equal(t, "li-refresh", tok.RefreshToken)
}

func TestLinkedInRefreshTokenGrant(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "refresh_token", r.PostForm.Get("grant_type"))
		assert.Equal(t, "old-refresh", r.PostForm.Get("refresh_token"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"access_token": "fresh", "expires_in": 5184000})
	}))
	defer srv.Close()

	adapter := NewLinkedInAdapter(testCreds).WithBaseURL(srv.URL)
	tok, err := adapter.RefreshToken(context.Background(), "old-refresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", tok.AccessToken)
}

func TestTwitterExchangeRequiresVerifier(t *testing.T) {
	adapter := NewTwitterAdapter(testCreds)
	_, err := adapter.ExchangeCode(context.Background(), "code", testCreds.RedirectURI, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "code verifier")
}

func TestTwitterExchangeSendsVerifierAndBasicAuth(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/oauth2/token", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok, "token endpoint must use HTTP basic auth")
		assert.Equal(t, "app-id", user)
		assert.Equal(t, "app-secret", pass)
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "the-verifier", r.PostForm.Get("code_verifier"))
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token": "tw-token", "refresh_token": "tw-refresh", "expires_in": 7200,
		})
	}))
	defer srv.Close()

	adapter := NewTwitterAdapter(testCreds).WithBaseURL(srv.URL)
	tok, err := adapter.ExchangeCode(context.Background(), "the-code", testCreds.RedirectURI, "the-verifier")
	require.NoError(t, err)
	assert.Equal(t, "tw-token", tok.AccessToken)
	assert.Equal(t, "tw-refresh", tok.RefreshToken)
}

func TestDecodeTokenBodyRejectsMissingAccessToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]interface{}{"token_type": "bearer"})
	}))
	defer srv.Close()

	adapter := NewLinkedInAdapter(testCreds).WithBaseURL(srv.URL)
	_, err := adapter.ExchangeCode(context.Background(), "c", testCreds.RedirectURI, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no access_token")
}

func TestExtractAPIErrorShapes(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"graph envelope", `{"error":{"message":"bad token"}}`, "bad token"},
		{"linkedin message", `{"message":"revoked"}`, "revoked"},
		{"error description", `{"error":"invalid_grant","error_description":"expired"}`, "expired"},
		{"bare error string", `{"error":"invalid_request"}`, "invalid_request"},
		{"raw body fallback", `not json at all`, "not json at all"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractAPIError([]byte(tt.body)))
		})
	}
}

func TestFacebookRevoke(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodDelete, r.Method)
		require.Equal(t, "/me/permissions", r.URL.Path)
		assert.Equal(t, "the-token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"success":true}`))
	}))
	defer srv.Close()

	adapter := NewFacebookAdapter(testCreds).WithBaseURL(srv.URL)
	assert.NoError(t, adapter.RevokeToken(context.Background(), "the-token"))
}

func TestPostFormEncoding(t *testing.T) {
	form := url.Values{}
	form.Set("a", "1 2")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "1 2", r.PostForm.Get("a"))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	resp, err := postForm(context.Background(), srv.Client(), srv.URL, form, nil)
	require.NoError(t, err)
	_ = resp.Body.Close()
}
