package youtube

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"socialhub/domain/dto"
	"socialhub/infrastructure/ratelimit"
)

func newTestClient() *Client {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.QuotaFor("youtube"), ratelimit.Window)
	return NewClient(limiter, ratelimit.Key("youtube", "channel-1"))
}

func TestPublishInitializesResumableSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "resumable", r.URL.Query().Get("uploadType"))
		assert.Equal(t, "snippet,status", r.URL.Query().Get("part"))
		assert.Equal(t, "Bearer token", r.Header.Get("Authorization"))
		assert.Equal(t, "video/*", r.Header.Get("X-Upload-Content-Type"))

		body, _ := io.ReadAll(r.Body)
		var metadata struct {
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				ChannelID   string `json:"channelId"`
			} `json:"snippet"`
			Status struct {
				PrivacyStatus string `json:"privacyStatus"`
			} `json:"status"`
		}
		require.NoError(t, json.Unmarshal(body, &metadata))
		assert.Equal(t, "My upload", metadata.Snippet.Title)
		assert.Equal(t, "channel-1", metadata.Snippet.ChannelID)
		assert.Equal(t, "public", metadata.Status.PrivacyStatus)

		w.Header().Set("Location", "https://uploads.example.com/session/abc")
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := newTestClient().WithUploadURL(srv.URL)
	res := client.Publish(context.Background(), "channel-1", "token", &dto.PublishRequest{
		Title:    "My upload",
		Message:  "description",
		VideoURL: "https://cdn.example.com/clip.mp4",
	})

	require.True(t, res.Success, res.Error)
	assert.Equal(t, "https://uploads.example.com/session/abc", res.UploadURL)
}

func TestPublishFailsWithoutSessionLocation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK) // no Location header
	}))
	defer srv.Close()

	client := newTestClient().WithUploadURL(srv.URL)
	res := client.Publish(context.Background(), "channel-1", "token", &dto.PublishRequest{Title: "clip"})

	require.False(t, res.Success)
	assert.Contains(t, res.Error, "no Location header")
}

func TestPublishRejectedWhenQuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected once the quota is exhausted")
	}))
	defer srv.Close()

	limiter := ratelimit.NewMemoryLimiter(1, ratelimit.Window)
	key := ratelimit.Key("youtube", "channel-1")
	_, _ = limiter.Attempt(context.Background(), key)

	client := NewClient(limiter, key).WithUploadURL(srv.URL)
	res := client.Publish(context.Background(), "channel-1", "token", &dto.PublishRequest{Title: "clip"})

	require.False(t, res.Success)
	assert.Equal(t, rateLimitError, res.Error)
}

func TestGetAnalyticsFlattensChannelStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "channels"), r.URL.Path)
		assert.Equal(t, "channel-1", r.URL.Query().Get("id"))
		// the Data API serializes uint64 statistics as strings
		_, _ = w.Write([]byte(`{"items":[{"statistics":{"viewCount":"1200","subscriberCount":"300","videoCount":"12"}}]}`))
	}))
	defer srv.Close()

	client := newTestClient()
	client.newService = func(ctx context.Context, accessToken string) (*yt.Service, error) {
		return yt.NewService(ctx,
			option.WithEndpoint(srv.URL+"/"),
			option.WithHTTPClient(srv.Client()))
	}

	res := client.GetAnalytics(context.Background(), "channel-1", "token")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, float64(1200), res.Metrics["view_count"])
	assert.Equal(t, float64(300), res.Metrics["subscriber_count"])
	assert.Equal(t, float64(12), res.Metrics["video_count"])
}
