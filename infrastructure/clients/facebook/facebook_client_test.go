package facebook

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"socialhub/domain/dto"
	"socialhub/infrastructure/ratelimit"
)

func newTestClient(srvURL string) *Client {
	limiter := ratelimit.NewMemoryLimiter(ratelimit.QuotaFor("facebook"), ratelimit.Window)
	return NewClient("v19.0", limiter, ratelimit.Key("facebook", "page-1")).WithBaseURL(srvURL)
}

func TestPublishPicksEndpointFromMedia(t *testing.T) {
	tests := []struct {
		name string
		req  *dto.PublishRequest
		path string
		form map[string]string
	}{
		{
			name: "text goes to the feed",
			req:  &dto.PublishRequest{Message: "hello", LinkURL: "https://example.com"},
			path: "/page-1/feed",
			form: map[string]string{"message": "hello", "link": "https://example.com"},
		},
		{
			name: "image goes to photos",
			req:  &dto.PublishRequest{Message: "pic", ImageURL: "https://cdn.example.com/pic.jpg"},
			path: "/page-1/photos",
			form: map[string]string{"url": "https://cdn.example.com/pic.jpg", "caption": "pic"},
		},
		{
			name: "video wins over image",
			req: &dto.PublishRequest{
				Message:  "clip",
				Title:    "My clip",
				ImageURL: "https://cdn.example.com/pic.jpg",
				VideoURL: "https://cdn.example.com/clip.mp4",
			},
			path: "/page-1/videos",
			form: map[string]string{
				"file_url":    "https://cdn.example.com/clip.mp4",
				"description": "clip",
				"title":       "My clip",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				require.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, tt.path, r.URL.Path)
				require.NoError(t, r.ParseForm())
				assert.Equal(t, "token", r.PostForm.Get("access_token"))
				for k, v := range tt.form {
					assert.Equal(t, v, r.PostForm.Get(k), "form field %s", k)
				}
				_, _ = w.Write([]byte(`{"id":"pg_1","post_id":"pg_1_99"}`))
			}))
			defer srv.Close()

			res := newTestClient(srv.URL).Publish(context.Background(), "page-1", "token", tt.req)
			require.True(t, res.Success, res.Error)
			assert.Equal(t, "pg_1_99", res.PostID, "post_id must win over id")
			assert.Equal(t, "https://www.facebook.com/pg_1_99", res.Permalink)
		})
	}
}

func TestPublishRejectedWhenQuotaExhausted(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("no API call expected once the quota is exhausted")
	}))
	defer srv.Close()

	limiter := ratelimit.NewMemoryLimiter(1, ratelimit.Window)
	key := ratelimit.Key("facebook", "page-1")
	_, _ = limiter.Attempt(context.Background(), key)

	client := NewClient("v19.0", limiter, key).WithBaseURL(srv.URL)
	res := client.Publish(context.Background(), "page-1", "token", &dto.PublishRequest{Message: "hi"})

	require.False(t, res.Success)
	assert.Equal(t, rateLimitError, res.Error)
}

func TestPublishSurfacesGraphError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"message":"(#200) Requires publish_pages permission","code":200}}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).Publish(context.Background(), "page-1", "token", &dto.PublishRequest{Message: "hi"})
	require.False(t, res.Success)
	assert.Contains(t, res.Error, "Requires publish_pages permission")
}

func TestFetchPostsPagination(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/page-1/posts", r.URL.Path)
		assert.Equal(t, "cursor-1", r.URL.Query().Get("after"))
		assert.Equal(t, "25", r.URL.Query().Get("limit"))
		assert.Equal(t, "token", r.URL.Query().Get("access_token"))
		_, _ = w.Write([]byte(`{"data":[{"id":"p1"},{"id":"p2"}],"paging":{"cursors":{"after":"cursor-2"}}}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).FetchPosts(context.Background(), "page-1", "token", "cursor-1", 25)
	require.True(t, res.Success, res.Error)
	assert.Len(t, res.Items, 2)
	assert.Equal(t, "cursor-2", res.NextCursor)
}

func TestGetAnalyticsMergesInsightsAndPageFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/page-1/insights" {
			_, _ = w.Write([]byte(`{"data":[{"name":"page_impressions","values":[{"value":10},{"value":42}]}]}`))
			return
		}
		require.Equal(t, "/page-1", r.URL.Path)
		_, _ = w.Write([]byte(`{"fan_count":1200,"followers_count":1150}`))
	}))
	defer srv.Close()

	res := newTestClient(srv.URL).GetAnalytics(context.Background(), "page-1", "token")
	require.True(t, res.Success, res.Error)
	assert.Equal(t, float64(42), res.Metrics["page_impressions"], "latest datapoint wins")
	assert.Equal(t, float64(1200), res.Metrics["fan_count"])
	assert.Equal(t, float64(1150), res.Metrics["followers_count"])
}
