// Package facebook wraps the Facebook Graph API for page publishing,
// content listing and insights.
package facebook

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-querystring/query"

	"socialhub/domain/dto"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

const rateLimitError = "Rate limit exceeded for facebook API. Please try again later."

// Client calls the Graph API on behalf of one connected page. Every call
// goes through the rate-limit gate first; exhaustion is reported as a
// structured result without touching the network.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    repository.IRateLimiter
	limitKey   string
}

func NewClient(apiVersion string, limiter repository.IRateLimiter, limitKey string) *Client {
	if apiVersion == "" {
		apiVersion = "v19.0"
	}
	return &Client{
		baseURL:    "https://graph.facebook.com/" + apiVersion,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		limitKey:   limitKey,
	}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Publish posts to a page feed. The endpoint is picked from the supplied
// media: /videos when a video URL is present, /photos for an image,
// otherwise /feed (with an optional link attachment).
func (c *Client) Publish(ctx context.Context, pageID, accessToken string, req *dto.PublishRequest) *dto.PublishResult {
	if ok := c.allow(ctx); !ok {
		return &dto.PublishResult{Success: false, Error: rateLimitError}
	}

	form := url.Values{}
	form.Set("access_token", accessToken)
	var endpoint string
	switch {
	case req.VideoURL != "":
		endpoint = fmt.Sprintf("%s/%s/videos", c.baseURL, url.PathEscape(pageID))
		form.Set("file_url", req.VideoURL)
		if req.Message != "" {
			form.Set("description", req.Message)
		}
		if req.Title != "" {
			form.Set("title", req.Title)
		}
	case req.ImageURL != "":
		endpoint = fmt.Sprintf("%s/%s/photos", c.baseURL, url.PathEscape(pageID))
		form.Set("url", req.ImageURL)
		if req.Message != "" {
			form.Set("caption", req.Message)
		}
	default:
		endpoint = fmt.Sprintf("%s/%s/feed", c.baseURL, url.PathEscape(pageID))
		form.Set("message", req.Message)
		if req.LinkURL != "" {
			form.Set("link", req.LinkURL)
		}
	}

	body, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		c.log("POST", pageID, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	var out struct {
		ID     string `json:"id"`
		PostID string `json:"post_id"`
	}
	_ = json.Unmarshal(body, &out)
	postID := out.PostID
	if postID == "" {
		postID = out.ID
	}
	c.log("POST", pageID, true, nil)
	return &dto.PublishResult{
		Success:   true,
		PostID:    postID,
		Permalink: fmt.Sprintf("https://www.facebook.com/%s", postID),
	}
}

// postListOptions is encoded with go-querystring; the pagination cursor is
// Graph's opaque "after" token passed through unchanged.
type postListOptions struct {
	Fields      string `url:"fields"`
	Limit       int    `url:"limit,omitempty"`
	After       string `url:"after,omitempty"`
	AccessToken string `url:"access_token"`
}

// FetchPosts lists the page's published posts.
func (c *Client) FetchPosts(ctx context.Context, pageID, accessToken, cursor string, limit int) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	opts := postListOptions{
		Fields:      "id,message,created_time,permalink_url,full_picture,shares",
		Limit:       limit,
		After:       cursor,
		AccessToken: accessToken,
	}
	v, _ := query.Values(opts)
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/posts?%s", c.baseURL, url.PathEscape(pageID), v.Encode()))
	if err != nil {
		c.log("GET", pageID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", pageID, true, nil)
	return decodeList(body)
}

// FetchComments lists comments on one post.
func (c *Client) FetchComments(ctx context.Context, postID, accessToken, cursor string) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	opts := postListOptions{
		Fields:      "id,message,from,created_time,like_count",
		After:       cursor,
		AccessToken: accessToken,
	}
	v, _ := query.Values(opts)
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/comments?%s", c.baseURL, url.PathEscape(postID), v.Encode()))
	if err != nil {
		c.log("GET", postID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", postID, true, nil)
	return decodeList(body)
}

// GetAnalytics pulls page insights and merges engagement counts from the
// page fields endpoint, since insights alone omit likes/comments/shares.
func (c *Client) GetAnalytics(ctx context.Context, pageID, accessToken string) *dto.AnalyticsResult {
	if ok := c.allow(ctx); !ok {
		return &dto.AnalyticsResult{Success: false, Error: rateLimitError}
	}
	metrics := map[string]float64{}

	q := url.Values{}
	q.Set("metric", "page_impressions,page_post_engagements,page_fans")
	q.Set("period", "day")
	q.Set("access_token", accessToken)
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/insights?%s", c.baseURL, url.PathEscape(pageID), q.Encode()))
	if err != nil {
		c.log("GET", pageID, false, err)
		return &dto.AnalyticsResult{Success: false, Error: err.Error()}
	}
	var insights struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value float64 `json:"value"`
			} `json:"values"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &insights); err == nil {
		for _, m := range insights.Data {
			if len(m.Values) > 0 {
				// latest datapoint wins
				metrics[m.Name] = m.Values[len(m.Values)-1].Value
			}
		}
	}

	// Engagement counts come from a secondary fields query.
	eq := url.Values{}
	eq.Set("fields", "fan_count,followers_count")
	eq.Set("access_token", accessToken)
	if ebody, err := c.get(ctx, fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(pageID), eq.Encode())); err == nil {
		var page struct {
			FanCount       float64 `json:"fan_count"`
			FollowersCount float64 `json:"followers_count"`
		}
		if json.Unmarshal(ebody, &page) == nil {
			metrics["fan_count"] = page.FanCount
			metrics["followers_count"] = page.FollowersCount
		}
	}

	c.log("GET", pageID, true, nil)
	return &dto.AnalyticsResult{Success: true, Metrics: metrics}
}

func (c *Client) allow(ctx context.Context) bool {
	ok, err := c.limiter.Attempt(ctx, c.limitKey)
	if err != nil {
		logger.Platform("facebook").WithField("error", err).Warn("rate limiter unavailable, allowing call")
		return true
	}
	return ok
}

func (c *Client) log(method, resource string, success bool, err error) {
	entry := logger.Platform("facebook").
		WithField("method", method).
		WithField("resource", resource).
		WithField("success", success)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("graph api call failed")
		return
	}
	entry.Info("graph api call")
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) postForm(ctx context.Context, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(req)
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%s", graphError(body))
	}
	return body, nil
}

// graphError extracts Graph's {"error":{"message":...}} envelope, falling
// back to the raw body.
func graphError(body []byte) string {
	var envelope struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &envelope) == nil && envelope.Error.Message != "" {
		return envelope.Error.Message
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}

func decodeList(body []byte) *dto.FetchResult {
	var list struct {
		Data   []map[string]interface{} `json:"data"`
		Paging struct {
			Cursors struct {
				After string `json:"after"`
			} `json:"cursors"`
		} `json:"paging"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return &dto.FetchResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}
	return &dto.FetchResult{Success: true, Items: list.Data, NextCursor: list.Paging.Cursors.After}
}
