// Package linkedin wraps the LinkedIn REST API for UGC posting and share
// statistics.
package linkedin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"socialhub/domain/dto"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

const rateLimitError = "Rate limit exceeded for linkedin API. Please try again later."

// Client posts on behalf of one member or organization URN.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    repository.IRateLimiter
	limitKey   string
}

func NewClient(limiter repository.IRateLimiter, limitKey string) *Client {
	return &Client{
		baseURL:    "https://api.linkedin.com/v2",
		httpClient: &http.Client{Timeout: 30 * time.Second},
		limiter:    limiter,
		limitKey:   limitKey,
	}
}

// WithBaseURL overrides the API endpoint, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// Publish creates a ugcPost. shareMediaCategory switches between NONE,
// ARTICLE (link attachment) and IMAGE depending on the supplied options;
// authorURN is either a member or organization URN.
func (c *Client) Publish(ctx context.Context, authorURN, accessToken string, req *dto.PublishRequest) *dto.PublishResult {
	if ok := c.allow(ctx); !ok {
		return &dto.PublishResult{Success: false, Error: rateLimitError}
	}

	category := "NONE"
	media := []map[string]interface{}{}
	switch {
	case req.LinkURL != "":
		category = "ARTICLE"
		media = append(media, map[string]interface{}{
			"status":      "READY",
			"originalUrl": req.LinkURL,
		})
	case req.ImageURL != "":
		category = "IMAGE"
		media = append(media, map[string]interface{}{
			"status": "READY",
			"media":  req.ImageURL,
		})
	}

	shareContent := map[string]interface{}{
		"shareCommentary":    map[string]string{"text": req.Message},
		"shareMediaCategory": category,
	}
	if len(media) > 0 {
		shareContent["media"] = media
	}

	payload := map[string]interface{}{
		"author":         authorURN,
		"lifecycleState": "PUBLISHED",
		"specificContent": map[string]interface{}{
			"com.linkedin.ugc.ShareContent": shareContent,
		},
		"visibility": map[string]string{
			"com.linkedin.ugc.MemberNetworkVisibility": "PUBLIC",
		},
	}

	body, err := c.postJSON(ctx, c.baseURL+"/ugcPosts", accessToken, payload)
	if err != nil {
		c.log("POST", authorURN, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	var out struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(body, &out)
	c.log("POST", authorURN, true, nil)
	return &dto.PublishResult{
		Success:   true,
		PostID:    out.ID,
		Permalink: fmt.Sprintf("https://www.linkedin.com/feed/update/%s", url.PathEscape(out.ID)),
	}
}

// FetchPosts lists recent ugcPosts authored by the URN. LinkedIn paginates
// with a numeric start offset carried through as the cursor.
func (c *Client) FetchPosts(ctx context.Context, authorURN, accessToken, cursor string, limit int) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	q := url.Values{}
	q.Set("q", "authors")
	q.Set("authors", "List("+authorURN+")")
	if limit > 0 {
		q.Set("count", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("start", cursor)
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/ugcPosts?%s", c.baseURL, q.Encode()), accessToken)
	if err != nil {
		c.log("GET", authorURN, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", authorURN, true, nil)

	var list struct {
		Elements []map[string]interface{} `json:"elements"`
		Paging   struct {
			Start int `json:"start"`
			Count int `json:"count"`
			Total int `json:"total"`
		} `json:"paging"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return &dto.FetchResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}
	next := ""
	if list.Paging.Start+list.Paging.Count < list.Paging.Total {
		next = fmt.Sprintf("%d", list.Paging.Start+list.Paging.Count)
	}
	return &dto.FetchResult{Success: true, Items: list.Elements, NextCursor: next}
}

// FetchComments lists comments on one share.
func (c *Client) FetchComments(ctx context.Context, shareURN, accessToken, cursor string) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	q := url.Values{}
	if cursor != "" {
		q.Set("start", cursor)
	}
	endpoint := fmt.Sprintf("%s/socialActions/%s/comments", c.baseURL, url.PathEscape(shareURN))
	if len(q) > 0 {
		endpoint += "?" + q.Encode()
	}
	body, err := c.get(ctx, endpoint, accessToken)
	if err != nil {
		c.log("GET", shareURN, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", shareURN, true, nil)

	var list struct {
		Elements []map[string]interface{} `json:"elements"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		return &dto.FetchResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}
	return &dto.FetchResult{Success: true, Items: list.Elements}
}

// GetAnalytics sums organization share statistics into a flat metric map.
func (c *Client) GetAnalytics(ctx context.Context, orgURN, accessToken string) *dto.AnalyticsResult {
	if ok := c.allow(ctx); !ok {
		return &dto.AnalyticsResult{Success: false, Error: rateLimitError}
	}
	q := url.Values{}
	q.Set("q", "organizationalEntity")
	q.Set("organizationalEntity", orgURN)
	body, err := c.get(ctx, fmt.Sprintf("%s/organizationalEntityShareStatistics?%s", c.baseURL, q.Encode()), accessToken)
	if err != nil {
		c.log("GET", orgURN, false, err)
		return &dto.AnalyticsResult{Success: false, Error: err.Error()}
	}
	c.log("GET", orgURN, true, nil)

	var stats struct {
		Elements []struct {
			TotalShareStatistics map[string]float64 `json:"totalShareStatistics"`
		} `json:"elements"`
	}
	if err := json.Unmarshal(body, &stats); err != nil {
		return &dto.AnalyticsResult{Success: false, Error: fmt.Sprintf("decode response: %v", err)}
	}
	metrics := map[string]float64{}
	for _, el := range stats.Elements {
		for name, value := range el.TotalShareStatistics {
			metrics[name] += value
		}
	}
	return &dto.AnalyticsResult{Success: true, Metrics: metrics}
}

func (c *Client) allow(ctx context.Context) bool {
	ok, err := c.limiter.Attempt(ctx, c.limitKey)
	if err != nil {
		logger.Platform("linkedin").WithField("error", err).Warn("rate limiter unavailable, allowing call")
		return true
	}
	return ok
}

func (c *Client) log(method, resource string, success bool, err error) {
	entry := logger.Platform("linkedin").
		WithField("method", method).
		WithField("resource", resource).
		WithField("success", success)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("linkedin api call failed")
		return
	}
	entry.Info("linkedin api call")
}

func (c *Client) get(ctx context.Context, endpoint, accessToken string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	return c.do(req)
}

func (c *Client) postJSON(ctx context.Context, endpoint, accessToken string, payload interface{}) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(raw))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Restli-Protocol-Version", "2.0.0")
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
		return nil, fmt.Errorf("%s", linkedinError(body))
	}
	return body, nil
}

// linkedinError extracts LinkedIn's error shape: "message" on REST errors,
// or a bare "error"/"error_description" pair on OAuth-layer failures.
func linkedinError(body []byte) string {
	var envelope struct {
		Message          string `json:"message"`
		ErrorDescription string `json:"error_description"`
	}
	if json.Unmarshal(body, &envelope) == nil {
		if envelope.Message != "" {
			return envelope.Message
		}
		if envelope.ErrorDescription != "" {
			return envelope.ErrorDescription
		}
	}
	var alt struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &alt) == nil && alt.Error != "" {
		return alt.Error
	}
	s := strings.TrimSpace(string(body))
	if len(s) > 300 {
		s = s[:300]
	}
	return s
}
