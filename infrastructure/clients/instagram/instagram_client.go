// Package instagram wraps the Instagram Graph API. Publishing is a
// three-step container protocol: create a media container, wait for
// asynchronous processing (video only), then publish the container.
package instagram

import (
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

const (
	rateLimitError = "Rate limit exceeded for instagram API. Please try again later."

	// Video containers are polled every pollInterval up to maxPollAttempts
	// before the publish attempt is abandoned (~60s worst case).
	maxPollAttempts = 30
)

var defaultPollInterval = 2 * time.Second

// Client calls the Instagram Graph API for one Business account.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	uploadClient *http.Client // container creation gets a longer deadline
	limiter      repository.IRateLimiter
	limitKey     string
	pollInterval time.Duration
}

func NewClient(apiVersion string, limiter repository.IRateLimiter, limitKey string) *Client {
	if apiVersion == "" {
		apiVersion = "v19.0"
	}
	return &Client{
		baseURL:      "https://graph.facebook.com/" + apiVersion,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		uploadClient: &http.Client{Timeout: 60 * time.Second},
		limiter:      limiter,
		limitKey:     limitKey,
		pollInterval: defaultPollInterval,
	}
}

// WithBaseURL overrides the Graph endpoint, for tests.
func (c *Client) WithBaseURL(base string) *Client {
	c.baseURL = base
	return c
}

// WithPollInterval shortens the container poll interval, for tests.
func (c *Client) WithPollInterval(d time.Duration) *Client {
	c.pollInterval = d
	return c
}

// Publish runs the container protocol. Carousels create one child
// container per image before the parent; video and story-video containers
// are polled until FINISHED before media_publish is attempted.
func (c *Client) Publish(ctx context.Context, igUserID, accessToken string, req *dto.PublishRequest) *dto.PublishResult {
	if ok := c.allow(ctx); !ok {
		return &dto.PublishResult{Success: false, Error: rateLimitError}
	}

	containerID, needsPoll, err := c.createContainer(ctx, igUserID, accessToken, req)
	if err != nil {
		c.log("POST", igUserID, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}

	if needsPoll {
		if err := c.waitForContainer(ctx, containerID, accessToken); err != nil {
			c.log("GET", containerID, false, err)
			// Surface the container id so a caller can resume once
			// processing completes out of band.
			return &dto.PublishResult{Success: false, ContainerID: containerID, Error: err.Error()}
		}
	}

	mediaID, err := c.publishContainer(ctx, igUserID, containerID, accessToken)
	if err != nil {
		c.log("POST", igUserID, false, err)
		return &dto.PublishResult{Success: false, ContainerID: containerID, Error: err.Error()}
	}

	permalink := c.fetchPermalink(ctx, mediaID, accessToken)
	c.log("POST", igUserID, true, nil)
	return &dto.PublishResult{Success: true, PostID: mediaID, Permalink: permalink}
}

// createContainer creates the staging object. Returns the container id and
// whether asynchronous processing has to be awaited.
func (c *Client) createContainer(ctx context.Context, igUserID, accessToken string, req *dto.PublishRequest) (string, bool, error) {
	endpoint := fmt.Sprintf("%s/%s/media", c.baseURL, url.PathEscape(igUserID))

	form := url.Values{}
	form.Set("access_token", accessToken)
	needsPoll := false

	switch {
	case len(req.ImageURLs) > 1:
		// Carousel: one child container per image, then the parent.
		children := make([]string, 0, len(req.ImageURLs))
		for _, imageURL := range req.ImageURLs {
			cf := url.Values{}
			cf.Set("access_token", accessToken)
			cf.Set("image_url", imageURL)
			cf.Set("is_carousel_item", "true")
			childID, err := c.containerRequest(ctx, endpoint, cf)
			if err != nil {
				return "", false, fmt.Errorf("carousel child container: %w", err)
			}
			children = append(children, childID)
		}
		form.Set("media_type", "CAROUSEL")
		form.Set("children", strings.Join(children, ","))
		if req.Message != "" {
			form.Set("caption", req.Message)
		}
	case req.IsStory && req.VideoURL != "":
		form.Set("media_type", "STORIES")
		form.Set("video_url", req.VideoURL)
		needsPoll = true
	case req.IsStory:
		form.Set("media_type", "STORIES")
		form.Set("image_url", req.ImageURL)
	case req.VideoURL != "":
		form.Set("media_type", "REELS")
		form.Set("video_url", req.VideoURL)
		if req.Message != "" {
			form.Set("caption", req.Message)
		}
		needsPoll = true
	case req.ImageURL != "":
		form.Set("image_url", req.ImageURL)
		if req.Message != "" {
			form.Set("caption", req.Message)
		}
	default:
		return "", false, fmt.Errorf("instagram requires an image or video")
	}

	id, err := c.containerRequest(ctx, endpoint, form)
	if err != nil {
		return "", false, err
	}
	return id, needsPoll, nil
}

// waitForContainer polls the container status until FINISHED. ERROR or
// EXPIRED fail immediately; exhausting the attempts yields a timeout error
// and no media_publish call is made.
func (c *Client) waitForContainer(ctx context.Context, containerID, accessToken string) error {
	q := url.Values{}
	q.Set("fields", "status_code")
	q.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(containerID), q.Encode())

	for attempt := 0; attempt < maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.pollInterval):
		}

		body, err := c.get(ctx, endpoint)
		if err != nil {
			return fmt.Errorf("container status: %w", err)
		}
		var status struct {
			StatusCode string `json:"status_code"`
		}
		if err := json.Unmarshal(body, &status); err != nil {
			return fmt.Errorf("decode container status: %w", err)
		}
		switch status.StatusCode {
		case "FINISHED":
			return nil
		case "ERROR", "EXPIRED":
			return fmt.Errorf("video processing failed with status %s", status.StatusCode)
		}
	}
	return fmt.Errorf("video processing timeout: container %s not finished after %d attempts", containerID, maxPollAttempts)
}

func (c *Client) publishContainer(ctx context.Context, igUserID, containerID, accessToken string) (string, error) {
	form := url.Values{}
	form.Set("creation_id", containerID)
	form.Set("access_token", accessToken)
	endpoint := fmt.Sprintf("%s/%s/media_publish", c.baseURL, url.PathEscape(igUserID))

	body, err := c.postForm(ctx, c.httpClient, endpoint, form)
	if err != nil {
		return "", fmt.Errorf("media publish: %w", err)
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", fmt.Errorf("media publish returned no id")
	}
	return out.ID, nil
}

func (c *Client) fetchPermalink(ctx context.Context, mediaID, accessToken string) string {
	q := url.Values{}
	q.Set("fields", "permalink")
	q.Set("access_token", accessToken)
	body, err := c.get(ctx, fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(mediaID), q.Encode()))
	if err != nil {
		return ""
	}
	var out struct {
		Permalink string `json:"permalink"`
	}
	_ = json.Unmarshal(body, &out)
	return out.Permalink
}

// FetchPosts lists the account's published media.
func (c *Client) FetchPosts(ctx context.Context, igUserID, accessToken, cursor string, limit int) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	q := url.Values{}
	q.Set("fields", "id,caption,media_type,media_url,permalink,timestamp,like_count,comments_count")
	q.Set("access_token", accessToken)
	if limit > 0 {
		q.Set("limit", fmt.Sprintf("%d", limit))
	}
	if cursor != "" {
		q.Set("after", cursor)
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/media?%s", c.baseURL, url.PathEscape(igUserID), q.Encode()))
	if err != nil {
		c.log("GET", igUserID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", igUserID, true, nil)
	return decodeList(body)
}

// FetchComments lists comments on one media object.
func (c *Client) FetchComments(ctx context.Context, mediaID, accessToken, cursor string) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	q := url.Values{}
	q.Set("fields", "id,text,username,timestamp,like_count")
	q.Set("access_token", accessToken)
	if cursor != "" {
		q.Set("after", cursor)
	}
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/comments?%s", c.baseURL, url.PathEscape(mediaID), q.Encode()))
	if err != nil {
		c.log("GET", mediaID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}
	c.log("GET", mediaID, true, nil)
	return decodeList(body)
}

// GetAnalytics pulls account insights and merges follower counts fetched
// from the account fields endpoint.
func (c *Client) GetAnalytics(ctx context.Context, igUserID, accessToken string) *dto.AnalyticsResult {
	if ok := c.allow(ctx); !ok {
		return &dto.AnalyticsResult{Success: false, Error: rateLimitError}
	}
	metrics := map[string]float64{}

	q := url.Values{}
	q.Set("metric", "impressions,reach,profile_views")
	q.Set("period", "day")
	q.Set("access_token", accessToken)
	body, err := c.get(ctx, fmt.Sprintf("%s/%s/insights?%s", c.baseURL, url.PathEscape(igUserID), q.Encode()))
	if err != nil {
		c.log("GET", igUserID, false, err)
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
				metrics[m.Name] = m.Values[len(m.Values)-1].Value
			}
		}
	}

	fq := url.Values{}
	fq.Set("fields", "followers_count,media_count")
	fq.Set("access_token", accessToken)
	if fbody, err := c.get(ctx, fmt.Sprintf("%s/%s?%s", c.baseURL, url.PathEscape(igUserID), fq.Encode())); err == nil {
		var account struct {
			FollowersCount float64 `json:"followers_count"`
			MediaCount     float64 `json:"media_count"`
		}
		if json.Unmarshal(fbody, &account) == nil {
			metrics["followers_count"] = account.FollowersCount
			metrics["media_count"] = account.MediaCount
		}
	}

	c.log("GET", igUserID, true, nil)
	return &dto.AnalyticsResult{Success: true, Metrics: metrics}
}

func (c *Client) containerRequest(ctx context.Context, endpoint string, form url.Values) (string, error) {
	body, err := c.postForm(ctx, c.uploadClient, endpoint, form)
	if err != nil {
		return "", err
	}
	var out struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(body, &out); err != nil || out.ID == "" {
		return "", fmt.Errorf("container creation returned no id")
	}
	return out.ID, nil
}

func (c *Client) allow(ctx context.Context) bool {
	ok, err := c.limiter.Attempt(ctx, c.limitKey)
	if err != nil {
		logger.Platform("instagram").WithField("error", err).Warn("rate limiter unavailable, allowing call")
		return true
	}
	return ok
}

func (c *Client) log(method, resource string, success bool, err error) {
	entry := logger.Platform("instagram").
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
	return c.do(c.httpClient, req)
}

func (c *Client) postForm(ctx context.Context, client *http.Client, endpoint string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(client, req)
}

func (c *Client) do(client *http.Client, req *http.Request) ([]byte, error) {
	resp, err := client.Do(req)
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
