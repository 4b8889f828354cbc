// Package youtube wraps the YouTube Data API for channel content,
// statistics and resumable video upload sessions.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	yt "google.golang.org/api/youtube/v3"

	"socialhub/domain/dto"
	"socialhub/domain/repository"
	"socialhub/infrastructure/logger"
)

const (
	rateLimitError = "Rate limit exceeded for youtube API. Please try again later."

	uploadEndpoint = "https://www.googleapis.com/upload/youtube/v3/videos"
)

// Client calls the Data API on behalf of one connected channel. A service
// is built per call from the account's access token; token refresh is the
// orchestration layer's job, not the client's.
type Client struct {
	httpClient *http.Client
	uploadURL  string
	limiter    repository.IRateLimiter
	limitKey   string

	// newService is swappable in tests.
	newService func(ctx context.Context, accessToken string) (*yt.Service, error)
}

func NewClient(limiter repository.IRateLimiter, limitKey string) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		uploadURL:  uploadEndpoint,
		limiter:    limiter,
		limitKey:   limitKey,
	}
	c.newService = func(ctx context.Context, accessToken string) (*yt.Service, error) {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken, TokenType: "Bearer"})
		return yt.NewService(ctx, option.WithTokenSource(src))
	}
	return c
}

// WithUploadURL overrides the resumable upload endpoint, for tests.
func (c *Client) WithUploadURL(u string) *Client {
	c.uploadURL = u
	return c
}

// Publish initializes a resumable upload session for a video and returns
// the session URL; pushing the bytes is the caller's responsibility.
func (c *Client) Publish(ctx context.Context, channelID, accessToken string, req *dto.PublishRequest) *dto.PublishResult {
	if ok := c.allow(ctx); !ok {
		return &dto.PublishResult{Success: false, Error: rateLimitError}
	}
	if req.VideoURL == "" && req.Title == "" {
		return &dto.PublishResult{Success: false, Error: "youtube publishing requires a video"}
	}

	metadata := fmt.Sprintf(`{"snippet":{"title":%s,"description":%s,"channelId":%s},"status":{"privacyStatus":"public"}}`,
		strconv.Quote(req.Title), strconv.Quote(req.Message), strconv.Quote(channelID))

	endpoint := c.uploadURL + "?" + url.Values{
		"uploadType": {"resumable"},
		"part":       {"snippet,status"},
	}.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(metadata))
	if err != nil {
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	httpReq.Header.Set("Authorization", "Bearer "+accessToken)
	httpReq.Header.Set("Content-Type", "application/json; charset=UTF-8")
	httpReq.Header.Set("X-Upload-Content-Type", "video/*")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.log("POST", channelID, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("resumable session init returned %d", resp.StatusCode)
		c.log("POST", channelID, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	uploadLocation := resp.Header.Get("Location")
	if uploadLocation == "" {
		err := fmt.Errorf("resumable session init returned no Location header")
		c.log("POST", channelID, false, err)
		return &dto.PublishResult{Success: false, Error: err.Error()}
	}
	c.log("POST", channelID, true, nil)
	return &dto.PublishResult{Success: true, UploadURL: uploadLocation}
}

// FetchPosts lists the channel's videos with their statistics, passing the
// Data API's page token through as the cursor.
func (c *Client) FetchPosts(ctx context.Context, channelID, accessToken, cursor string, limit int) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	service, err := c.newService(ctx, accessToken)
	if err != nil {
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}

	call := service.Search.List([]string{"id", "snippet"}).
		ChannelId(channelID).
		Type("video").
		Order("date")
	if limit > 0 {
		call = call.MaxResults(int64(limit))
	} else {
		call = call.MaxResults(25)
	}
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	response, err := call.Do()
	if err != nil {
		c.log("GET", channelID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}

	var videoIDs []string
	for _, item := range response.Items {
		if item.Id != nil && item.Id.VideoId != "" {
			videoIDs = append(videoIDs, item.Id.VideoId)
		}
	}

	items := make([]map[string]interface{}, 0, len(videoIDs))
	if len(videoIDs) > 0 {
		details, err := service.Videos.List([]string{"snippet", "statistics"}).Id(strings.Join(videoIDs, ",")).Do()
		if err != nil {
			c.log("GET", channelID, false, err)
			return &dto.FetchResult{Success: false, Error: err.Error()}
		}
		for _, video := range details.Items {
			items = append(items, flattenVideo(video))
		}
	}

	c.log("GET", channelID, true, nil)
	return &dto.FetchResult{Success: true, Items: items, NextCursor: response.NextPageToken}
}

// FetchComments lists top-level comment threads on one video.
func (c *Client) FetchComments(ctx context.Context, videoID, accessToken, cursor string) *dto.FetchResult {
	if ok := c.allow(ctx); !ok {
		return &dto.FetchResult{Success: false, Error: rateLimitError}
	}
	service, err := c.newService(ctx, accessToken)
	if err != nil {
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}

	call := service.CommentThreads.List([]string{"snippet"}).VideoId(videoID).MaxResults(50)
	if cursor != "" {
		call = call.PageToken(cursor)
	}
	response, err := call.Do()
	if err != nil {
		c.log("GET", videoID, false, err)
		return &dto.FetchResult{Success: false, Error: err.Error()}
	}

	items := make([]map[string]interface{}, 0, len(response.Items))
	for _, thread := range response.Items {
		if thread.Snippet == nil || thread.Snippet.TopLevelComment == nil || thread.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		cs := thread.Snippet.TopLevelComment.Snippet
		items = append(items, map[string]interface{}{
			"id":         thread.Id,
			"text":       cs.TextDisplay,
			"author":     cs.AuthorDisplayName,
			"like_count": cs.LikeCount,
			"published":  cs.PublishedAt,
		})
	}
	c.log("GET", videoID, true, nil)
	return &dto.FetchResult{Success: true, Items: items, NextCursor: response.NextPageToken}
}

// GetAnalytics returns the channel's aggregate statistics as a flat map.
func (c *Client) GetAnalytics(ctx context.Context, channelID, accessToken string) *dto.AnalyticsResult {
	if ok := c.allow(ctx); !ok {
		return &dto.AnalyticsResult{Success: false, Error: rateLimitError}
	}
	service, err := c.newService(ctx, accessToken)
	if err != nil {
		return &dto.AnalyticsResult{Success: false, Error: err.Error()}
	}

	call := service.Channels.List([]string{"statistics"})
	if channelID != "" {
		call = call.Id(channelID)
	} else {
		call = call.Mine(true)
	}
	response, err := call.Do()
	if err != nil {
		c.log("GET", channelID, false, err)
		return &dto.AnalyticsResult{Success: false, Error: err.Error()}
	}
	if len(response.Items) == 0 || response.Items[0].Statistics == nil {
		return &dto.AnalyticsResult{Success: false, Error: "channel not found"}
	}

	stats := response.Items[0].Statistics
	c.log("GET", channelID, true, nil)
	return &dto.AnalyticsResult{Success: true, Metrics: map[string]float64{
		"view_count":       float64(stats.ViewCount),
		"subscriber_count": float64(stats.SubscriberCount),
		"video_count":      float64(stats.VideoCount),
	}}
}

func flattenVideo(video *yt.Video) map[string]interface{} {
	item := map[string]interface{}{"id": video.Id}
	if video.Snippet != nil {
		item["title"] = video.Snippet.Title
		item["description"] = video.Snippet.Description
		item["published"] = video.Snippet.PublishedAt
	}
	if video.Statistics != nil {
		item["view_count"] = video.Statistics.ViewCount
		item["like_count"] = video.Statistics.LikeCount
		item["comment_count"] = video.Statistics.CommentCount
	}
	return item
}

func (c *Client) allow(ctx context.Context) bool {
	ok, err := c.limiter.Attempt(ctx, c.limitKey)
	if err != nil {
		logger.Platform("youtube").WithField("error", err).Warn("rate limiter unavailable, allowing call")
		return true
	}
	return ok
}

func (c *Client) log(method, resource string, success bool, err error) {
	entry := logger.Platform("youtube").
		WithField("method", method).
		WithField("resource", resource).
		WithField("success", success)
	if err != nil {
		entry.WithField("error", err.Error()).Warn("youtube api call failed")
		return
	}
	entry.Info("youtube api call")
}
