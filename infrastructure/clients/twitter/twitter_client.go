// Package twitter is a stub pending elevated API access. Every call
// returns a structured not-available result so fan-outs over mixed
// platforms keep working.
package twitter

import (
	"context"

	"socialhub/domain/dto"
)

const notAvailable = "Twitter publishing requires elevated API access and is not yet available."

type Client struct{}

func NewClient() *Client { return &Client{} }

func (c *Client) Publish(ctx context.Context, targetID, accessToken string, req *dto.PublishRequest) *dto.PublishResult {
	return &dto.PublishResult{Success: false, Error: notAvailable}
}

func (c *Client) FetchPosts(ctx context.Context, targetID, accessToken, cursor string, limit int) *dto.FetchResult {
	return &dto.FetchResult{Success: false, Error: notAvailable}
}

func (c *Client) FetchComments(ctx context.Context, postID, accessToken, cursor string) *dto.FetchResult {
	return &dto.FetchResult{Success: false, Error: notAvailable}
}

func (c *Client) GetAnalytics(ctx context.Context, targetID, accessToken string) *dto.AnalyticsResult {
	return &dto.AnalyticsResult{Success: false, Error: notAvailable}
}
