package repository

import (
	"context"

	"socialhub/domain/dto"
)

// IPlatformClient is the content/analytics REST contract every platform
// client implements. Calls return structured results instead of errors so a
// multi-platform publish fan-out survives single-target failures; rate-limit
// exhaustion comes back the same way without a network call being made.
type IPlatformClient interface {
	Publish(ctx context.Context, targetID, accessToken string, req *dto.PublishRequest) *dto.PublishResult
	FetchPosts(ctx context.Context, targetID, accessToken, cursor string, limit int) *dto.FetchResult
	FetchComments(ctx context.Context, postID, accessToken, cursor string) *dto.FetchResult
	GetAnalytics(ctx context.Context, targetID, accessToken string) *dto.AnalyticsResult
}
