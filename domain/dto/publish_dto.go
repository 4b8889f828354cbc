package dto

// PublishRequest describes content headed for one platform. Exactly which
// optional media field is set decides the platform endpoint used.
type PublishRequest struct {
	Message   string   `json:"message"`
	LinkURL   string   `json:"link_url,omitempty"`
	ImageURL  string   `json:"image_url,omitempty"`
	VideoURL  string   `json:"video_url,omitempty"`
	ImageURLs []string `json:"image_urls,omitempty"` // Instagram carousel children
	IsStory   bool     `json:"is_story,omitempty"`
	Title     string   `json:"title,omitempty"` // video title where supported
}

// PublishResult is the structured outcome of a publish attempt. Platform
// rejections are data, not errors, so a multi-platform fan-out can keep
// going when one target fails.
type PublishResult struct {
	Success     bool   `json:"success"`
	PostID      string `json:"post_id,omitempty"`
	Permalink   string `json:"permalink,omitempty"`
	UploadURL   string `json:"upload_url,omitempty"`   // YouTube resumable session
	ContainerID string `json:"container_id,omitempty"` // Instagram container on failure, for resume
	Error       string `json:"error,omitempty"`
}

// FetchResult wraps a platform-native listing with its pagination token
// passed through unchanged.
type FetchResult struct {
	Success    bool                     `json:"success"`
	Items      []map[string]interface{} `json:"items,omitempty"`
	NextCursor string                   `json:"next_cursor,omitempty"`
	Error      string                   `json:"error,omitempty"`
}

// AnalyticsResult is a flat metric map extracted from a platform's insight
// endpoints, merged with engagement counts where the insights endpoint does
// not include them.
type AnalyticsResult struct {
	Success bool               `json:"success"`
	Metrics map[string]float64 `json:"metrics,omitempty"`
	Error   string             `json:"error,omitempty"`
}
