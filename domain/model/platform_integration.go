package model

import "time"

// PlatformIntegration is a DB-backed OAuth app configuration for one
// platform. When an active row exists it takes priority over the static
// configuration fallback.
type PlatformIntegration struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	Platform     string    `gorm:"size:32;uniqueIndex:ux_platform_active" json:"platform"`
	AppID        string    `gorm:"size:255" json:"app_id"`
	AppSecret    string    `gorm:"size:255" json:"-"`
	CallbackBase string    `gorm:"size:255" json:"callback_base"`
	APIVersion   string    `gorm:"size:32" json:"api_version"`
	Scopes       string    `gorm:"type:text" json:"scopes"` // comma separated
	Active       bool      `gorm:"uniqueIndex:ux_platform_active" json:"active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (PlatformIntegration) TableName() string {
	return "platform_integrations"
}
