package model

import "time"

// AuditEntry is an append-only operational record for token lifecycle
// events (connect, refresh failure, disconnect, force reauthorization).
type AuditEntry struct {
	Action      string                 `bson:"action" json:"action"`
	Platform    string                 `bson:"platform" json:"platform"`
	WorkspaceID int64                  `bson:"workspace_id,omitempty" json:"workspace_id,omitempty"`
	AccountID   int64                  `bson:"account_id,omitempty" json:"account_id,omitempty"`
	ActorID     string                 `bson:"actor_id,omitempty" json:"actor_id,omitempty"`
	Detail      map[string]interface{} `bson:"detail,omitempty" json:"detail,omitempty"`
	CreatedAt   time.Time              `bson:"created_at" json:"created_at"`
}

// OAuthState is the ephemeral anti-CSRF record cached while a connection
// attempt is awaiting its callback. Consumed exactly once.
type OAuthState struct {
	Platform  Platform  `json:"platform"`
	CreatedAt time.Time `json:"created_at"`
}
