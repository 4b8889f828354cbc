package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub"

	"socialhub/infrastructure/logger"
)

// NewPubSub builds the Pub/Sub client; credentials come from the ambient
// Google application-default chain.
func NewPubSub(ctx context.Context, projectID string) (*pubsub.Client, error) {
	if projectID == "" {
		return nil, fmt.Errorf("pubsub project id not configured")
	}
	return pubsub.NewClient(ctx, projectID)
}

// TenantNotifier publishes per-tenant notification events (token expired,
// reauthorization required) to a Pub/Sub topic. With a nil client it logs
// and drops, so notification delivery never blocks account operations.
type TenantNotifier struct {
	client *pubsub.Client
	topic  string
}

func NewTenantNotifier(client *pubsub.Client, topic string) *TenantNotifier {
	if topic == "" {
		topic = "tenant-notifications"
	}
	return &TenantNotifier{client: client, topic: topic}
}

func (n *TenantNotifier) NotifyTenant(ctx context.Context, tenantID int64, event string, payload map[string]interface{}) error {
	body := map[string]interface{}{
		"tenant_id": tenantID,
		"event":     event,
		"payload":   payload,
		"sent_at":   time.Now().UTC().Format(time.RFC3339),
	}
	data, err := json.Marshal(body)
	if err != nil {
		return err
	}
	if n.client == nil {
		logger.GetLogger().
			WithField("tenantID", tenantID).
			WithField("event", event).
			Info("PubSub client is nil - notification logged only")
		return nil
	}

	topic := n.client.Topic(n.topic)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return err
	}
	if !exists {
		if _, err = n.client.CreateTopic(ctx, n.topic); err != nil {
			return err
		}
		topic = n.client.Topic(n.topic)
	}

	serverID, err := topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"event": event},
	}).Get(ctx)
	if err != nil {
		return err
	}
	logger.GetLogger().
		WithField("server ID", serverID).
		WithField("tenantID", tenantID).
		Info("Tenant notification published")
	return nil
}
