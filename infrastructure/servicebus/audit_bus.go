package servicebus

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/messaging/azservicebus"

	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
)

// AuditBus forwards audit entries to an Azure Service Bus queue for the
// downstream compliance pipeline. With a nil client it is a no-op.
type AuditBus struct {
	client *azservicebus.Client
	queue  string
}

// NewClient builds an azservicebus client with the default Azure credential
// chain. Namespace is the fully qualified host, e.g. "myns.servicebus.windows.net".
func NewClient(namespace string) (*azservicebus.Client, error) {
	cred, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("azure credential: %w", err)
	}
	return azservicebus.NewClient(namespace, cred, nil)
}

func NewAuditBus(client *azservicebus.Client, queue string) *AuditBus {
	if queue == "" {
		queue = "audit-entries"
	}
	return &AuditBus{client: client, queue: queue}
}

// Append satisfies the audit sink contract so the bus can be fanned out
// alongside the Mongo repository.
func (b *AuditBus) Append(ctx context.Context, entry *model.AuditEntry) error {
	return b.Forward(ctx, entry)
}

func (b *AuditBus) Forward(ctx context.Context, entry *model.AuditEntry) error {
	if b.client == nil {
		return nil
	}
	body, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	sender, err := b.client.NewSender(b.queue, nil)
	if err != nil {
		logger.GetLogger().
			WithField("error", err).
			Error("Error while making new sender service bus.")
		return err
	}
	defer func(sender *azservicebus.Sender, ctx context.Context) {
		if err := sender.Close(ctx); err != nil {
			logger.GetLogger().
				WithField("error", err).
				Error("Error while closing sender.")
		}
	}(sender, ctx)

	subject := entry.Action
	if err := sender.SendMessage(ctx, &azservicebus.Message{Body: body, Subject: &subject}, nil); err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while sending message.")
		return err
	}
	return nil
}
