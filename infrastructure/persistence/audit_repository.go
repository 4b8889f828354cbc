package persistence

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"

	"socialhub/domain/model"
	"socialhub/infrastructure/logger"
)

// AuditRepository appends token lifecycle events to a Mongo collection.
// Constructed with a nil client it becomes a no-op so the service keeps
// running when Mongo is not available.
type AuditRepository struct {
	collection *mongo.Collection
}

func NewAuditRepository(client *mongo.Client, database string) *AuditRepository {
	if client == nil {
		logger.GetLogger().Info("MongoDB client is nil - audit entries will not be persisted")
		return &AuditRepository{}
	}
	if database == "" {
		database = "socialhub"
	}
	return &AuditRepository{collection: client.Database(database).Collection("audit_entries")}
}

func (r *AuditRepository) Append(ctx context.Context, entry *model.AuditEntry) error {
	if r.collection == nil {
		return nil
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		logger.GetLogger().WithField("error", err).Error("Error while appending audit entry")
	}
	return err
}
