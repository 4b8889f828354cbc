package persistence

import (
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"socialhub/infrastructure/configuration"
)

// NewMongoDb connects the audit trail database. The caller pings and decides
// whether to continue without Mongo when unavailable.
func NewMongoDb() (*mongo.Client, error) {
	uri := configuration.C.Mongo.URI
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}
	return mongo.Connect(options.Client().ApplyURI(uri))
}
