package parselog

import (
	"context"
	"fmt"
	"time"

	"quiz-ingest/internal/config"
	"quiz-ingest/internal/domain"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// CollectionName is where parse logs are stored.
const CollectionName = "parse_logs"

// MongoWriter writes parse logs as documents.
type MongoWriter struct {
	coll *mongo.Collection
}

// NewMongoWriter creates a parse-log sink on the parse_logs collection of db.
func NewMongoWriter(db *mongo.Database) *MongoWriter {
	return NewMongoCollectionWriter(db.Collection(CollectionName))
}

// NewMongoCollectionWriter creates a parse-log sink on an explicit collection.
func NewMongoCollectionWriter(coll *mongo.Collection) *MongoWriter {
	return &MongoWriter{coll: coll}
}

func (w *MongoWriter) WriteParseLog(ctx context.Context, log *domain.ParseLog) error {
	if log == nil {
		return fmt.Errorf("parse log cannot be nil")
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now().UTC()
	}
	if _, err := w.coll.InsertOne(ctx, log); err != nil {
		return fmt.Errorf("failed to insert parse log: %w", err)
	}
	return nil
}

// Connect opens a Mongo client for the parse-log sink and pings it.
func Connect(ctx context.Context, cfg config.ParseLogConfig) (*mongo.Client, error) {
	if cfg.MongoURI == "" {
		return nil, fmt.Errorf("parse_log.mongo_uri is required for the mongo sink")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongo: %w", err)
	}
	return client, nil
}

var _ domain.ParseLogWriter = (*MongoWriter)(nil)
