package db

import (
	"context"
	"fmt"
	"go-task-api/config"
	"go-task-api/logger"
	"time"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ConnectMongo connects to the document store and returns the configured database.
func ConnectMongo(ctx context.Context, cfg config.DatabaseConfig) (*mongo.Client, *mongo.Database, error) {
	logger.Log.WithField("database", cfg.Name).Info("Attempting to connect to MongoDB")

	client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		logger.Log.WithError(err).Error("Failed to create MongoDB client")
		return nil, nil, fmt.Errorf("failed to connect to mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		logger.Log.WithError(err).Error("Failed to ping MongoDB")
		return nil, nil, fmt.Errorf("failed to ping mongo: %w", err)
	}

	logger.Log.Info("MongoDB connection established successfully")
	return client, client.Database(cfg.Name), nil
}
