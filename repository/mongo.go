package repository

import (
	"context"
	"fmt"
	"go-task-api/logger"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

const (
	usersCollection    = "users"
	projectsCollection = "projects"
	tasksCollection    = "tasks"
)

// EnsureMongoIndexes creates the unique and lookup indexes the document store
// relies on. It is safe to call on every start.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "userName", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		projectsCollection: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		tasksCollection: {
			{Keys: bson.D{{Key: "createdBy", Value: 1}}},
			{Keys: bson.D{{Key: "assignee.id", Value: 1}}},
			{Keys: bson.D{{Key: "project", Value: 1}}},
		},
	}
	for name, models := range indexes {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, models); err != nil {
			logger.Log.WithError(err).WithField("collection", name).Error("Failed to create indexes")
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	logger.Log.Info("MongoDB indexes are in place")
	return nil
}
