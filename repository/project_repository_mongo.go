package repository

import (
	"context"
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoProjectRepository struct {
	coll *mongo.Collection
}

func NewMongoProjectRepository(db *mongo.Database) *MongoProjectRepository {
	return &MongoProjectRepository{coll: db.Collection(projectsCollection)}
}

func (r *MongoProjectRepository) CreateProject(ctx context.Context, project *model.Project) error {
	if project.ID == "" {
		project.ID = common.NewID()
	}
	now := time.Now().UTC()
	project.CreatedAt, project.UpdatedAt = now, now

	log := logger.Log.WithFields(logrus.Fields{
		"project_id": project.ID,
		"owner_id":   project.Owner,
	})
	log.Info("Inserting a new project document")

	if _, err := r.coll.InsertOne(ctx, project); err != nil {
		log.WithError(err).Error("Failed to insert project document")
		return fmt.Errorf("create project: %w", err)
	}
	return nil
}

func (r *MongoProjectRepository) ListProjectsByOwner(ctx context.Context, ownerID string) ([]*model.Project, error) {
	log := logger.Log.WithField("owner_id", ownerID)
	log.Info("Finding projects by owner")

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := r.coll.Find(ctx, bson.M{"owner": ownerID}, opts)
	if err != nil {
		log.WithError(err).Error("Failed to find projects")
		return nil, fmt.Errorf("list projects: %w", err)
	}
	projects := []*model.Project{}
	if err := cursor.All(ctx, &projects); err != nil {
		log.WithError(err).Error("Failed to decode projects")
		return nil, fmt.Errorf("list projects: %w", err)
	}
	return projects, nil
}

func (r *MongoProjectRepository) GetProjectByIDForOwner(ctx context.Context, id, ownerID string) (*model.Project, error) {
	var project model.Project
	err := r.coll.FindOne(ctx, bson.M{"_id": id, "owner": ownerID}).Decode(&project)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("project_id", id).Error("Failed to find project")
		return nil, fmt.Errorf("get project: %w", err)
	}
	return &project, nil
}

func (r *MongoProjectRepository) ReplaceProject(ctx context.Context, project *model.Project) error {
	project.UpdatedAt = time.Now().UTC()
	res, err := r.coll.ReplaceOne(ctx, bson.M{"_id": project.ID, "owner": project.Owner}, project)
	if err != nil {
		logger.Log.WithError(err).WithField("project_id", project.ID).Error("Failed to replace project")
		return fmt.Errorf("update project: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoProjectRepository) DeleteProject(ctx context.Context, id, ownerID string) error {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id, "owner": ownerID})
	if err != nil {
		logger.Log.WithError(err).WithField("project_id", id).Error("Failed to delete project")
		return fmt.Errorf("delete project: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
