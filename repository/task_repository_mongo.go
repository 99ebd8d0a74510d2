package repository

import (
	"context"
	"errors"
	"fmt"
	"go-task-api/common"
	"go-task-api/logger"
	"go-task-api/model"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

type MongoTaskRepository struct {
	coll *mongo.Collection
}

func NewMongoTaskRepository(db *mongo.Database) *MongoTaskRepository {
	return &MongoTaskRepository{coll: db.Collection(tasksCollection)}
}

func visibleTo(userID string) bson.M {
	return bson.M{"$or": bson.A{
		bson.M{"createdBy": userID},
		bson.M{"assignee.id": userID},
	}}
}

func (r *MongoTaskRepository) CreateTask(ctx context.Context, task *model.Task) error {
	if task.ID == "" {
		task.ID = common.NewID()
	}
	now := time.Now().UTC()
	task.CreatedAt, task.UpdatedAt = now, now

	log := logger.Log.WithFields(logrus.Fields{
		"task_id":    task.ID,
		"created_by": task.CreatedBy,
	})
	log.Info("Inserting a new task document")

	if _, err := r.coll.InsertOne(ctx, task); err != nil {
		log.WithError(err).Error("Failed to insert task document")
		return fmt.Errorf("create task: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) GetTaskForUser(ctx context.Context, id, userID string) (*model.Task, error) {
	filter := visibleTo(userID)
	filter["_id"] = id

	var task model.Task
	if err := r.coll.FindOne(ctx, filter).Decode(&task); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).WithField("task_id", id).Error("Failed to find task")
		return nil, fmt.Errorf("get task: %w", err)
	}
	return &task, nil
}

func taskFilterDocument(f model.TaskFilter) bson.M {
	filter := visibleTo(f.UserID)
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.Priority != "" {
		filter["priority"] = f.Priority
	}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.ProjectID != "" {
		filter["project"] = f.ProjectID
	}
	if s := strings.TrimSpace(f.Search); s != "" {
		re := bson.Regex{Pattern: regexp.QuoteMeta(s), Options: "i"}
		filter["$and"] = bson.A{bson.M{"$or": bson.A{
			bson.M{"title": re},
			bson.M{"description": re},
			bson.M{"tags": re},
		}}}
	}
	return filter
}

func (r *MongoTaskRepository) ListTasksForUser(ctx context.Context, filter model.TaskFilter) ([]*model.Task, int64, error) {
	log := logger.Log.WithFields(logrus.Fields{
		"user_id": filter.UserID,
		"page":    filter.Page,
		"limit":   filter.Limit,
	})
	log.Info("Finding tasks for user")

	doc := taskFilterDocument(filter)
	total, err := r.coll.CountDocuments(ctx, doc)
	if err != nil {
		log.WithError(err).Error("Failed to count tasks")
		return nil, 0, fmt.Errorf("count tasks: %w", err)
	}

	field := filter.SortBy
	if _, ok := taskSortColumns[field]; !ok {
		field = model.SortByDueDate
	}
	direction := 1
	if filter.SortDesc {
		direction = -1
	}
	opts := options.Find().
		SetSort(bson.D{{Key: field, Value: direction}, {Key: "_id", Value: direction}}).
		SetSkip(int64(filter.Offset())).
		SetLimit(int64(filter.Limit))

	cursor, err := r.coll.Find(ctx, doc, opts)
	if err != nil {
		log.WithError(err).Error("Failed to find tasks")
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		log.WithError(err).Error("Failed to decode tasks")
		return nil, 0, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, total, nil
}

func (r *MongoTaskRepository) ListTasksByProject(ctx context.Context, filter model.ProjectTaskFilter) ([]*model.Task, error) {
	doc := bson.M{"project": filter.ProjectID}
	if filter.Status != "" {
		doc["status"] = filter.Status
	}
	if filter.Priority != "" {
		doc["priority"] = filter.Priority
	}
	if filter.AssigneeID != "" {
		doc["assignee.id"] = filter.AssigneeID
	}

	opts := options.Find().SetSort(bson.D{{Key: "dueDate", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := r.coll.Find(ctx, doc, opts)
	if err != nil {
		logger.Log.WithError(err).WithField("project_id", filter.ProjectID).Error("Failed to find project tasks")
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	tasks := []*model.Task{}
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("list project tasks: %w", err)
	}
	return tasks, nil
}

func (r *MongoTaskRepository) ReplaceTask(ctx context.Context, task *model.Task, userID string) error {
	task.UpdatedAt = time.Now().UTC()
	filter := visibleTo(userID)
	filter["_id"] = task.ID

	res, err := r.coll.ReplaceOne(ctx, filter, task)
	if err != nil {
		logger.Log.WithError(err).WithField("task_id", task.ID).Error("Failed to replace task")
		return fmt.Errorf("update task: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) DeleteTaskForUser(ctx context.Context, id, userID string) error {
	filter := visibleTo(userID)
	filter["_id"] = id

	res, err := r.coll.DeleteOne(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("task_id", id).Error("Failed to delete task")
		return fmt.Errorf("delete task: %w", err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MongoTaskRepository) ClearProject(ctx context.Context, projectID string) error {
	_, err := r.coll.UpdateMany(ctx, bson.M{"project": projectID}, bson.M{
		"$unset": bson.M{"project": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	})
	if err != nil {
		logger.Log.WithError(err).WithField("project_id", projectID).Error("Failed to detach tasks from project")
		return fmt.Errorf("detach tasks: %w", err)
	}
	return nil
}

func (r *MongoTaskRepository) TaskStats(ctx context.Context, userID string, now time.Time) (*model.TaskStats, error) {
	log := logger.Log.WithField("user_id", userID)
	log.Info("Aggregating task statistics")

	now = now.UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	endOfDay := startOfDay.AddDate(0, 0, 1)

	stats := &model.TaskStats{}
	var err error
	if stats.TotalTasks, err = r.coll.CountDocuments(ctx, visibleTo(userID)); err != nil {
		log.WithError(err).Error("Failed to count tasks")
		return nil, fmt.Errorf("task stats: %w", err)
	}

	overdue := visibleTo(userID)
	overdue["dueDate"] = bson.M{"$lt": now}
	overdue["status"] = bson.M{"$ne": model.StatusCompleted}
	if stats.OverdueTasks, err = r.coll.CountDocuments(ctx, overdue); err != nil {
		log.WithError(err).Error("Failed to count overdue tasks")
		return nil, fmt.Errorf("task stats: %w", err)
	}

	dueToday := visibleTo(userID)
	dueToday["dueDate"] = bson.M{"$gte": startOfDay, "$lt": endOfDay}
	dueToday["status"] = bson.M{"$ne": model.StatusCompleted}
	if stats.TasksDueToday, err = r.coll.CountDocuments(ctx, dueToday); err != nil {
		log.WithError(err).Error("Failed to count tasks due today")
		return nil, fmt.Errorf("task stats: %w", err)
	}

	if stats.StatusBreakdown, err = r.breakdown(ctx, "$status", userID); err != nil {
		log.WithError(err).Error("Failed to aggregate status breakdown")
		return nil, err
	}
	if stats.PriorityBreakdown, err = r.breakdown(ctx, "$priority", userID); err != nil {
		log.WithError(err).Error("Failed to aggregate priority breakdown")
		return nil, err
	}
	return stats, nil
}

func (r *MongoTaskRepository) breakdown(ctx context.Context, field, userID string) ([]model.StatBucket, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: visibleTo(userID)}},
		{{Key: "$group", Value: bson.D{{Key: "_id", Value: field}, {Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}}}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	}
	cursor, err := r.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", field, err)
	}
	buckets := []model.StatBucket{}
	if err := cursor.All(ctx, &buckets); err != nil {
		return nil, fmt.Errorf("aggregate %s: %w", field, err)
	}
	return buckets, nil
}
