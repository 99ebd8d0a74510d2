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

// MongoUserRepository implements IUserRepository on a MongoDB collection.
type MongoUserRepository struct {
	coll *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{coll: db.Collection(usersCollection)}
}

var profileProjection = bson.M{"password": 0, "refreshToken": 0}

func (r *MongoUserRepository) CreateUser(ctx context.Context, user *model.User) error {
	if user.ID == "" {
		user.ID = common.NewID()
	}
	now := time.Now().UTC()
	user.CreatedAt, user.UpdatedAt = now, now

	log := logger.Log.WithFields(logrus.Fields{
		"user_id":  user.ID,
		"userName": user.UserName,
	})
	log.Info("Inserting a new user document")

	if _, err := r.coll.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("User already exists")
			return ErrDuplicate
		}
		log.WithError(err).Error("Failed to insert user document")
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (r *MongoUserRepository) findOne(ctx context.Context, filter bson.M, opts ...options.Lister[options.FindOneOptions]) (*model.User, error) {
	var user model.User
	if err := r.coll.FindOne(ctx, filter, opts...).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		logger.Log.WithError(err).Error("Failed to find user document")
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	logger.Log.WithField("user_id", id).Debug("Finding user document by ID")
	return r.findOne(ctx, bson.M{"_id": id})
}

func (r *MongoUserRepository) GetProfileByID(ctx context.Context, id string) (*model.User, error) {
	logger.Log.WithField("user_id", id).Debug("Finding user profile by ID")
	return r.findOne(ctx, bson.M{"_id": id}, options.FindOne().SetProjection(profileProjection))
}

func (r *MongoUserRepository) GetUserByEmailOrUserName(ctx context.Context, email, userName string) (*model.User, error) {
	or := bson.A{}
	if email != "" {
		or = append(or, bson.M{"email": email})
	}
	if userName != "" {
		or = append(or, bson.M{"userName": userName})
	}
	if len(or) == 0 {
		return nil, ErrNotFound
	}
	return r.findOne(ctx, bson.M{"$or": or}, options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

func (r *MongoUserRepository) EmailTaken(ctx context.Context, email, exceptID string) (bool, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{"email": email, "_id": bson.M{"$ne": exceptID}})
	if err != nil {
		logger.Log.WithError(err).WithField("email", email).Error("Failed to check email availability")
		return false, fmt.Errorf("check email: %w", err)
	}
	return n > 0, nil
}

func (r *MongoUserRepository) updateOne(ctx context.Context, filter, update bson.M, miss error) error {
	res, err := r.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to update user document")
		return fmt.Errorf("update user: %w", err)
	}
	if res.MatchedCount == 0 {
		return miss
	}
	return nil
}

func (r *MongoUserRepository) UpdateRefreshToken(ctx context.Context, id, token string) error {
	logger.Log.WithField("user_id", id).Info("Storing refresh token")
	return r.updateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"refreshToken": token, "updatedAt": time.Now().UTC()}}, ErrNotFound)
}

// RotateRefreshToken matches on the current token, so of two concurrent
// rotations only one can modify the document.
func (r *MongoUserRepository) RotateRefreshToken(ctx context.Context, id, current, next string) error {
	logger.Log.WithField("user_id", id).Info("Rotating refresh token")
	return r.updateOne(ctx, bson.M{"_id": id, "refreshToken": current},
		bson.M{"$set": bson.M{"refreshToken": next, "updatedAt": time.Now().UTC()}}, ErrNoMatch)
}

func (r *MongoUserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	logger.Log.WithField("user_id", id).Info("Clearing refresh token")
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$unset": bson.M{"refreshToken": ""},
		"$set":   bson.M{"updatedAt": time.Now().UTC()},
	}, ErrNotFound)
}

func (r *MongoUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	logger.Log.WithField("user_id", id).Info("Updating password")
	return r.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"password": passwordHash, "updatedAt": time.Now().UTC()},
		"$unset": bson.M{"refreshToken": ""},
	}, ErrNotFound)
}

func (r *MongoUserRepository) UpdateProfile(ctx context.Context, id string, name, email *string) (*model.User, error) {
	logger.Log.WithField("user_id", id).Info("Updating user profile")

	set := bson.M{"updatedAt": time.Now().UTC()}
	if name != nil {
		set["name"] = *name
	}
	if email != nil {
		set["email"] = *email
	}
	opts := options.FindOneAndUpdate().
		SetReturnDocument(options.After).
		SetProjection(profileProjection)

	var user model.User
	err := r.coll.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, opts).Decode(&user)
	if err != nil {
		switch {
		case errors.Is(err, mongo.ErrNoDocuments):
			return nil, ErrNotFound
		case mongo.IsDuplicateKeyError(err):
			return nil, ErrDuplicate
		}
		logger.Log.WithError(err).WithField("user_id", id).Error("Failed to update user profile")
		return nil, fmt.Errorf("update user profile: %w", err)
	}
	return &user, nil
}

func (r *MongoUserRepository) UpdateAvatar(ctx context.Context, id, avatarURL string) error {
	logger.Log.WithField("user_id", id).Info("Updating avatar")
	return r.updateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"avatar": avatarURL, "updatedAt": time.Now().UTC()}}, ErrNotFound)
}
