// Package storage hands out presigned upload URLs for user avatars on an
// S3-compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"go-task-api/config"
	"go-task-api/logger"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var (
	// ErrDisabled is returned when no bucket is configured.
	ErrDisabled = errors.New("avatar storage is not configured")
	// ErrForeignKey is returned for object keys outside the user's prefix.
	ErrForeignKey = errors.New("avatar key does not belong to user")
	// ErrNotUploaded is returned when the presigned PUT never happened.
	ErrNotUploaded = errors.New("avatar has not been uploaded")
)

var (
	loadAWSConfig = awsconfig.LoadDefaultConfig

	newS3Client = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}

	presignPutObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignPutObject(ctx, in, optFns...)
	}

	headObject = func(c *s3.Client, ctx context.Context, in *s3.HeadObjectInput, optFns ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
		return c.HeadObject(ctx, in, optFns...)
	}
)

// AvatarUpload describes where a client should PUT the image and where it will
// be served from afterwards.
type AvatarUpload struct {
	Key       string
	UploadURL string
	PublicURL string
	ExpiresAt time.Time
}

type AvatarStore struct {
	cfg     config.StorageConfig
	client  *s3.Client
	presign *s3.PresignClient
	now     func() time.Time
}

// NewAvatarStore builds the S3 presign client from static credentials.
func NewAvatarStore(ctx context.Context, cfg config.StorageConfig) (*AvatarStore, error) {
	if !cfg.Enabled {
		return nil, ErrDisabled
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := loadAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3Client(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	logger.Log.WithFields(logrus.Fields{
		"bucket":   cfg.Bucket,
		"endpoint": cfg.Endpoint,
	}).Info("Avatar storage configured")

	return &AvatarStore{cfg: cfg, client: client, presign: s3.NewPresignClient(client), now: time.Now}, nil
}

func avatarPrefix(userID string) string {
	return fmt.Sprintf("avatars/%s/", userID)
}

func avatarKey(userID string) string {
	return avatarPrefix(userID) + uuid.NewString()
}

// PresignAvatarUpload returns a PUT URL for a fresh object key owned by userID.
func (s *AvatarStore) PresignAvatarUpload(ctx context.Context, userID string) (*AvatarUpload, error) {
	key := avatarKey(userID)
	bucket := s.cfg.Bucket

	req, err := presignPutObject(s.presign, ctx, &s3.PutObjectInput{
		Bucket: &bucket,
		Key:    &key,
	}, s3.WithPresignExpires(s.cfg.PresignTTL))
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID).Error("Failed to presign avatar upload")
		return nil, fmt.Errorf("presign avatar upload: %w", err)
	}

	return &AvatarUpload{
		Key:       key,
		UploadURL: req.URL,
		PublicURL: s.publicURL(key),
		ExpiresAt: s.now().Add(s.cfg.PresignTTL).UTC(),
	}, nil
}

// ConfirmAvatarUpload checks that key was issued to userID and that the object
// now exists, and returns the URL it is served from.
func (s *AvatarStore) ConfirmAvatarUpload(ctx context.Context, userID, key string) (string, error) {
	prefix := avatarPrefix(userID)
	if !strings.HasPrefix(key, prefix) || len(key) == len(prefix) || strings.Contains(key[len(prefix):], "/") {
		return "", ErrForeignKey
	}

	bucket := s.cfg.Bucket
	_, err := headObject(s.client, ctx, &s3.HeadObjectInput{Bucket: &bucket, Key: &key})
	if err != nil {
		var notFound *types.NotFound
		if errors.As(err, &notFound) {
			return "", ErrNotUploaded
		}
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"key":     key,
		}).Error("Failed to check avatar object")
		return "", fmt.Errorf("head avatar object: %w", err)
	}
	return s.publicURL(key), nil
}

func (s *AvatarStore) publicURL(key string) string {
	switch {
	case s.cfg.PublicBaseURL != "":
		return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/" + key
	case s.cfg.Endpoint != "":
		return fmt.Sprintf("%s/%s/%s", strings.TrimRight(s.cfg.Endpoint, "/"), s.cfg.Bucket, key)
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.cfg.Bucket, s.cfg.Region, key)
	}
}
