package storage

import (
	"context"
	"errors"
	"go-task-api/config"
	"strings"
	"testing"
	"time"

	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testStorageConfig() config.StorageConfig {
	return config.StorageConfig{
		Enabled:    true,
		Region:     "us-east-1",
		Endpoint:   "http://127.0.0.1:9000",
		AccessKey:  "minioadmin",
		SecretKey:  "minioadmin",
		Bucket:     "avatars",
		PresignTTL: 15 * time.Minute,
	}
}

func TestNewAvatarStore_Disabled(t *testing.T) {
	_, err := NewAvatarStore(context.Background(), config.StorageConfig{})
	assert.ErrorIs(t, err, ErrDisabled)
}

func TestPresignAvatarUpload(t *testing.T) {
	store, err := NewAvatarStore(context.Background(), testStorageConfig())
	require.NoError(t, err)
	fixed := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return fixed }

	upload, err := store.PresignAvatarUpload(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(upload.Key, "avatars/user-1/"))
	assert.Contains(t, upload.UploadURL, "http://127.0.0.1:9000/avatars/"+upload.Key)
	assert.Contains(t, upload.UploadURL, "X-Amz-Signature=")
	assert.Equal(t, "http://127.0.0.1:9000/avatars/"+upload.Key, upload.PublicURL)
	assert.Equal(t, fixed.Add(15*time.Minute), upload.ExpiresAt)

	other, err := store.PresignAvatarUpload(context.Background(), "user-1")
	require.NoError(t, err)
	assert.NotEqual(t, upload.Key, other.Key)
}

func TestPresignAvatarUpload_PublicBaseURL(t *testing.T) {
	cfg := testStorageConfig()
	cfg.PublicBaseURL = "https://cdn.example.com/"
	store, err := NewAvatarStore(context.Background(), cfg)
	require.NoError(t, err)

	upload, err := store.PresignAvatarUpload(context.Background(), "u")
	require.NoError(t, err)
	assert.Equal(t, "https://cdn.example.com/"+upload.Key, upload.PublicURL)
}

func TestPresignAvatarUpload_Error(t *testing.T) {
	orig := presignPutObject
	t.Cleanup(func() { presignPutObject = orig })
	presignPutObject = func(*s3.PresignClient, context.Context, *s3.PutObjectInput, ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return nil, errors.New("presign boom")
	}

	store, err := NewAvatarStore(context.Background(), testStorageConfig())
	require.NoError(t, err)

	_, err = store.PresignAvatarUpload(context.Background(), "u")
	assert.ErrorContains(t, err, "presign boom")
}

func TestConfirmAvatarUpload(t *testing.T) {
	orig := headObject
	t.Cleanup(func() { headObject = orig })

	store, err := NewAvatarStore(context.Background(), testStorageConfig())
	require.NoError(t, err)
	upload, err := store.PresignAvatarUpload(context.Background(), "user-1")
	require.NoError(t, err)

	tests := []struct {
		name    string
		userID  string
		key     string
		headErr error
		wantErr error
	}{
		{"uploaded", "user-1", upload.Key, nil, nil},
		{"not uploaded", "user-1", upload.Key, &types.NotFound{}, ErrNotUploaded},
		{"other user's key", "user-2", upload.Key, nil, ErrForeignKey},
		{"bare prefix", "user-1", "avatars/user-1/", nil, ErrForeignKey},
		{"nested key", "user-1", "avatars/user-1/../user-2/x", nil, ErrForeignKey},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var headed string
			headObject = func(_ *s3.Client, _ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
				headed = *in.Key
				if tt.headErr != nil {
					return nil, tt.headErr
				}
				return &s3.HeadObjectOutput{}, nil
			}

			url, err := store.ConfirmAvatarUpload(context.Background(), tt.userID, tt.key)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, upload.Key, headed)
			assert.Equal(t, upload.PublicURL, url)
		})
	}

	t.Run("head failure", func(t *testing.T) {
		headObject = func(*s3.Client, context.Context, *s3.HeadObjectInput, ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
			return nil, errors.New("head boom")
		}
		_, err := store.ConfirmAvatarUpload(context.Background(), "user-1", upload.Key)
		assert.ErrorContains(t, err, "head boom")
	})
}
