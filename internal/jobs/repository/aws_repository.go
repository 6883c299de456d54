package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/amankumarsingh77/transcript-pipeline/internal/jobs"
	"github.com/amankumarsingh77/transcript-pipeline/internal/models"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type awsRepository struct {
	client        *s3.Client
	preSignClient *s3.PresignClient
	bucket        string
	now           func() time.Time
}

func NewAwsRepository(awsClient *s3.Client, preSignClient *s3.PresignClient, bucket string) jobs.AWSRepository {
	return &awsRepository{
		client:        awsClient,
		preSignClient: preSignClient,
		bucket:        bucket,
		now:           time.Now,
	}
}

func (a *awsRepository) PresignGet(ctx context.Context, key string, ttl time.Duration) (*models.Grant, error) {
	if key == "" {
		return nil, fmt.Errorf("empty object key: %w", models.ErrPreconditionFailed)
	}
	req, err := a.preSignClient.PresignGetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &a.bucket,
			Key:    &key,
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to presign get object : %w", err)
	}
	return &models.Grant{
		Key:       key,
		URL:       req.URL,
		Method:    http.MethodGet,
		ExpiresAt: a.now().Add(ttl).UTC(),
	}, nil
}

// PresignPut signs Content-Type into the URL, so an upload with any other type is rejected by the store.
func (a *awsRepository) PresignPut(ctx context.Context, key, contentType string, ttl time.Duration) (*models.Grant, error) {
	if key == "" || contentType == "" {
		return nil, fmt.Errorf("key and content type are required: %w", models.ErrPreconditionFailed)
	}
	req, err := a.preSignClient.PresignPutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:      &a.bucket,
			Key:         &key,
			ContentType: &contentType,
		},
		s3.WithPresignExpires(ttl),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to presign put object : %w", err)
	}
	return &models.Grant{
		Key:         key,
		URL:         req.URL,
		Method:      http.MethodPut,
		ContentType: contentType,
		ExpiresAt:   a.now().Add(ttl).UTC(),
	}, nil
}

// PutObject overwrites key, so re-running an upload under the same key is safe.
func (a *awsRepository) PutObject(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	_, err := a.client.PutObject(
		ctx,
		&s3.PutObjectInput{
			Bucket:        &a.bucket,
			Key:           &key,
			ContentType:   &contentType,
			ContentLength: &size,
			Body:          body,
		},
	)
	if err != nil {
		return fmt.Errorf("failed to upload %s : %w", key, err)
	}
	return nil
}

func (a *awsRepository) GetObject(ctx context.Context, key string) (io.ReadCloser, error) {
	res, err := a.client.GetObject(
		ctx,
		&s3.GetObjectInput{
			Bucket: &a.bucket,
			Key:    &key,
		},
	)
	if err != nil {
		var noKey *types.NoSuchKey
		if errors.As(err, &noKey) {
			return nil, fmt.Errorf("object %s: %w", key, models.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to download %s : %w", key, err)
	}
	return res.Body, nil
}
