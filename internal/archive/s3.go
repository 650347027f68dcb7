// Package archive stores immutable copies of accepted action bodies.
package archive

import (
	"bytes"
	"context"

	appErrors "proclog-backend/pkg/errors"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"
)

// S3Archiver writes each accepted action body to an S3 bucket as a JSON
// object. Objects are never updated or deleted by this service.
type S3Archiver struct {
	client *s3.Client
	bucket string
	logger *zap.Logger
}

// NewS3Archiver creates an archiver backed by one bucket.
func NewS3Archiver(client *s3.Client, bucket string, logger *zap.Logger) *S3Archiver {
	return &S3Archiver{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// Archive stores one body under the given key.
func (a *S3Archiver) Archive(ctx context.Context, key string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		a.logger.Error("failed to archive action body",
			zap.String("key", key),
			zap.Error(err),
		)
		return appErrors.NewDependency("failed to archive action body", err)
	}
	return nil
}
