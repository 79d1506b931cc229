package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// S3API is the subset of the S3 client the source consumes.
// Keeping it narrow lets tests substitute a double for the real client.
type S3API interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Compile-time check that the real client satisfies the interface.
var _ S3API = (*s3.Client)(nil)

// S3Source implements Source backed by S3.
type S3Source struct {
	client S3API
}

// NewS3Source creates a source over an injected S3 client.
func NewS3Source(client S3API) *S3Source {
	return &S3Source{client: client}
}

// Get fetches one object and returns its raw bytes.
func (s *S3Source) Get(ctx context.Context, ref Ref) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
	})
	if err != nil {
		return nil, mapS3Error(ref, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, fmt.Errorf("read object body %s/%s: %w", ref.Bucket, ref.Key, err)
	}
	return data, nil
}

// Put uploads raw bytes as one object. Used by seeding tooling; the pipeline
// itself only reads.
func (s *S3Source) Put(ctx context.Context, ref Ref, data []byte) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(ref.Bucket),
		Key:    aws.String(ref.Key),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return mapS3Error(ref, err)
	}
	return nil
}

// mapS3Error translates SDK errors into the package sentinels.
func mapS3Error(ref Ref, err error) error {
	var noSuchKey *types.NoSuchKey
	var noSuchBucket *types.NoSuchBucket
	if errors.As(err, &noSuchKey) || errors.As(err, &noSuchBucket) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, ref.Bucket, ref.Key)
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "NoSuchKey", "NoSuchBucket", "NotFound":
			return fmt.Errorf("%w: %s/%s", ErrNotFound, ref.Bucket, ref.Key)
		case "AccessDenied":
			return fmt.Errorf("%w: %s/%s", ErrAccessDenied, ref.Bucket, ref.Key)
		}
	}
	return fmt.Errorf("object %s/%s: %w", ref.Bucket, ref.Key, err)
}
