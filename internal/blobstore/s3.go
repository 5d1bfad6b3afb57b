package blobstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	smithyhttp "github.com/aws/smithy-go/transport/http"

	"github.com/imranq2/language-model-gateway/internal/gatewayerrors"
)

// S3API is the subset of *s3.Client this package needs, so tests can
// substitute a fake rather than hitting real AWS/R2.
type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Store persists blobs as objects under bucket/prefix.
type S3Store struct {
	client        S3API
	bucket        string
	prefix        string
	publicBaseURL string
}

func NewS3Store(client S3API, bucket, prefix, publicBaseURL string) *S3Store {
	return &S3Store{client: client, bucket: bucket, prefix: prefix, publicBaseURL: publicBaseURL}
}

func (s *S3Store) key(folder, name string) string {
	if folder == "" {
		return s.prefix + name
	}
	return s.prefix + folder + "/" + name
}

func (s *S3Store) Save(ctx context.Context, folder, name string, data []byte, contentType string) (string, error) {
	if len(data) == 0 {
		return "", nil
	}
	key := s.key(folder, name)
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("blobstore: put %q: %w", key, err)
	}
	return fmt.Sprintf("s3://%s/%s", s.bucket, key), nil
}

func (s *S3Store) Read(ctx context.Context, folder, name string) (*Stream, error) {
	key := s.key(folder, name)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err != nil {
		var respErr *smithyhttp.ResponseError
		if errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404 {
			return nil, gatewayerrors.ErrNotFound
		}
		return nil, fmt.Errorf("blobstore: get %q: %w", key, err)
	}
	contentType := "application/octet-stream"
	if out.ContentType != nil {
		contentType = *out.ContentType
	}
	return &Stream{ReadCloser: out.Body, ContentType: contentType}, nil
}

func (s *S3Store) ResolvePublicURL(name string) string {
	return fmt.Sprintf("%s/%s", s.publicBaseURL, name)
}
