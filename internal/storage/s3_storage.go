package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

var ErrBucketNotConfigured = errors.New("s3 bucket not configured")

// ObjectPutter is the subset of the S3 client used for archiving.
type ObjectPutter interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Storage writes report archives into a single bucket.
type S3Storage struct {
	client ObjectPutter
	bucket string
	prefix string
	now    func() time.Time
}

func NewS3Storage(ctx context.Context, region, bucket, accessKeyID, secretAccessKey, prefix string) (*S3Storage, error) {
	if bucket == "" {
		return nil, ErrBucketNotConfigured
	}

	var cfg aws.Config
	if accessKeyID != "" && secretAccessKey != "" {
		cfg = aws.Config{
			Region:      region,
			Credentials: credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		}
	} else {
		// environment, shared config or instance role
		var err error
		cfg, err = config.LoadDefaultConfig(ctx, config.WithRegion(region))
		if err != nil {
			return nil, fmt.Errorf("failed to load aws config: %w", err)
		}
	}

	return NewS3StorageWithClient(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func NewS3StorageWithClient(client ObjectPutter, bucket, prefix string) *S3Storage {
	return &S3Storage{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// ArchiveJSON stores v as <prefix>/<yyyy>/<mm>/<dd>/<name>-<uuid>.json and returns the key.
func (s *S3Storage) ArchiveJSON(ctx context.Context, name string, v interface{}) (string, error) {
	body, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", name, err)
	}
	return s.Put(ctx, s.objectKey(name, ".json"), "application/json", body)
}

func (s *S3Storage) Put(ctx context.Context, key, contentType string, body []byte) (string, error) {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(body),
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(int64(len(body))),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

func (s *S3Storage) objectKey(name, ext string) string {
	day := s.now().Format("2006/01/02")
	file := fmt.Sprintf("%s-%s%s", name, uuid.NewString(), ext)
	if s.prefix == "" {
		return path.Join(day, file)
	}
	return path.Join(s.prefix, day, file)
}
