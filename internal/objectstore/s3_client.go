package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Client implements ObjectStore using the minio-go SDK against MinIO, S3,
// or any S3-compatible endpoint (including GCS interoperability mode).
type S3Client struct {
	client *minio.Client
	cfg    *Config
}

// NewS3Client creates a real MinIO/S3 client from config.
func NewS3Client(cfg *Config) (*S3Client, error) {
	if cfg == nil {
		return nil, wrapError(CodeEndpointUnreachable, true, errors.New("config is required"))
	}
	if cfg.EndpointURL == "" {
		return nil, wrapError(CodeEndpointUnreachable, true, errors.New("endpoint URL is required"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, wrapError(CodeAuthInvalid, false, errors.New("credentials are required"))
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, true, fmt.Errorf("invalid endpoint URL: %w", err))
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}

	useSSL := cfg.UseSSL
	if u.Scheme == "https" {
		useSSL = true
	}

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, true, fmt.Errorf("failed to create minio client: %w", err))
	}

	return &S3Client{
		client: client,
		cfg:    cfg,
	}, nil
}

func (s *S3Client) Ping(ctx context.Context) error {
	_, err := s.client.ListBuckets(ctx)
	if err != nil {
		return classifyMinioError(CodeEndpointUnreachable, err)
	}
	return nil
}

func (s *S3Client) EnsureBucket(ctx context.Context, bucket string) error {
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, errors.New("bucket name is required"))
	}

	exists, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return classifyMinioError(CodeBucketNotFound, err)
	}
	if exists {
		return nil
	}

	err = s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{
		Region: s.cfg.Region,
	})
	if err != nil {
		return classifyMinioError(CodeWriteFailed, err)
	}
	return nil
}

func (s *S3Client) PutObject(ctx context.Context, bucket, key string, data []byte, contentType string) error {
	if bucket == "" {
		return wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if key == "" {
		return wrapError(CodeWriteFailed, false, errors.New("object key is required"))
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	reader := bytes.NewReader(data)
	_, err := s.client.PutObject(ctx, bucket, key, reader, int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return classifyMinioError(CodeWriteFailed, err)
	}
	return nil
}

func (s *S3Client) GetObject(ctx context.Context, bucket, key string) ([]byte, error) {
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}
	if key == "" {
		return nil, wrapError(CodeObjectNotFound, false, errors.New("object key is required"))
	}

	obj, err := s.client.GetObject(ctx, bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(CodeObjectNotFound, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, classifyMinioError(CodeObjectNotFound, err)
	}
	return data, nil
}

func (s *S3Client) ListPrefix(ctx context.Context, bucket, prefix string) ([]string, error) {
	if bucket == "" {
		return nil, wrapError(CodeBucketNotFound, false, errors.New("bucket is required"))
	}

	var keys []string
	objectCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
		Prefix:    prefix,
		Recursive: true,
	})
	for obj := range objectCh {
		if obj.Err != nil {
			return nil, classifyMinioError(CodeListFailed, obj.Err)
		}
		keys = append(keys, obj.Key)
	}
	sort.Strings(keys)
	return keys, nil
}

// CopyObject performs a server-side copy within bucket.
func (s *S3Client) CopyObject(ctx context.Context, bucket, srcKey, dstKey string) error {
	if bucket == "" || srcKey == "" || dstKey == "" {
		return wrapError(CodeCopyFailed, false, errors.New("bucket, source and destination keys are required"))
	}
	_, err := s.client.CopyObject(ctx,
		minio.CopyDestOptions{Bucket: bucket, Object: dstKey},
		minio.CopySrcOptions{Bucket: bucket, Object: srcKey},
	)
	if err != nil {
		return classifyMinioError(CodeCopyFailed, err)
	}
	return nil
}

func (s *S3Client) DeleteObject(ctx context.Context, bucket, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if bucket == "" || key == "" {
		return wrapError(CodeBucketNotFound, false, errors.New("bucket/key is required"))
	}
	if err := s.client.RemoveObject(ctx, bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return classifyMinioError(CodeDeleteFailed, err)
	}
	return nil
}

// classifyMinioError converts minio-go errors to our structured Error type.
// fallback is used when nothing more specific matches.
func classifyMinioError(fallback string, err error) *Error {
	if err == nil {
		return nil
	}

	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, false, err)
	case "NoSuchKey":
		return wrapError(CodeObjectNotFound, false, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, false, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(CodeAuthInvalid, false, err)
	}

	errStr := strings.ToLower(err.Error())
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline") {
		return wrapError(CodeTimeout, true, err)
	}
	if strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "no such host") {
		return wrapError(CodeEndpointUnreachable, true, err)
	}
	return wrapError(fallback, true, err)
}
