package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3Config holds connection settings for a MinIO or S3 endpoint.
type S3Config struct {
	EndpointURL     string
	Region          string
	UseSSL          bool
	AccessKeyID     string
	SecretAccessKey string
	Bucket          string
}

// S3Store implements Store using the minio-go SDK.
type S3Store struct {
	client *minio.Client
	cfg    S3Config
}

// NewS3Store creates a MinIO/S3 backed store. No network call is made until
// the first operation.
func NewS3Store(cfg S3Config) (*S3Store, error) {
	if cfg.EndpointURL == "" {
		return nil, wrapError(CodeEndpointUnreachable, "", fmt.Errorf("endpoint is required"))
	}
	if cfg.AccessKeyID == "" || cfg.SecretAccessKey == "" {
		return nil, wrapError(CodeAuthInvalid, "", fmt.Errorf("credentials are required"))
	}
	if cfg.Bucket == "" {
		cfg.Bucket = DefaultBucket
	}

	u, err := url.Parse(cfg.EndpointURL)
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, "", fmt.Errorf("invalid endpoint URL: %w", err))
	}
	endpoint := u.Host
	if endpoint == "" {
		endpoint = cfg.EndpointURL
	}
	useSSL := cfg.UseSSL || u.Scheme == "https"

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: useSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, wrapError(CodeEndpointUnreachable, "", fmt.Errorf("failed to create minio client: %w", err))
	}

	return &S3Store{client: client, cfg: cfg}, nil
}

func (s *S3Store) EnsureBucket(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.cfg.Bucket)
	if err != nil {
		return classifyMinioError("", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.cfg.Bucket, minio.MakeBucketOptions{Region: s.cfg.Region}); err != nil {
		return classifyMinioError("", err)
	}
	return nil
}

func (s *S3Store) Put(ctx context.Context, key string, r io.Reader, size int64) error {
	if key == "" {
		return wrapError(CodeWriteFailed, key, fmt.Errorf("object key is required"))
	}
	_, err := s.client.PutObject(ctx, s.cfg.Bucket, key, r, size, minio.PutObjectOptions{
		ContentType: "text/csv",
	})
	if err != nil {
		return classifyMinioError(key, err)
	}
	return nil
}

func (s *S3Store) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	obj, err := s.client.GetObject(ctx, s.cfg.Bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, classifyMinioError(key, err)
	}
	// GetObject is lazy; Stat surfaces a missing key before the caller reads.
	if _, err := obj.Stat(); err != nil {
		obj.Close()
		return nil, classifyMinioError(key, err)
	}
	return obj, nil
}

func (s *S3Store) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.StatObject(ctx, s.cfg.Bucket, key, minio.StatObjectOptions{})
	if err != nil {
		classified := classifyMinioError(key, err)
		if errors.Is(classified, ErrObjectNotFound) {
			return false, nil
		}
		return false, classified
	}
	return true, nil
}

// classifyMinioError converts minio-go errors to our structured Error type.
func classifyMinioError(key string, err error) *Error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchBucket":
		return wrapError(CodeBucketNotFound, key, err)
	case "NoSuchKey", "NoSuchObject":
		return wrapError(CodeObjectNotFound, key, err)
	case "AccessDenied":
		return wrapError(CodePermissionDenied, key, err)
	case "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return wrapError(CodeAuthInvalid, key, err)
	}

	errStr := strings.ToLower(err.Error())
	switch {
	case strings.Contains(errStr, "no such bucket"):
		return wrapError(CodeBucketNotFound, key, err)
	case strings.Contains(errStr, "key does not exist"):
		return wrapError(CodeObjectNotFound, key, err)
	case strings.Contains(errStr, "connection refused"), strings.Contains(errStr, "no such host"):
		return wrapError(CodeEndpointUnreachable, key, err)
	}
	return wrapError(CodeReadFailed, key, err)
}
