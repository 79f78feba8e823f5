package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/IANewCool/estado-transparente-portal/types"
)

// S3Config holds configuration for the S3-compatible backend.
type S3Config struct {
	// Bucket is the bucket name (required).
	Bucket string
	// Prefix is the key prefix within the bucket (optional).
	Prefix string
	// Region is the region (optional, uses default chain if empty).
	Region string
	// Endpoint is a custom endpoint URL for S3-compatible providers
	// (MinIO, Cloudflare R2). Empty uses the default AWS endpoint.
	Endpoint string
	// AccessKey and SecretKey are static credentials. Both empty uses the
	// SDK default chain (env vars, shared config, IAM role).
	AccessKey string
	SecretKey string
	// UsePathStyle forces path-style addressing (bucket in path, not
	// subdomain). Required by most S3-compatible providers.
	UsePathStyle bool
}

// Validate checks that required S3 configuration is present.
func (c *S3Config) Validate() error {
	if c.Bucket == "" {
		return errors.New("s3 bucket is required")
	}
	if (c.AccessKey == "") != (c.SecretKey == "") {
		return errors.New("s3 access key and secret key must be set together")
	}
	return nil
}

// S3Store is the object-store backend. Keys mirror the filesystem layout
// (data/raw/<artifact_id>.raw) under the configured prefix.
type S3Store struct {
	client  *s3.Client
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewS3Store creates an S3 store from the given config.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var opts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	var s3Opts []func(*s3.Options)
	if cfg.Endpoint != "" {
		endpoint := cfg.Endpoint
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.BaseEndpoint = &endpoint
		})
	}
	if cfg.UsePathStyle {
		s3Opts = append(s3Opts, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	}
	client := s3.NewFromConfig(awsCfg, s3Opts...)

	return &S3Store{
		client:  client,
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		prefix:  cfg.Prefix,
	}, nil
}

// Kind returns the object-store backend tag.
func (s *S3Store) Kind() types.StorageKind { return types.StorageS3 }

func (s *S3Store) key(storagePath string) string {
	if s.prefix == "" {
		return storagePath
	}
	return path.Join(s.prefix, storagePath)
}

// Put uploads data under data/raw/<artifact_id>.raw. S3 object puts are
// atomic, so no temp-and-rename dance is needed.
func (s *S3Store) Put(ctx context.Context, artifactID string, data []byte) (types.StorageKind, string, error) {
	rel := path.Join("data", "raw", artifactID+".raw")

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(rel)),
		Body:   bytes.NewReader(data),
	})
	if err != nil {
		return "", "", wrapS3("put", rel, err)
	}
	return types.StorageS3, rel, nil
}

// Get downloads the object at the given storage path.
func (s *S3Store) Get(ctx context.Context, storagePath string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storagePath)),
	})
	if err != nil {
		return nil, wrapS3("get", storagePath, err)
	}
	defer func() { _ = out.Body.Close() }()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, wrapS3("get", storagePath, err)
	}
	return data, nil
}

// PresignGet returns a time-limited GET URL for the object.
func (s *S3Store) PresignGet(ctx context.Context, storagePath string, validity time.Duration) (string, error) {
	if validity < PresignValidity {
		validity = PresignValidity
	}
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key(storagePath)),
	}, s3.WithPresignExpires(validity))
	if err != nil {
		return "", wrapS3("presign", storagePath, err)
	}
	return req.URL, nil
}

// Verify S3Store implements Store.
var _ Store = (*S3Store)(nil)
