package service

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"
)

// S3 error codes that mean the request was signed with bad credentials.
var credentialErrorCodes = map[string]bool{
	"InvalidAccessKeyId":    true,
	"SignatureDoesNotMatch": true,
	"ExpiredToken":          true,
	"InvalidToken":          true,
}

type S3Driver struct {
	bucket   string
	creds    aws.CredentialsProvider
	uploader *manager.Uploader
}

// NewS3Driver uses static credentials when either key is configured and
// falls back to the default AWS credential chain otherwise.
func NewS3Driver(ctx context.Context, cfg ObjectStoreConfig) (*S3Driver, error) {
	var opts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		opts = append(opts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKeyID != "" || cfg.SecretAccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return &S3Driver{
		bucket:   cfg.Bucket,
		creds:    awsCfg.Credentials,
		uploader: manager.NewUploader(client),
	}, nil
}

func (d *S3Driver) Bucket() string {
	return d.bucket
}

// Upload puts filename at s3://bucket/key. Missing files wrap ErrFileNotFound
// and credential problems wrap ErrCredentials.
func (d *S3Driver) Upload(ctx context.Context, key, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("%w: %s", ErrFileNotFound, filename)
		}
		return fmt.Errorf("failed to open %s: %w", filename, err)
	}
	defer func() { _ = f.Close() }()

	if d.creds == nil {
		return ErrCredentials
	}
	if _, err := d.creds.Retrieve(ctx); err != nil {
		return fmt.Errorf("%w: %w", ErrCredentials, err)
	}

	_, err = d.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        f,
		ContentType: aws.String("text/csv"),
	})
	if err != nil {
		if isCredentialError(err) {
			return fmt.Errorf("%w: %w", ErrCredentials, err)
		}
		return fmt.Errorf("failed to upload s3://%s/%s: %w", d.bucket, key, err)
	}

	slog.InfoContext(ctx, "Uploaded object", "bucket", d.bucket, "key", key)
	return nil
}

func isCredentialError(err error) bool {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return credentialErrorCodes[apiErr.ErrorCode()]
	}
	return false
}
