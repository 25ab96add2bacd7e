package archive

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tbourn/go-user-records/internal/config"
)

// NewS3Client builds an S3 client from the default AWS credential chain.
//
// A custom endpoint (AWS_ENDPOINT_URL) targets S3-compatible stores such as
// localstack or MinIO, usually together with path-style addressing. Static
// credentials are only used when both key fields are set; inside Lambda the
// execution role is picked up by the default chain.
func NewS3Client(ctx context.Context, cfg config.S3Config) (*s3.Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.ForcePathStyle
	}), nil
}

// FromConfig builds the Archiver described by cfg. In degraded mode no
// client is created at all.
func FromConfig(ctx context.Context, cfg config.S3Config, degraded bool) (*Archiver, error) {
	opts := Options{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Degraded:     degraded,
		CreateBucket: cfg.CreateBucket,
		Timeout:      cfg.Timeout,
	}
	if degraded {
		return New(ctx, nil, opts), nil
	}
	client, err := NewS3Client(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return New(ctx, client, opts), nil
}
