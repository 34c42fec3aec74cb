package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/rs/zerolog"
)

// S3Config configures an S3Presigner.
type S3Config struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	PresignTTL      time.Duration
}

// S3Presigner issues time-limited GET URLs for objects in an S3-compatible bucket.
type S3Presigner struct {
	presign func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error)
	bucket  string
	ttl     time.Duration
	logger  zerolog.Logger
}

// NewS3Presigner builds an S3 client from cfg. Static credentials are used when
// provided; otherwise the default AWS credential chain applies.
func NewS3Presigner(ctx context.Context, cfg S3Config, logger zerolog.Logger) (*S3Presigner, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	presignClient := s3.NewPresignClient(client)

	return &S3Presigner{
		presign: func(ctx context.Context, bucket, key string, ttl time.Duration) (string, error) {
			req, err := presignClient.PresignGetObject(ctx, &s3.GetObjectInput{
				Bucket: aws.String(bucket),
				Key:    aws.String(key),
			}, s3.WithPresignExpires(ttl))
			if err != nil {
				return "", err
			}
			return req.URL, nil
		},
		bucket: cfg.Bucket,
		ttl:    cfg.PresignTTL,
		logger: logger.With().Str("component", "s3_presigner").Logger(),
	}, nil
}

// ResolveURL implements URLResolver.
func (p *S3Presigner) ResolveURL(ctx context.Context, key string) (string, error) {
	cleaned, err := CleanKey(key)
	if err != nil || cleaned == "" {
		return "", err
	}

	url, err := p.presign(ctx, p.bucket, cleaned, p.ttl)
	if err != nil {
		p.logger.Error().Err(err).Str("key", cleaned).Msg("failed to presign object URL")
		return "", fmt.Errorf("failed to presign %q: %w", cleaned, err)
	}
	return url, nil
}

var _ URLResolver = (*S3Presigner)(nil)
