package services

import (
	"bytes"
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/kendall-kelly/rto-dispatch-api/config"
)

// EventArchive stores raw, verified identity event bodies for replay and audit
type EventArchive interface {
	Archive(ctx context.Context, deliveryID string, body []byte) error
}

// ArchiveKey is the object key used for a delivery
func ArchiveKey(deliveryID string) string {
	return fmt.Sprintf("identity-events/%s.json", deliveryID)
}

// S3EventArchive writes envelopes to an S3 bucket
type S3EventArchive struct {
	client *s3.Client
	bucket string
}

// NewS3EventArchive builds an S3 client from the application config
func NewS3EventArchive(ctx context.Context, cfg *config.Config) (*S3EventArchive, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.AWSRegion),
	}
	// Fall back to the default credential chain when no static keys are set
	if cfg.AWSAccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AWSAccessKeyID,
			cfg.AWSSecretAccessKey,
			"",
		)))
	}

	awsConfig, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return &S3EventArchive{
		client: s3.NewFromConfig(awsConfig),
		bucket: cfg.AWSEventArchiveBucket,
	}, nil
}

// Archive uploads the body under identity-events/<delivery id>.json.
// Redelivery overwrites the same key.
func (a *S3EventArchive) Archive(ctx context.Context, deliveryID string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(ArchiveKey(deliveryID)),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return fmt.Errorf("failed to archive event to S3: %w", err)
	}
	return nil
}

// NopEventArchive discards everything; used when no bucket is configured
type NopEventArchive struct{}

func (NopEventArchive) Archive(context.Context, string, []byte) error { return nil }
