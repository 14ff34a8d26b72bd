package archive

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/zap"

	"gem-backend/internal/config"
	"gem-backend/internal/logger"
	"gem-backend/internal/models"
)

const uploadTimeout = 30 * time.Second

// ObjectPutter is the part of the S3 client the archiver needs.
type ObjectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver stores recycle bin snapshots in an S3 compatible bucket (AWS S3
// or Cloudflare R2) before they are purged.
type S3Archiver struct {
	client ObjectPutter
	bucket string
	prefix string
}

func NewS3Archiver(client ObjectPutter, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// NewFromConfig builds the archiver from configuration. It returns nil when
// archiving is disabled.
func NewFromConfig(ctx context.Context, cfg *config.Config) (*S3Archiver, error) {
	ac := cfg.Archive
	if !ac.Enabled {
		return nil, nil
	}
	if ac.Bucket == "" {
		return nil, fmt.Errorf("archive bucket is required when archiving is enabled")
	}

	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(ac.Region)}
	if ac.AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(ac.AccessKey, ac.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to configure archive client: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if ac.Endpoint != "" {
			o.BaseEndpoint = aws.String(ac.Endpoint)
			o.UsePathStyle = true
		}
	})
	logger.Log.Info("recycle bin archive enabled", zap.String("bucket", ac.Bucket))
	return NewS3Archiver(client, ac.Bucket, ac.Prefix), nil
}

// Key is the object key of an entry's snapshot.
func (a *S3Archiver) Key(entry *models.RecycleBinEntry) string {
	return path.Join(a.prefix, entry.OwnerID.String(), string(entry.EntityType), entry.EntityID.String()+".json")
}

// Archive uploads the entry's snapshot as JSON.
func (a *S3Archiver) Archive(ctx context.Context, entry *models.RecycleBinEntry) error {
	ctx, cancel := context.WithTimeout(ctx, uploadTimeout)
	defer cancel()

	key := a.Key(entry)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(entry.EntityData),
		ContentType: aws.String("application/json"),
		Metadata: map[string]string{
			"deleted-at": entry.DeletedAt.UTC().Format(time.RFC3339),
			"deleted-by": entry.DeletedBy.String(),
		},
	})
	if err != nil {
		return fmt.Errorf("failed to upload %s: %w", key, err)
	}
	logger.FromContext(ctx).Debug("snapshot archived", zap.String("key", key))
	return nil
}
