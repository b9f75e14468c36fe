package archive

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"flightsnap/config"
	"flightsnap/internal/snapshot"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Uploader is the subset of the S3 client used for archiving.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archiver copies published snapshots to S3-compatible object storage
// under <prefix>/<date>/.
type S3Archiver struct {
	client Uploader
	bucket string
	prefix string
}

func NewS3Archiver(client Uploader, bucket, prefix string) *S3Archiver {
	return &S3Archiver{client: client, bucket: bucket, prefix: prefix}
}

// NewFromConfig builds an archiver for cfg. Static keys and a custom
// endpoint are used when set (R2, MinIO), otherwise the default AWS chain.
func NewFromConfig(ctx context.Context, cfg config.ArchiveConfig) (*S3Archiver, error) {
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
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
		}
		o.UsePathStyle = cfg.UsePathStyle
	})
	return NewS3Archiver(client, cfg.Bucket, cfg.Prefix), nil
}

// Key returns the object key of a snapshot file.
func (a *S3Archiver) Key(date, rel string) string {
	return path.Join(a.prefix, date, rel)
}

// ArchiveSnapshot uploads every file of the snapshot keyed by date and
// returns the number of uploaded objects.
func (a *S3Archiver) ArchiveSnapshot(ctx context.Context, store *snapshot.Store, date string) (int, error) {
	files, err := store.Files(date)
	if err != nil {
		return 0, err
	}

	for i, rel := range files {
		if err := a.upload(ctx, filepath.Join(store.Dir(date), filepath.FromSlash(rel)), a.Key(date, rel)); err != nil {
			return i, fmt.Errorf("upload %s: %w", rel, err)
		}
	}
	return len(files), nil
}

func (a *S3Archiver) upload(ctx context.Context, file, key string) error {
	f, err := os.Open(file)
	if err != nil {
		return err
	}
	defer f.Close()

	_, err = a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      &a.bucket,
		Key:         &key,
		Body:        f,
		ContentType: aws.String(contentType(key)),
	})
	return err
}

func contentType(key string) string {
	switch path.Ext(key) {
	case ".csv":
		return "text/csv"
	case ".json":
		return "application/json"
	default:
		return "application/octet-stream"
	}
}
