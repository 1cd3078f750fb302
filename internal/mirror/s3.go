package mirror

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nikobarra/proyecto-utn-datos/internal/config"
	"github.com/nikobarra/proyecto-utn-datos/internal/logger"
)

// Mirror uploads lake artifacts to an S3-compatible bucket (R2 in
// production). It is strictly additive: the on-disk lake stays the source
// of truth.
type Mirror struct {
	client *s3.Client
	bucket string
}

// New builds a Mirror from the R2 configuration.
func New(ctx context.Context, cfg *config.Config) (*Mirror, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion("auto"),
		awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.R2AccessKey, cfg.R2SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load object store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(cfg.R2Endpoint)
		o.UsePathStyle = true
	})

	return &Mirror{client: client, bucket: cfg.R2Bucket}, nil
}

// UploadDir uploads every regular file under localDir to the bucket,
// keyed by keyPrefix plus the file's path relative to localDir.
func (m *Mirror) UploadDir(ctx context.Context, localDir, keyPrefix string) error {
	log := logger.Get()
	uploaded := 0

	err := filepath.WalkDir(localDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}

		rel, err := filepath.Rel(localDir, path)
		if err != nil {
			return err
		}
		key := filepath.ToSlash(filepath.Join(keyPrefix, rel))

		file, err := os.Open(path)
		if err != nil {
			return fmt.Errorf("failed to open %s: %w", path, err)
		}
		defer file.Close()

		_, err = m.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(m.bucket),
			Key:         aws.String(key),
			Body:        file,
			ContentType: aws.String("application/json"),
		})
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", key, err)
		}
		uploaded++
		return nil
	})
	if err != nil {
		return err
	}

	log.Info().
		Int("files", uploaded).
		Str("bucket", m.bucket).
		Str("prefix", keyPrefix).
		Msg("Mirrored lake artifacts to object store")
	return nil
}
