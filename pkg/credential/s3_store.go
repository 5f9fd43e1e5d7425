package credential

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/klokku/reminder/internal/config"
	log "github.com/sirupsen/logrus"
)

// S3Store keeps the secret as a single object in an S3 compatible bucket
// (AWS, Cloudflare R2, MinIO).
type S3Store struct {
	client *s3.Client
	bucket string
	key    string
}

func NewS3Store(cfg config.S3) *S3Store {
	opts := s3.Options{
		Region:                     cfg.Region,
		Credentials:                credentials.NewStaticCredentialsProvider(cfg.AccessKeyId, cfg.SecretAccessKey, ""),
		UsePathStyle:               true,
		RequestChecksumCalculation: aws.RequestChecksumCalculationWhenRequired,
		ResponseChecksumValidation: aws.ResponseChecksumValidationWhenRequired,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3Store{
		client: s3.New(opts),
		bucket: cfg.Bucket,
		key:    cfg.Key,
	}
}

func (s *S3Store) Save(ctx context.Context, secret string) error {
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(s.key),
		Body:        strings.NewReader(secret),
		ContentType: aws.String("text/plain"),
	})
	if err != nil {
		return fmt.Errorf("failed to put %s/%s: %w", s.bucket, s.key, err)
	}
	log.Debugf("Stored refresh token in s3://%s/%s", s.bucket, s.key)
	return nil
}

func (s *S3Store) Load(ctx context.Context) (string, bool) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.key),
	})
	if err != nil {
		log.Debugf("refresh token not loaded from s3://%s/%s: %v", s.bucket, s.key, err)
		return "", false
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		log.Debugf("failed to read s3://%s/%s: %v", s.bucket, s.key, err)
		return "", false
	}
	secret := strings.TrimSpace(string(data))
	if secret == "" {
		return "", false
	}
	return secret, true
}
