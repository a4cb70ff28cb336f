package storage

import (
	"context"
	"fmt"
	"time"

	"soundhub/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store presigns against AWS S3 (or any S3 endpoint) with aws-sdk-go-v2.
type S3Store struct {
	presigner *s3.PresignClient
	bucket    string
}

// NewS3Store creates an S3Store. A non-empty endpoint that is not AWS is
// addressed path-style.
func NewS3Store(cfg *config.Config) *S3Store {
	opts := []func(*s3.Options){
		func(o *s3.Options) {
			o.Region = cfg.StorageRegion
			o.Credentials = credentials.NewStaticCredentialsProvider(cfg.StorageAccessKey, cfg.StorageSecretKey, "")
		},
	}
	if cfg.StorageEndpoint != "" && cfg.StorageEndpoint != "s3.amazonaws.com" {
		scheme := "http://"
		if cfg.StorageUseSSL {
			scheme = "https://"
		}
		opts = append(opts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(scheme + cfg.StorageEndpoint)
			o.UsePathStyle = true
		})
	}

	client := s3.New(s3.Options{}, opts...)
	return &S3Store{presigner: s3.NewPresignClient(client), bucket: cfg.StorageBucket}
}

func withExpiry(expiry time.Duration) func(*s3.PresignOptions) {
	return func(po *s3.PresignOptions) {
		po.Expires = expiry
	}
}

// PresignGet returns a download URL for key.
func (s *S3Store) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, withExpiry(expiry))
	if err != nil {
		return "", fmt.Errorf("presign get %s: %w", key, err)
	}
	return req.URL, nil
}

// PresignPut returns an upload URL for key.
func (s *S3Store) PresignPut(ctx context.Context, key string, expiry time.Duration) (string, error) {
	req, err := s.presigner.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}, withExpiry(expiry))
	if err != nil {
		return "", fmt.Errorf("presign put %s: %w", key, err)
	}
	return req.URL, nil
}
