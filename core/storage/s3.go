package storage

import (
	"bytes"
	"context"
	"fmt"

	"meetsync-api/core/logger"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// ArchiveWriter persists opaque payloads for later inspection. The proposal
// engine uses it to keep raw AI prompt/response exchanges when enabled.
type ArchiveWriter interface {
	Put(ctx context.Context, key string, contentType string, body []byte) error
}

type ArchiveConfig struct {
	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	Endpoint  string
}

type s3Archive struct {
	client *s3.Client
	bucket string
}

func NewS3Archive(cfg ArchiveConfig) ArchiveWriter {
	opts := s3.Options{
		Region:      cfg.Region,
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
		opts.UsePathStyle = true
	}

	return &s3Archive{
		client: s3.New(opts),
		bucket: cfg.Bucket,
	}
}

func (a *s3Archive) Put(ctx context.Context, key string, contentType string, body []byte) error {
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		logger.Error("S3Archive:Put", "error", err, "bucket", a.bucket, "key", key)
		return fmt.Errorf("archive put %s: %w", key, err)
	}
	return nil
}

// NopArchive is used when archiving is disabled in config.
type NopArchive struct{}

func (NopArchive) Put(ctx context.Context, key string, contentType string, body []byte) error {
	return nil
}
