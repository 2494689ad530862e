// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
//
// Object store client grounded in
// original_source/automation/scripts/migrate_images_to_r2.py, which moves
// scraped media to Cloudflare R2 (S3-compatible). Backed by
// aws-sdk-go-v2/service/s3, already present in the retrieval pack's
// dependency closure (steveyegge-gastown).

package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/civictrace/pipeline/internal/metrics"
)

// ObjectStore is the put/get/list surface the pipeline needs from the three
// buckets in spec.md §6 (raw-twitter-data, raw-instagram-data,
// instagram-media).
type ObjectStore interface {
	// Put uploads data under key in bucket and returns its stable public URL.
	Put(ctx context.Context, bucket, key string, data []byte, contentType string) (publicURL string, err error)
	// Get downloads the object at key in bucket.
	Get(ctx context.Context, bucket, key string) ([]byte, error)
	// List returns every key under prefix in bucket.
	List(ctx context.Context, bucket, prefix string) ([]string, error)
	// Move copies srcKey to dstKey within bucket and deletes srcKey, used by
	// the ingestion normalizer's processed/ archiving step.
	Move(ctx context.Context, bucket, srcKey, dstKey string) error
	// Delete removes key from bucket.
	Delete(ctx context.Context, bucket, key string) error
	// PublicURL returns the stable public URL for an existing key without
	// touching the network, used for idempotent re-uploads.
	PublicURL(bucket, key string) string
}

// S3Config configures the S3-compatible object store client.
type S3Config struct {
	Endpoint        string // empty for real AWS S3; set for R2/MinIO
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	PublicBaseURL   string // e.g. https://media.example.org
}

// S3Store implements ObjectStore against any S3-compatible backend.
type S3Store struct {
	client    *s3.Client
	publicURL string
}

// NewS3Store builds an S3-compatible client from static credentials,
// following the same explicit-credentials pattern
// migrate_images_to_r2.py uses for its R2 client.
func NewS3Store(ctx context.Context, cfg S3Config) (*S3Store, error) {
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKeyID, cfg.SecretAccessKey, "")),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &S3Store{client: client, publicURL: strings.TrimSuffix(cfg.PublicBaseURL, "/")}, nil
}

func (s *S3Store) PublicURL(bucket, key string) string {
	return fmt.Sprintf("%s/%s/%s", s.publicURL, bucket, key)
}

func (s *S3Store) Put(ctx context.Context, bucket, key string, data []byte, contentType string) (string, error) {
	start := time.Now()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	metrics.RecordObjectStoreUpload(contentType, time.Since(start), err)
	if err != nil {
		return "", fmt.Errorf("put %s/%s: %w", bucket, key, err)
	}
	return s.PublicURL(bucket, key), nil
}

func (s *S3Store) Get(ctx context.Context, bucket, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s/%s: %w", bucket, key, err)
	}
	defer out.Body.Close()
	return io.ReadAll(out.Body)
}

func (s *S3Store) List(ctx context.Context, bucket, prefix string) ([]string, error) {
	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list %s/%s: %w", bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

func (s *S3Store) Move(ctx context.Context, bucket, srcKey, dstKey string) error {
	_, err := s.client.CopyObject(ctx, &s3.CopyObjectInput{
		Bucket:     aws.String(bucket),
		CopySource: aws.String(bucket + "/" + srcKey),
		Key:        aws.String(dstKey),
	})
	if err != nil {
		return fmt.Errorf("copy %s/%s -> %s: %w", bucket, srcKey, dstKey, err)
	}
	return s.Delete(ctx, bucket, srcKey)
}

func (s *S3Store) Delete(ctx context.Context, bucket, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", bucket, key, err)
	}
	return nil
}
