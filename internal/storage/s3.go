package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"hortti/internal/config"
)

// S3Storage talks to an S3-compatible backend (AWS S3, MinIO, Spaces).
type S3Storage struct {
	client  *s3.Client
	bucket  string
	baseURL string
	now     func() time.Time
}

// NewS3Storage builds the S3 client from the given settings. It performs
// no network call; run Bootstrap afterwards to prepare the bucket.
func NewS3Storage(cfg config.StorageConfig) (*S3Storage, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("storage: bucket name is not configured")
	}

	opts := []func(*awscfg.LoadOptions) error{
		awscfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		opts = append(opts, awscfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsConfig, err := awscfg.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		return nil, fmt.Errorf("storage: load aws config: %w", err)
	}

	clientOpts := []func(*s3.Options){}
	if cfg.Endpoint != "" {
		clientOpts = append(clientOpts, func(o *s3.Options) {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = cfg.ForcePathStyle
		})
	}

	base := cfg.PublicURL
	if base == "" {
		base = cfg.Endpoint
	}

	return &S3Storage{
		client:  s3.NewFromConfig(awsConfig, clientOpts...),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimRight(base, "/"),
		now:     time.Now,
	}, nil
}

// Bootstrap ensures the bucket exists, creating it when absent, and then
// attempts to make its objects publicly readable. A policy failure is
// logged and swallowed: the app keeps running with unreachable public
// URLs rather than refusing to start.
func (s *S3Storage) Bootstrap(ctx context.Context) error {
	if err := s.ensureBucket(ctx); err != nil {
		return err
	}
	if err := s.setBucketPolicy(ctx); err != nil {
		log.Printf("Warning: failed to set public-read policy on bucket %q: %v", s.bucket, err)
	}
	return nil
}

func (s *S3Storage) ensureBucket(ctx context.Context) error {
	_, err := s.client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err == nil {
		log.Printf("Bucket %q already exists", s.bucket)
		return nil
	}

	var notFound *types.NotFound
	if !errors.As(err, &notFound) {
		return &Error{Op: "head bucket", Err: err}
	}

	_, err = s.client.CreateBucket(ctx, &s3.CreateBucketInput{
		Bucket: aws.String(s.bucket),
	})
	if err != nil {
		// A concurrent boot may have won the race; both variants mean
		// the bucket is there.
		var owned *types.BucketAlreadyOwnedByYou
		var exists *types.BucketAlreadyExists
		if errors.As(err, &owned) || errors.As(err, &exists) {
			return nil
		}
		return &Error{Op: "create bucket", Err: err}
	}
	log.Printf("Bucket %q created", s.bucket)
	return nil
}

func (s *S3Storage) setBucketPolicy(ctx context.Context) error {
	policy := fmt.Sprintf(`{
		"Version": "2012-10-17",
		"Statement": [
			{
				"Effect": "Allow",
				"Principal": "*",
				"Action": ["s3:GetObject"],
				"Resource": ["arn:aws:s3:::%s/*"]
			}
		]
	}`, s.bucket)

	_, err := s.client.PutBucketPolicy(ctx, &s3.PutBucketPolicyInput{
		Bucket: aws.String(s.bucket),
		Policy: aws.String(policy),
	})
	return err
}

// UploadFile stores data under a generated timestamped key and returns it.
func (s *S3Storage) UploadFile(ctx context.Context, data []byte, contentType, originalName, folder string) (string, error) {
	key := objectKey(folder, originalName, s.now())

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", &Error{Op: "upload", Key: key, Err: err}
	}
	log.Printf("File uploaded: %s", key)
	return key, nil
}

// DeleteFile removes the object under key. S3 treats deleting a missing
// key as success, so this is naturally idempotent.
func (s *S3Storage) DeleteFile(ctx context.Context, key string) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return &Error{Op: "delete", Key: key, Err: err}
	}
	log.Printf("File deleted: %s", key)
	return nil
}

// GetFile reads the whole object into memory.
func (s *S3Storage) GetFile(ctx context.Context, key string) ([]byte, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		var noSuchKey *types.NoSuchKey
		if errors.As(err, &noSuchKey) {
			return nil, &Error{Op: "get", Key: key, Err: ErrObjectNotFound}
		}
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, &Error{Op: "get", Key: key, Err: err}
	}
	return data, nil
}

// ListFiles returns all keys under folder.
func (s *S3Storage) ListFiles(ctx context.Context, folder string) ([]string, error) {
	prefix := strings.TrimLeft(folder, "/")
	if prefix != "" && !strings.HasSuffix(prefix, "/") {
		prefix += "/"
	}

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, &Error{Op: "list", Key: folder, Err: err}
		}
		for _, obj := range page.Contents {
			keys = append(keys, *obj.Key)
		}
	}
	return keys, nil
}

// FileURL derives the public URL for key from the configured base URL.
// Purely syntactic: the object may or may not exist.
func (s *S3Storage) FileURL(key string) string {
	return s.baseURL + "/" + s.bucket + "/" + key
}
