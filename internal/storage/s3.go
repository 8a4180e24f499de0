package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Config locates the bucket photos are written to. Endpoint may point at
// any S3-compatible server such as MinIO; it switches to path-style URLs.
type S3Config struct {
	Bucket    string
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
	Prefix    string
}

// objectPutter is the part of *s3.Client used by S3.
type objectPutter interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3 stores photos as objects under Prefix in Bucket.
type S3 struct {
	client objectPutter
	bucket string
	prefix string
}

// loadDefaultAWSConfig is a seam for tests.
var loadDefaultAWSConfig = config.LoadDefaultConfig

// NewS3 builds an S3 store from cfg. Static credentials are used when both
// keys are set; otherwise the default AWS credential chain applies.
func NewS3(ctx context.Context, cfg S3Config) (*S3, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})
	return newS3(client, cfg.Bucket, cfg.Prefix), nil
}

func newS3(client objectPutter, bucket, prefix string) *S3 {
	return &S3{client: client, bucket: bucket, prefix: prefix}
}

// Save uploads r as <prefix><name>, replacing any existing object.
func (s *S3) Save(ctx context.Context, name, contentType string, size int64, r io.Reader) error {
	if err := checkName(name); err != nil {
		return err
	}

	in := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(s.prefix + name),
		Body:   r,
	}
	if contentType != "" {
		in.ContentType = aws.String(contentType)
	}
	if size >= 0 {
		in.ContentLength = aws.Int64(size)
	}

	if _, err := s.client.PutObject(ctx, in); err != nil {
		return fmt.Errorf("put object %s: %w", s.prefix+name, err)
	}
	return nil
}
