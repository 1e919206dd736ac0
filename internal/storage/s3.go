package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awshttp "github.com/aws/aws-sdk-go-v2/aws/transport/http"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"

	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/config"
	"github.com/Deutsches-Klimarechenzentrum/2catalogs/internal/domain"
)

// S3Store reads objects from S3 or an S3-compatible endpoint.
type S3Store struct {
	client *s3.Client
}

// NewS3Store creates an S3Store. Without static credentials requests are
// anonymous; a custom endpoint switches to path-style addressing.
func NewS3Store(cfg config.StorageConfig) *S3Store {
	opts := s3.Options{
		Region:      cfg.S3Region,
		Credentials: aws.AnonymousCredentials{},
	}
	if cfg.HasS3Credentials() {
		opts.Credentials = credentials.NewStaticCredentialsProvider(cfg.S3KeyID, cfg.S3Secret, "")
	}
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		if !strings.Contains(endpoint, "://") {
			endpoint = "https://" + endpoint
		}
		opts.BaseEndpoint = aws.String(endpoint)
		opts.UsePathStyle = true
	}
	return &S3Store{client: s3.New(opts)}
}

// Open implements domain.ObjectStore.
func (s *S3Store) Open(ctx context.Context, location string) (io.ReadCloser, error) {
	bucket, key, err := parseS3Path(location)
	if err != nil {
		return nil, err
	}
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isS3NotFound(err) {
			return nil, domain.ErrNotFound("%s not found", location)
		}
		return nil, fmt.Errorf("get %s: %w", location, err)
	}
	return out.Body, nil
}

// Exists implements domain.ObjectStore. A key that is only a prefix of other
// objects (a store directory) exists.
func (s *S3Store) Exists(ctx context.Context, location string) (bool, error) {
	bucket, key, err := parseS3Path(location)
	if err != nil {
		return false, err
	}
	_, err = s.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		return true, nil
	}
	if !isS3NotFound(err) {
		return false, fmt.Errorf("head %s: %w", location, err)
	}

	out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(strings.TrimSuffix(key, "/") + "/"),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, fmt.Errorf("list %s: %w", location, err)
	}
	return len(out.Contents) > 0, nil
}

func isS3NotFound(err error) bool {
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var noKey *types.NoSuchKey
	if errors.As(err, &noKey) {
		return true
	}
	var respErr *awshttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == 404
}

// parseS3Path extracts bucket and key from an "s3://bucket/path/to/file" URI.
func parseS3Path(s3Path string) (bucket, key string, err error) {
	u, err := url.Parse(s3Path)
	if err != nil {
		return "", "", fmt.Errorf("parse S3 path %q: %w", s3Path, err)
	}
	if u.Scheme != "s3" && u.Scheme != "s3a" {
		return "", "", fmt.Errorf("expected s3:// scheme, got %q in %q", u.Scheme, s3Path)
	}
	bucket = u.Host
	key = strings.TrimPrefix(u.Path, "/")
	if bucket == "" {
		return "", "", fmt.Errorf("empty bucket in S3 path %q", s3Path)
	}
	if key == "" {
		return "", "", fmt.Errorf("empty key in S3 path %q", s3Path)
	}
	return bucket, key, nil
}
