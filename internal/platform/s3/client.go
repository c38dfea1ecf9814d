// Package s3 provides a payload source for driver packages hosted in
// S3-compatible object storage. It implements fetch.Source for s3:// URLs.
package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

// ErrObjectNotFound indicates the requested payload object does not exist.
var ErrObjectNotFound = errors.New("payload object not found")

// Client wraps an S3 client for driver payload retrieval.
type Client struct {
	s3 *s3.Client
}

// NewClient creates a client for an S3-compatible endpoint. endpoint may be
// empty for AWS itself; accessKey/secretKey may be empty to use the default
// credential chain.
func NewClient(ctx context.Context, endpoint, region, accessKey, secretKey string) (*Client, error) {
	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(region),
	}
	if accessKey != "" {
		loadOpts = append(loadOpts,
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(accessKey, secretKey, "")))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			o.UsePathStyle = true
		}
	})

	return &Client{s3: client}, nil
}

// Open implements fetch.Source for s3://bucket/key URLs. The returned
// length is the object's content length, or -1 when unavailable.
func (c *Client) Open(ctx context.Context, rawURL string) (io.ReadCloser, int64, error) {
	bucket, key, err := splitObjectURL(rawURL)
	if err != nil {
		return nil, 0, err
	}

	result, err := c.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return nil, 0, fmt.Errorf("%w: s3://%s/%s", ErrObjectNotFound, bucket, key)
		}
		return nil, 0, fmt.Errorf("failed to get object %s from bucket %s: %w", key, bucket, err)
	}

	length := int64(-1)
	if result.ContentLength != nil {
		length = *result.ContentLength
	}
	return result.Body, length, nil
}

// ObjectExists checks whether a payload object is present.
func (c *Client) ObjectExists(ctx context.Context, rawURL string) (bool, error) {
	bucket, key, err := splitObjectURL(rawURL)
	if err != nil {
		return false, err
	}

	_, err = c.s3.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if isNotFoundError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to check object %s in bucket %s: %w", key, bucket, err)
	}
	return true, nil
}

// splitObjectURL parses an s3://bucket/key URL.
func splitObjectURL(rawURL string) (bucket, key string, err error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", "", fmt.Errorf("parsing object URL: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 object URL: %q", rawURL)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("object URL %q has no key", rawURL)
	}
	return u.Host, key, nil
}

// isNotFoundError checks if the error is a not found error.
func isNotFoundError(err error) bool {
	if err == nil {
		return false
	}

	// Check for typed S3 errors first
	var nsk *types.NoSuchKey
	if errors.As(err, &nsk) {
		return true
	}

	var nf *types.NotFound
	if errors.As(err, &nf) {
		return true
	}

	// Fall back to API error code checking for S3-compatible services
	// that may not return the exact SDK error types
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := apiErr.ErrorCode()
		return code == "NotFound" || code == "NoSuchKey" || code == "404"
	}

	return false
}
