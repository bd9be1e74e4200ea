package groupio

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// ObjectStoreOptions configures the S3-compatible client. Credentials
// fall back to the AWS_* and MINIO_* environment variables when the keys
// are empty.
type ObjectStoreOptions struct {
	Endpoint  string
	Secure    bool
	Region    string
	AccessKey string
	SecretKey string
}

// ObjectSink writes each group to the object prefix+name in bucket
type ObjectSink struct {
	client *minio.Client
	bucket string
	prefix string
	retry  RetryConfig
}

// NewObjectSink creates a sink on an existing client
func NewObjectSink(client *minio.Client, bucket, prefix string) *ObjectSink {
	return &ObjectSink{
		client: client,
		bucket: bucket,
		prefix: prefix,
		retry:  DefaultRetryConfig(),
	}
}

// NewObjectSinkFromOptions creates the client from opts and wraps it in a sink
func NewObjectSinkFromOptions(bucket, prefix string, opts ObjectStoreOptions) (*ObjectSink, error) {
	if opts.Endpoint == "" {
		return nil, fmt.Errorf("object store endpoint is required for s3://%s", bucket)
	}

	creds := credentials.NewChainCredentials([]credentials.Provider{
		&credentials.EnvAWS{},
		&credentials.EnvMinio{},
	})
	if opts.AccessKey != "" {
		creds = credentials.NewStaticV4(opts.AccessKey, opts.SecretKey, "")
	}

	client, err := minio.New(opts.Endpoint, &minio.Options{
		Creds:  creds,
		Secure: opts.Secure,
		Region: opts.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create object store client: %w", err)
	}

	return NewObjectSink(client, bucket, prefix), nil
}

// ParseObjectURL splits "s3://bucket/key/prefix" into bucket and key
// prefix. The key prefix is kept verbatim so "s3://b/split_" names objects
// split_aa, split_ab, ...
func ParseObjectURL(u string) (bucket, prefix string, ok bool) {
	rest, found := strings.CutPrefix(u, "s3://")
	if !found {
		return "", "", false
	}
	bucket, prefix, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", false
	}
	return bucket, prefix, true
}

// WriteGroup implements Sink
func (s *ObjectSink) WriteGroup(ctx context.Context, name string, paths []string) error {
	key := s.prefix + name
	data := Format(paths)

	_, err := retryWithBackoff(ctx, s.retry, func() (minio.UploadInfo, error) {
		return s.client.PutObject(ctx, s.bucket, key, bytes.NewReader(data), int64(len(data)),
			minio.PutObjectOptions{ContentType: "text/plain"})
	})
	if err != nil {
		return fmt.Errorf("failed to put s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}
