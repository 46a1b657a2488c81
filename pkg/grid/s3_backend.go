package grid

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// s3Client is the subset of *s3.Client S3Backend needs, narrowed for
// testability.
type s3Client interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Backend is the remote/durable Grid backend: blocks live as individual
// S3 objects under bucket/prefix, keyed the same way FileBackend keys its
// on-disk files. It exists for trees whose levels are stored remotely
// rather than on local disk — the async Grid contract is
// identical either way; only Fetch's latency profile differs.
type S3Backend struct {
	client s3Client
	bucket string
	prefix string
}

// NewS3Backend wires an aws-sdk-go-v2 S3 client into the Backend contract.
func NewS3Backend(client *s3.Client, bucket, prefix string) *S3Backend {
	return &S3Backend{client: client, bucket: bucket, prefix: prefix}
}

// NewS3BackendFromEnv builds an S3Backend using the SDK's default
// credential chain (environment, shared config, EC2/ECS role), or a static
// access key pair when both are non-empty. region selects the S3 client's
// endpoint region.
func NewS3BackendFromEnv(ctx context.Context, region, bucket, prefix, accessKeyID, secretAccessKey string) (*S3Backend, error) {
	opts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(region)}
	if accessKeyID != "" && secretAccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(accessKeyID, secretAccessKey, ""),
		))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("grid: load aws config: %w", err)
	}
	return NewS3Backend(s3.NewFromConfig(cfg), bucket, prefix), nil
}

func (b *S3Backend) key(address uint64, kind BlockKind) string {
	if b.prefix == "" {
		return fmt.Sprintf("%s-%020d.blk", kind, address)
	}
	return fmt.Sprintf("%s/%s-%020d.blk", b.prefix, kind, address)
}

// Fetch implements Backend. It runs synchronously against S3; Grid.ReadBlock
// already offloads it to its own goroutine, so this never blocks the loop.
func (b *S3Backend) Fetch(address uint64, kind BlockKind) ([]byte, error) {
	key := b.key(address, kind)
	out, err := b.client.GetObject(context.Background(), &s3.GetObjectInput{
		Bucket: aws.String(b.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("grid: s3 backend get %s: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("grid: s3 backend read body %s: %w", key, err)
	}
	return buf.Bytes(), nil
}
