// Package seed loads the bootstrap dataset into the record store and the
// score index.
package seed

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// Source yields the raw dataset.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
	String() string
}

// FileSource reads the dataset from the local filesystem.
type FileSource struct {
	Path string
}

// Open implements Source.
func (f FileSource) Open(context.Context) (io.ReadCloser, error) {
	return os.Open(f.Path)
}

func (f FileSource) String() string { return f.Path }

// ObjectGetter is the subset of the S3 client used by S3Source.
type ObjectGetter interface {
	GetObject(ctx context.Context, in *s3.GetObjectInput, opts ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Source reads the dataset from an S3 compatible bucket.
type S3Source struct {
	Bucket string
	Key    string
	client ObjectGetter
}

// NewS3Source builds a source reading bucket/key through client.
func NewS3Source(client ObjectGetter, bucket, key string) *S3Source {
	return &S3Source{Bucket: bucket, Key: key, client: client}
}

// Open implements Source.
func (s *S3Source) Open(ctx context.Context) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.Bucket),
		Key:    aws.String(s.Key),
	})
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", s, err)
	}
	return out.Body, nil
}

func (s *S3Source) String() string { return "s3://" + s.Bucket + "/" + s.Key }

// S3Options configures the S3 client built by Open.
type S3Options struct {
	Region string
	// Endpoint targets an S3 compatible store such as R2 or MinIO.
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// Open resolves location into a Source. Locations of the form
// s3://bucket/key are read from S3; anything else is a local path.
func Open(ctx context.Context, location string, opts S3Options) (Source, error) {
	if location == "" {
		return nil, fmt.Errorf("%w: empty location", ErrUnsupportedSource)
	}
	if !strings.Contains(location, "://") {
		return FileSource{Path: location}, nil
	}

	u, err := url.Parse(location)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrUnsupportedSource, err)
	}
	switch u.Scheme {
	case "file":
		return FileSource{Path: u.Path}, nil
	case "s3":
		key := strings.TrimPrefix(u.Path, "/")
		if u.Host == "" || key == "" {
			return nil, fmt.Errorf("%w: %s needs bucket and key", ErrUnsupportedSource, location)
		}
		client, err := newS3Client(ctx, opts)
		if err != nil {
			return nil, err
		}
		return NewS3Source(client, u.Host, key), nil
	default:
		return nil, fmt.Errorf("%w: scheme %q", ErrUnsupportedSource, u.Scheme)
	}
}

func newS3Client(ctx context.Context, opts S3Options) (*s3.Client, error) {
	loaders := []func(*config.LoadOptions) error{}
	if opts.Region != "" {
		loaders = append(loaders, config.WithRegion(opts.Region))
	}
	if opts.AccessKeyID != "" {
		loaders = append(loaders, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(opts.AccessKeyID, opts.SecretAccessKey, ""),
		))
	}
	cfg, err := config.LoadDefaultConfig(ctx, loaders...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opts.Endpoint != "" {
			o.BaseEndpoint = aws.String(opts.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}
