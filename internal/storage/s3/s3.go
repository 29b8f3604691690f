package s3store

import (
	"context"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/smithy-go"

	"github.com/dev-tams/rotatekit/internal/rotate"
)

// API is the part of the S3 client the store uses.
type API interface {
	s3.ListObjectsV2APIClient
	DeleteObject(ctx context.Context, params *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

type Storage struct {
	name   string
	bucket string
	prefix string
	client API
}

type Options struct {
	Name      string
	Bucket    string
	Region    string
	Prefix    string
	AccessKey string
	SecretKey string
	// Endpoint points the client at an S3-compatible service and switches to
	// path-style addressing.
	Endpoint string
}

func New(ctx context.Context, opt Options) (*Storage, error) {
	if opt.Bucket == "" || opt.Region == "" {
		return nil, fmt.Errorf("s3: bucket and region are required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{awsconfig.WithRegion(opt.Region)}
	if opt.AccessKey != "" {
		creds := credentials.NewStaticCredentialsProvider(opt.AccessKey, opt.SecretKey, "")
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(creds))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if opt.Endpoint != "" {
			o.BaseEndpoint = aws.String(opt.Endpoint)
			o.UsePathStyle = true
		}
	})
	return NewWithClient(opt.Name, opt.Bucket, opt.Prefix, client), nil
}

func NewWithClient(name, bucket, prefix string, client API) *Storage {
	return &Storage{
		name:   name,
		bucket: bucket,
		prefix: strings.Trim(prefix, "/"),
		client: client,
	}
}

func (s *Storage) Name() string {
	return s.name
}

func (s *Storage) fullPrefix(prefix string) string {
	// S3 usually use forward slashes
	p := path.Join(s.prefix, strings.Trim(prefix, "/"))
	if p == "" || p == "." {
		return ""
	}
	return p + "/"
}

// List returns every object below prefix as a keyed item. Keys are kept whole
// so dates in folder names are seen by the extractor.
func (s *Storage) List(ctx context.Context, prefix string) ([]rotate.Item, error) {
	p := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(s.bucket),
		Prefix: aws.String(s.fullPrefix(prefix)),
	})

	var out []rotate.Item
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, apiError("listobjectsv2", err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if key == "" || strings.HasSuffix(key, "/") {
				continue
			}
			item := rotate.Keyed(key)
			item.Size = aws.ToInt64(obj.Size)
			item.ModTime = aws.ToTime(obj.LastModified)
			out = append(out, item)
		}
	}
	return out, nil
}

// TolerateDeleteFailures reports true. Object deletions are best effort.
func (s *Storage) TolerateDeleteFailures() bool { return true }

func (s *Storage) Delete(ctx context.Context, item rotate.Item) error {
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(item.Handle()),
	})
	if err != nil {
		return apiError("deleteobject", err)
	}
	return nil
}

func apiError(op string, err error) error {
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("s3 %s failed: %s: %s", op, apiErr.ErrorCode(), apiErr.ErrorMessage())
	}
	return fmt.Errorf("s3 %s failed: %w", op, err)
}
