package transfer

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

// S3Options carries the connection settings for an S3-compatible payload
// mirror (MinIO works too, via BaseEndpoint).
type S3Options struct {
	Region       string
	AccessKey    string
	SecretKey    string
	BaseEndpoint string
}

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// S3Transfer downloads s3://bucket/key URIs.
type S3Transfer struct {
	opts   S3Options
	getter objectGetter
}

func NewS3Transfer(opts S3Options) *S3Transfer {
	return &S3Transfer{opts: opts}
}

func (t *S3Transfer) getObjectGetter(ctx context.Context) (objectGetter, error) {
	if t.getter != nil {
		return t.getter, nil
	}

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(t.opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			t.opts.AccessKey,
			t.opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(cfg, func(o *s3.Options) {
		if t.opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(t.opts.BaseEndpoint)
			o.UsePathStyle = true
		}
	})
	t.getter = client
	return client, nil
}

func (t *S3Transfer) TransferToLocalFile(ctx context.Context, uri string, dest string) error {
	bucket, key, err := splitS3URI(uri)
	if err != nil {
		return err
	}

	getter, err := t.getObjectGetter(ctx)
	if err != nil {
		return fmt.Errorf("s3 client: %w", err)
	}

	out, err := getter.GetObject(ctx, &s3.GetObjectInput{
		Bucket: &bucket,
		Key:    &key,
	})
	if err != nil {
		return fmt.Errorf("fetch %s: %w", uri, err)
	}
	defer out.Body.Close()

	f, err := os.Create(dest)
	if err != nil {
		return fmt.Errorf("create %s: %w", dest, err)
	}

	if _, err := io.Copy(f, out.Body); err != nil {
		f.Close()
		os.Remove(dest)
		return fmt.Errorf("write %s: %w", dest, err)
	}
	return f.Close()
}

func splitS3URI(uri string) (bucket, key string, err error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", "", fmt.Errorf("parse s3 uri: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("not an s3 uri: %s", uri)
	}
	key = strings.TrimPrefix(u.Path, "/")
	if key == "" {
		return "", "", fmt.Errorf("s3 uri has no key: %s", uri)
	}
	return u.Host, key, nil
}
