// Package blob stores uploaded book files on an S3-compatible host.
package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/bookdrive/internal/server/models"
	"github.com/gabriel-vasile/mimetype"
	"github.com/google/uuid"
)

// objectAPI is the part of *s3.Client the host needs.
type objectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

var (
	loadDefaultAWSConfig = config.LoadDefaultConfig

	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) objectAPI {
		return s3.NewFromConfig(cfg, optFns...)
	}

	now = time.Now
)

// Options configures an S3Host.
type Options struct {
	AccessKey    string
	SecretKey    string
	Region       string
	BaseEndpoint string
	Bucket       string
	// PublicURL prefixes returned file URLs; BaseEndpoint is used when empty.
	PublicURL string
}

// S3Host uploads files with PutObject and hands back a public URL.
type S3Host struct {
	client    objectAPI
	bucket    string
	publicURL string
}

// NewS3Host builds a path-style client, which MinIO and most self-hosted
// S3 implementations expect.
func NewS3Host(ctx context.Context, opts Options) (*S3Host, error) {
	cfg, err := loadDefaultAWSConfig(ctx,
		config.WithRegion(opts.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			opts.AccessKey,
			opts.SecretKey,
			"",
		)))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if opts.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(opts.BaseEndpoint)
		}
		o.UsePathStyle = true
	})

	public := opts.PublicURL
	if public == "" {
		public = opts.BaseEndpoint
	}

	return &S3Host{
		client:    client,
		bucket:    opts.Bucket,
		publicURL: strings.TrimRight(public, "/"),
	}, nil
}

// Store uploads the file at localPath. displayName is kept as the last key
// segment (sanitized) so downloads carry a readable name.
func (h *S3Host) Store(ctx context.Context, localPath, displayName string) (*models.StoredFile, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return nil, fmt.Errorf("open staged file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat staged file: %w", err)
	}

	mtype, err := mimetype.DetectFile(localPath)
	if err != nil {
		return nil, fmt.Errorf("detect content type: %w", err)
	}

	key := ObjectKey(now(), displayName)

	_, err = h.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(h.bucket),
		Key:           aws.String(key),
		Body:          f,
		ContentLength: aws.Int64(info.Size()),
		ContentType:   aws.String(mtype.String()),
	})
	if err != nil {
		return nil, fmt.Errorf("put object %s: %w", key, err)
	}

	return &models.StoredFile{
		URL:  h.URL(key),
		Key:  key,
		Name: displayName,
	}, nil
}

// Remove deletes the object stored under key.
func (h *S3Host) Remove(ctx context.Context, key string) error {
	_, err := h.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("delete object %s: %w", key, err)
	}
	return nil
}

// URL returns the public URL of key.
func (h *S3Host) URL(key string) string {
	return h.publicURL + "/" + h.bucket + "/" + key
}

var unsafeKeyChars = regexp.MustCompile(`[^A-Za-z0-9._-]+`)

// ObjectKey returns books/<yyyy>/<mm>/<uuid>/<sanitized name>.
func ObjectKey(t time.Time, displayName string) string {
	return fmt.Sprintf("books/%04d/%02d/%s/%s", t.Year(), int(t.Month()), uuid.New(), SanitizeName(displayName))
}

// SanitizeName reduces name to a single safe path segment.
func SanitizeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, `\`, "/"))
	name = unsafeKeyChars.ReplaceAllString(name, "_")
	name = strings.Trim(name, "._")
	if name == "" {
		return "file"
	}
	return name
}
