// Package s3host stores media in an S3-compatible bucket and serves it from
// a public base URL (the bucket endpoint or a CDN in front of it).
package s3host

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/pranathisri21/frame-vault/internal/mediahost"
)

// Config describes the target bucket.
type Config struct {
	Bucket        string
	Region        string
	Endpoint      string
	PublicBaseURL string
}

type uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

type deleter interface {
	DeleteObject(ctx context.Context, input *s3.DeleteObjectInput, opts ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// Host uploads with the S3 transfer manager and deletes with DeleteObject.
type Host struct {
	uploader uploader
	deleter  deleter
	bucket   string
	baseURL  string
}

// New loads the default AWS configuration chain for cfg.Region. A non-empty
// Endpoint switches to path-style addressing for S3-compatible servers.
func New(ctx context.Context, cfg Config) (*Host, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3host: bucket must not be empty")
	}

	awsConfig, err := awscfg.LoadDefaultConfig(ctx, awscfg.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("s3host: load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsConfig, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return newHost(manager.NewUploader(client), client, cfg), nil
}

func newHost(up uploader, del deleter, cfg Config) *Host {
	base := cfg.PublicBaseURL
	if base == "" {
		if cfg.Endpoint != "" {
			base = strings.TrimRight(cfg.Endpoint, "/") + "/" + cfg.Bucket
		} else {
			base = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.Bucket, cfg.Region)
		}
	}
	return &Host{
		uploader: up,
		deleter:  del,
		bucket:   cfg.Bucket,
		baseURL:  strings.TrimRight(base, "/"),
	}
}

func (h *Host) Upload(ctx context.Context, obj mediahost.Object) (mediahost.Asset, error) {
	if len(obj.Data) == 0 {
		return mediahost.Asset{}, mediahost.ErrEmptyObject
	}

	kind := obj.Kind
	if kind != mediahost.KindVideo {
		kind = mediahost.KindImage
	}
	key := path.Join(string(kind), uuid.NewString()+strings.ToLower(filepath.Ext(obj.Name)))

	input := &s3.PutObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(key),
		Body:   bytes.NewReader(obj.Data),
	}
	if obj.ContentType != "" {
		input.ContentType = aws.String(obj.ContentType)
	}

	if _, err := h.uploader.Upload(ctx, input); err != nil {
		return mediahost.Asset{}, fmt.Errorf("s3host: upload %s: %w", key, err)
	}

	return mediahost.Asset{
		URL:      h.baseURL + "/" + (&url.URL{Path: key}).EscapedPath(),
		PublicID: key,
		Kind:     kind,
	}, nil
}

// Remove deletes the object. S3 reports success for keys that do not exist.
func (h *Host) Remove(ctx context.Context, publicID string, _ mediahost.Kind) error {
	_, err := h.deleter.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(h.bucket),
		Key:    aws.String(publicID),
	})
	if err != nil {
		return fmt.Errorf("s3host: delete %s: %w", publicID, err)
	}
	return nil
}

var _ mediahost.Host = (*Host)(nil)
