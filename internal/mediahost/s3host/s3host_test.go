package s3host

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/pranathisri21/frame-vault/internal/mediahost"
)

func TestUploadBuildsPublicURL(t *testing.T) {
	up := &stubUploader{}
	host := newHost(up, &stubDeleter{}, Config{Bucket: "frames", Region: "eu-west-1", PublicBaseURL: "https://cdn.example.com/"})

	asset, err := host.Upload(context.Background(), mediahost.Object{
		Name:        "trip.PNG",
		ContentType: "image/png",
		Kind:        mediahost.KindImage,
		Data:        []byte("png-bytes"),
	})
	if err != nil {
		t.Fatalf("Upload returned error: %v", err)
	}

	if up.input == nil {
		t.Fatalf("expected uploader to be called")
	}
	if aws.ToString(up.input.Bucket) != "frames" || aws.ToString(up.input.ContentType) != "image/png" {
		t.Fatalf("unexpected put input: bucket=%s type=%s", aws.ToString(up.input.Bucket), aws.ToString(up.input.ContentType))
	}
	key := aws.ToString(up.input.Key)
	if !strings.HasPrefix(key, "image/") || !strings.HasSuffix(key, ".png") {
		t.Fatalf("unexpected key %q", key)
	}
	if up.body != "png-bytes" {
		t.Fatalf("unexpected body %q", up.body)
	}
	if asset.PublicID != key || asset.URL != "https://cdn.example.com/"+key {
		t.Fatalf("unexpected asset %+v", asset)
	}
}

func TestDefaultBaseURL(t *testing.T) {
	host := newHost(&stubUploader{}, &stubDeleter{}, Config{Bucket: "frames", Region: "us-east-2"})
	if host.baseURL != "https://frames.s3.us-east-2.amazonaws.com" {
		t.Fatalf("unexpected base url %q", host.baseURL)
	}

	custom := newHost(&stubUploader{}, &stubDeleter{}, Config{Bucket: "frames", Endpoint: "http://localhost:9000/"})
	if custom.baseURL != "http://localhost:9000/frames" {
		t.Fatalf("unexpected endpoint base url %q", custom.baseURL)
	}
}

func TestUploadFailureIsWrapped(t *testing.T) {
	cause := errors.New("throttled")
	host := newHost(&stubUploader{err: cause}, &stubDeleter{}, Config{Bucket: "frames", Region: "eu-west-1"})

	_, err := host.Upload(context.Background(), mediahost.Object{Name: "a.jpg", Data: []byte("x")})
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped cause, got %v", err)
	}
}

func TestRemoveDeletesKey(t *testing.T) {
	del := &stubDeleter{}
	host := newHost(&stubUploader{}, del, Config{Bucket: "frames", Region: "eu-west-1"})

	if err := host.Remove(context.Background(), "video/clip.mp4", mediahost.KindVideo); err != nil {
		t.Fatalf("Remove returned error: %v", err)
	}
	if aws.ToString(del.input.Bucket) != "frames" || aws.ToString(del.input.Key) != "video/clip.mp4" {
		t.Fatalf("unexpected delete input %+v", del.input)
	}
}

type stubUploader struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (s *stubUploader) Upload(_ context.Context, input *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.input = input
	data, err := io.ReadAll(input.Body)
	if err != nil {
		return nil, err
	}
	s.body = string(data)
	return &manager.UploadOutput{}, nil
}

type stubDeleter struct {
	input *s3.DeleteObjectInput
}

func (s *stubDeleter) DeleteObject(_ context.Context, input *s3.DeleteObjectInput, _ ...func(*s3.Options)) (*s3.DeleteObjectOutput, error) {
	s.input = input
	return &s3.DeleteObjectOutput{}, nil
}
