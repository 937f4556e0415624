package s3store

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
)

type fakeS3 struct {
	in   *s3.PutObjectInput
	body []byte
	err  error
}

func (f *fakeS3) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.in = in
	if in.Body != nil {
		f.body, _ = io.ReadAll(in.Body)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func writeArtifact(t *testing.T) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "final.mp4")
	if err := os.WriteFile(p, []byte("mp4-bytes"), 0o644); err != nil {
		t.Fatalf("write artifact: %v", err)
	}
	return p
}

func TestPut_PublicReadObject(t *testing.T) {
	fake := &fakeS3{}
	a := newWithClient(fake, "reels", "")
	url, err := a.Put(context.Background(), "videos/1700000000000-abcd1234.mp4", writeArtifact(t), "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://reels.s3.amazonaws.com/videos/1700000000000-abcd1234.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
	if fake.in.ACL != s3types.ObjectCannedACLPublicRead {
		t.Fatalf("object must be public-read, got %q", fake.in.ACL)
	}
	if aws.ToString(fake.in.ContentType) != "video/mp4" || aws.ToString(fake.in.Bucket) != "reels" {
		t.Fatalf("unexpected input %+v", fake.in)
	}
	if string(fake.body) != "mp4-bytes" || aws.ToInt64(fake.in.ContentLength) != 9 {
		t.Fatalf("unexpected body %q", fake.body)
	}
}

func TestPut_PublicBaseURL(t *testing.T) {
	a := newWithClient(&fakeS3{}, "reels", "https://cdn.example.com/media/")
	url, err := a.Put(context.Background(), "videos/k.mp4", writeArtifact(t), "video/mp4")
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if url != "https://cdn.example.com/media/videos/k.mp4" {
		t.Fatalf("unexpected url %s", url)
	}
}

func TestPut_Errors(t *testing.T) {
	boom := errors.New("access denied")
	a := newWithClient(&fakeS3{err: boom}, "reels", "")
	if _, err := a.Put(context.Background(), "videos/k.mp4", writeArtifact(t), "video/mp4"); !errors.Is(err, boom) {
		t.Fatalf("expected wrapped sdk error, got %v", err)
	}
	if _, err := a.Put(context.Background(), "videos/k.mp4", filepath.Join(t.TempDir(), "missing.mp4"), "video/mp4"); err == nil {
		t.Fatalf("expected error for missing artifact")
	}
}
