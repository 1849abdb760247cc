package sink

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/imagebuilder/internal/config"
)

type fakeUploader struct {
	bucket, key, contentType string
	body                     []byte
	location                 string
	err                      error
}

func (f *fakeUploader) Upload(_ context.Context, in *s3.PutObjectInput, _ ...func(*manager.Uploader)) (*manager.UploadOutput, error) {
	if f.err != nil {
		return nil, f.err
	}
	f.bucket = aws.ToString(in.Bucket)
	f.key = aws.ToString(in.Key)
	f.contentType = aws.ToString(in.ContentType)
	f.body, _ = io.ReadAll(in.Body)
	return &manager.UploadOutput{Location: f.location}, nil
}

func TestFileName(t *testing.T) {
	tests := map[string]string{
		"chain-001":     "chain-001.png",
		"a b/c":         "a_b_c.png",
		"":              "image.png",
		"already.png":   "already.png",
		"job_1234-abcd": "job_1234-abcd.png",
	}
	for in, want := range tests {
		if got := FileName(in); got != want {
			t.Errorf("FileName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFileSink_Put(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewFileSink(dir, nil)
	if err != nil {
		t.Fatalf("NewFileSink: %v", err)
	}
	loc, err := s.Put(context.Background(), "chain-007", []byte("png"))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if loc != filepath.Join(dir, "chain-007.png") {
		t.Errorf("location = %q", loc)
	}
	data, err := os.ReadFile(loc)
	if err != nil || string(data) != "png" {
		t.Errorf("file = %q, %v", data, err)
	}
}

func TestS3Sink_Put(t *testing.T) {
	up := &fakeUploader{}
	s := NewS3SinkWithUploader("images", "/renders/", up, nil)
	loc, err := s.Put(context.Background(), "chain-001", []byte{1, 2, 3})
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if up.bucket != "images" || up.key != "renders/chain-001.png" {
		t.Errorf("uploaded to %s/%s", up.bucket, up.key)
	}
	if up.contentType != "image/png" || len(up.body) != 3 {
		t.Errorf("content type %q, %d bytes", up.contentType, len(up.body))
	}
	if loc != "s3://images/renders/chain-001.png" {
		t.Errorf("location = %q", loc)
	}
}

func TestS3Sink_PutLocationFromUploader(t *testing.T) {
	up := &fakeUploader{location: "https://images.s3.amazonaws.com/x.png"}
	s := NewS3SinkWithUploader("images", "", up, nil)
	loc, err := s.Put(context.Background(), "x", nil)
	if err != nil {
		t.Fatal(err)
	}
	if loc != up.location {
		t.Errorf("location = %q", loc)
	}
	if s.Key("x") != "x.png" {
		t.Errorf("Key = %q", s.Key("x"))
	}
}

func TestS3Sink_PutError(t *testing.T) {
	boom := errors.New("denied")
	s := NewS3SinkWithUploader("images", "", &fakeUploader{err: boom}, nil)
	if _, err := s.Put(context.Background(), "x", nil); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped %v", err, boom)
	}
}

func TestNew_Disabled(t *testing.T) {
	s, err := New(context.Background(), config.SinkConfig{}, nil)
	if err != nil || s != nil {
		t.Errorf("New(empty) = %v, %v", s, err)
	}
}

func TestNew_Dir(t *testing.T) {
	s, err := New(context.Background(), config.SinkConfig{Dir: t.TempDir()}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FileSink); !ok {
		t.Errorf("New(dir) = %T", s)
	}
}
