// Package sink delivers finished PNG images to a directory or an S3 bucket.
package sink

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/me/imagebuilder/internal/config"
	"github.com/me/imagebuilder/internal/logging"
)

// Sink stores an encoded image under name and returns where it went.
type Sink interface {
	Put(ctx context.Context, name string, png []byte) (string, error)
}

// New picks a sink from cfg. It returns nil, nil when no destination is
// configured.
func New(ctx context.Context, cfg config.SinkConfig, logger *slog.Logger) (Sink, error) {
	switch {
	case cfg.S3Bucket != "":
		return NewS3Sink(ctx, cfg.S3Bucket, cfg.S3Prefix, cfg.S3Region, logger)
	case cfg.Dir != "":
		return NewFileSink(cfg.Dir, logger)
	}
	return nil, nil
}

// FileName turns a job name into a PNG file name.
func FileName(name string) string {
	name = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_', r == '.':
			return r
		}
		return '_'
	}, name)
	if name == "" {
		name = "image"
	}
	if !strings.HasSuffix(name, ".png") {
		name += ".png"
	}
	return name
}

// FileSink writes images into a directory.
type FileSink struct {
	dir    string
	logger *slog.Logger
}

// NewFileSink creates dir if needed.
func NewFileSink(dir string, logger *slog.Logger) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create sink dir: %w", err)
	}
	return &FileSink{dir: dir, logger: logging.OrNop(logger).With("component", "sink")}, nil
}

// Put writes png to dir/name.
func (s *FileSink) Put(_ context.Context, name string, png []byte) (string, error) {
	dst := filepath.Join(s.dir, FileName(name))
	if err := os.WriteFile(dst, png, 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", dst, err)
	}
	s.logger.Debug("image written", "path", dst, "bytes", len(png))
	return dst, nil
}

// Uploader is the part of the S3 upload manager the sink uses.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Sink uploads images to a bucket.
type S3Sink struct {
	bucket   string
	prefix   string
	uploader Uploader
	logger   *slog.Logger
}

// NewS3Sink loads AWS credentials from the environment and builds an
// upload manager. region overrides the environment's region when set.
func NewS3Sink(ctx context.Context, bucket, prefix, region string, logger *slog.Logger) (*S3Sink, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return NewS3SinkWithUploader(bucket, prefix, manager.NewUploader(client), logger), nil
}

// NewS3SinkWithUploader builds an S3 sink around an existing uploader.
func NewS3SinkWithUploader(bucket, prefix string, up Uploader, logger *slog.Logger) *S3Sink {
	return &S3Sink{
		bucket:   bucket,
		prefix:   strings.Trim(prefix, "/"),
		uploader: up,
		logger:   logging.OrNop(logger).With("component", "sink", "bucket", bucket),
	}
}

// Key returns the object key for name.
func (s *S3Sink) Key(name string) string {
	if s.prefix == "" {
		return FileName(name)
	}
	return path.Join(s.prefix, FileName(name))
}

// Put uploads png and returns the object location.
func (s *S3Sink) Put(ctx context.Context, name string, png []byte) (string, error) {
	key := s.Key(name)
	out, err := s.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(png),
		ContentType: aws.String("image/png"),
	})
	if err != nil {
		return "", fmt.Errorf("upload s3://%s/%s: %w", s.bucket, key, err)
	}
	loc := out.Location
	if loc == "" {
		loc = fmt.Sprintf("s3://%s/%s", s.bucket, key)
	}
	s.logger.Debug("image uploaded", "key", key, "bytes", len(png))
	return loc, nil
}
