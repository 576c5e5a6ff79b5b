package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"tdm-diagnostic/internal/shared/storage/object"
)

// maxObjectBytes bounds a single report upload.
const maxObjectBytes = 32 << 20

type objectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

type presignAPI interface {
	PresignGetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error)
}

// Options select the bucket and encryption for report objects.
type Options struct {
	Region   string
	Bucket   string
	Prefix   string
	KMSKeyID string
}

// Store keeps generated reports in an S3 bucket.
type Store struct {
	api     objectAPI
	presign presignAPI
	opts    Options
}

// New loads the default AWS config and returns a store for opts.Bucket.
func New(ctx context.Context, opts Options) (*Store, error) {
	if strings.TrimSpace(opts.Bucket) == "" {
		return nil, errors.New("s3 bucket is required")
	}
	var loadOpts []func(*awsconfig.LoadOptions) error
	if opts.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(opts.Region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(cfg)
	return newStore(client, s3.NewPresignClient(client), opts), nil
}

func newStore(api objectAPI, presign presignAPI, opts Options) *Store {
	opts.Bucket = strings.TrimSpace(opts.Bucket)
	opts.Prefix = strings.Trim(strings.TrimSpace(opts.Prefix), "/")
	opts.KMSKeyID = strings.TrimSpace(opts.KMSKeyID)
	return &Store{api: api, presign: presign, opts: opts}
}

// SaveWithKey uploads r under storageKey, replacing any previous object.
// The body is buffered so S3 receives an exact content length.
func (s *Store) SaveWithKey(ctx context.Context, storageKey string, contentType string, r io.Reader) (int64, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxObjectBytes+1))
	if err != nil {
		return 0, fmt.Errorf("read object body: %w", err)
	}
	if len(data) > maxObjectBytes {
		return 0, fmt.Errorf("object %s exceeds %d bytes", storageKey, maxObjectBytes)
	}

	key := s.key(storageKey)
	if _, err := s.api.PutObject(ctx, s.putInput(key, contentType, data)); err != nil {
		return 0, fmt.Errorf("s3 put %s/%s: %w", s.opts.Bucket, key, err)
	}
	return int64(len(data)), nil
}

// Open streams a stored object. Missing keys map to object.ErrNotFound.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	key := s.key(storageKey)
	out, err := s.api.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	})
	var missing *s3types.NoSuchKey
	switch {
	case errors.As(err, &missing):
		return nil, fmt.Errorf("%w: %s", object.ErrNotFound, storageKey)
	case err != nil:
		return nil, fmt.Errorf("s3 get %s/%s: %w", s.opts.Bucket, key, err)
	}
	return out.Body, nil
}

// PresignGet returns a download URL valid for ttl.
func (s *Store) PresignGet(ctx context.Context, storageKey string, ttl time.Duration) (string, error) {
	key := s.key(storageKey)
	req, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.opts.Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(ttl))
	if err != nil {
		return "", fmt.Errorf("s3 presign %s/%s: %w", s.opts.Bucket, key, err)
	}
	return req.URL, nil
}

func (s *Store) putInput(key, contentType string, data []byte) *s3.PutObjectInput {
	in := &s3.PutObjectInput{
		Bucket:        aws.String(s.opts.Bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String(contentType),
		CacheControl:  aws.String("private, no-store"),
	}
	if contentType == "application/pdf" {
		in.ContentDisposition = aws.String(fmt.Sprintf("inline; filename=%q", path.Base(key)))
	}
	if s.opts.KMSKeyID != "" {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		in.SSEKMSKeyId = aws.String(s.opts.KMSKeyID)
	} else {
		in.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}
	return in
}

func (s *Store) key(storageKey string) string {
	storageKey = strings.TrimLeft(storageKey, "/")
	switch {
	case s.opts.Prefix == "":
		return storageKey
	case storageKey == "":
		return s.opts.Prefix
	}
	return s.opts.Prefix + "/" + storageKey
}

var (
	_ object.ObjectStore = (*Store)(nil)
	_ object.Presigner   = (*Store)(nil)
)
