package media

import (
	"context"
	"fmt"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/shortreel/backend/internal/config"
)

const uploadPrefix = "uploads"

// S3Signer presigns direct PUT uploads into an S3-compatible bucket.
type S3Signer struct {
	presign *s3.PresignClient
	bucket  string
	baseURL string
	ttl     time.Duration
	now     func() time.Time
	newID   func() string
}

// NewS3Signer configures a presign client targeting the provided object store.
func NewS3Signer(ctx context.Context, cfg config.ObjectStoreConfig, ttl time.Duration) (*S3Signer, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, fmt.Errorf("s3 signer: bucket is required")
	}
	if ttl <= 0 {
		ttl = DefaultUploadTTL
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretAccessKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint := strings.TrimSpace(cfg.Endpoint); endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
		o.UsePathStyle = true
	})

	return &S3Signer{
		presign: s3.NewPresignClient(client),
		bucket:  cfg.Bucket,
		baseURL: strings.TrimSuffix(cfg.PublicBaseURL, "/"),
		ttl:     ttl,
		now:     time.Now,
		newID:   uuid.NewString,
	}, nil
}

// Sign presigns a PUT for uploads/<id>/<fileName> and reports where the file
// will be readable once uploaded.
func (s *S3Signer) Sign(ctx context.Context, req UploadRequest) (UploadCredentials, error) {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(req.FileName), "\\", "/"))
	if name == "" || name == "." || name == "/" {
		return UploadCredentials{}, ErrMissingFileName
	}

	key := path.Join(uploadPrefix, s.newID(), name)
	input := &s3.PutObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	}
	if req.ContentType != "" {
		input.ContentType = aws.String(req.ContentType)
	}

	presigned, err := s.presign.PresignPutObject(ctx, input, s3.WithPresignExpires(s.ttl))
	if err != nil {
		return UploadCredentials{}, fmt.Errorf("s3 signer presign %s: %w", key, err)
	}

	fileURL := key
	if s.baseURL != "" {
		fileURL = s.baseURL + "/" + key
	}

	return UploadCredentials{
		Expire:    s.now().Add(s.ttl).Unix(),
		UploadURL: presigned.URL,
		Method:    presigned.Method,
		Key:       key,
		FileURL:   fileURL,
	}, nil
}

var (
	_ Signer = (*ImageKitSigner)(nil)
	_ Signer = (*S3Signer)(nil)
)
