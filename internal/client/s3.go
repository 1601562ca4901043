// S3 호환 오브젝트 스토리지 클라이언트
//
// 환경변수:
//   - AWS_REGION, AWS_ACCESS_KEY_ID, AWS_SECRET_KEY: 자격 증명 (비어 있으면 기본 체인 사용)
//   - S3_BUCKET: 업로드 버킷
//   - S3_ENDPOINT: MinIO 등 AWS 외 엔드포인트 (선택)
//   - S3_PUBLIC_URL: 응답에 돌려줄 공개 URL prefix (선택)

package client

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/frontyard/backend/internal/config"
)

type S3Client struct {
	api    *s3.Client
	bucket string
	region string
	// endpoint, publicURL은 trailing slash 없이 저장
	endpoint  string
	publicURL string
}

func NewS3Client(ctx context.Context, cfg config.StorageConfig) (*S3Client, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.Region),
	}
	if cfg.AccessKeyID != "" && cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	endpoint := strings.TrimRight(cfg.Endpoint, "/")
	api := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
			// MinIO는 virtual-hosted style을 지원하지 않는 경우가 많다
			o.UsePathStyle = true
		}
	})

	return &S3Client{
		api:       api,
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(cfg.PublicURL, "/"),
	}, nil
}

// PutObject uploads body under key and returns the object's public location.
func (c *S3Client) PutObject(ctx context.Context, key string, body io.Reader, size int64, contentType string) (string, error) {
	_, err := c.api.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(key),
		Body:          body,
		ContentLength: aws.Int64(size),
		ContentType:   aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("put object %s: %w", key, err)
	}
	return c.Location(key), nil
}

// Location builds the URL an uploaded key is served from.
func (c *S3Client) Location(key string) string {
	escaped := escapeKey(key)
	switch {
	case c.publicURL != "":
		return c.publicURL + "/" + escaped
	case c.endpoint != "":
		return c.endpoint + "/" + c.bucket + "/" + escaped
	default:
		return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", c.bucket, c.region, escaped)
	}
}

func escapeKey(key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return strings.Join(parts, "/")
}
