package repositories

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/vaps-tech/vaps-server/internal/config"
)

// AvatarStore uploads an image and returns its publicly reachable URL.
type AvatarStore interface {
	Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error)
}

// R2Store stores avatars in a Cloudflare R2 bucket fronted by a public
// base URL.
type R2Store struct {
	client        *s3.Client
	bucketName    string
	publicBaseURL string
}

var _ AvatarStore = (*R2Store)(nil)

// NewR2Store initializes the R2 client using static credentials and a custom
// endpoint.
func NewR2Store(cfg config.R2Config) *R2Store {
	endpoint := fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID)

	awsCfg := aws.Config{
		Credentials: credentials.NewStaticCredentialsProvider(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Region:      cfg.Region,
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(endpoint)
		o.UsePathStyle = true
	})

	log.Info().Msg("successfully initialized R2 client")

	return &R2Store{
		client:        client,
		bucketName:    cfg.BucketName,
		publicBaseURL: strings.TrimRight(cfg.PublicBaseURL, "/"),
	}
}

// Upload puts the image under a fresh uuid key and returns its public URL.
func (s *R2Store) Upload(ctx context.Context, filename, contentType string, body io.Reader) (string, error) {
	key := fmt.Sprintf("avatars/%s%s", uuid.New().String(), filepath.Ext(filename))

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucketName),
		Key:         aws.String(key),
		Body:        body,
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", err
	}

	return fmt.Sprintf("%s/%s", s.publicBaseURL, key), nil
}
