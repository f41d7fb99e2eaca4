package storage

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"go.uber.org/fx"
	"go.uber.org/zap"

	cfgpkg "github.com/snapspend/backend/pkg/config"
)

// ImageFetcher resolves a stored image reference to its bytes and mime
// type. The blob store itself (upload, lifecycle) is a collaborator
// outside this service.
type ImageFetcher interface {
	Fetch(ctx context.Context, imageURL string) (data []byte, mimeType string, err error)
}

// Fetcher routes s3:// references to the S3 client and anything else to
// a plain HTTP GET.
type Fetcher struct {
	s3Client   *s3.Client
	httpClient *http.Client
	log        *zap.SugaredLogger
}

func NewFetcher(cfg *cfgpkg.Config, log *zap.SugaredLogger) (ImageFetcher, error) {
	f := &Fetcher{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        log,
	}

	if cfg.Storage.Bucket != "" {
		awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(),
			awsconfig.WithRegion(cfg.Storage.Region),
			awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				cfg.Storage.AccessKeyID,
				cfg.Storage.SecretAccessKey,
				"",
			)),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to load AWS config: %w", err)
		}
		f.s3Client = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
			if cfg.Storage.Endpoint != "" {
				o.BaseEndpoint = aws.String(cfg.Storage.Endpoint)
				o.UsePathStyle = true
			}
		})
	}

	return f, nil
}

func (f *Fetcher) Fetch(ctx context.Context, imageURL string) ([]byte, string, error) {
	if strings.HasPrefix(imageURL, "s3://") {
		return f.fetchS3(ctx, imageURL)
	}
	return f.fetchHTTP(ctx, imageURL)
}

func (f *Fetcher) fetchS3(ctx context.Context, imageURL string) ([]byte, string, error) {
	if f.s3Client == nil {
		return nil, "", fmt.Errorf("s3 reference %q but storage is not configured", imageURL)
	}
	u, err := url.Parse(imageURL)
	if err != nil {
		return nil, "", fmt.Errorf("invalid s3 reference: %w", err)
	}
	key := strings.TrimPrefix(u.Path, "/")

	out, err := f.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(u.Host),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to get object %s: %w", imageURL, err)
	}
	defer out.Body.Close()

	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read object body: %w", err)
	}
	mimeType := ""
	if out.ContentType != nil {
		mimeType = *out.ContentType
	}
	return data, mimeType, nil
}

func (f *Fetcher) fetchHTTP(ctx context.Context, imageURL string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, "", fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("failed to fetch image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", fmt.Errorf("failed to fetch image: %s", resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("failed to read image body: %w", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

var Module = fx.Options(
	fx.Provide(NewFetcher),
)
