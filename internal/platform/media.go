package platform

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	configs "github.com/maheshrc27/crosspost/configs"
)

const r2Scheme = "r2://"

type objectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// MediaFetcher resolves a media reference to its bytes. References of the
// form r2://<key> are read from the configured bucket, anything else is
// fetched over HTTP.
type MediaFetcher struct {
	bucket string
	s3     objectGetter
	client *http.Client
}

func NewMediaFetcher(ctx context.Context, cfg configs.R2) (*MediaFetcher, error) {
	f := &MediaFetcher{bucket: cfg.BucketName, client: http.DefaultClient}
	if cfg.AccountID == "" {
		return f, nil
	}

	awsCfg, err := config.LoadDefaultConfig(ctx,
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")),
		config.WithRegion("auto"),
	)
	if err != nil {
		return nil, fmt.Errorf("load r2 config: %w", err)
	}

	f.s3 = s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.BaseEndpoint = aws.String(fmt.Sprintf("https://%s.r2.cloudflarestorage.com", cfg.AccountID))
	})
	return f, nil
}

func (f *MediaFetcher) Fetch(ctx context.Context, ref string) ([]byte, error) {
	if key, ok := strings.CutPrefix(ref, r2Scheme); ok {
		return f.fetchObject(ctx, key)
	}
	return f.fetchURL(ctx, ref)
}

func (f *MediaFetcher) fetchObject(ctx context.Context, key string) ([]byte, error) {
	if f.s3 == nil {
		return nil, fmt.Errorf("media %s%s: object storage is not configured", r2Scheme, key)
	}
	out, err := f.s3.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(f.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, fmt.Errorf("get object %s: %w", key, err)
	}
	defer out.Body.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, out.Body); err != nil {
		return nil, fmt.Errorf("read object %s: %w", key, err)
	}
	return buf.Bytes(), nil
}

func (f *MediaFetcher) fetchURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error downloading media: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected response status: %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}
