package s3

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"

	"shuttle/internal/logging"
	"shuttle/internal/remote"
	"shuttle/internal/scan"
	"shuttle/internal/services"
	"shuttle/internal/staging"
)

// API is the slice of the S3 service surface the backend calls. It embeds
// the transfer manager's client contract so one fake covers tests.
type API interface {
	manager.UploadAPIClient
	ListObjectsV2(ctx context.Context, params *awss3.ListObjectsV2Input, optFns ...func(*awss3.Options)) (*awss3.ListObjectsV2Output, error)
	DeleteObject(ctx context.Context, params *awss3.DeleteObjectInput, optFns ...func(*awss3.Options)) (*awss3.DeleteObjectOutput, error)
}

// Config carries the construction parameters for a Client.
type Config struct {
	Bucket         string
	Prefix         string
	Region         string
	Endpoint       string
	AccessKey      string
	SecretKey      string
	ForcePathStyle bool
	Source         string
}

// Option configures the client.
type Option func(*Client)

// WithAPI injects a custom S3 API (primarily for tests). When set, no AWS
// configuration is loaded.
func WithAPI(api API) Option {
	return func(c *Client) {
		if api != nil {
			c.api = api
		}
	}
}

// WithLogger attaches a logger for transfer diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logging.NewComponentLogger(logger, "s3")
		}
	}
}

// Client implements remote.Remote against an S3 bucket.
type Client struct {
	api      API
	uploader *manager.Uploader
	bucket   string
	prefix   string
	source   string
	logger   *slog.Logger
}

// New constructs an S3 client. Credentials resolve through the default AWS
// chain unless static keys are configured.
func New(ctx context.Context, cfg Config, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, errors.New("s3 bucket required")
	}
	if strings.TrimSpace(cfg.Source) == "" {
		return nil, errors.New("source directory required")
	}
	client := &Client{
		bucket: cfg.Bucket,
		prefix: strings.Trim(cfg.Prefix, "/"),
		source: cfg.Source,
		logger: logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.api == nil {
		api, err := newAPI(ctx, cfg)
		if err != nil {
			return nil, err
		}
		client.api = api
	}
	client.uploader = manager.NewUploader(client.api)
	return client, nil
}

func newAPI(ctx context.Context, cfg Config) (API, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			// Custom endpoints are MinIO-style deployments that need
			// path-style addressing.
			o.UsePathStyle = true
		}
		if cfg.ForcePathStyle {
			o.UsePathStyle = true
		}
	}), nil
}

var _ remote.Remote = (*Client)(nil)

// List enumerates every object under the configured prefix.
func (c *Client) List(ctx context.Context) ([]remote.Entry, error) {
	input := &awss3.ListObjectsV2Input{Bucket: aws.String(c.bucket)}
	if c.prefix != "" {
		input.Prefix = aws.String(c.prefix + "/")
	}
	var entries []remote.Entry
	paginator := awss3.NewListObjectsV2Paginator(c.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "s3", "list", "list bucket "+c.bucket, err)
		}
		for _, object := range page.Contents {
			key := aws.ToString(object.Key)
			if strings.HasSuffix(key, "/") {
				continue
			}
			rel, ok := c.relFromKey(key)
			if !ok {
				continue
			}
			entries = append(entries, remote.Entry{
				Path:    rel,
				Size:    aws.ToInt64(object.Size),
				ModTime: aws.ToTime(object.LastModified),
			})
		}
	}
	return entries, nil
}

// Exists reports whether relPath exists as an object or as a directory of
// objects. Keys list in lexicographic order, so one listing capped at a
// single result decides both cases exactly.
func (c *Client) Exists(ctx context.Context, relPath string) (bool, error) {
	key := c.key(relPath)
	out, err := c.api.ListObjectsV2(ctx, &awss3.ListObjectsV2Input{
		Bucket:  aws.String(c.bucket),
		Prefix:  aws.String(key),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, services.Wrap(services.ErrTransient, "s3", "exists", "check "+relPath, err)
	}
	if len(out.Contents) == 0 {
		return false, nil
	}
	found := aws.ToString(out.Contents[0].Key)
	return found == key || strings.HasPrefix(found, key+"/"), nil
}

// Move uploads the selected staging files and removes each local copy once
// its upload lands. The first failure aborts the batch; already-transferred
// files stay removed, and the remainder retries on a later cycle.
func (c *Client) Move(ctx context.Context, batch remote.Batch) error {
	paths := batch.Paths()
	if batch.IsAll() {
		snapshot, err := scan.Tree(c.source)
		if err != nil {
			return services.Wrap(services.ErrValidation, "s3", "move", "scan staging tree", err)
		}
		paths = snapshot.Paths()
	}
	if len(paths) == 0 {
		return services.Wrap(services.ErrValidation, "s3", "move", "batch carries no paths", nil)
	}
	for _, rel := range paths {
		if err := c.moveFile(ctx, rel); err != nil {
			return err
		}
	}
	if _, err := staging.PruneEmptyDirs(c.source); err != nil {
		c.logger.Warn("pruning emptied staging directories failed", logging.Error(err))
	}
	return nil
}

func (c *Client) moveFile(ctx context.Context, relPath string) error {
	local := filepath.Join(c.source, filepath.FromSlash(relPath))
	file, err := os.Open(local)
	if err != nil {
		return services.Wrap(services.ErrValidation, "s3", "move", "open "+relPath, err)
	}
	_, err = c.uploader.Upload(ctx, &awss3.PutObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(relPath)),
		Body:   file,
	})
	file.Close()
	if err != nil {
		return services.Wrap(services.ErrTransient, "s3", "move", "upload "+relPath, err)
	}
	if err := os.Remove(local); err != nil {
		return services.Wrap(services.ErrValidation, "s3", "move", "remove transferred "+relPath, err)
	}
	c.logger.Debug("uploaded file", logging.String("path", relPath))
	return nil
}

// Delete removes one object.
func (c *Client) Delete(ctx context.Context, relPath string) error {
	_, err := c.api.DeleteObject(ctx, &awss3.DeleteObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(c.key(relPath)),
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "s3", "delete", "delete "+relPath, err)
	}
	return nil
}

// Zero overwrites one object with an empty body.
func (c *Client) Zero(ctx context.Context, relPath string) error {
	_, err := c.api.PutObject(ctx, &awss3.PutObjectInput{
		Bucket:        aws.String(c.bucket),
		Key:           aws.String(c.key(relPath)),
		Body:          bytes.NewReader(nil),
		ContentLength: aws.Int64(0),
	})
	if err != nil {
		return services.Wrap(services.ErrTransient, "s3", "zero", "zero "+relPath, err)
	}
	return nil
}

// Purge is a no-op: the zero-byte overwrite already replaced the current
// version, and S3 reclaims space on delete without a retention shim.
func (c *Client) Purge(ctx context.Context, relPath string) error {
	return nil
}

func (c *Client) key(relPath string) string {
	relPath = strings.TrimPrefix(relPath, "/")
	if c.prefix == "" {
		return relPath
	}
	return c.prefix + "/" + relPath
}

func (c *Client) relFromKey(key string) (string, bool) {
	if c.prefix == "" {
		return key, key != ""
	}
	rel := strings.TrimPrefix(key, c.prefix+"/")
	if rel == key || rel == "" {
		return "", false
	}
	return rel, true
}
