// Package mirror provides anonymous-access S3 downloads of the bulk dataset
// archives. Used by the offline ETL when a mirror bucket is configured in
// place of the public HTTPS endpoint.
package mirror

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"log/slog"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/traintrack/fdcsync/pkg/errors"
)

// Client downloads dataset archives from an S3 mirror bucket.
type Client struct {
	s3Client *s3.Client
	bucket   string
}

// NewClient creates an anonymous-credential S3 client for the mirror bucket.
func NewClient(ctx context.Context, bucket, region string) (*Client, error) {
	slog.Info("mirror_client_init", "bucket", bucket, "region", region)

	cfg, err := config.LoadDefaultConfig(ctx,
		config.WithRegion(region),
		config.WithCredentialsProvider(aws.AnonymousCredentials{}),
	)
	if err != nil {
		slog.Error("mirror_aws_config_failed", "error", err)
		return nil, errors.Wrap(err, "failed to load AWS config")
	}

	return &Client{
		s3Client: s3.NewFromConfig(cfg),
		bucket:   bucket,
	}, nil
}

// DownloadResult describes a completed archive download.
type DownloadResult struct {
	LocalPath string
	SHA256    string
	Size      int64
}

// Download fetches key into localPath, computing its SHA-256 as it streams.
func (c *Client) Download(ctx context.Context, key, localPath string) (*DownloadResult, error) {
	slog.Info("mirror_download_start", "bucket", c.bucket, "key", key)

	obj, err := c.s3Client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		slog.Error("mirror_get_object_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to get object from mirror")
	}
	defer obj.Body.Close()

	f, err := os.Create(localPath)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create local file")
	}
	defer f.Close()

	hash := sha256.New()
	size, err := io.Copy(io.MultiWriter(f, hash), obj.Body)
	if err != nil {
		slog.Error("mirror_download_failed", "key", key, "error", err)
		return nil, errors.Wrap(err, "failed to download archive")
	}

	checksum := hex.EncodeToString(hash.Sum(nil))
	slog.Info("mirror_download_complete",
		"key", key,
		"size_mb", size/1024/1024,
		"sha256", checksum[:16]+"...")

	return &DownloadResult{LocalPath: localPath, SHA256: checksum, Size: size}, nil
}

// Exists reports whether key is present in the mirror bucket.
func (c *Client) Exists(ctx context.Context, key string) (bool, error) {
	_, err := c.s3Client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(c.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		if err.Error() == "NotFound" {
			return false, nil
		}
		return false, errors.Wrap(err, "failed to check archive existence")
	}
	return true, nil
}
