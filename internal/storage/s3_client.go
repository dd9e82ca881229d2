package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// S3 timeout constants
const (
	S3UploadTimeout   = 60 * time.Second
	S3DownloadTimeout = 30 * time.Second
)

// snapshotEntriesMeta is the user metadata key carrying the snapshot's key count
const snapshotEntriesMeta = "Codeid-Entries"

// S3Client reads and writes the registry snapshot kept in a single S3 object.
// It remembers the ETag it last saw so that two registries sharing an object
// do not silently overwrite each other.
type S3Client struct {
	client *minio.Client
	bucket string
	key    string
	etag   string
	logger *slog.Logger
}

// S3ClientOptions holds the connection settings for an S3 snapshot object
type S3ClientOptions struct {
	Endpoint  string
	Bucket    string
	Key       string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Region    string
}

// NewS3Client connects to the endpoint; it does not touch the bucket yet
func NewS3Client(o S3ClientOptions, logger *slog.Logger) (*S3Client, error) {
	client, err := minio.New(o.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(o.AccessKey, o.SecretKey, ""),
		Secure: o.UseSSL,
		Region: o.Region,
	})
	if err != nil {
		return nil, CategorizeS3Error(OpConnect, fmt.Errorf("failed to create S3 client: %w", err))
	}

	logger = logger.With("bucket", o.Bucket, "key", o.Key)
	logger.Info("S3 client created", "endpoint", o.Endpoint, "ssl", o.UseSSL, "region", o.Region)

	return &S3Client{client: client, bucket: o.Bucket, key: o.Key, logger: logger}, nil
}

// ValidateBucket checks that the bucket exists and the credentials can see it
func (c *S3Client) ValidateBucket(ctx context.Context) error {
	exists, err := c.client.BucketExists(ctx, c.bucket)
	if err != nil {
		return CategorizeS3Error(OpConnect, err)
	}
	if !exists {
		return CategorizeS3Error(OpConnect, fmt.Errorf("bucket %q does not exist", c.bucket))
	}
	return nil
}

func isNoSuchKey(err error) bool {
	return minio.ToErrorResponse(err).Code == "NoSuchKey"
}

// Fetch downloads the snapshot. found is false when the object does not
// exist yet, which is how a fresh registry starts.
func (c *S3Client) Fetch(ctx context.Context) (data []byte, found bool, err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, S3DownloadTimeout)
	defer cancel()

	obj, err := c.client.GetObject(ctx, c.bucket, c.key, minio.GetObjectOptions{})
	if err != nil {
		return nil, false, CategorizeS3Error(OpDownload, err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if isNoSuchKey(err) {
		c.etag = ""
		return nil, false, nil
	}
	if err != nil {
		return nil, false, CategorizeS3Error(OpDownload, err)
	}
	data, err = io.ReadAll(obj)
	if err != nil {
		return nil, false, CategorizeS3Error(OpDownload, err)
	}
	c.etag = info.ETag

	c.logger.Info("Registry snapshot downloaded from S3",
		"size_bytes", len(data),
		"etag", info.ETag,
		"duration_ms", time.Since(start).Milliseconds())
	return data, true, nil
}

// Upload replaces the snapshot with data. It fails with ErrSnapshotChanged
// when the object's ETag is no longer the one this client last saw.
func (c *S3Client) Upload(ctx context.Context, data []byte, entries int) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, S3UploadTimeout)
	defer cancel()

	if err := c.checkUnchanged(ctx); err != nil {
		return err
	}

	info, err := c.client.PutObject(ctx, c.bucket, c.key, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{
			ContentType:  "application/json",
			UserMetadata: map[string]string{snapshotEntriesMeta: strconv.Itoa(entries)},
		},
	)
	if err != nil {
		c.logger.Error("S3 upload failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return CategorizeS3Error(OpUpload, err)
	}
	c.etag = info.ETag

	c.logger.Info("Registry snapshot uploaded to S3",
		"size_bytes", len(data),
		"entries", entries,
		"etag", info.ETag,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *S3Client) checkUnchanged(ctx context.Context) error {
	info, err := c.client.StatObject(ctx, c.bucket, c.key, minio.StatObjectOptions{})
	var current string
	switch {
	case err == nil:
		current = info.ETag
	case isNoSuchKey(err):
	default:
		return CategorizeS3Error(OpUpload, err)
	}
	if current != c.etag {
		c.logger.Error("S3 snapshot changed underneath the registry",
			"expected_etag", c.etag,
			"current_etag", current)
		return newBackendError(BackendS3, CategoryStorage, OpUpload,
			fmt.Errorf("%w: expected ETag %q, found %q; restart to reload", ErrSnapshotChanged, c.etag, current))
	}
	return nil
}

// ParseS3Token splits an ACCESS_KEY:SECRET_KEY storage token. An empty token
// falls back to AWS_ACCESS_KEY_ID/AWS_SECRET_ACCESS_KEY, and to anonymous
// (IAM role) access when neither is set.
func ParseS3Token(token string) (accessKey, secretKey string, err error) {
	if token == "" {
		accessKey = os.Getenv("AWS_ACCESS_KEY_ID")
		secretKey = os.Getenv("AWS_SECRET_ACCESS_KEY")
		if (accessKey == "") != (secretKey == "") {
			return "", "", fmt.Errorf("S3 credentials incomplete: set both AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY, or use --storage-token ACCESS_KEY:SECRET_KEY (CODEID_REGISTRY_STORAGE_TOKEN)")
		}
		return accessKey, secretKey, nil
	}

	// secret keys may themselves contain colons
	accessKey, secretKey, ok := strings.Cut(token, ":")
	switch {
	case !ok:
		return "", "", fmt.Errorf("invalid token format: expected ACCESS_KEY:SECRET_KEY")
	case accessKey == "":
		return "", "", fmt.Errorf("invalid token format: access key cannot be empty")
	case secretKey == "":
		return "", "", fmt.Errorf("invalid token format: secret key cannot be empty")
	}
	return accessKey, secretKey, nil
}

var awsRegionEndpoint = regexp.MustCompile(`^s3[.-]([a-z]{2}(?:-gov)?-[a-z]+-\d+)\.amazonaws\.com(?::\d+)?$`)

// ExtractRegionFromEndpoint returns the AWS region named by an
// s3.REGION.amazonaws.com or s3-REGION.amazonaws.com endpoint
func ExtractRegionFromEndpoint(endpoint string) string {
	if m := awsRegionEndpoint.FindStringSubmatch(endpoint); m != nil {
		return m[1]
	}
	return ""
}
