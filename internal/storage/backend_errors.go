package storage

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

// Backend names used in error messages
const (
	BackendS3       = "S3"
	BackendOCI      = "OCI"
	BackendSQLite   = "SQLite"
	BackendPostgres = "PostgreSQL"
)

// Error categories for clear error messages
const (
	CategoryAuth    = "authentication"
	CategoryNetwork = "network"
	CategoryStorage = "storage"
)

// Operations for error context
const (
	OpUpload   = "upload"
	OpDownload = "download"
	OpConnect  = "connect"
	OpPush     = "push"
	OpPull     = "pull"
	OpRead     = "read"
	OpWrite    = "write"
)

// BackendError wraps backend-specific failures with categorization
type BackendError struct {
	Backend  string // "S3", "OCI", "SQLite" or "PostgreSQL"
	Category string // "authentication", "network", or "storage"
	Op       string
	Err      error // Underlying error
}

// Error implements the error interface
func (e *BackendError) Error() string {
	return fmt.Sprintf("%s %s error during %s: %v", e.Backend, e.Category, e.Op, e.Err)
}

// Unwrap implements the errors.Unwrap interface
func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is implements the errors.Is interface to match ErrStorageUnavailable
func (e *BackendError) Is(target error) bool {
	return target == ErrStorageUnavailable
}

func newBackendError(backend, category, op string, err error) *BackendError {
	return &BackendError{Backend: backend, Category: category, Op: op, Err: err}
}

// categorizeNetworkError returns a network BackendError when err is a
// network, DNS or URL failure, and nil otherwise
func categorizeNetworkError(backend, op, target string, err error) *BackendError {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return newBackendError(backend, CategoryNetwork, op, fmt.Errorf("network error: cannot resolve %s hostname", target))
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return newBackendError(backend, CategoryNetwork, op, fmt.Errorf("network timeout: unable to reach %s", target))
		}
		return newBackendError(backend, CategoryNetwork, op, fmt.Errorf("network error: unable to reach %s", target))
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return newBackendError(backend, CategoryNetwork, op, fmt.Errorf("network timeout: unable to reach %s", target))
		}
		return newBackendError(backend, CategoryNetwork, op, fmt.Errorf("network error: unable to reach %s", target))
	}

	return nil
}

// CategorizeS3Error examines an error and returns an appropriately categorized BackendError.
// It checks for MinIO error responses, network errors, and other common failure patterns.
func CategorizeS3Error(op string, err error) *BackendError {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	var minioErr minio.ErrorResponse
	if errors.As(err, &minioErr) {
		return categorizeMinioError(op, minioErr)
	}

	if strings.Contains(errStr, "AccessDenied") ||
		strings.Contains(errStr, "InvalidAccessKeyId") ||
		strings.Contains(errStr, "SignatureDoesNotMatch") ||
		strings.Contains(errStr, "ExpiredToken") {
		hint := getS3ProviderAuthHint(errStr)
		return newBackendError(BackendS3, CategoryAuth, op, fmt.Errorf("authentication failed: %v%s", err, hint))
	}

	if netErr := categorizeNetworkError(BackendS3, op, "S3 endpoint", err); netErr != nil {
		return netErr
	}

	if strings.Contains(errStr, "NoSuchBucket") {
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("bucket not found: verify bucket exists and name is correct"))
	}
	if strings.Contains(errStr, "NoSuchKey") {
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("object not found"))
	}

	return newBackendError(BackendS3, CategoryStorage, op, err)
}

// categorizeMinioError handles MinIO-specific error responses
func categorizeMinioError(op string, minioErr minio.ErrorResponse) *BackendError {
	switch minioErr.Code {
	case "AccessDenied":
		hint := getS3ProviderAuthHint(minioErr.BucketName)
		return newBackendError(BackendS3, CategoryAuth, op, fmt.Errorf("access denied: token lacks required permissions%s", hint))
	case "InvalidAccessKeyId":
		return newBackendError(BackendS3, CategoryAuth, op, fmt.Errorf("invalid access key: verify credentials are correct"))
	case "SignatureDoesNotMatch":
		return newBackendError(BackendS3, CategoryAuth, op, fmt.Errorf("signature mismatch: verify secret key is correct"))
	case "ExpiredToken":
		return newBackendError(BackendS3, CategoryAuth, op, fmt.Errorf("token expired: refresh credentials"))
	case "NoSuchBucket":
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("bucket not found: verify bucket exists and name is correct"))
	case "NoSuchKey":
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("object not found"))
	case "InternalError", "ServiceUnavailable":
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("S3 service unavailable: %s", minioErr.Message))
	default:
		return newBackendError(BackendS3, CategoryStorage, op, fmt.Errorf("%s: %s", minioErr.Code, minioErr.Message))
	}
}

// getS3ProviderAuthHint returns provider-specific authentication hints based on the endpoint
func getS3ProviderAuthHint(endpoint string) string {
	endpointLower := strings.ToLower(endpoint)

	if strings.Contains(endpointLower, "amazonaws.com") || strings.Contains(endpointLower, "s3.") {
		return " (AWS S3: check IAM policy has s3:GetObject, s3:PutObject, s3:HeadObject permissions)"
	}
	if strings.Contains(endpointLower, "minio") || strings.Contains(endpointLower, ":9000") {
		return " (MinIO: verify access key and secret key are correct)"
	}
	if strings.Contains(endpointLower, "digitaloceanspaces.com") {
		return " (DigitalOcean Spaces: verify endpoint region matches bucket region)"
	}
	if strings.Contains(endpointLower, "backblazeb2.com") {
		return " (Backblaze B2: check application key has read/write permissions)"
	}

	return ""
}

// CategorizeOCIError examines an error and returns an appropriately categorized BackendError.
// It checks for HTTP status codes, network errors, and other common failure patterns.
func CategorizeOCIError(op string, err error) *BackendError {
	if err == nil {
		return nil
	}

	errStr := err.Error()

	if containsHTTPStatus(errStr, 401) || strings.Contains(errStr, "UNAUTHORIZED") {
		hint := getRegistryAuthHint(errStr)
		return newBackendError(BackendOCI, CategoryAuth, op, fmt.Errorf("authentication failed: verify storage token is valid%s", hint))
	}
	if containsHTTPStatus(errStr, 403) || strings.Contains(errStr, "FORBIDDEN") {
		hint := getRegistryAuthHint(errStr)
		return newBackendError(BackendOCI, CategoryAuth, op, fmt.Errorf("access denied: token lacks required permissions%s", hint))
	}

	if netErr := categorizeNetworkError(BackendOCI, op, "OCI registry", err); netErr != nil {
		return netErr
	}

	if containsHTTPStatus(errStr, 404) || strings.Contains(errStr, "NOT_FOUND") {
		return newBackendError(BackendOCI, CategoryStorage, op, fmt.Errorf("repository not found or not initialized"))
	}
	if containsHTTPStatus(errStr, 500) || containsHTTPStatus(errStr, 503) {
		return newBackendError(BackendOCI, CategoryStorage, op, fmt.Errorf("OCI registry unavailable: %v", err))
	}

	return newBackendError(BackendOCI, CategoryStorage, op, err)
}

// containsHTTPStatus checks if the error string contains a specific HTTP status code
func containsHTTPStatus(errStr string, status int) bool {
	patterns := []string{
		fmt.Sprintf("%d", status),
		fmt.Sprintf("status %d", status),
		fmt.Sprintf("status: %d", status),
		fmt.Sprintf("HTTP %d", status),
	}
	for _, pattern := range patterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// getRegistryAuthHint returns registry-specific authentication hints based on the error
func getRegistryAuthHint(errStr string) string {
	errLower := strings.ToLower(errStr)

	if strings.Contains(errLower, "ghcr.io") {
		return " (ghcr.io: use a GitHub PAT with 'write:packages' scope)"
	}
	if strings.Contains(errLower, "docker.io") || strings.Contains(errLower, "index.docker.io") {
		return " (docker.io: use a Docker Hub access token, may require username:token format)"
	}
	if strings.Contains(errLower, "azurecr.io") {
		return " (Azure ACR: use 'az acr login --expose-token' to get a token)"
	}
	if strings.Contains(errLower, "amazonaws.com") || strings.Contains(errLower, "ecr") {
		return " (AWS ECR: use 'aws ecr get-login-password' to get a token)"
	}
	if strings.Contains(errLower, "gcr.io") || strings.Contains(errLower, "pkg.dev") {
		return " (GCP: use 'gcloud auth print-access-token' to get a token)"
	}

	return ""
}

// CategorizeSQLError wraps a database failure. PostgreSQL error codes in
// class 28 (invalid authorization) map to authentication failures.
func CategorizeSQLError(backend, op string, err error) *BackendError {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if strings.HasPrefix(pgErr.Code, "28") {
			return newBackendError(backend, CategoryAuth, op, fmt.Errorf("authentication failed: %s", pgErr.Message))
		}
		return newBackendError(backend, CategoryStorage, op, fmt.Errorf("%s: %s", pgErr.Code, pgErr.Message))
	}

	if netErr := categorizeNetworkError(backend, op, "database", err); netErr != nil {
		return netErr
	}

	return newBackendError(backend, CategoryStorage, op, err)
}
