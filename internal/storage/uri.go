package storage

import (
	"fmt"
	"net/url"
	"strings"
)

// SupportedSchemes lists all currently supported storage URI schemes
var SupportedSchemes = []string{"memory", "file", "sqlite", "postgres", "postgresql", "s3", "s3+http", "oci"}

// PlannedSchemes lists schemes that are recognized but not yet implemented
var PlannedSchemes = []string{"gs", "azblob"}

// StorageURI represents a parsed storage backend URI
type StorageURI struct {
	Scheme string     // Storage backend type (e.g., "file", "oci")
	Host   string     // Host for network backends (optional for file://)
	Path   string     // Path to storage resource
	Query  url.Values // Query parameters (s3 region only)
	Raw    string     // Original URI string for logging/debugging
}

// NormalizeStorageURI ensures the URI has a scheme, prepending "file://" if missing
func NormalizeStorageURI(uri string) string {
	if uri == "" {
		return uri
	}
	if !strings.Contains(uri, "://") {
		return "file://" + uri
	}
	return uri
}

// ParseStorageURI parses a storage URI string into its components
func ParseStorageURI(uri string) (*StorageURI, error) {
	if uri == "" {
		return nil, fmt.Errorf("storage URI cannot be empty")
	}

	normalized := NormalizeStorageURI(uri)

	parsed, err := url.Parse(normalized)
	if err != nil {
		return nil, fmt.Errorf("invalid URI format: %w", err)
	}

	if parsed.Scheme == "" {
		return nil, fmt.Errorf("URI must have a scheme (e.g., file://)")
	}

	if err := validateScheme(parsed.Scheme); err != nil {
		return nil, err
	}

	switch parsed.Scheme {
	case "memory":
		return &StorageURI{Scheme: parsed.Scheme, Raw: uri}, nil
	case "oci":
		return parseOCIURI(parsed, uri)
	case "s3", "s3+http":
		return parseS3URI(parsed, uri)
	case "postgres", "postgresql":
		if parsed.Host == "" {
			return nil, fmt.Errorf("PostgreSQL URI must include database host: postgres://<user>:<password>@<host>/<database>")
		}
		return &StorageURI{
			Scheme: parsed.Scheme,
			Host:   parsed.Host,
			Path:   strings.TrimPrefix(parsed.Path, "/"),
			Query:  parsed.Query(),
			Raw:    uri,
		}, nil
	}

	// file:// and sqlite:// carry a local path
	path := localPath(parsed)
	if path == "" {
		return nil, fmt.Errorf("storage URI must have a path")
	}

	return &StorageURI{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   path,
		Raw:    uri,
	}, nil
}

// localPath extracts a filesystem path from file:// style URIs
func localPath(parsed *url.URL) string {
	path := parsed.Path
	// Relative paths may end up in Opaque
	if path == "" && parsed.Opaque != "" {
		path = parsed.Opaque
	}
	if parsed.Host == "." && strings.HasPrefix(path, "/") {
		// file://./path format
		path = "./" + strings.TrimPrefix(path, "/")
	} else if parsed.Host != "" && path != "" {
		// Windows drive letter: file://C:/path
		if len(parsed.Host) == 1 && strings.ToUpper(parsed.Host) >= "A" && strings.ToUpper(parsed.Host) <= "Z" {
			path = parsed.Host + ":" + path
		}
	}
	return path
}

func parseOCIURI(parsed *url.URL, raw string) (*StorageURI, error) {
	if parsed.RawQuery != "" {
		return nil, fmt.Errorf("OCI URI does not support query parameters")
	}
	if parsed.Fragment != "" {
		return nil, fmt.Errorf("OCI URI does not support fragments")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("OCI URI must include registry host: oci://<registry>/<repository>")
	}
	ociPath := strings.TrimPrefix(parsed.Path, "/")
	if ociPath == "" {
		return nil, fmt.Errorf("OCI URI must include repository path: oci://<registry>/<repository>")
	}
	// Strip any tag from path (we always use :latest)
	if idx := strings.LastIndex(ociPath, ":"); idx > 0 {
		ociPath = ociPath[:idx]
	}
	return &StorageURI{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   ociPath,
		Raw:    raw,
	}, nil
}

func parseS3URI(parsed *url.URL, raw string) (*StorageURI, error) {
	if parsed.Fragment != "" {
		return nil, fmt.Errorf("S3 URI does not support fragments")
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("S3 URI must include endpoint host: s3://<endpoint>/<bucket>/<key>")
	}
	query := parsed.Query()
	for param := range query {
		if param != "region" {
			return nil, fmt.Errorf("S3 URI does not support query parameter %q (only 'region' is allowed)", param)
		}
	}
	s3Path := strings.TrimPrefix(parsed.Path, "/")
	if s3Path == "" {
		return nil, fmt.Errorf("S3 URI must include bucket and path: s3://<endpoint>/<bucket>/<key>")
	}
	bucket, key, _ := strings.Cut(s3Path, "/")
	if bucket == "" || key == "" {
		return nil, fmt.Errorf("S3 URI must include object key path: s3://<endpoint>/<bucket>/<key>")
	}
	return &StorageURI{
		Scheme: parsed.Scheme,
		Host:   parsed.Host,
		Path:   s3Path,
		Query:  query,
		Raw:    raw,
	}, nil
}

// validateScheme checks if the scheme is supported or planned
func validateScheme(scheme string) error {
	for _, s := range SupportedSchemes {
		if scheme == s {
			return nil
		}
	}

	for _, s := range PlannedSchemes {
		if scheme == s {
			return fmt.Errorf("storage scheme %q is not yet implemented (planned for future release); supported schemes: %s",
				scheme, strings.Join(SupportedSchemes, ", "))
		}
	}

	return fmt.Errorf("unsupported storage scheme %q; supported schemes: %s",
		scheme, strings.Join(SupportedSchemes, ", "))
}

// IsFileScheme returns true if this is a file:// URI
func (u *StorageURI) IsFileScheme() bool {
	return u.Scheme == "file"
}

// IsOCIScheme returns true if this is an oci:// URI
func (u *StorageURI) IsOCIScheme() bool {
	return u.Scheme == "oci"
}

// IsS3Scheme returns true for s3:// and s3+http:// URIs
func (u *StorageURI) IsS3Scheme() bool {
	return u.Scheme == "s3" || u.Scheme == "s3+http"
}

// IsSQLScheme returns true for database-backed URIs
func (u *StorageURI) IsSQLScheme() bool {
	switch u.Scheme {
	case "sqlite", "postgres", "postgresql":
		return true
	}
	return false
}

// OCIReference returns the OCI reference string "registry/repository:latest"
// This should only be called for OCI scheme URIs
func (u *StorageURI) OCIReference() string {
	return fmt.Sprintf("%s/%s:latest", u.Host, u.Path)
}

// S3Endpoint returns the S3 endpoint host
func (u *StorageURI) S3Endpoint() string {
	return u.Host
}

// S3Bucket returns the bucket, the first path segment
func (u *StorageURI) S3Bucket() string {
	bucket, _, _ := strings.Cut(u.Path, "/")
	return bucket
}

// S3Key returns the object key, everything after the bucket
func (u *StorageURI) S3Key() string {
	_, key, _ := strings.Cut(u.Path, "/")
	return key
}

// S3Region returns the region query parameter, if any
func (u *StorageURI) S3Region() string {
	return u.Query.Get("region")
}

// S3UseSSL returns false only for s3+http:// URIs
func (u *StorageURI) S3UseSSL() bool {
	return u.Scheme != "s3+http"
}

// String returns the original URI string with any password redacted
func (u *StorageURI) String() string {
	parsed, err := url.Parse(u.Raw)
	if err != nil || parsed.User == nil {
		return u.Raw
	}
	return parsed.Redacted()
}
