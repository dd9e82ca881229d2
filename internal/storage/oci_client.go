package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"oras.land/oras-go/v2"
	"oras.land/oras-go/v2/content"
	"oras.land/oras-go/v2/errdef"
	"oras.land/oras-go/v2/registry/remote"
	"oras.land/oras-go/v2/registry/remote/auth"
	"oras.land/oras-go/v2/registry/remote/retry"
)

// OCI timeout constants
const (
	OCIPushTimeout = 60 * time.Second // ghcr.io can be slow
	OCIPullTimeout = 30 * time.Second
)

// Media types and annotations of the snapshot artifact
const (
	OCIArtifactType   = "application/vnd.codeid-registry.snapshot.v1"
	OCILayerMediaType = "application/vnd.codeid-registry.snapshot.v1+json"
	OCIManifestTitle  = "registry-snapshot.json"

	ociSnapshotVersionAnnotation = "io.codeid-registry.snapshot.version"
	ociSnapshotEntriesAnnotation = "io.codeid-registry.snapshot.entries"
)

// OCIClient stores the registry snapshot as a single-layer artifact behind
// one tag. Like S3Client it pins the manifest digest it last saw and refuses
// to retag over someone else's push.
type OCIClient struct {
	repository *remote.Repository
	reference  string // Full reference "registry/repo:latest"
	head       digest.Digest
	logger     *slog.Logger
}

// NewOCIClient creates a client for reference ("ghcr.io/org/repo:latest").
// The token is sent as the registry password.
func NewOCIClient(reference string, token string, logger *slog.Logger) (*OCIClient, error) {
	repo, err := remote.NewRepository(reference)
	if err != nil {
		return nil, CategorizeOCIError(OpConnect, fmt.Errorf("invalid OCI reference %q: %w", reference, err))
	}

	// registries ignore the username for personal access tokens
	if token != "" {
		repo.Client = &auth.Client{
			Client:     retry.DefaultClient,
			Credential: auth.StaticCredential(repo.Reference.Registry, auth.Credential{Username: "token", Password: token}),
		}
	}

	logger = logger.With("reference", reference)
	logger.Info("OCI client created", "has_token", token != "")

	return &OCIClient{repository: repo, reference: reference, logger: logger}, nil
}

func (c *OCIClient) tag() string {
	return c.repository.Reference.Reference
}

// Fetch pulls the snapshot. found is false when the tag does not exist yet.
func (c *OCIClient) Fetch(ctx context.Context) (data []byte, found bool, err error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, OCIPullTimeout)
	defer cancel()

	manifestDesc, manifestJSON, err := oras.FetchBytes(ctx, c.repository, c.tag(), oras.DefaultFetchBytesOptions)
	if err != nil {
		if isOCINotFound(err) {
			c.head = ""
			return nil, false, nil
		}
		return nil, false, CategorizeOCIError(OpPull, err)
	}

	layer, err := snapshotLayer(manifestJSON)
	if err != nil {
		return nil, false, CategorizeOCIError(OpPull, err)
	}
	data, err = content.FetchAll(ctx, c.repository, layer)
	if err != nil {
		return nil, false, CategorizeOCIError(OpPull, fmt.Errorf("failed to fetch snapshot layer %s: %w", layer.Digest, err))
	}
	c.head = manifestDesc.Digest

	c.logger.Info("Registry snapshot pulled",
		"manifest", manifestDesc.Digest,
		"size_bytes", len(data),
		"duration_ms", time.Since(start).Milliseconds())
	return data, true, nil
}

// snapshotLayer returns the snapshot layer of a manifest, rejecting artifacts
// this registry did not write
func snapshotLayer(manifestJSON []byte) (ocispec.Descriptor, error) {
	var manifest ocispec.Manifest
	if err := json.Unmarshal(manifestJSON, &manifest); err != nil {
		return ocispec.Descriptor{}, fmt.Errorf("failed to parse manifest: %w", err)
	}
	for _, layer := range manifest.Layers {
		if layer.MediaType == OCILayerMediaType {
			return layer, nil
		}
	}
	return ocispec.Descriptor{}, fmt.Errorf("artifact has no %s layer; is the tag used by something else?", OCILayerMediaType)
}

// Push uploads data as a new artifact and moves the tag to it. It fails with
// ErrSnapshotChanged when the tag no longer points at the manifest this
// client last pulled or pushed.
func (c *OCIClient) Push(ctx context.Context, data []byte, entries int) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, OCIPushTimeout)
	defer cancel()

	if err := c.checkUnchanged(ctx); err != nil {
		return err
	}

	layer := ocispec.Descriptor{
		MediaType:   OCILayerMediaType,
		Digest:      digest.FromBytes(data),
		Size:        int64(len(data)),
		Annotations: map[string]string{ocispec.AnnotationTitle: OCIManifestTitle},
	}
	if err := c.repository.Push(ctx, layer, bytes.NewReader(data)); err != nil && !errors.Is(err, errdef.ErrAlreadyExists) {
		return CategorizeOCIError(OpPush, fmt.Errorf("failed to push snapshot layer: %w", err))
	}

	manifest, err := oras.PackManifest(ctx, c.repository, oras.PackManifestVersion1_1, OCIArtifactType, oras.PackManifestOptions{
		Layers: []ocispec.Descriptor{layer},
		ManifestAnnotations: map[string]string{
			ocispec.AnnotationCreated:    time.Now().UTC().Format(time.RFC3339),
			ociSnapshotVersionAnnotation: strconv.Itoa(snapshotVersion),
			ociSnapshotEntriesAnnotation: strconv.Itoa(entries),
		},
	})
	if err != nil {
		return CategorizeOCIError(OpPush, fmt.Errorf("failed to push manifest: %w", err))
	}
	if err := c.repository.Tag(ctx, manifest, c.tag()); err != nil {
		c.logger.Error("OCI push failed", "error", err, "duration_ms", time.Since(start).Milliseconds())
		return CategorizeOCIError(OpPush, fmt.Errorf("failed to tag manifest: %w", err))
	}
	c.head = manifest.Digest

	c.logger.Info("Registry snapshot pushed",
		"manifest", manifest.Digest,
		"size_bytes", len(data),
		"entries", entries,
		"duration_ms", time.Since(start).Milliseconds())
	return nil
}

func (c *OCIClient) checkUnchanged(ctx context.Context) error {
	current, err := c.resolve(ctx)
	if err != nil {
		return err
	}
	if current != c.head {
		c.logger.Error("OCI snapshot tag moved underneath the registry",
			"expected_manifest", c.head,
			"current_manifest", current)
		return newBackendError(BackendOCI, CategoryStorage, OpPush,
			fmt.Errorf("%w: expected manifest %q, found %q; restart to reload", ErrSnapshotChanged, c.head, current))
	}
	return nil
}

// resolve returns the digest the tag points at, or "" when it is absent
func (c *OCIClient) resolve(ctx context.Context) (digest.Digest, error) {
	desc, err := c.repository.Resolve(ctx, c.tag())
	if err != nil {
		if isOCINotFound(err) {
			return "", nil
		}
		return "", CategorizeOCIError(OpConnect, err)
	}
	return desc.Digest, nil
}

// isOCINotFound reports whether err means the tag or repository is absent.
// Registries disagree on how to say so: errdef.ErrNotFound, an HTTP 404 or
// 400, or a NAME_UNKNOWN / MANIFEST_UNKNOWN error code.
func isOCINotFound(err error) bool {
	if errors.Is(err, errdef.ErrNotFound) {
		return true
	}
	errStr := err.Error()
	return containsHTTPStatus(errStr, 404) || containsHTTPStatus(errStr, 400) ||
		strings.HasSuffix(errStr, ": not found") ||
		strings.Contains(errStr, "NOT_FOUND") ||
		strings.Contains(errStr, "NAME_UNKNOWN") ||
		strings.Contains(errStr, "MANIFEST_UNKNOWN")
}

// Exists reports whether the snapshot tag resolves
func (c *OCIClient) Exists(ctx context.Context) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, OCIPullTimeout)
	defer cancel()
	current, err := c.resolve(ctx)
	return current != "", err
}
