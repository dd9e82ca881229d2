package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/config"
	"github.com/criteo/code-id-registry/internal/registry"
)

// NewAuthenticator builds the authenticator selected by auth.type
func NewAuthenticator(cfg *config.Config, logger *slog.Logger) (auth.Authenticator, error) {
	switch cfg.Auth.Type {
	case config.AuthNone:
		logger.Info("Authentication disabled (auth.type=none)")
		return auth.NewNoAuth(), nil
	case config.AuthHeader:
		logger.Warn("Callers are taken from the "+auth.CallerHeader+" header (auth.type=header); do not expose this server")
		return auth.NewTrustingNoAuth(), nil
	case config.AuthBasic:
		validator, err := cfg.IdentityValidator()
		if err != nil {
			return nil, err
		}
		a, err := auth.NewPasswordAuth(cfg.Auth.UsersFile, validator, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize basic auth: %w", err)
		}
		return a, nil
	default:
		return nil, fmt.Errorf("unsupported auth type: %s", cfg.Auth.Type)
	}
}

// ErrAdminRequired is returned by Bootstrap when the store holds no admin and
// none is configured
var ErrAdminRequired = errors.New("registry is not instantiated: set registry.admin (" + config.EnvPrefix + "_REGISTRY_ADMIN)")

// Bootstrap instantiates the registry with admin when no admin is stored yet.
// An already stored admin always wins; a different configured one only
// produces a warning.
func Bootstrap(ctx context.Context, service *registry.Service, admin string, logger *slog.Logger) error {
	if admin == "" {
		current, err := service.Admin(ctx)
		if errors.Is(err, registry.ErrNotInstantiated) {
			return ErrAdminRequired
		}
		if err != nil {
			return fmt.Errorf("failed to load registry admin: %w", err)
		}
		logger.Info("Registry admin loaded", "admin", current)
		return nil
	}

	stored, created, err := service.Instantiate(ctx, admin)
	if err != nil {
		return fmt.Errorf("failed to instantiate registry: %w", err)
	}
	switch {
	case created:
		logger.Info("Registry admin initialized from configuration", "admin", stored.Admin)
	case stored.Admin != admin:
		logger.Warn("Configured registry.admin differs from the stored admin; keeping the stored one",
			"configured_admin", admin,
			"stored_admin", stored.Admin)
	default:
		logger.Info("Registry admin loaded", "admin", stored.Admin)
	}
	return nil
}
