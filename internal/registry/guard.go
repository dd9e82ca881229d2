package registry

import "github.com/criteo/code-id-registry/internal/models"

// Authorize checks that caller is the admin recorded in cfg. denied is the
// error returned on mismatch (ErrUnauthorized or ErrUnauthorizedUpdateAdmin).
func Authorize(cfg models.Config, caller string, denied error) error {
	if cfg.Admin == "" {
		return ErrNotInstantiated
	}
	if caller != cfg.Admin {
		return denied
	}
	return nil
}
