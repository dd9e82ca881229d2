package validation

import (
	"fmt"
	"strconv"

	"github.com/criteo/code-id-registry/internal/models"
)

// ParseCodeID parses a decimal code ID
func ParseCodeID(s string) (uint64, error) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid code ID. Expected an unsigned integer, got: '%s'", s)
	}
	return id, nil
}

// ValidateKeyPart checks that a contract name, chain ID or version fits in
// a registry key. Any other content, including the empty string, is stored
// as given.
func ValidateKeyPart(field, value string) error {
	if len(value) > models.MaxKeyComponentLength {
		return fmt.Errorf("%s must be at most %d bytes, got %d", field, models.MaxKeyComponentLength, len(value))
	}
	return nil
}
