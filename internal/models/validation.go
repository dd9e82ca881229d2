package models

import (
	"fmt"
	"regexp"
)

// MaxKeyComponentLength is the longest string that can be encoded as a
// length-prefixed storage key component.
const MaxKeyComponentLength = 0xFFFF

// DefaultIdentityPattern accepts lowercase account names and bech32/hex
// style addresses.
const DefaultIdentityPattern = `^[a-z0-9][a-z0-9._-]{0,127}$`

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error on field '%s': %s", e.Field, e.Message)
}

// IdentityValidator performs the syntactic check on principal identities
type IdentityValidator interface {
	ValidateIdentity(identity string) error
}

// PatternValidator validates identities against a regular expression
type PatternValidator struct {
	pattern *regexp.Regexp
}

// NewPatternValidator compiles pattern into an identity validator
func NewPatternValidator(pattern string) (*PatternValidator, error) {
	if pattern == "" {
		pattern = DefaultIdentityPattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("invalid identity pattern: %w", err)
	}
	return &PatternValidator{pattern: re}, nil
}

// DefaultValidator returns a validator using DefaultIdentityPattern
func DefaultValidator() *PatternValidator {
	return &PatternValidator{pattern: regexp.MustCompile(DefaultIdentityPattern)}
}

// ValidateIdentity validates an admin or caller identity
func (v *PatternValidator) ValidateIdentity(identity string) error {
	if len(identity) == 0 {
		return &ValidationError{Field: "admin", Message: "identity is required"}
	}
	if !v.pattern.MatchString(identity) {
		return &ValidationError{Field: "admin", Message: fmt.Sprintf("identity must match pattern %s", v.pattern.String())}
	}
	return nil
}

// validateKeyComponent checks that a value fits in a length-prefixed key.
// Content is otherwise opaque and compared byte-wise.
func validateKeyComponent(field, value string) error {
	if len(value) > MaxKeyComponentLength {
		return &ValidationError{Field: field, Message: fmt.Sprintf("%s must be at most %d bytes", field, MaxKeyComponentLength)}
	}
	return nil
}

// ValidateRegisterRequest validates register inputs
func ValidateRegisterRequest(req *RegisterRequest) error {
	if err := validateKeyComponent("contract_name", req.ContractName); err != nil {
		return err
	}
	if err := validateKeyComponent("chain_id", req.ChainID); err != nil {
		return err
	}
	return nil
}

// ValidateUnregisterRequest validates unregister inputs
func ValidateUnregisterRequest(req *UnregisterRequest) error {
	if err := validateKeyComponent("contract_name", req.ContractName); err != nil {
		return err
	}
	if err := validateKeyComponent("chain_id", req.ChainID); err != nil {
		return err
	}
	return nil
}

// ValidateLookup validates the (name, chain) pair of a query
func ValidateLookup(contractName, chainID string) error {
	if err := validateKeyComponent("contract_name", contractName); err != nil {
		return err
	}
	return validateKeyComponent("chain_id", chainID)
}
