package registry

import (
	"fmt"

	"github.com/criteo/code-id-registry/internal/models"
)

// Engine applies mutations to a RecordStore. It never keeps the admin record
// between calls: the caller supplies the current Config and persists the one
// returned.
type Engine struct {
	validator models.IdentityValidator
}

// NewEngine creates an engine that checks admin identities with validator
func NewEngine(validator models.IdentityValidator) *Engine {
	if validator == nil {
		validator = models.DefaultValidator()
	}
	return &Engine{validator: validator}
}

// Instantiate returns the initial Config for admin
func (e *Engine) Instantiate(admin string) (models.Config, error) {
	if err := e.validator.ValidateIdentity(admin); err != nil {
		return models.Config{}, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	return models.Config{Admin: admin}, nil
}

// Register creates a registration under both index keys. An occupied
// (chain_id, code_id) is never overwritten. If the (contract_name, chain_id,
// version) slot held another record, that record's code-id entry is removed
// so both indices keep describing the same set of records.
func (e *Engine) Register(rs *RecordStore, cfg models.Config, caller string, req models.RegisterRequest) (models.Config, *models.Registration, error) {
	if err := Authorize(cfg, caller, ErrUnauthorized); err != nil {
		return cfg, nil, err
	}
	if err := models.ValidateRegisterRequest(&req); err != nil {
		return cfg, nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	_, occupied, err := rs.ByCodeID(req.ChainID, req.CodeID)
	if err != nil {
		return cfg, nil, err
	}
	if occupied {
		return cfg, nil, &CodeIDAlreadyRegisteredError{CodeID: req.CodeID, ChainID: req.ChainID}
	}

	displaced, found, err := rs.ByName(req.ContractName, req.ChainID, req.Version)
	if err != nil {
		return cfg, nil, err
	}
	if found {
		if err := rs.DeleteCodeID(displaced.ChainID, displaced.CodeID); err != nil {
			return cfg, nil, err
		}
	}

	reg := models.NewRegistration(req)
	if err := rs.Put(reg); err != nil {
		return cfg, nil, err
	}
	return cfg, reg, nil
}

// Unregister removes a registration from both indices. Absent entries are a
// no-op. An entry that exists but holds a different record than the supplied
// tuple fails the whole call with a RegistrationMismatchError.
func (e *Engine) Unregister(rs *RecordStore, cfg models.Config, caller string, req models.UnregisterRequest) (models.Config, error) {
	if err := Authorize(cfg, caller, ErrUnauthorized); err != nil {
		return cfg, err
	}
	if err := models.ValidateUnregisterRequest(&req); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	byName, found, err := rs.ByName(req.ContractName, req.ChainID, req.Version)
	if err != nil {
		return cfg, err
	}
	if found && !byName.Matches(req) {
		return cfg, &RegistrationMismatchError{
			Index:    "name",
			Existing: fmt.Sprintf("code ID %d", byName.CodeID),
		}
	}

	byCodeID, found, err := rs.ByCodeID(req.ChainID, req.CodeID)
	if err != nil {
		return cfg, err
	}
	if found && !byCodeID.Matches(req) {
		return cfg, &RegistrationMismatchError{
			Index:    "code ID",
			Existing: fmt.Sprintf("%s version %s", byCodeID.ContractName, byCodeID.Version),
		}
	}

	if err := rs.DeleteName(req.ContractName, req.ChainID, req.Version); err != nil {
		return cfg, err
	}
	if err := rs.DeleteCodeID(req.ChainID, req.CodeID); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// UpdateAdmin replaces the admin. Only the current admin may call it.
func (e *Engine) UpdateAdmin(cfg models.Config, caller, newAdmin string) (models.Config, error) {
	if err := Authorize(cfg, caller, ErrUnauthorizedUpdateAdmin); err != nil {
		return cfg, err
	}
	if err := e.validator.ValidateIdentity(newAdmin); err != nil {
		return cfg, fmt.Errorf("%w: %w", ErrInvalidIdentity, err)
	}
	return models.Config{Admin: newAdmin}, nil
}
