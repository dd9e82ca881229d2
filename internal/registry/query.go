package registry

import (
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/storage"
)

// GetByChainAndCodeID looks up the code-id index
func GetByChainAndCodeID(rs *RecordStore, chainID string, codeID uint64) (*models.Registration, error) {
	reg, found, err := rs.ByCodeID(chainID, codeID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrNotFound
	}
	return reg, nil
}

// GetRegistration looks up one version of (contract_name, chain_id). A nil
// version selects the latest, meaning the byte-wise greatest version string.
func GetRegistration(rs *RecordStore, contractName, chainID string, version *string) (*models.Registration, error) {
	if version != nil {
		reg, found, err := rs.ByName(contractName, chainID, *version)
		if err != nil {
			return nil, err
		}
		if !found {
			return nil, ErrNotFound
		}
		return reg, nil
	}

	for reg, err := range rs.ScanVersions(contractName, chainID, storage.Descending) {
		if err != nil {
			return nil, err
		}
		return reg, nil
	}
	return nil, ErrNotFound
}

// ListRegistrations returns every version of (contract_name, chain_id) in
// ascending version order. The result is never nil.
func ListRegistrations(rs *RecordStore, contractName, chainID string) ([]*models.Registration, error) {
	registrations := []*models.Registration{}
	for reg, err := range rs.ScanVersions(contractName, chainID, storage.Ascending) {
		if err != nil {
			return nil, err
		}
		registrations = append(registrations, reg)
	}
	return registrations, nil
}

// GetAdmin returns the current admin identity
func GetAdmin(rs *RecordStore) (string, error) {
	cfg, err := rs.LoadConfig()
	if err != nil {
		return "", err
	}
	return cfg.Admin, nil
}
