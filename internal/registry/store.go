package registry

import (
	"encoding/json"
	"errors"
	"fmt"
	"iter"

	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/storage"
)

// RecordStore is the typed view of the registry's key space: the admin slot
// and the two registration indices. It holds no state of its own; every call
// goes to the KV it wraps.
type RecordStore struct {
	kv storage.KV
}

// NewRecordStore wraps kv
func NewRecordStore(kv storage.KV) *RecordStore {
	return &RecordStore{kv: kv}
}

// LoadConfig reads the admin slot. A missing slot is ErrNotInstantiated.
func (s *RecordStore) LoadConfig() (models.Config, error) {
	var cfg models.Config
	found, err := s.load([]byte(adminKey), &cfg)
	if err != nil {
		return models.Config{}, err
	}
	if !found {
		return models.Config{}, ErrNotInstantiated
	}
	return cfg, nil
}

// HasConfig reports whether the admin slot has been written
func (s *RecordStore) HasConfig() (bool, error) {
	_, err := s.kv.Get([]byte(adminKey))
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageFault(err)
	}
	return true, nil
}

// SaveConfig overwrites the admin slot
func (s *RecordStore) SaveConfig(cfg models.Config) error {
	return s.save([]byte(adminKey), cfg)
}

// LoadContractInfo reads the contract info slot, reporting whether it exists
func (s *RecordStore) LoadContractInfo() (models.ContractInfo, bool, error) {
	var info models.ContractInfo
	found, err := s.load([]byte(contractInfoKey), &info)
	return info, found, err
}

// SaveContractInfo overwrites the contract info slot
func (s *RecordStore) SaveContractInfo(info models.ContractInfo) error {
	return s.save([]byte(contractInfoKey), info)
}

// ByCodeID loads the code-id index entry, reporting whether it exists
func (s *RecordStore) ByCodeID(chainID string, codeID uint64) (*models.Registration, bool, error) {
	key, err := codeIDKey(chainID, codeID)
	if err != nil {
		return nil, false, err
	}
	var reg models.Registration
	found, err := s.load(key, &reg)
	if err != nil || !found {
		return nil, found, err
	}
	return &reg, true, nil
}

// ByName loads the name index entry, reporting whether it exists
func (s *RecordStore) ByName(contractName, chainID, version string) (*models.Registration, bool, error) {
	key, err := nameKey(contractName, chainID, version)
	if err != nil {
		return nil, false, err
	}
	var reg models.Registration
	found, err := s.load(key, &reg)
	if err != nil || !found {
		return nil, found, err
	}
	return &reg, true, nil
}

// Put writes reg under both index keys
func (s *RecordStore) Put(reg *models.Registration) error {
	ck, err := codeIDKey(reg.ChainID, reg.CodeID)
	if err != nil {
		return err
	}
	nk, err := nameKey(reg.ContractName, reg.ChainID, reg.Version)
	if err != nil {
		return err
	}
	if err := s.save(ck, reg); err != nil {
		return err
	}
	return s.save(nk, reg)
}

// DeleteCodeID removes a code-id index entry; absent keys are a no-op
func (s *RecordStore) DeleteCodeID(chainID string, codeID uint64) error {
	key, err := codeIDKey(chainID, codeID)
	if err != nil {
		return err
	}
	return storageFault(s.kv.Delete(key))
}

// DeleteName removes a name index entry; absent keys are a no-op
func (s *RecordStore) DeleteName(contractName, chainID, version string) error {
	key, err := nameKey(contractName, chainID, version)
	if err != nil {
		return err
	}
	return storageFault(s.kv.Delete(key))
}

// ScanVersions iterates every registration of (contract_name, chain_id) in
// version byte order. Each call starts a fresh scan from the boundary.
func (s *RecordStore) ScanVersions(contractName, chainID string, order storage.Order) iter.Seq2[*models.Registration, error] {
	return func(yield func(*models.Registration, error) bool) {
		prefix, err := namePrefix(contractName, chainID)
		if err != nil {
			yield(nil, err)
			return
		}
		for entry, err := range s.kv.Scan(prefix, order) {
			if err != nil {
				yield(nil, storageFault(err))
				return
			}
			var reg models.Registration
			if err := json.Unmarshal(entry.Value, &reg); err != nil {
				yield(nil, storageFault(fmt.Errorf("corrupt registration at %q: %w", entry.Key, err)))
				return
			}
			if !yield(&reg, nil) {
				return
			}
		}
	}
}

func (s *RecordStore) load(key []byte, v any) (bool, error) {
	data, err := s.kv.Get(key)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, storageFault(err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, storageFault(fmt.Errorf("corrupt value at %q: %w", key, err))
	}
	return true, nil
}

func (s *RecordStore) save(key []byte, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return storageFault(err)
	}
	return storageFault(s.kv.Set(key, data))
}
