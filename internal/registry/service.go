package registry

import (
	"context"
	"log/slog"

	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/storage"
)

// Service hosts the registry on a storage.Store. Each call runs in its own
// transaction: mutations in Update, queries in View. The admin Config is
// loaded at call entry, handed to the engine, and written back when the
// engine returns a different one.
type Service struct {
	store  storage.Store
	engine *Engine
	info   models.ContractInfo
	logger *slog.Logger
}

// ContractName is recorded in the contract info slot
const ContractName = "code-id-registry"

// NewService creates a registry service on store
func NewService(store storage.Store, validator models.IdentityValidator, logger *slog.Logger) *Service {
	return &Service{
		store:  store,
		engine: NewEngine(validator),
		info:   models.ContractInfo{Contract: ContractName, Version: "dev"},
		logger: logger,
	}
}

// SetVersion sets the version Instantiate records in the contract info slot
func (s *Service) SetVersion(version string) {
	s.info.Version = version
}

// Instantiate stores admin as the initial admin when none is stored yet.
// It returns the stored Config and whether this call created it. The
// contract info slot is brought up to date with the running version either
// way.
func (s *Service) Instantiate(ctx context.Context, admin string) (models.Config, bool, error) {
	initial, err := s.engine.Instantiate(admin)
	if err != nil {
		return models.Config{}, false, err
	}

	var (
		stored   models.Config
		created  bool
		previous models.ContractInfo
	)
	err = s.store.Update(ctx, func(kv storage.KV) error {
		rs := NewRecordStore(kv)
		exists, err := rs.HasConfig()
		if err != nil {
			return err
		}
		if exists {
			if stored, err = rs.LoadConfig(); err != nil {
				return err
			}
		} else {
			stored, created = initial, true
			if err := rs.SaveConfig(initial); err != nil {
				return err
			}
		}

		if previous, _, err = rs.LoadContractInfo(); err != nil {
			return err
		}
		if previous == s.info {
			return nil
		}
		return rs.SaveContractInfo(s.info)
	})
	if err != nil {
		return models.Config{}, false, translate(err)
	}

	if created {
		s.logger.Info("Registry instantiated", "action", "instantiate", "admin", stored.Admin,
			"contract", s.info.Contract, "version", s.info.Version)
	} else if previous != s.info {
		s.logger.Info("Contract info updated", "action", "migrate",
			"from_version", previous.Version, "to_version", s.info.Version)
	}
	return stored, created, nil
}

// ContractInfo returns the contract info recorded by Instantiate
func (s *Service) ContractInfo(ctx context.Context) (models.ContractInfo, error) {
	var info models.ContractInfo
	err := s.view(ctx, func(rs *RecordStore) error {
		var (
			found bool
			err   error
		)
		info, found, err = rs.LoadContractInfo()
		if err == nil && !found {
			return ErrNotInstantiated
		}
		return err
	})
	return info, err
}

// Register creates a registration; see Engine.Register
func (s *Service) Register(ctx context.Context, caller string, req models.RegisterRequest) (*models.Registration, error) {
	var reg *models.Registration
	err := s.mutate(ctx, func(rs *RecordStore, cfg models.Config) (models.Config, error) {
		next, created, err := s.engine.Register(rs, cfg, caller, req)
		reg = created
		return next, err
	})
	if err != nil {
		s.logger.Warn("Register rejected",
			"action", "register_code_id",
			"caller", caller,
			"contract_name", req.ContractName,
			"chain_id", req.ChainID,
			"code_id", req.CodeID,
			"error", err)
		return nil, err
	}

	s.logger.Info("Code ID registered",
		"action", "register_code_id",
		"contract_name", reg.ContractName,
		"version", reg.Version,
		"chain_id", reg.ChainID,
		"code_id", reg.CodeID)
	return reg, nil
}

// Unregister removes a registration; see Engine.Unregister
func (s *Service) Unregister(ctx context.Context, caller string, req models.UnregisterRequest) error {
	err := s.mutate(ctx, func(rs *RecordStore, cfg models.Config) (models.Config, error) {
		return s.engine.Unregister(rs, cfg, caller, req)
	})
	if err != nil {
		s.logger.Warn("Unregister rejected",
			"action", "unregister",
			"caller", caller,
			"contract_name", req.ContractName,
			"chain_id", req.ChainID,
			"code_id", req.CodeID,
			"error", err)
		return err
	}

	s.logger.Info("Code ID unregistered",
		"action", "unregister",
		"contract_name", req.ContractName,
		"version", req.Version,
		"chain_id", req.ChainID,
		"code_id", req.CodeID)
	return nil
}

// UpdateAdmin replaces the admin; see Engine.UpdateAdmin
func (s *Service) UpdateAdmin(ctx context.Context, caller, newAdmin string) error {
	err := s.mutate(ctx, func(rs *RecordStore, cfg models.Config) (models.Config, error) {
		return s.engine.UpdateAdmin(cfg, caller, newAdmin)
	})
	if err != nil {
		s.logger.Warn("Admin update rejected",
			"action", "update_admin",
			"caller", caller,
			"error", err)
		return err
	}

	s.logger.Info("Admin updated", "action", "update_admin", "new_admin", newAdmin)
	return nil
}

// Admin returns the current admin identity
func (s *Service) Admin(ctx context.Context) (string, error) {
	var admin string
	err := s.view(ctx, func(rs *RecordStore) error {
		var err error
		admin, err = GetAdmin(rs)
		return err
	})
	return admin, err
}

// GetRegistration returns one version, or the latest when version is nil
func (s *Service) GetRegistration(ctx context.Context, contractName, chainID string, version *string) (*models.Registration, error) {
	var reg *models.Registration
	err := s.view(ctx, func(rs *RecordStore) error {
		var err error
		reg, err = GetRegistration(rs, contractName, chainID, version)
		return err
	})
	return reg, err
}

// GetCodeIDInfo returns the registration stored for (chain_id, code_id)
func (s *Service) GetCodeIDInfo(ctx context.Context, chainID string, codeID uint64) (*models.Registration, error) {
	var reg *models.Registration
	err := s.view(ctx, func(rs *RecordStore) error {
		var err error
		reg, err = GetByChainAndCodeID(rs, chainID, codeID)
		return err
	})
	return reg, err
}

// ListRegistrations returns every version of (contract_name, chain_id)
func (s *Service) ListRegistrations(ctx context.Context, contractName, chainID string) ([]*models.Registration, error) {
	var regs []*models.Registration
	err := s.view(ctx, func(rs *RecordStore) error {
		var err error
		regs, err = ListRegistrations(rs, contractName, chainID)
		return err
	})
	return regs, err
}

// Ping checks the underlying store
func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) mutate(ctx context.Context, fn func(rs *RecordStore, cfg models.Config) (models.Config, error)) error {
	err := s.store.Update(ctx, func(kv storage.KV) error {
		rs := NewRecordStore(kv)
		cfg, err := rs.LoadConfig()
		if err != nil {
			return err
		}
		next, err := fn(rs, cfg)
		if err != nil {
			return err
		}
		if next != cfg {
			return rs.SaveConfig(next)
		}
		return nil
	})
	return translate(err)
}

func (s *Service) view(ctx context.Context, fn func(rs *RecordStore) error) error {
	return translate(s.store.View(ctx, func(kv storage.KV) error {
		return fn(NewRecordStore(kv))
	}))
}

// translate keeps registry errors as they are and turns anything else the
// store returned (commit failures, cancelled contexts) into a storage fault
func translate(err error) error {
	if err == nil || isDomainError(err) {
		return err
	}
	return storageFault(err)
}
