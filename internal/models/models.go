package models

// Registration binds a (contract name, chain, version) triple and a
// (chain, code id) pair to one deployed artifact. Every mutation replaces
// the whole record.
type Registration struct {
	ContractName string `json:"contract_name"`
	Version      string `json:"version"`
	ChainID      string `json:"chain_id"`
	CodeID       uint64 `json:"code_id"`
	Checksum     string `json:"checksum"` // content hash, verified out-of-band
}

// Config is the registry-wide configuration record. It is loaded by the host at
// call entry and handed back by every operation that may change it.
type Config struct {
	Admin string `json:"admin"`
}

// ContractInfo names the software that instantiated the registry, stored
// next to the admin slot
type ContractInfo struct {
	Contract string `json:"contract"`
	Version  string `json:"version"`
}

// RegisterRequest carries the inputs of a register operation
type RegisterRequest struct {
	ContractName string `json:"contract_name"`
	Version      string `json:"version"`
	ChainID      string `json:"chain_id"`
	CodeID       uint64 `json:"code_id"`
	Checksum     string `json:"checksum"`
}

// UnregisterRequest identifies the record to remove from both indices
type UnregisterRequest struct {
	ContractName string `json:"contract_name"`
	ChainID      string `json:"chain_id"`
	CodeID       uint64 `json:"code_id"`
	Version      string `json:"version"`
}

// UpdateAdminRequest carries the replacement admin identity
type UpdateAdminRequest struct {
	Admin string `json:"admin"`
}

// NewRegistration builds a registration from a register request
func NewRegistration(req RegisterRequest) *Registration {
	return &Registration{
		ContractName: req.ContractName,
		Version:      req.Version,
		ChainID:      req.ChainID,
		CodeID:       req.CodeID,
		Checksum:     req.Checksum,
	}
}

// Matches reports whether r is the record addressed by the unregister tuple
func (r *Registration) Matches(req UnregisterRequest) bool {
	return r.ContractName == req.ContractName &&
		r.ChainID == req.ChainID &&
		r.CodeID == req.CodeID &&
		r.Version == req.Version
}

// GetRegistrationResponse wraps a single registration
type GetRegistrationResponse struct {
	Registration *Registration `json:"registration"`
}

// ListRegistrationsResponse wraps an ordered list of registrations
type ListRegistrationsResponse struct {
	Registrations []*Registration `json:"registrations"`
}

// AdminResponse wraps the current admin identity
type AdminResponse struct {
	Admin string `json:"admin"`
}
