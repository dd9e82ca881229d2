package registry

import (
	"encoding/binary"
	"fmt"

	"github.com/criteo/code-id-registry/internal/models"
)

// Storage namespaces. These are part of the persisted layout and must not change.
const (
	adminKey        = "admin"
	contractInfoKey = "contract_info"
	codeIDNamespace = "chain_id_code_id_to_registration"
	nameNamespace   = "name_chain_id_version_to_code_id"
)

// appendComponent appends a 2-byte big-endian length followed by s
func appendComponent(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func checkComponents(components ...string) error {
	for _, c := range components {
		if len(c) > models.MaxKeyComponentLength {
			return fmt.Errorf("%w: key component of %d bytes exceeds %d", ErrInvalidInput, len(c), models.MaxKeyComponentLength)
		}
	}
	return nil
}

// codeIDKey addresses the code-id index: namespace, chain, then code_id as
// 8 big-endian bytes so numeric order equals byte order.
func codeIDKey(chainID string, codeID uint64) ([]byte, error) {
	if err := checkComponents(chainID); err != nil {
		return nil, err
	}
	key := appendComponent(nil, codeIDNamespace)
	key = appendComponent(key, chainID)
	return binary.BigEndian.AppendUint64(key, codeID), nil
}

// namePrefix addresses every version of (contract_name, chain_id). Both
// components are length-prefixed, so no other pair shares the prefix.
func namePrefix(contractName, chainID string) ([]byte, error) {
	if err := checkComponents(contractName, chainID); err != nil {
		return nil, err
	}
	key := appendComponent(nil, nameNamespace)
	key = appendComponent(key, contractName)
	return appendComponent(key, chainID), nil
}

// nameKey addresses the name index; the version is the raw key suffix and
// orders byte-wise.
func nameKey(contractName, chainID, version string) ([]byte, error) {
	prefix, err := namePrefix(contractName, chainID)
	if err != nil {
		return nil, err
	}
	return append(prefix, version...), nil
}
