// Package registry implements the code-id registry: a record store that keeps
// two indices over one set of registrations, the admin authorization guard,
// the registration engine and the query resolver.
//
// Every registration is addressable by (chain_id, code_id) and by
// (contract_name, chain_id, version). Both index entries are written and
// removed together inside one storage transaction, so after every committed
// call an entry exists under both keys with identical contents or under
// neither.
package registry
