// Package engine implements the dynamic endpoint execution engine: the
// component that matches every inbound HTTP request against the persisted
// endpoint catalog and interprets the matching definition.
//
// The engine is effectively a small interpreter. The routing table is not
// fixed at startup but resolved from the project store, paths are
// normalized so equivalent spellings compare equal, collections are
// materialized lazily through the storage registry, and purposes with
// bespoke semantics (register, login) branch away from the generic CRUD
// path. Every outcome is wrapped in the uniform response envelope.
//
// Requests that match no definition are passed to a configurable fallback
// handler instead of producing an error, so the engine can share a request
// path with statically-defined routers.
package engine
