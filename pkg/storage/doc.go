// Package storage defines the persisted data model for switchboard and the
// backends that serve it.
//
// Two kinds of state are stored: the endpoint catalog (projects with their
// embedded endpoint definitions, plus platform accounts) and the dynamic
// collections those endpoints operate on. Collections are schema-optional
// named document stores created on first reference through the Registry;
// documents are open maps with a system-assigned identifier and
// creation/update timestamps.
//
// Three backends implement the Backend interface: an in-memory store used
// by tests and dev mode, a filesystem store with JSON files per record, and
// a MongoDB store. The backend is selected via Config, mirroring how the
// server is deployed.
package storage
