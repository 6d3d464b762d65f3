// Package api serves the management plane: platform account auth, project
// and endpoint-definition CRUD, and operational routes (health, readiness,
// metrics). Every other request falls through to the dynamic execution
// engine, so statically-registered routes always win over persisted ones.
package api
