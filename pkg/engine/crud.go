package engine

import (
	"context"
	"net/http"
	"strings"

	"github.com/apembroke/switchboard/pkg/storage"
)

// execution carries everything one dispatch needs: the resolved definition,
// the decoded payload, and the candidate identifier extracted from the path
// or query string.
type execution struct {
	ctx        context.Context
	project    *storage.Project
	definition *storage.EndpointDefinition
	method     string
	payload    storage.Document
	trailingID string
	queryID    string
}

// identifier returns the record identifier for item operations, in
// precedence order: trailing path segment, "id" query parameter, payload
// "id", payload "_id".
func (x *execution) identifier() string {
	if x.trailingID != "" {
		return x.trailingID
	}
	if x.queryID != "" {
		return x.queryID
	}
	if id, ok := x.payload["id"].(string); ok && id != "" {
		return id
	}
	if id, ok := x.payload[storage.DocumentIDField].(string); ok && id != "" {
		return id
	}
	return ""
}

// outcome is a successful dispatch result. Most outcomes are wrapped in the
// standard envelope; direct, when set, is written verbatim instead (login
// uses this for its fixed token shape).
type outcome struct {
	status  int
	message string
	data    interface{}
	direct  interface{}
}

// executeCRUD interprets a resolved definition generically, keyed by HTTP
// method. This is the fallback for every purpose without specialized
// dispatch.
func (e *Engine) executeCRUD(x *execution) (*outcome, *Error) {
	handle, engErr := e.openCollection(x)
	if engErr != nil {
		return nil, engErr
	}

	switch strings.ToUpper(x.method) {
	case http.MethodGet:
		return e.crudRead(x, handle)
	case http.MethodPost:
		return e.crudCreate(x, handle)
	case http.MethodPut, http.MethodPatch:
		return e.crudUpdate(x, handle)
	case http.MethodDelete:
		return e.crudDelete(x, handle)
	default:
		return nil, newError(KindMethodNotAllowed, "method not supported for this endpoint")
	}
}

func (e *Engine) openCollection(x *execution) (storage.CollectionHandle, *Error) {
	name := strings.TrimSpace(x.definition.CollectionName)
	if name == "" {
		return nil, newError(KindConfiguration, "endpoint has no collection configured")
	}
	handle, err := e.registry.GetOrCreate(x.ctx, name)
	if err != nil {
		return nil, classifyStorageError(err, "collection not found")
	}
	return handle, nil
}

func (e *Engine) crudRead(x *execution, handle storage.CollectionHandle) (*outcome, *Error) {
	if id := x.identifier(); id != "" {
		doc, err := handle.Get(x.ctx, id)
		if err != nil {
			return nil, classifyStorageError(err, "record not found")
		}
		return &outcome{status: http.StatusOK, message: "Data retrieved successfully", data: doc}, nil
	}
	docs, err := handle.List(x.ctx)
	if err != nil {
		return nil, classifyStorageError(err, "records not found")
	}
	return &outcome{status: http.StatusOK, message: "Data retrieved successfully", data: docs}, nil
}

func (e *Engine) crudCreate(x *execution, handle storage.CollectionHandle) (*outcome, *Error) {
	if errs := ValidatePayload(x.payload, x.definition.Fields, true); len(errs) > 0 {
		return nil, &Error{
			Kind:    KindValidationFailed,
			Message: "validation failed",
			Details: ValidationDetails(errs),
		}
	}
	doc, err := handle.Insert(x.ctx, x.payload.Clone())
	if err != nil {
		return nil, classifyStorageError(err, "record not found")
	}
	return &outcome{status: http.StatusCreated, message: "Data created successfully", data: doc}, nil
}

func (e *Engine) crudUpdate(x *execution, handle storage.CollectionHandle) (*outcome, *Error) {
	id := x.identifier()
	if id == "" {
		return nil, newError(KindMissingIdentifier, "record identifier is required for update")
	}
	if errs := ValidatePayload(x.payload, x.definition.Fields, false); len(errs) > 0 {
		return nil, &Error{
			Kind:    KindValidationFailed,
			Message: "validation failed",
			Details: ValidationDetails(errs),
		}
	}
	updates := x.payload.Clone()
	delete(updates, "id")
	doc, err := handle.Update(x.ctx, id, updates)
	if err != nil {
		return nil, classifyStorageError(err, "record not found")
	}
	return &outcome{status: http.StatusOK, message: "Data updated successfully", data: doc}, nil
}

func (e *Engine) crudDelete(x *execution, handle storage.CollectionHandle) (*outcome, *Error) {
	id := x.identifier()
	if id == "" {
		return nil, newError(KindMissingIdentifier, "record identifier is required for delete")
	}
	doc, err := handle.Delete(x.ctx, id)
	if err != nil {
		return nil, classifyStorageError(err, "record not found")
	}
	return &outcome{status: http.StatusOK, message: "Data deleted successfully", data: doc}, nil
}
