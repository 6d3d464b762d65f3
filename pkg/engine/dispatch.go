package engine

import (
	"errors"
	"net/http"
	"strings"

	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/storage"
)

// purposeHandler implements the specialized semantics of one endpoint
// purpose. Purposes without a handler fall through to generic CRUD.
type purposeHandler func(e *Engine, x *execution) (*outcome, *Error)

func purposeHandlers() map[string]purposeHandler {
	return map[string]purposeHandler{
		storage.PurposeRegister: (*Engine).executeRegister,
		storage.PurposeLogin:    (*Engine).executeLogin,
	}
}

// dispatch routes an execution to its purpose handler. Specialized purposes
// only answer POST; any other method on such an endpoint degrades to the
// generic path so a GET on a register endpoint still lists the collection.
func (e *Engine) dispatch(x *execution) (*outcome, *Error) {
	if handler, ok := e.purposes[strings.ToLower(x.definition.Purpose)]; ok {
		if strings.EqualFold(x.method, http.MethodPost) {
			return handler(e, x)
		}
	}
	return e.executeCRUD(x)
}

// executeRegister creates a credentialed record in the endpoint's
// collection: uniqueness on email, password hashed at rest, hash stripped
// from the response.
func (e *Engine) executeRegister(x *execution) (*outcome, *Error) {
	if errs := ValidatePayload(x.payload, x.definition.Fields, true); len(errs) > 0 {
		return nil, &Error{
			Kind:    KindValidationFailed,
			Message: "validation failed",
			Details: ValidationDetails(errs),
		}
	}
	email, _ := x.payload["email"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, newError(KindValidationFailed, "email is required")
	}
	if !IsEmail(email) {
		return nil, newError(KindValidationFailed, "email must be a valid email address")
	}

	handle, engErr := e.openCollection(x)
	if engErr != nil {
		return nil, engErr
	}

	if _, err := handle.FindFirst(x.ctx, "email", email); err == nil {
		return nil, newError(KindAlreadyExists, "user already exists")
	} else if !errors.Is(err, storage.ErrNotFound) {
		return nil, wrapError(KindInternal, "storage operation failed", err)
	}

	doc := x.payload.Clone()
	doc["email"] = email
	if password, ok := doc["password"].(string); ok && password != "" {
		hash, err := auth.HashPassword(password)
		if err != nil {
			return nil, wrapError(KindInternal, "failed to hash password", err)
		}
		doc["password"] = hash
	}

	created, err := handle.Insert(x.ctx, doc)
	if err != nil {
		return nil, classifyStorageError(err, "record not found")
	}
	return &outcome{
		status:  http.StatusCreated,
		message: "User registered successfully",
		data:    redactPassword(created),
	}, nil
}

// loginResult is the fixed response shape of the login purpose. It bypasses
// the data envelope so clients read the token at the top level.
type loginResult struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    interface{} `json:"user"`
}

// executeLogin verifies credentials against the endpoint's collection and
// issues a signed session token.
func (e *Engine) executeLogin(x *execution) (*outcome, *Error) {
	email, _ := x.payload["email"].(string)
	password, _ := x.payload["password"].(string)
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, newError(KindInvalidCredentials, "invalid email or password")
	}

	handle, engErr := e.openCollection(x)
	if engErr != nil {
		return nil, engErr
	}

	doc, err := handle.FindFirst(x.ctx, "email", email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, newError(KindInvalidCredentials, "invalid email or password")
		}
		return nil, wrapError(KindInternal, "storage operation failed", err)
	}

	hash, _ := doc["password"].(string)
	if hash == "" || !auth.ComparePassword(password, hash) {
		return nil, newError(KindInvalidCredentials, "invalid email or password")
	}

	name, _ := doc["name"].(string)
	identity := &auth.Identity{
		UserID: doc.ID(),
		Email:  email,
		Name:   name,
	}
	token, err := e.tokens.Issue(identity)
	if err != nil {
		return nil, wrapError(KindInternal, "failed to issue token", err)
	}

	return &outcome{
		status: http.StatusOK,
		direct: loginResult{
			Success: true,
			Message: "Login successful",
			Token:   token,
			User:    redactPassword(doc),
		},
	}, nil
}

func redactPassword(doc storage.Document) storage.Document {
	out := doc.Clone()
	delete(out, "password")
	return out
}
