package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/engine"
	"github.com/apembroke/switchboard/pkg/httputil"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/observability"
	"github.com/apembroke/switchboard/pkg/storage"
)

func newTestServer(t *testing.T) http.Handler {
	t.Helper()
	backend := storage.NewMemoryBackend()
	registry := storage.NewRegistry(backend)
	tokens := auth.NewTokenManager("test-secret", 0)
	gate := middleware.NewGate(tokens)
	log := observability.NewLogger(observability.ErrorLevel, io.Discard)

	resolver, err := engine.NewResolver(backend, "", 0, nil)
	require.NoError(t, err)
	eng := engine.New(engine.Config{
		Resolver: resolver,
		Registry: registry,
		Gate:     gate,
		Tokens:   tokens,
		Logger:   log,
	})

	server := NewServer(Config{
		Backend:  backend,
		Registry: registry,
		Engine:   eng,
		Gate:     gate,
		Tokens:   tokens,
		Logger:   log,
		Health:   observability.NewHealthChecker("test"),
	})
	return server.Handler()
}

func request(t *testing.T, handler http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func decodeSession(t *testing.T, rec *httptest.ResponseRecorder) sessionResponse {
	t.Helper()
	var session sessionResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &session))
	return session
}

func registerAccount(t *testing.T, handler http.Handler, email string) string {
	t.Helper()
	rec := request(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": email, "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	session := decodeSession(t, rec)
	require.NotEmpty(t, session.Token)
	return session.Token
}

func TestAccountRegisterAndLogin(t *testing.T) {
	handler := newTestServer(t)

	token := registerAccount(t, handler, "ada@example.com")

	// Duplicate registration is rejected.
	rec := request(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "hunter22",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Login with wrong password fails.
	rec = request(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Login with correct credentials returns a fresh session.
	rec = request(t, handler, http.MethodPost, "/auth/login", "", map[string]string{
		"email": "ada@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusOK, rec.Code)
	session := decodeSession(t, rec)
	assert.True(t, session.Success)
	assert.NotEmpty(t, session.Token)

	// The session resolves the account.
	rec = request(t, handler, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	account := env.Data.(map[string]interface{})
	assert.Equal(t, "ada@example.com", account["email"])
	assert.NotContains(t, account, "passwordHash")
}

func TestAccountRegisterValidation(t *testing.T) {
	handler := newTestServer(t)

	rec := request(t, handler, http.MethodPost, "/auth/register", "", map[string]string{
		"email": "not-an-email",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Contains(t, env.Details, "name is required")
	assert.Contains(t, env.Details, "email must be a valid email address")
	assert.Contains(t, env.Details, "password is required")
}

func TestManagementRoutesAnswerUnderAPIPrefix(t *testing.T) {
	handler := newTestServer(t)

	rec := request(t, handler, http.MethodPost, "/api/auth/register", "", map[string]string{
		"name": "Ada", "email": "ada@example.com", "password": "hunter22",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := decodeSession(t, rec).Token

	rec = request(t, handler, http.MethodGet, "/api/auth/me", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, handler, http.MethodGet, "/api/projects", token, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectCRUDRequiresAuth(t *testing.T) {
	handler := newTestServer(t)
	rec := request(t, handler, http.MethodGet, "/projects", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestProjectLifecycle(t *testing.T) {
	handler := newTestServer(t)
	token := registerAccount(t, handler, "owner@example.com")

	// Create.
	rec := request(t, handler, http.MethodPost, "/projects", token, map[string]string{
		"name": "widget shop", "description": "demo",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	project := env.Data.(map[string]interface{})
	projectID := project["id"].(string)
	require.NotEmpty(t, projectID)

	// List includes it.
	rec = request(t, handler, http.MethodGet, "/projects", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)

	// Another account cannot see or touch it.
	stranger := registerAccount(t, handler, "stranger@example.com")
	rec = request(t, handler, http.MethodGet, "/projects/"+projectID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = request(t, handler, http.MethodDelete, "/projects/"+projectID, stranger, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// Update.
	rec = request(t, handler, http.MethodPut, "/projects/"+projectID, token, map[string]string{
		"name": "renamed",
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// Delete.
	rec = request(t, handler, http.MethodDelete, "/projects/"+projectID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = request(t, handler, http.MethodGet, "/projects/"+projectID, token, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEndpointLifecycleAndDynamicDispatch(t *testing.T) {
	handler := newTestServer(t)
	token := registerAccount(t, handler, "owner@example.com")

	rec := request(t, handler, http.MethodPost, "/projects", token, map[string]string{"name": "shop"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	projectID := env.Data.(map[string]interface{})["id"].(string)

	// Invalid definition is rejected.
	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/endpoints", token, map[string]interface{}{
		"name": "bad", "method": "TRACE", "path": "", "collectionName": "",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Create two definitions over one collection.
	create := map[string]interface{}{
		"name": "create widget", "method": "POST", "path": "/widgets",
		"collectionName": "widgets", "createCollection": true,
		"fields": []map[string]interface{}{{"name": "title", "type": "String", "required": true}},
	}
	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/endpoints", token, create)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	createID := env.Data.(map[string]interface{})["id"].(string)

	list := map[string]interface{}{
		"name": "list widgets", "method": "GET", "path": "/widgets", "collectionName": "widgets",
	}
	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/endpoints", token, list)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The persisted definitions serve real traffic immediately.
	rec = request(t, handler, http.MethodPost, "/api/widgets", "", map[string]string{"title": "first"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = request(t, handler, http.MethodGet, "/widgets", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)

	// Updating a definition takes effect on the next request.
	create["path"] = "/gadgets"
	rec = request(t, handler, http.MethodPut, "/projects/"+projectID+"/endpoints/"+createID, token, create)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, handler, http.MethodPost, "/api/widgets", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = request(t, handler, http.MethodPost, "/api/gadgets", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusCreated, rec.Code)

	// Deleting a definition removes the route.
	rec = request(t, handler, http.MethodDelete, "/projects/"+projectID+"/endpoints/"+createID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = request(t, handler, http.MethodPost, "/api/gadgets", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	// The list endpoint still works.
	rec = request(t, handler, http.MethodGet, "/widgets", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGenerateCRUDEndpoints(t *testing.T) {
	handler := newTestServer(t)
	token := registerAccount(t, handler, "owner@example.com")

	rec := request(t, handler, http.MethodPost, "/projects", token, map[string]string{"name": "tracker"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	projectID := env.Data.(map[string]interface{})["id"].(string)

	// A bad model name is rejected before anything is written.
	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/generate-crud", token, map[string]interface{}{
		"modelName": "two words",
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/generate-crud", token, map[string]interface{}{
		"modelName": "Task",
		"fields":    []map[string]interface{}{{"name": "title", "type": "String", "required": true}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 4)

	// The generated definitions serve traffic for the lowercased model.
	rec = request(t, handler, http.MethodPost, "/api/task", "", map[string]string{"title": "ship it"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	taskID := env.Data.(map[string]interface{})["_id"].(string)

	rec = request(t, handler, http.MethodGet, "/api/task", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)

	rec = request(t, handler, http.MethodPut, "/api/task/"+taskID, "", map[string]string{"title": "shipped"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = request(t, handler, http.MethodDelete, "/api/task/"+taskID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Declared fields apply to generated create endpoints too.
	rec = request(t, handler, http.MethodPost, "/api/task", "", map[string]string{"note": "no title"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestStaticRoutesWinOverDynamic(t *testing.T) {
	handler := newTestServer(t)
	token := registerAccount(t, handler, "owner@example.com")

	rec := request(t, handler, http.MethodPost, "/projects", token, map[string]string{"name": "sneaky"})
	require.Equal(t, http.StatusCreated, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	projectID := env.Data.(map[string]interface{})["id"].(string)

	// A definition claiming a management route never shadows it.
	rec = request(t, handler, http.MethodPost, "/projects/"+projectID+"/endpoints", token, map[string]interface{}{
		"name": "shadow", "method": "GET", "path": "/auth/me", "collectionName": "shadow",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = request(t, handler, http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	account := env.Data.(map[string]interface{})
	assert.Equal(t, "owner@example.com", account["email"])
}

func TestHealthRoutes(t *testing.T) {
	handler := newTestServer(t)

	rec := request(t, handler, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = request(t, handler, http.MethodGet, "/ready", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUnknownRouteReturnsEnvelope(t *testing.T) {
	handler := newTestServer(t)

	rec := request(t, handler, http.MethodGet, "/definitely/not/registered", "", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
	var env httputil.Envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.False(t, env.Success)
}
