package api

import (
	"strings"

	"github.com/apembroke/switchboard/pkg/storage"
)

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse is returned by register and login. Token sits at the top
// level, matching the shape the dynamic login purpose produces.
type sessionResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Token   string      `json:"token"`
	User    interface{} `json:"user"`
}

type projectRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p *projectRequest) validate() []string {
	var problems []string
	if strings.TrimSpace(p.Name) == "" {
		problems = append(problems, "name is required")
	}
	return problems
}

// endpointRequest is the write shape for endpoint definitions.
type endpointRequest struct {
	Name             string              `json:"name"`
	Description      string              `json:"description"`
	Method           string              `json:"method"`
	Path             string              `json:"path"`
	Purpose          string              `json:"purpose"`
	Auth             bool                `json:"auth"`
	CollectionName   string              `json:"collectionName"`
	Fields           []storage.FieldSpec `json:"fields"`
	CreateCollection bool                `json:"createCollection"`
}

var allowedMethods = map[string]bool{
	"GET":    true,
	"POST":   true,
	"PUT":    true,
	"PATCH":  true,
	"DELETE": true,
}

func (e *endpointRequest) validate() []string {
	var problems []string
	if strings.TrimSpace(e.Name) == "" {
		problems = append(problems, "name is required")
	}
	if !allowedMethods[strings.ToUpper(strings.TrimSpace(e.Method))] {
		problems = append(problems, "method must be one of GET, POST, PUT, PATCH, DELETE")
	}
	if strings.TrimSpace(e.Path) == "" {
		problems = append(problems, "path is required")
	}
	if strings.TrimSpace(e.CollectionName) == "" {
		problems = append(problems, "collectionName is required")
	}
	return problems
}

// generateCrudRequest asks for a full set of CRUD endpoints over one model
type generateCrudRequest struct {
	ModelName string              `json:"modelName"`
	Auth      bool                `json:"auth"`
	Fields    []storage.FieldSpec `json:"fields"`
}

func (g *generateCrudRequest) validate() []string {
	var problems []string
	name := strings.TrimSpace(g.ModelName)
	if name == "" {
		problems = append(problems, "modelName is required")
	} else if strings.ContainsAny(name, "/\\ ") {
		problems = append(problems, "modelName must be a single path segment")
	}
	return problems
}

func (e *endpointRequest) toDefinition(id string) storage.EndpointDefinition {
	return storage.EndpointDefinition{
		ID:               id,
		Name:             strings.TrimSpace(e.Name),
		Description:      strings.TrimSpace(e.Description),
		Method:           strings.ToUpper(strings.TrimSpace(e.Method)),
		Path:             strings.TrimSpace(e.Path),
		Purpose:          strings.ToLower(strings.TrimSpace(e.Purpose)),
		Auth:             e.Auth,
		CollectionName:   strings.TrimSpace(e.CollectionName),
		Fields:           e.Fields,
		CreateCollection: e.CreateCollection,
	}
}
