package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apembroke/switchboard/pkg/httputil"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/storage"
)

// loadOwnedProject fetches a project and enforces ownership. Writes the
// error response itself and returns nil when the caller should stop.
func (s *Server) loadOwnedProject(w http.ResponseWriter, r *http.Request) *storage.Project {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return nil
	}
	id, ok := httputil.ParsePathStringOrError(w, r, "id")
	if !ok {
		return nil
	}
	project, err := s.backend.GetProject(r.Context(), id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteNotFound(w, "project not found")
			return nil
		}
		s.log.WithError(err).Error("project lookup failed")
		httputil.WriteInternalError(w, errors.New("failed to load project"))
		return nil
	}
	if project.OwnerID != "" && project.OwnerID != identity.UserID {
		// Hide other owners' projects rather than acknowledging them.
		httputil.WriteNotFound(w, "project not found")
		return nil
	}
	return project
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	projects, err := s.backend.ListProjects(r.Context())
	if err != nil {
		s.log.WithError(err).Error("project listing failed")
		httputil.WriteInternalError(w, errors.New("failed to list projects"))
		return
	}
	owned := make([]*storage.Project, 0, len(projects))
	for _, p := range projects {
		if p.OwnerID == "" || p.OwnerID == identity.UserID {
			owned = append(owned, p)
		}
	}
	httputil.WriteOK(w, "Projects retrieved successfully", owned)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}
	var req projectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	now := time.Now().UTC()
	project := &storage.Project{
		ID:          uuid.NewString(),
		Name:        req.Name,
		Description: req.Description,
		OwnerID:     identity.UserID,
		Endpoints:   []storage.EndpointDefinition{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.backend.CreateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("project creation failed")
		httputil.WriteInternalError(w, errors.New("failed to create project"))
		return
	}
	s.log.WithField("project", project.ID).Info("project created")
	httputil.WriteCreated(w, "Project created successfully", project)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	httputil.WriteOK(w, "Project retrieved successfully", project)
}

func (s *Server) handleUpdateProject(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	var req projectRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	project.Name = req.Name
	project.Description = req.Description
	project.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("project update failed")
		httputil.WriteInternalError(w, errors.New("failed to update project"))
		return
	}
	httputil.WriteOK(w, "Project updated successfully", project)
}

func (s *Server) handleDeleteProject(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	if err := s.backend.DeleteProject(r.Context(), project.ID); err != nil {
		s.log.WithError(err).Error("project deletion failed")
		httputil.WriteInternalError(w, errors.New("failed to delete project"))
		return
	}
	s.invalidateCatalog()
	s.log.WithField("project", project.ID).Info("project deleted")
	httputil.WriteOK(w, "Project deleted successfully", project)
}

func (s *Server) handleListEndpoints(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	httputil.WriteOK(w, "Endpoints retrieved successfully", project.Endpoints)
}

func (s *Server) handleCreateEndpoint(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	var req endpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	def := req.toDefinition(uuid.NewString())
	project.Endpoints = append(project.Endpoints, def)
	if def.CreateCollection && !project.HasCollection(def.CollectionName) {
		if _, err := s.reg.GetOrCreate(r.Context(), def.CollectionName); err != nil {
			if errors.Is(err, storage.ErrInvalidCollectionName) {
				httputil.WriteBadRequest(w, "invalid collection name")
				return
			}
			s.log.WithError(err).Error("collection creation failed")
			httputil.WriteInternalError(w, errors.New("failed to create collection"))
			return
		}
		project.Collections = append(project.Collections, def.CollectionName)
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("endpoint creation failed")
		httputil.WriteInternalError(w, errors.New("failed to create endpoint"))
		return
	}
	s.invalidateCatalog()
	s.log.WithFields(map[string]interface{}{
		"project":  project.ID,
		"endpoint": def.ID,
		"method":   def.Method,
		"path":     def.Path,
	}).Info("endpoint created")
	httputil.WriteCreated(w, "Endpoint created successfully", def)
}

// handleGenerateCRUD bulk-adds the standard CRUD endpoints for one model.
// Reads route through the same GET definition, which also answers
// item lookups by trailing identifier.
func (s *Server) handleGenerateCRUD(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	var req generateCrudRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	model := strings.ToLower(strings.TrimSpace(req.ModelName))
	path := "/" + model
	specs := []struct {
		method, purpose, desc string
	}{
		{http.MethodGet, storage.PurposeList, "Get all " + model},
		{http.MethodPost, storage.PurposeCreate, "Create " + model},
		{http.MethodPut, storage.PurposeUpdate, "Update " + model},
		{http.MethodDelete, storage.PurposeDelete, "Delete " + model},
	}

	generated := make([]storage.EndpointDefinition, 0, len(specs))
	for _, sp := range specs {
		generated = append(generated, storage.EndpointDefinition{
			ID:             uuid.NewString(),
			Name:           sp.purpose + " " + model,
			Description:    sp.desc,
			Method:         sp.method,
			Path:           path,
			Purpose:        sp.purpose,
			Auth:           req.Auth,
			CollectionName: model,
			Fields:         req.Fields,
		})
	}
	project.Endpoints = append(project.Endpoints, generated...)
	if !project.HasCollection(model) {
		if _, err := s.reg.GetOrCreate(r.Context(), model); err != nil {
			if errors.Is(err, storage.ErrInvalidCollectionName) {
				httputil.WriteBadRequest(w, "invalid collection name")
				return
			}
			s.log.WithError(err).Error("collection creation failed")
			httputil.WriteInternalError(w, errors.New("failed to create collection"))
			return
		}
		project.Collections = append(project.Collections, model)
	}
	project.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("crud generation failed")
		httputil.WriteInternalError(w, errors.New("failed to generate endpoints"))
		return
	}
	s.invalidateCatalog()
	s.log.WithFields(map[string]interface{}{
		"project": project.ID,
		"model":   model,
	}).Info("crud endpoints generated")
	httputil.WriteCreated(w, "CRUD endpoints generated", generated)
}

func (s *Server) handleUpdateEndpoint(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	endpointID, ok := httputil.ParsePathStringOrError(w, r, "endpointID")
	if !ok {
		return
	}
	existing := project.FindEndpoint(endpointID)
	if existing == nil {
		httputil.WriteNotFound(w, "endpoint not found")
		return
	}

	var req endpointRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if problems := req.validate(); len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	*existing = req.toDefinition(endpointID)
	project.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("endpoint update failed")
		httputil.WriteInternalError(w, errors.New("failed to update endpoint"))
		return
	}
	s.invalidateCatalog()
	httputil.WriteOK(w, "Endpoint updated successfully", existing)
}

func (s *Server) handleDeleteEndpoint(w http.ResponseWriter, r *http.Request) {
	project := s.loadOwnedProject(w, r)
	if project == nil {
		return
	}
	endpointID, ok := httputil.ParsePathStringOrError(w, r, "endpointID")
	if !ok {
		return
	}

	idx := -1
	for i := range project.Endpoints {
		if project.Endpoints[i].ID == endpointID {
			idx = i
			break
		}
	}
	if idx < 0 {
		httputil.WriteNotFound(w, "endpoint not found")
		return
	}
	removed := project.Endpoints[idx]
	project.Endpoints = append(project.Endpoints[:idx], project.Endpoints[idx+1:]...)
	project.UpdatedAt = time.Now().UTC()
	if err := s.backend.UpdateProject(r.Context(), project); err != nil {
		s.log.WithError(err).Error("endpoint deletion failed")
		httputil.WriteInternalError(w, errors.New("failed to delete endpoint"))
		return
	}
	s.invalidateCatalog()
	httputil.WriteOK(w, "Endpoint deleted successfully", removed)
}
