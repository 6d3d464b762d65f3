package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/engine"
	"github.com/apembroke/switchboard/pkg/httputil"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/storage"
)

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Name = strings.TrimSpace(req.Name)

	var problems []string
	if req.Name == "" {
		problems = append(problems, "name is required")
	}
	if req.Email == "" {
		problems = append(problems, "email is required")
	} else if !engine.IsEmail(req.Email) {
		problems = append(problems, "email must be a valid email address")
	}
	if req.Password == "" {
		problems = append(problems, "password is required")
	}
	if len(problems) > 0 {
		httputil.WriteBadRequest(w, "validation failed", problems...)
		return
	}

	if _, err := s.backend.GetAccountByEmail(r.Context(), req.Email); err == nil {
		httputil.WriteBadRequest(w, "user already exists")
		return
	} else if !errors.Is(err, storage.ErrNotFound) {
		s.log.WithError(err).Error("account lookup failed")
		httputil.WriteInternalError(w, errors.New("failed to register"))
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.log.WithError(err).Error("password hashing failed")
		httputil.WriteInternalError(w, errors.New("failed to register"))
		return
	}

	now := time.Now().UTC()
	account := &auth.Account{
		ID:           uuid.NewString(),
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.backend.CreateAccount(r.Context(), account); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			httputil.WriteBadRequest(w, "user already exists")
			return
		}
		s.log.WithError(err).Error("account creation failed")
		httputil.WriteInternalError(w, errors.New("failed to register"))
		return
	}

	token, err := s.tokens.Issue(account.Summary())
	if err != nil {
		s.log.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w, errors.New("failed to register"))
		return
	}

	s.log.WithField("account", account.ID).Info("account registered")
	httputil.WriteJSON(w, http.StatusCreated, sessionResponse{
		Success: true,
		Message: "User registered successfully",
		Token:   token,
		User:    account.Summary(),
	})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		httputil.WriteUnauthorized(w, "invalid email or password")
		return
	}

	account, err := s.backend.GetAccountByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			httputil.WriteUnauthorized(w, "invalid email or password")
			return
		}
		s.log.WithError(err).Error("account lookup failed")
		httputil.WriteInternalError(w, errors.New("failed to log in"))
		return
	}
	if !auth.ComparePassword(req.Password, account.PasswordHash) {
		httputil.WriteUnauthorized(w, "invalid email or password")
		return
	}

	token, err := s.tokens.Issue(account.Summary())
	if err != nil {
		s.log.WithError(err).Error("token issuance failed")
		httputil.WriteInternalError(w, errors.New("failed to log in"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, sessionResponse{
		Success: true,
		Message: "Login successful",
		Token:   token,
		User:    account.Summary(),
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	identity := middleware.IdentityFromRequest(r)
	if identity == nil {
		httputil.WriteUnauthorized(w, "authentication required")
		return
	}

	account, err := s.backend.GetAccount(r.Context(), identity.UserID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			// Token is valid but the account is gone; treat as stale session.
			httputil.WriteUnauthorized(w, "account no longer exists")
			return
		}
		s.log.WithError(err).Error("account lookup failed")
		httputil.WriteInternalError(w, errors.New("failed to load account"))
		return
	}
	httputil.WriteOK(w, "Account retrieved successfully", account)
}
