package middleware

import (
	"errors"
	"net/http"

	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/contextkeys"
	"github.com/apembroke/switchboard/pkg/httputil"
)

var (
	// ErrCredentialMissing indicates no bearer credential was supplied
	ErrCredentialMissing = errors.New("missing authorization header")
	// ErrCredentialInvalid indicates the credential failed verification
	ErrCredentialInvalid = errors.New("invalid or expired token")
)

// TokenVerifier verifies a bearer credential and resolves its identity
type TokenVerifier interface {
	Verify(token string) (*auth.Identity, error)
}

// Gate enforces bearer authentication
type Gate struct {
	verifier TokenVerifier
}

// NewGate creates an authentication gate over the given verifier
func NewGate(verifier TokenVerifier) *Gate {
	return &Gate{verifier: verifier}
}

// Authenticate extracts and verifies the request's bearer credential.
// Returns ErrCredentialMissing when the header is absent or malformed and
// ErrCredentialInvalid when verification fails.
func (g *Gate) Authenticate(r *http.Request) (*auth.Identity, error) {
	token := httputil.BearerToken(r)
	if token == "" {
		return nil, ErrCredentialMissing
	}
	identity, err := g.verifier.Verify(token)
	if err != nil {
		return nil, ErrCredentialInvalid
	}
	return identity, nil
}

// Handler wraps an HTTP handler with mandatory authentication. On success
// the resolved identity is attached to the request context.
func (g *Gate) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		identity, err := g.Authenticate(r)
		if err != nil {
			httputil.WriteUnauthorized(w, err.Error())
			return
		}
		ctx := contextkeys.WithIdentity(r.Context(), identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// IdentityFromRequest extracts the authenticated identity from a request,
// or nil when the request was not authenticated
func IdentityFromRequest(r *http.Request) *auth.Identity {
	v := r.Context().Value(contextkeys.IdentityKey)
	if v == nil {
		return nil
	}
	identity, ok := v.(*auth.Identity)
	if !ok {
		return nil
	}
	return identity
}
