package engine

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/apembroke/switchboard/pkg/auth"
	"github.com/apembroke/switchboard/pkg/contextkeys"
	"github.com/apembroke/switchboard/pkg/httputil"
	"github.com/apembroke/switchboard/pkg/middleware"
	"github.com/apembroke/switchboard/pkg/observability"
	"github.com/apembroke/switchboard/pkg/storage"
)

// TokenIssuer mints session credentials for the login purpose.
// *auth.TokenManager satisfies it.
type TokenIssuer interface {
	Issue(identity *auth.Identity) (string, error)
}

// Engine executes dynamic endpoints. It is an http.Handler: requests that
// resolve to a definition are interpreted here, and everything else is
// handed to the fallback handler.
type Engine struct {
	resolver *Resolver
	registry *storage.Registry
	gate     *middleware.Gate
	tokens   TokenIssuer
	log      *observability.Logger
	metrics  *observability.Metrics
	next     http.Handler
	purposes map[string]purposeHandler
}

// Config wires an Engine.
type Config struct {
	Resolver *Resolver
	Registry *storage.Registry
	Gate     *middleware.Gate
	Tokens   TokenIssuer
	Logger   *observability.Logger
	Metrics  *observability.Metrics

	// Next receives requests matching no endpoint definition. When nil the
	// engine answers them with a 404 envelope itself.
	Next http.Handler
}

// New builds an Engine from its collaborators.
func New(cfg Config) *Engine {
	if cfg.Logger == nil {
		cfg.Logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Engine{
		resolver: cfg.Resolver,
		registry: cfg.Registry,
		gate:     cfg.Gate,
		tokens:   cfg.Tokens,
		log:      cfg.Logger,
		metrics:  cfg.Metrics,
		next:     cfg.Next,
		purposes: purposeHandlers(),
	}
}

// Invalidate drops the engine's resolution memo. Callers invoke it after
// any catalog mutation.
func (e *Engine) Invalidate() {
	e.resolver.Invalidate()
}

func (e *Engine) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	res, err := e.resolver.Resolve(r.Context(), r.Method, r.URL.Path)
	if err != nil {
		if errors.Is(err, ErrNoMatch) {
			e.fallthroughRequest(w, r)
			return
		}
		e.log.WithError(err).Error("endpoint resolution failed")
		httputil.WriteInternalError(w, errors.New("failed to resolve endpoint"))
		return
	}

	def := res.Definition
	log := e.log.WithFields(map[string]interface{}{
		"endpoint":   def.Name,
		"purpose":    def.Purpose,
		"collection": def.CollectionName,
		"project":    res.Project.ID,
	})

	start := time.Now()
	out, engErr := e.execute(w, r, res)
	e.observeDispatch(r.Method, def.Purpose, engErr, time.Since(start))

	if engErr != nil {
		if engErr.Kind == KindInternal || engErr.Kind == KindConfiguration {
			log.WithError(engErr).Error("endpoint execution failed")
		} else {
			log.WithField("kind", string(engErr.Kind)).Debug("endpoint request rejected")
		}
		httputil.WriteError(w, engErr.Kind.HTTPStatus(), engErr.Message, engErr.Details...)
		return
	}
	if out == nil {
		// The auth gate already wrote the response.
		return
	}

	if out.direct != nil {
		httputil.WriteJSON(w, out.status, out.direct)
		return
	}
	httputil.WriteSuccess(w, out.status, out.message, out.data)
}

// execute runs the full pipeline for a resolved request: payload decode,
// auth gate, purpose dispatch. A nil outcome with a nil error means a
// response was already written.
func (e *Engine) execute(w http.ResponseWriter, r *http.Request, res *Resolution) (*outcome, *Error) {
	payload, err := e.decodePayload(r)
	if err != nil {
		return nil, wrapError(KindValidationFailed, "request body must be valid JSON", err)
	}

	ctx := r.Context()
	if res.Definition.Auth {
		identity, err := e.gate.Authenticate(r)
		if err != nil {
			if errors.Is(err, middleware.ErrCredentialMissing) {
				return nil, newError(KindAuthRequired, "authentication required")
			}
			return nil, newError(KindAuthInvalid, "invalid or expired token")
		}
		ctx = contextkeys.WithIdentity(ctx, identity)
	}

	x := &execution{
		ctx:        ctx,
		project:    res.Project,
		definition: res.Definition,
		method:     r.Method,
		payload:    payload,
		trailingID: res.TrailingID,
		queryID:    r.URL.Query().Get("id"),
	}
	return e.dispatch(x)
}

func (e *Engine) decodePayload(r *http.Request) (storage.Document, error) {
	switch strings.ToUpper(r.Method) {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		raw, err := httputil.ParsePayload(r)
		if err != nil {
			return nil, err
		}
		return storage.Document(raw), nil
	default:
		return storage.Document{}, nil
	}
}

func (e *Engine) fallthroughRequest(w http.ResponseWriter, r *http.Request) {
	if e.next != nil {
		e.next.ServeHTTP(w, r)
		return
	}
	httputil.WriteNotFound(w, "no endpoint matches this route")
}

func (e *Engine) observeDispatch(method, purpose string, engErr *Error, elapsed time.Duration) {
	if e.metrics == nil {
		return
	}
	if purpose == "" {
		purpose = "crud"
	}
	label := "success"
	if engErr != nil {
		label = string(engErr.Kind)
	}
	e.metrics.DispatchTotal.WithLabelValues(method, purpose, label).Inc()
	e.metrics.DispatchDuration.WithLabelValues(method, purpose).Observe(elapsed.Seconds())
}
