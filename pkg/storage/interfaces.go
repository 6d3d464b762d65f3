package storage

import (
	"context"
	"errors"
	"time"

	"github.com/apembroke/switchboard/pkg/auth"
)

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("not found")
	// ErrAlreadyExists indicates a uniqueness conflict on create
	ErrAlreadyExists = errors.New("already exists")
	// ErrInvalidCollectionName indicates an empty or unusable collection name
	ErrInvalidCollectionName = errors.New("invalid collection name")
	// ErrInvalidDocumentID indicates an identifier unusable as a storage key
	ErrInvalidDocumentID = errors.New("invalid document identifier")
)

// ProjectStore persists the endpoint catalog
type ProjectStore interface {
	CreateProject(ctx context.Context, project *Project) error
	GetProject(ctx context.Context, id string) (*Project, error)
	// ListProjects returns all projects ordered by creation time, then ID,
	// so endpoint resolution scans in a deterministic order.
	ListProjects(ctx context.Context) ([]*Project, error)
	UpdateProject(ctx context.Context, project *Project) error
	DeleteProject(ctx context.Context, id string) error
}

// AccountStore persists platform accounts
type AccountStore interface {
	CreateAccount(ctx context.Context, account *auth.Account) error
	GetAccount(ctx context.Context, id string) (*auth.Account, error)
	GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error)
}

// CollectionHandle is a runtime reference to one schema-optional named
// document store. Handles are obtained through the Registry and remain
// valid for the process lifetime.
type CollectionHandle interface {
	Name() string
	Insert(ctx context.Context, doc Document) (Document, error)
	Get(ctx context.Context, id string) (Document, error)
	List(ctx context.Context) ([]Document, error)
	Update(ctx context.Context, id string, doc Document) (Document, error)
	Delete(ctx context.Context, id string) (Document, error)
	// FindFirst returns the first document whose field equals value, or
	// ErrNotFound. Used for email lookups by the register/login purposes.
	FindFirst(ctx context.Context, field string, value interface{}) (Document, error)
}

// CollectionOpener materializes collection handles on demand
type CollectionOpener interface {
	OpenCollection(ctx context.Context, name string) (CollectionHandle, error)
}

// Backend is a complete storage implementation
type Backend interface {
	ProjectStore
	AccountStore
	CollectionOpener

	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}

// Config selects and parameterizes the storage backend
type Config struct {
	Type string // "memory", "filesystem", "mongo"

	// Filesystem config
	FilesystemRoot string

	// MongoDB config
	MongoURI      string
	MongoDatabase string
	MongoTimeout  time.Duration
}

// DefaultConfig returns sensible default configuration
func DefaultConfig() Config {
	return Config{
		Type:           "memory",
		FilesystemRoot: "/tmp/switchboard",
		MongoDatabase:  "switchboard",
		MongoTimeout:   10 * time.Second,
	}
}
