package storage

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apembroke/switchboard/pkg/auth"
)

// MemoryBackend is an in-process Backend used by tests and dev mode
type MemoryBackend struct {
	mu          sync.RWMutex
	projects    map[string]*Project
	accounts    map[string]*auth.Account
	collections map[string]*memoryCollection
}

// NewMemoryBackend creates an empty in-memory backend
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		projects:    make(map[string]*Project),
		accounts:    make(map[string]*auth.Account),
		collections: make(map[string]*memoryCollection),
	}
}

// CreateProject implements ProjectStore.CreateProject
func (b *MemoryBackend) CreateProject(ctx context.Context, project *Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[project.ID]; ok {
		return ErrAlreadyExists
	}
	b.projects[project.ID] = project.Clone()
	return nil
}

// GetProject implements ProjectStore.GetProject
func (b *MemoryBackend) GetProject(ctx context.Context, id string) (*Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	project, ok := b.projects[id]
	if !ok {
		return nil, ErrNotFound
	}
	return project.Clone(), nil
}

// ListProjects implements ProjectStore.ListProjects
func (b *MemoryBackend) ListProjects(ctx context.Context) ([]*Project, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	projects := make([]*Project, 0, len(b.projects))
	for _, p := range b.projects {
		projects = append(projects, p.Clone())
	}
	sortProjects(projects)
	return projects, nil
}

// UpdateProject implements ProjectStore.UpdateProject
func (b *MemoryBackend) UpdateProject(ctx context.Context, project *Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[project.ID]; !ok {
		return ErrNotFound
	}
	b.projects[project.ID] = project.Clone()
	return nil
}

// DeleteProject implements ProjectStore.DeleteProject
func (b *MemoryBackend) DeleteProject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.projects[id]; !ok {
		return ErrNotFound
	}
	delete(b.projects, id)
	return nil
}

// CreateAccount implements AccountStore.CreateAccount
func (b *MemoryBackend) CreateAccount(ctx context.Context, account *auth.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range b.accounts {
		if strings.EqualFold(a.Email, account.Email) {
			return ErrAlreadyExists
		}
	}
	cp := *account
	b.accounts[account.ID] = &cp
	return nil
}

// GetAccount implements AccountStore.GetAccount
func (b *MemoryBackend) GetAccount(ctx context.Context, id string) (*auth.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	account, ok := b.accounts[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *account
	return &cp, nil
}

// GetAccountByEmail implements AccountStore.GetAccountByEmail
func (b *MemoryBackend) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.accounts {
		if strings.EqualFold(a.Email, email) {
			cp := *a
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// OpenCollection implements CollectionOpener.OpenCollection
func (b *MemoryBackend) OpenCollection(ctx context.Context, name string) (CollectionHandle, error) {
	if name == "" {
		return nil, ErrInvalidCollectionName
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if c, ok := b.collections[name]; ok {
		return c, nil
	}
	c := &memoryCollection{name: name, docs: make(map[string]Document)}
	b.collections[name] = c
	return c, nil
}

// Ping implements Backend.Ping
func (b *MemoryBackend) Ping(ctx context.Context) error { return nil }

// Close implements Backend.Close
func (b *MemoryBackend) Close(ctx context.Context) error { return nil }

// sortProjects orders by creation time, then ID, for deterministic scans
func sortProjects(projects []*Project) {
	sort.Slice(projects, func(i, j int) bool {
		if !projects[i].CreatedAt.Equal(projects[j].CreatedAt) {
			return projects[i].CreatedAt.Before(projects[j].CreatedAt)
		}
		return projects[i].ID < projects[j].ID
	})
}

// memoryCollection is a schema-optional in-memory document store
type memoryCollection struct {
	name string
	mu   sync.RWMutex
	docs map[string]Document
}

func (c *memoryCollection) Name() string { return c.name }

func (c *memoryCollection) Insert(ctx context.Context, doc Document) (Document, error) {
	stamped := StampNew(doc.Clone())
	c.mu.Lock()
	c.docs[stamped.ID()] = stamped
	c.mu.Unlock()
	return stamped.Clone(), nil
}

func (c *memoryCollection) Get(ctx context.Context, id string) (Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return doc.Clone(), nil
}

func (c *memoryCollection) List(ctx context.Context) ([]Document, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	docs := make([]Document, 0, len(c.docs))
	for _, d := range c.docs {
		docs = append(docs, d.Clone())
	}
	sort.Slice(docs, func(i, j int) bool {
		ti, iok := docs[i][CreatedAtField].(time.Time)
		tj, jok := docs[j][CreatedAtField].(time.Time)
		if iok && jok && !ti.Equal(tj) {
			return ti.Before(tj)
		}
		return docs[i].ID() < docs[j].ID()
	})
	return docs, nil
}

func (c *memoryCollection) Update(ctx context.Context, id string, doc Document) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	merged := existing.Clone()
	for k, v := range doc {
		if k == DocumentIDField || k == CreatedAtField {
			continue
		}
		merged[k] = v
	}
	StampUpdate(merged)
	c.docs[id] = merged
	return merged.Clone(), nil
}

func (c *memoryCollection) Delete(ctx context.Context, id string) (Document, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, ok := c.docs[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(c.docs, id)
	return doc.Clone(), nil
}

func (c *memoryCollection) FindFirst(ctx context.Context, field string, value interface{}) (Document, error) {
	docs, err := c.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, d := range docs {
		if d[field] == value {
			return d, nil
		}
	}
	return nil, ErrNotFound
}
