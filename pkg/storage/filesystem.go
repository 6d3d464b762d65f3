package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/apembroke/switchboard/pkg/auth"
)

// FileSystemBackend implements Backend using the local filesystem.
// Layout under the root directory:
//
//	projects/<id>.json
//	accounts/<id>.json
//	collections/<name>/<docId>.json
type FileSystemBackend struct {
	rootDir string

	mu      sync.Mutex
	watcher *fsnotify.Watcher
}

// NewFileSystemBackend creates a filesystem-based backend rooted at rootDir
func NewFileSystemBackend(rootDir string) (*FileSystemBackend, error) {
	for _, dir := range []string{rootDir, filepath.Join(rootDir, "projects"), filepath.Join(rootDir, "accounts"), filepath.Join(rootDir, "collections")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return &FileSystemBackend{rootDir: rootDir}, nil
}

func (b *FileSystemBackend) projectPath(id string) string {
	return filepath.Join(b.rootDir, "projects", id+".json")
}

func (b *FileSystemBackend) accountPath(id string) string {
	return filepath.Join(b.rootDir, "accounts", id+".json")
}

func writeJSONFile(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func readJSONFile(path string, v interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("failed to unmarshal %s: %w", path, err)
	}
	return nil
}

// CreateProject implements ProjectStore.CreateProject
func (b *FileSystemBackend) CreateProject(ctx context.Context, project *Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := os.Stat(b.projectPath(project.ID)); err == nil {
		return ErrAlreadyExists
	}
	return writeJSONFile(b.projectPath(project.ID), project)
}

// GetProject implements ProjectStore.GetProject
func (b *FileSystemBackend) GetProject(ctx context.Context, id string) (*Project, error) {
	var project Project
	if err := readJSONFile(b.projectPath(id), &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// ListProjects implements ProjectStore.ListProjects
func (b *FileSystemBackend) ListProjects(ctx context.Context) ([]*Project, error) {
	entries, err := os.ReadDir(filepath.Join(b.rootDir, "projects"))
	if err != nil {
		return nil, fmt.Errorf("failed to read projects directory: %w", err)
	}

	var projects []*Project
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var project Project
		if err := readJSONFile(filepath.Join(b.rootDir, "projects", entry.Name()), &project); err != nil {
			return nil, fmt.Errorf("failed to read project %s: %w", entry.Name(), err)
		}
		projects = append(projects, &project)
	}
	sortProjects(projects)
	return projects, nil
}

// UpdateProject implements ProjectStore.UpdateProject
func (b *FileSystemBackend) UpdateProject(ctx context.Context, project *Project) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, err := os.Stat(b.projectPath(project.ID)); err != nil {
		return ErrNotFound
	}
	return writeJSONFile(b.projectPath(project.ID), project)
}

// DeleteProject implements ProjectStore.DeleteProject
func (b *FileSystemBackend) DeleteProject(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := os.Remove(b.projectPath(id)); err != nil {
		if os.IsNotExist(err) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete project %s: %w", id, err)
	}
	return nil
}

// CreateAccount implements AccountStore.CreateAccount
func (b *FileSystemBackend) CreateAccount(ctx context.Context, account *auth.Account) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if existing, err := b.findAccountByEmail(account.Email); err == nil && existing != nil {
		return ErrAlreadyExists
	}
	type persistedAccount struct {
		*auth.Account
		PasswordHash string `json:"passwordHash"`
	}
	return writeJSONFile(b.accountPath(account.ID), &persistedAccount{Account: account, PasswordHash: account.PasswordHash})
}

// GetAccount implements AccountStore.GetAccount
func (b *FileSystemBackend) GetAccount(ctx context.Context, id string) (*auth.Account, error) {
	return b.readAccount(b.accountPath(id))
}

// GetAccountByEmail implements AccountStore.GetAccountByEmail
func (b *FileSystemBackend) GetAccountByEmail(ctx context.Context, email string) (*auth.Account, error) {
	account, err := b.findAccountByEmail(email)
	if err != nil {
		return nil, err
	}
	if account == nil {
		return nil, ErrNotFound
	}
	return account, nil
}

func (b *FileSystemBackend) readAccount(path string) (*auth.Account, error) {
	var raw struct {
		auth.Account
		PasswordHash string `json:"passwordHash"`
	}
	if err := readJSONFile(path, &raw); err != nil {
		return nil, err
	}
	account := raw.Account
	account.PasswordHash = raw.PasswordHash
	return &account, nil
}

func (b *FileSystemBackend) findAccountByEmail(email string) (*auth.Account, error) {
	entries, err := os.ReadDir(filepath.Join(b.rootDir, "accounts"))
	if err != nil {
		return nil, fmt.Errorf("failed to read accounts directory: %w", err)
	}
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		account, err := b.readAccount(filepath.Join(b.rootDir, "accounts", entry.Name()))
		if err != nil {
			return nil, err
		}
		if strings.EqualFold(account.Email, email) {
			return account, nil
		}
	}
	return nil, nil
}

// OpenCollection implements CollectionOpener.OpenCollection
func (b *FileSystemBackend) OpenCollection(ctx context.Context, name string) (CollectionHandle, error) {
	if name == "" {
		return nil, ErrInvalidCollectionName
	}
	dir := filepath.Join(b.rootDir, "collections", name)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create collection directory: %w", err)
	}
	return &fsCollection{name: name, dir: dir}, nil
}

// Ping implements Backend.Ping
func (b *FileSystemBackend) Ping(ctx context.Context) error {
	_, err := os.Stat(b.rootDir)
	return err
}

// Close implements Backend.Close
func (b *FileSystemBackend) Close(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher != nil {
		return b.watcher.Close()
	}
	return nil
}

// WatchCatalog watches the projects directory and invokes onChange when
// project files are written, created, renamed, or removed out of band.
// Used to invalidate the endpoint resolver when the catalog changes on
// disk without going through the management API.
func (b *FileSystemBackend) WatchCatalog(onChange func()) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher != nil {
		return fmt.Errorf("catalog watch already started")
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Join(b.rootDir, "projects")); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch projects directory: %w", err)
	}
	b.watcher = watcher

	go func() {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
					onChange()
				}
			case _, ok := <-watcher.Errors:
				if !ok {
					return
				}
			}
		}
	}()
	return nil
}

// fsCollection stores one JSON file per document
type fsCollection struct {
	name string
	dir  string
	mu   sync.Mutex
}

func (c *fsCollection) Name() string { return c.name }

// docPath maps an identifier to its backing file. Identifiers reach this
// backend straight from request input, so anything that is not a clean
// single path element is rejected rather than joined into the tree.
func (c *fsCollection) docPath(id string) (string, error) {
	if id == "" || id == "." || id == ".." || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidDocumentID, id)
	}
	return filepath.Join(c.dir, id+".json"), nil
}

func (c *fsCollection) Insert(ctx context.Context, doc Document) (Document, error) {
	stamped := StampNew(doc.Clone())
	path, err := c.docPath(stamped.ID())
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := writeJSONFile(path, stamped); err != nil {
		return nil, err
	}
	return stamped, nil
}

func (c *fsCollection) Get(ctx context.Context, id string) (Document, error) {
	path, err := c.docPath(id)
	if err != nil {
		return nil, err
	}
	var doc Document
	if err := readJSONFile(path, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *fsCollection) List(ctx context.Context) ([]Document, error) {
	entries, err := os.ReadDir(c.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read collection directory: %w", err)
	}
	docs := make([]Document, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		var doc Document
		if err := readJSONFile(filepath.Join(c.dir, entry.Name()), &doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, nil
}

func (c *fsCollection) Update(ctx context.Context, id string, doc Document) (Document, error) {
	path, err := c.docPath(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	existing, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	merged := existing.Clone()
	for k, v := range doc {
		if k == DocumentIDField || k == CreatedAtField {
			continue
		}
		merged[k] = v
	}
	StampUpdate(merged)
	if err := writeJSONFile(path, merged); err != nil {
		return nil, err
	}
	return merged, nil
}

func (c *fsCollection) Delete(ctx context.Context, id string) (Document, error) {
	path, err := c.docPath(id)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	doc, err := c.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil {
		return nil, fmt.Errorf("failed to delete document %s: %w", id, err)
	}
	return doc, nil
}

func (c *fsCollection) FindFirst(ctx context.Context, field string, value interface{}) (Document, error) {
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
