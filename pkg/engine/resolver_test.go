package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/apembroke/switchboard/pkg/storage"
)

func seedCatalog(t *testing.T, backend *storage.MemoryBackend, projects ...*storage.Project) {
	t.Helper()
	for _, p := range projects {
		require.NoError(t, backend.CreateProject(context.Background(), p))
	}
}

func catalogProject(id string, createdAt time.Time, endpoints ...storage.EndpointDefinition) *storage.Project {
	return &storage.Project{
		ID:        id,
		Name:      "project-" + id,
		Endpoints: endpoints,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

func TestResolverExactMatch(t *testing.T) {
	backend := storage.NewMemoryBackend()
	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "e1", Name: "list widgets", Method: "GET", Path: "/widgets", CollectionName: "widgets"},
	))

	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "GET", "/widgets")
	require.NoError(t, err)
	assert.Equal(t, "e1", res.Definition.ID)
	assert.Equal(t, "p1", res.Project.ID)
	assert.Empty(t, res.TrailingID)
}

func TestResolverPathSpellingsMatch(t *testing.T) {
	backend := storage.NewMemoryBackend()
	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "e1", Method: "GET", Path: "widgets", CollectionName: "widgets"},
	))

	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	for _, path := range []string{"/widgets", "/widgets/", "/api/widgets", "widgets"} {
		res, err := r.Resolve(context.Background(), "get", path)
		require.NoError(t, err, "path %q", path)
		assert.Equal(t, "e1", res.Definition.ID)
	}
}

func TestResolverTrailingIdentifier(t *testing.T) {
	backend := storage.NewMemoryBackend()
	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "get", Method: "GET", Path: "/widgets", CollectionName: "widgets"},
		storage.EndpointDefinition{ID: "del", Method: "DELETE", Path: "/widgets", CollectionName: "widgets"},
		storage.EndpointDefinition{ID: "post", Method: "POST", Path: "/widgets", CollectionName: "widgets"},
	))

	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "GET", "/widgets/abc-123")
	require.NoError(t, err)
	assert.Equal(t, "get", res.Definition.ID)
	assert.Equal(t, "abc-123", res.TrailingID)

	res, err = r.Resolve(context.Background(), "DELETE", "/api/widgets/abc-123")
	require.NoError(t, err)
	assert.Equal(t, "del", res.Definition.ID)
	assert.Equal(t, "abc-123", res.TrailingID)

	// POST never addresses items through a trailing segment.
	_, err = r.Resolve(context.Background(), "POST", "/widgets/abc-123")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolverExactMatchWinsOverTrailing(t *testing.T) {
	backend := storage.NewMemoryBackend()
	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "parent", Method: "GET", Path: "/widgets", CollectionName: "widgets"},
		storage.EndpointDefinition{ID: "exact", Method: "GET", Path: "/widgets/special", CollectionName: "widgets"},
	))

	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "GET", "/widgets/special")
	require.NoError(t, err)
	assert.Equal(t, "exact", res.Definition.ID)
	assert.Empty(t, res.TrailingID)
}

func TestResolverNoMatch(t *testing.T) {
	backend := storage.NewMemoryBackend()
	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	_, err = r.Resolve(context.Background(), "GET", "/nothing")
	assert.ErrorIs(t, err, ErrNoMatch)

	// Method mismatch is a miss even when the path exists.
	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "e1", Method: "POST", Path: "/things", CollectionName: "things"},
	))
	r.Invalidate()
	_, err = r.Resolve(context.Background(), "GET", "/things")
	assert.ErrorIs(t, err, ErrNoMatch)
}

func TestResolverCollisionsFavorOlderProject(t *testing.T) {
	backend := storage.NewMemoryBackend()
	older := time.Now().Add(-time.Hour)
	seedCatalog(t, backend,
		catalogProject("newer", time.Now(),
			storage.EndpointDefinition{ID: "new-def", Method: "GET", Path: "/shared", CollectionName: "b"}),
		catalogProject("elder", older,
			storage.EndpointDefinition{ID: "old-def", Method: "GET", Path: "/shared", CollectionName: "a"}),
	)

	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	res, err := r.Resolve(context.Background(), "GET", "/shared")
	require.NoError(t, err)
	assert.Equal(t, "old-def", res.Definition.ID)
}

func TestResolverCachesUntilInvalidated(t *testing.T) {
	backend := storage.NewMemoryBackend()
	r, err := NewResolver(backend, "", 0, nil)
	require.NoError(t, err)

	// Misses are memoized too.
	_, err = r.Resolve(context.Background(), "GET", "/widgets")
	require.ErrorIs(t, err, ErrNoMatch)
	assert.Equal(t, 1, r.CacheLen())

	seedCatalog(t, backend, catalogProject("p1", time.Now(),
		storage.EndpointDefinition{ID: "e1", Method: "GET", Path: "/widgets", CollectionName: "widgets"},
	))

	// Still a miss until the memo is dropped.
	_, err = r.Resolve(context.Background(), "GET", "/widgets")
	assert.ErrorIs(t, err, ErrNoMatch)

	r.Invalidate()
	assert.Zero(t, r.CacheLen())

	res, err := r.Resolve(context.Background(), "GET", "/widgets")
	require.NoError(t, err)
	assert.Equal(t, "e1", res.Definition.ID)
}
