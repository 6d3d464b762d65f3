package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// SeedFile declares projects and endpoint definitions loaded at startup.
// Useful for bootstrapping a deployment or running a demo catalog without
// going through the management API first.
type SeedFile struct {
	Projects []*Project `yaml:"projects"`
}

// LoadSeed reads and parses a YAML seed file
func LoadSeed(path string) (*SeedFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file: %w", err)
	}
	var seed SeedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		return nil, fmt.Errorf("failed to parse seed file: %w", err)
	}
	return &seed, nil
}

// ApplySeed creates seeded projects that do not already exist. Existing
// projects are left untouched so a restart never clobbers live edits.
func ApplySeed(ctx context.Context, store ProjectStore, seed *SeedFile) (int, error) {
	created := 0
	for _, project := range seed.Projects {
		if project.ID == "" {
			project.ID = uuid.NewString()
		}
		if project.CreatedAt.IsZero() {
			project.CreatedAt = time.Now().UTC()
		}
		project.UpdatedAt = project.CreatedAt
		for i := range project.Endpoints {
			if project.Endpoints[i].ID == "" {
				project.Endpoints[i].ID = uuid.NewString()
			}
		}

		err := store.CreateProject(ctx, project)
		if errors.Is(err, ErrAlreadyExists) {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed project %s: %w", project.Name, err)
		}
		created++
	}
	return created, nil
}
