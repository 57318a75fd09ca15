// Package roles manages the local role definition store and the merge
// orchestration across local and remote role sources.
package roles

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/mathwro/azrole/internal/models"
)

// ErrNotFound is returned when a role cannot be resolved by name. Resolvers
// report it so the caller can fall through to the next source in the chain.
var ErrNotFound = errors.New("role not found")

// ErrExists is returned when saving would overwrite an existing file without
// permission to do so.
var ErrExists = errors.New("file already exists")

// Manager owns the local roles directory: JSON role definition files, one
// per role, committed to version control.
type Manager struct {
	dir string
}

// NewManager creates a manager rooted at dir, creating the directory if
// needed.
func NewManager(dir string) (*Manager, error) {
	if dir == "" {
		dir = "roles"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create roles directory %s: %w", dir, err)
	}
	return &Manager{dir: dir}, nil
}

// Dir returns the roles directory path.
func (m *Manager) Dir() string { return m.dir }

// Path returns the on-disk path a role name maps to.
func (m *Manager) Path(name string) string {
	return filepath.Join(m.dir, models.RoleFileName(name))
}

// Load reads a role definition from an explicit file path.
func (m *Manager) Load(path string) (*models.RoleDefinition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("role file %s: %w", path, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to read role file %s: %w", path, err)
	}

	var role models.RoleDefinition
	if err := json.Unmarshal(data, &role); err != nil {
		return nil, fmt.Errorf("invalid JSON in role file %s: %w", path, err)
	}

	role.Normalize()
	return &role, nil
}

// LoadByName reads a role from the roles directory by name (or filename).
func (m *Manager) LoadByName(name string) (*models.RoleDefinition, error) {
	return m.Load(m.Path(name))
}

// Save writes a role to an explicit path, normalizing it and refreshing
// UpdatedOn. Unless overwrite is set, an existing file is an error.
func (m *Manager) Save(role *models.RoleDefinition, path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%s: %w", path, ErrExists)
		}
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	role.Normalize()
	role.Touch()
	data, err := json.MarshalIndent(role, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode role %s: %w", role.Name, err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write role file %s: %w", path, err)
	}
	return nil
}

// SaveToDir writes a role into the roles directory under its conventional
// file name and returns the path used.
func (m *Manager) SaveToDir(role *models.RoleDefinition, overwrite bool) (string, error) {
	path := m.Path(role.Name)
	if err := m.Save(role, path, overwrite); err != nil {
		return "", err
	}
	return path, nil
}

// List returns the names of all roles in the directory, sorted.
func (m *Manager) List() ([]string, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read roles directory %s: %w", m.dir, err)
	}

	var names []string
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, strings.TrimSuffix(entry.Name(), ".json"))
	}
	sort.Strings(names)
	return names, nil
}

// Delete removes a role file by name. It reports false when no such role
// exists.
func (m *Manager) Delete(name string) (bool, error) {
	path := m.Path(name)
	if err := os.Remove(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete role file %s: %w", path, err)
	}
	return true, nil
}
