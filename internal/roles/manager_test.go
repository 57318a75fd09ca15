package roles

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathwro/azrole/internal/models"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "roles"))
	require.NoError(t, err)
	return m
}

func TestNewManagerCreatesDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "roles")

	m, err := NewManager(dir)
	require.NoError(t, err)
	assert.Equal(t, dir, m.Dir())

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	m := newTestManager(t)
	role := models.NewRoleDefinition("Storage Reader", "reads storage")
	role.PermissionSet().Actions = []string{"Microsoft.Storage/storageAccounts/read"}

	path, err := m.SaveToDir(role, false)
	require.NoError(t, err)
	assert.Equal(t, m.Path("Storage Reader"), path)

	loaded, err := m.LoadByName("Storage Reader")
	require.NoError(t, err)
	assert.Equal(t, role.Name, loaded.Name)
	assert.Equal(t, role.Id, loaded.Id)
	assert.Equal(t, []string{"Microsoft.Storage/storageAccounts/read"}, loaded.PermissionSet().Actions)
}

func TestLoadNormalizesDuplicates(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(m.Dir(), "dup.json")
	data := `{"Name":"Dup","IsCustom":true,"Type":"CustomRole",
		"Permissions":[{"Actions":["A/read","a/READ"],"NotActions":[],"DataActions":[],"NotDataActions":[]}],
		"AssignableScopes":["/"]}`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	role, err := m.Load(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"A/read"}, role.PermissionSet().Actions)
}

func TestSaveWritesEmptyListsAsArrays(t *testing.T) {
	m := newTestManager(t)
	role := models.NewRoleDefinition("Empty Role", "")

	path, err := m.SaveToDir(role, false)
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	perms, ok := raw["Permissions"].([]any)
	require.True(t, ok)
	require.Len(t, perms, 1)
	block, ok := perms[0].(map[string]any)
	require.True(t, ok)
	for _, field := range []string{"Actions", "NotActions", "DataActions", "NotDataActions"} {
		assert.Equal(t, []any{}, block[field], field)
	}
}

func TestLoadMissingFileIsNotFound(t *testing.T) {
	m := newTestManager(t)

	_, err := m.LoadByName("nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoadInvalidJSON(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(m.Dir(), "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := m.Load(path)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
}

func TestSaveRefusesOverwriteWithoutFlag(t *testing.T) {
	m := newTestManager(t)
	role := models.NewRoleDefinition("Clash", "")

	_, err := m.SaveToDir(role, false)
	require.NoError(t, err)

	_, err = m.SaveToDir(role, false)
	assert.ErrorIs(t, err, ErrExists)

	_, err = m.SaveToDir(role, true)
	assert.NoError(t, err)
}

func TestListReturnsSortedNames(t *testing.T) {
	m := newTestManager(t)
	for _, name := range []string{"zeta", "alpha", "Mid Role"} {
		_, err := m.SaveToDir(models.NewRoleDefinition(name, ""), false)
		require.NoError(t, err)
	}
	// Non-JSON files are ignored.
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), "notes.txt"), []byte("x"), 0o644))

	names, err := m.List()
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha", "mid-role", "zeta"}, names)
}

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	_, err := m.SaveToDir(models.NewRoleDefinition("Doomed", ""), false)
	require.NoError(t, err)

	deleted, err := m.Delete("Doomed")
	require.NoError(t, err)
	assert.True(t, deleted)

	deleted, err = m.Delete("Doomed")
	require.NoError(t, err)
	assert.False(t, deleted)
}
