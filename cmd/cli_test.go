package cmd

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathwro/azrole/internal/config"
	"github.com/mathwro/azrole/internal/display"
	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
)

func newTestCLI(t *testing.T) *CLI {
	t.Helper()
	store, err := roles.NewManager(filepath.Join(t.TempDir(), "roles"))
	require.NoError(t, err)
	return &CLI{
		cfg:     &config.Config{RolesDir: store.Dir()},
		store:   store,
		colors:  display.NewColors(),
		session: &Session{},
	}
}

func saveRole(t *testing.T, c *CLI, name string, actions ...string) {
	t.Helper()
	role := models.NewRoleDefinition(name, "")
	role.PermissionSet().Actions = actions
	_, err := c.store.SaveToDir(role, false)
	require.NoError(t, err)
}

func TestDispatchCreateSetsSessionRole(t *testing.T) {
	c := newTestCLI(t)

	err := c.Dispatch(context.Background(), []string{"create", "--name", "Demo Role", "--description", "demo"})
	require.NoError(t, err)

	require.NotNil(t, c.session.Role)
	assert.Equal(t, "Demo Role", c.session.Role.Name)
	assert.Equal(t, "demo", c.session.Role.Description)
}

func TestDispatchSaveAndLoadRoundTrip(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()

	require.NoError(t, c.Dispatch(ctx, []string{"create", "Round Trip"}))
	c.session.Role.PermissionSet().Actions = []string{"Microsoft.Storage/read"}
	require.NoError(t, c.Dispatch(ctx, []string{"save", "--name", "Round Trip"}))

	c.session.Role = nil
	require.NoError(t, c.Dispatch(ctx, []string{"load", "Round Trip"}))

	require.NotNil(t, c.session.Role)
	assert.Equal(t, "Round Trip", c.session.Role.Name)
	assert.Equal(t, []string{"Microsoft.Storage/read"}, c.session.Role.PermissionSet().Actions)
}

func TestDispatchMergeFromLocalRoles(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	saveRole(t, c, "reader", "Microsoft.Storage/read", "Microsoft.Compute/read")
	saveRole(t, c, "writer", "Microsoft.Storage/write", "Microsoft.Storage/read")

	require.NoError(t, c.Dispatch(ctx, []string{"create", "Combined"}))
	require.NoError(t, c.Dispatch(ctx, []string{"merge", "reader,writer", "--filter", "Microsoft.Storage*"}))

	assert.Equal(t, []string{"Microsoft.Storage/read", "Microsoft.Storage/write"},
		c.session.Role.PermissionSet().Actions)
}

func TestDispatchMergeWithoutCurrentRole(t *testing.T) {
	c := newTestCLI(t)
	saveRole(t, c, "reader", "A/read")

	err := c.Dispatch(context.Background(), []string{"merge", "reader"})
	assert.Error(t, err)
}

func TestDispatchRemoveRequiresFilter(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, []string{"create", "Target"}))

	err := c.Dispatch(ctx, []string{"remove"})
	assert.Error(t, err)
}

func TestDispatchRemoveByPattern(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, []string{"create", "Target"}))
	c.session.Role.PermissionSet().Actions = []string{"A/read", "A/write"}

	require.NoError(t, c.Dispatch(ctx, []string{"remove", "--filter", "*write*"}))
	assert.Equal(t, []string{"A/read"}, c.session.Role.PermissionSet().Actions)
}

func TestDispatchSetCommands(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	require.NoError(t, c.Dispatch(ctx, []string{"create", "Mutable"}))

	require.NoError(t, c.Dispatch(ctx, []string{"set-name", "--name", "Renamed"}))
	assert.Equal(t, "Renamed", c.session.Role.Name)

	require.NoError(t, c.Dispatch(ctx, []string{"set-description", "--description", "new text"}))
	assert.Equal(t, "new text", c.session.Role.Description)

	require.NoError(t, c.Dispatch(ctx, []string{"set-scopes", "--scopes", "/subscriptions/a,/subscriptions/b"}))
	assert.Equal(t, []string{"/subscriptions/a", "/subscriptions/b"}, c.session.Role.AssignableScopes)
}

func TestDispatchDeleteWithForce(t *testing.T) {
	c := newTestCLI(t)
	ctx := context.Background()
	saveRole(t, c, "doomed", "A/read")

	require.NoError(t, c.Dispatch(ctx, []string{"delete", "doomed", "--force"}))

	names, err := c.store.List()
	require.NoError(t, err)
	assert.Empty(t, names)
}

func TestDispatchUnknownCommand(t *testing.T) {
	c := newTestCLI(t)
	err := c.Dispatch(context.Background(), []string{"frobnicate"})
	assert.Error(t, err)
}

func TestResolveSingle(t *testing.T) {
	value, err := resolveSingle("flagged", "", "name", "role name")
	require.NoError(t, err)
	assert.Equal(t, "flagged", value)

	value, err = resolveSingle("", "positional", "name", "role name")
	require.NoError(t, err)
	assert.Equal(t, "positional", value)

	value, err = resolveSingle("same", "same", "name", "role name")
	require.NoError(t, err)
	assert.Equal(t, "same", value)

	_, err = resolveSingle("a", "b", "name", "role name")
	assert.Error(t, err)

	_, err = resolveSingle("", "", "name", "role name")
	assert.Error(t, err)
}

func TestBuildFilter(t *testing.T) {
	f, err := buildFilter("Microsoft.Storage*", "control")
	require.NoError(t, err)
	assert.Equal(t, filter.PlaneControl, f.Plane())
	assert.True(t, f.MatchString("Microsoft.Storage/read"))

	_, err = buildFilter("", "bogus")
	assert.Error(t, err)
}

func TestRequireSubscription(t *testing.T) {
	c := newTestCLI(t)

	_, err := c.requireSubscription("")
	assert.Error(t, err)

	c.session.SubscriptionID = "sub-from-session"
	id, err := c.requireSubscription("")
	require.NoError(t, err)
	assert.Equal(t, "sub-from-session", id)

	id, err = c.requireSubscription("override")
	require.NoError(t, err)
	assert.Equal(t, "override", id)
}
