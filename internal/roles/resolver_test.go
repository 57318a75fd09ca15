package roles

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
)

// stubResolver serves roles from a map and records which names were asked for.
type stubResolver struct {
	origin string
	roles  map[string]*models.RoleDefinition
	err    error
	errs   map[string]error
	asked  []string
}

func (s *stubResolver) Origin() string { return s.origin }

func (s *stubResolver) ResolveByName(_ context.Context, name string) (*models.RoleDefinition, error) {
	s.asked = append(s.asked, name)
	if err, ok := s.errs[name]; ok {
		return nil, err
	}
	if s.err != nil {
		return nil, s.err
	}
	if role, ok := s.roles[name]; ok {
		return role, nil
	}
	return nil, ErrNotFound
}

func roleWithActions(name string, actions ...string) *models.RoleDefinition {
	return &models.RoleDefinition{
		Name:        name,
		Permissions: []models.PermissionSet{{Actions: actions}},
	}
}

func TestMergeResolvesThroughChainInOrder(t *testing.T) {
	local := &stubResolver{origin: "local", roles: map[string]*models.RoleDefinition{
		"reader": roleWithActions("reader", "A/read"),
	}}
	remote := &stubResolver{origin: "azure", roles: map[string]*models.RoleDefinition{
		"reader": roleWithActions("reader", "SHOULD/not/be/used"),
		"writer": roleWithActions("writer", "A/write"),
	}}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"reader", "writer"}, filter.Filter{}, local, remote)
	require.NoError(t, err)

	// Local wins for "reader"; "writer" falls through to the remote.
	require.Len(t, report.Sources, 2)
	assert.Equal(t, "local", report.Sources[0].Origin)
	assert.Equal(t, "azure", report.Sources[1].Origin)
	assert.Equal(t, []string{"A/read", "A/write"}, dst.PermissionSet().Actions)
	assert.Equal(t, 2, report.Added)
}

func TestMergeReportsUnresolvedNames(t *testing.T) {
	local := &stubResolver{origin: "local", roles: map[string]*models.RoleDefinition{
		"known": roleWithActions("known", "A/read"),
	}}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"known", "ghost"}, filter.Filter{}, local)
	require.NoError(t, err)

	assert.Equal(t, []string{"ghost"}, report.Unresolved)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, "known", report.Sources[0].Name)
}

func TestMergeFailsWhenNothingResolves(t *testing.T) {
	local := &stubResolver{origin: "local"}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"ghost"}, filter.Filter{}, local)

	assert.ErrorIs(t, err, ErrNotFound)
	require.NotNil(t, report)
	assert.Equal(t, []string{"ghost"}, report.Unresolved)
}

func TestMergeAbortsOnResolverFailure(t *testing.T) {
	boom := errors.New("credential expired")
	remote := &stubResolver{origin: "azure", err: boom}

	dst := models.NewRoleDefinition("Combined", "")
	_, err := Merge(context.Background(), dst, []string{"anything"}, filter.Filter{}, remote)

	assert.ErrorIs(t, err, boom)
}

func TestMergeReturnsPartialReportOnFailure(t *testing.T) {
	boom := errors.New("request throttled")
	local := &stubResolver{
		origin: "local",
		roles: map[string]*models.RoleDefinition{
			"first": roleWithActions("first", "A/read"),
		},
		errs: map[string]error{"second": boom},
	}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"first", "second"}, filter.Filter{}, local)

	assert.ErrorIs(t, err, boom)
	// "first" was already merged into dst; the report must say so.
	require.NotNil(t, report)
	require.Len(t, report.Sources, 1)
	assert.Equal(t, "first", report.Sources[0].Name)
	assert.Equal(t, 1, report.Added)
	assert.Equal(t, []string{"A/read"}, dst.PermissionSet().Actions)
}

func TestMergeAppliesFilterPerSource(t *testing.T) {
	local := &stubResolver{origin: "local", roles: map[string]*models.RoleDefinition{
		"mixed": roleWithActions("mixed",
			"Microsoft.Storage/read",
			"Microsoft.Compute/read"),
	}}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"mixed"},
		filter.New("Microsoft.Storage*", filter.PlaneAny), local)
	require.NoError(t, err)

	assert.Equal(t, 1, report.Added)
	assert.Equal(t, []string{"Microsoft.Storage/read"}, dst.PermissionSet().Actions)
}

func TestMergePerSourceCounts(t *testing.T) {
	local := &stubResolver{origin: "local", roles: map[string]*models.RoleDefinition{
		"a": roleWithActions("a", "X/read", "X/write"),
		"b": roleWithActions("b", "X/read", "Y/read"),
	}}

	dst := models.NewRoleDefinition("Combined", "")
	report, err := Merge(context.Background(), dst, []string{"a", "b"}, filter.Filter{}, local)
	require.NoError(t, err)

	require.Len(t, report.Sources, 2)
	assert.Equal(t, 2, report.Sources[0].Added)
	assert.Equal(t, 0, report.Sources[0].Skipped)
	assert.Equal(t, 1, report.Sources[1].Added)
	assert.Equal(t, 1, report.Sources[1].Skipped)
	assert.Equal(t, 3, report.Added)
	assert.Equal(t, 1, report.Skipped)
}

func TestManagerImplementsResolver(t *testing.T) {
	m := newTestManager(t)
	_, err := m.SaveToDir(models.NewRoleDefinition("Local Role", ""), false)
	require.NoError(t, err)

	var r Resolver = m
	assert.Equal(t, "local", r.Origin())

	role, err := r.ResolveByName(context.Background(), "Local Role")
	require.NoError(t, err)
	assert.Equal(t, "Local Role", role.Name)

	_, err = r.ResolveByName(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
