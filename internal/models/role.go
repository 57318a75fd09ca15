// Package models defines the Azure custom role definition model and the
// permission set merge/remove engine that operates on it.
package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mathwro/azrole/internal/filter"
)

// RoleType is the fixed type tag for tool-managed role definitions.
const RoleType = "CustomRole"

// RoleDefinition is an Azure custom role definition. The JSON shape is a
// compatibility contract: files are committed to version control and
// re-loaded later or published to Azure, so field names match Azure's role
// definition schema exactly.
type RoleDefinition struct {
	Name             string          `json:"Name"`
	IsCustom         bool            `json:"IsCustom"`
	Description      string          `json:"Description"`
	Type             string          `json:"Type"`
	Id               string          `json:"Id,omitempty"`
	Permissions      []PermissionSet `json:"Permissions"`
	AssignableScopes []string        `json:"AssignableScopes"`
	CreatedOn        string          `json:"CreatedOn,omitempty"`
	UpdatedOn        string          `json:"UpdatedOn,omitempty"`
}

// NewRoleDefinition creates an empty role: one empty permission set, default
// assignable scope "/", a generated ID, and both timestamps set to now.
func NewRoleDefinition(name, description string) *RoleDefinition {
	now := timestamp()
	return &RoleDefinition{
		Name:             name,
		IsCustom:         true,
		Description:      description,
		Type:             RoleType,
		Id:               fmt.Sprintf("custom-%.8s", uuid.New().String()),
		Permissions:      []PermissionSet{{}},
		AssignableScopes: []string{"/"},
		CreatedOn:        now,
		UpdatedOn:        now,
	}
}

// PermissionSet returns the role's working permission block, creating it if
// the role has none. The tool operates on a single block per role; roles
// loaded from Azure may carry more, and merge/remove walk all of them.
func (r *RoleDefinition) PermissionSet() *PermissionSet {
	if len(r.Permissions) == 0 {
		r.Permissions = []PermissionSet{{}}
	}
	return &r.Permissions[0]
}

// Touch refreshes UpdatedOn. Every mutating operation calls it.
func (r *RoleDefinition) Touch() {
	r.UpdatedOn = timestamp()
}

// Normalize deduplicates every permission block and replaces nil slices with
// empty ones. Applied on load and save paths so the no-duplicates and
// all-lists-present invariants hold regardless of where a role came from.
func (r *RoleDefinition) Normalize() {
	if r.Permissions == nil {
		r.Permissions = []PermissionSet{}
	}
	if r.AssignableScopes == nil {
		r.AssignableScopes = []string{}
	}
	for i := range r.Permissions {
		r.Permissions[i].Deduplicate()
	}
}

// MergeFrom merges the permissions of src (all of its blocks) into this
// role's working permission set, honoring the filter, and refreshes
// UpdatedOn.
func (r *RoleDefinition) MergeFrom(src *RoleDefinition, f filter.Filter) MergeResult {
	dst := r.PermissionSet()
	var res MergeResult
	for i := range src.Permissions {
		res.Combine(dst.MergeFrom(&src.Permissions[i], f))
	}
	r.Touch()
	return res
}

// RemoveMatching removes matching permissions from every block and refreshes
// UpdatedOn. Removing nothing is a valid outcome.
func (r *RoleDefinition) RemoveMatching(f filter.Filter) RemoveResult {
	var res RemoveResult
	for i := range r.Permissions {
		block := r.Permissions[i].RemoveMatching(f)
		res.Removed += block.Removed
	}
	r.Touch()
	return res
}

// ControlCount returns the total control-plane entries across all blocks.
func (r *RoleDefinition) ControlCount() int {
	n := 0
	for i := range r.Permissions {
		n += r.Permissions[i].ControlCount()
	}
	return n
}

// DataCount returns the total data-plane entries across all blocks.
func (r *RoleDefinition) DataCount() int {
	n := 0
	for i := range r.Permissions {
		n += r.Permissions[i].DataCount()
	}
	return n
}

// FileName returns the conventional on-disk name for the role: lower-cased,
// spaces replaced with dashes, ".json" suffix.
func (r *RoleDefinition) FileName() string {
	return RoleFileName(r.Name)
}

// RoleFileName converts a role name to its on-disk file name.
func RoleFileName(name string) string {
	slug := strings.ReplaceAll(strings.ToLower(name), " ", "-")
	if !strings.HasSuffix(slug, ".json") {
		slug += ".json"
	}
	return slug
}

func timestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}
