package azure

import (
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"

	"github.com/mathwro/azrole/internal/models"
)

// fromARM converts an ARM role definition into the local model. The display
// name (RoleName) becomes Name; the resource name (a GUID) becomes Id.
func fromARM(def *armauthorization.RoleDefinition) *models.RoleDefinition {
	role := &models.RoleDefinition{
		Type:             models.RoleType,
		AssignableScopes: []string{"/"},
	}
	if def == nil {
		return role
	}

	role.Id = deref(def.Name)
	props := def.Properties
	if props == nil {
		return role
	}

	role.Name = deref(props.RoleName)
	if role.Name == "" {
		role.Name = deref(def.Name)
	}
	role.Description = deref(props.Description)
	if rt := deref(props.RoleType); rt != "" {
		role.Type = rt
	}
	role.IsCustom = role.Type == models.RoleType

	if len(props.AssignableScopes) > 0 {
		role.AssignableScopes = derefSlice(props.AssignableScopes)
	}
	for _, perm := range props.Permissions {
		if perm == nil {
			continue
		}
		role.Permissions = append(role.Permissions, models.PermissionSet{
			Actions:        derefSlice(perm.Actions),
			NotActions:     derefSlice(perm.NotActions),
			DataActions:    derefSlice(perm.DataActions),
			NotDataActions: derefSlice(perm.NotDataActions),
		})
	}
	if len(role.Permissions) == 0 {
		role.Permissions = []models.PermissionSet{{}}
	}

	role.Normalize()
	return role
}

func toARMPermissions(sets []models.PermissionSet) []*armauthorization.Permission {
	perms := make([]*armauthorization.Permission, 0, len(sets))
	for i := range sets {
		set := &sets[i]
		perms = append(perms, &armauthorization.Permission{
			Actions:        toPtrSlice(set.Actions),
			NotActions:     toPtrSlice(set.NotActions),
			DataActions:    toPtrSlice(set.DataActions),
			NotDataActions: toPtrSlice(set.NotDataActions),
		})
	}
	return perms
}

func toPtrSlice(values []string) []*string {
	out := make([]*string, 0, len(values))
	for _, v := range values {
		out = append(out, to.Ptr(v))
	}
	return out
}

func derefSlice(values []*string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != nil {
			out = append(out, *v)
		}
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
