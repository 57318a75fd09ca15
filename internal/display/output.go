// Package display renders roles, permissions, and status messages to the
// terminal.
package display

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"

	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
)

// Colors holds the color configurations for different output types
type Colors struct {
	Success *color.Color
	Error   *color.Color
	Warning *color.Color
	Info    *color.Color
	Header  *color.Color
	Dim     *color.Color
}

// NewColors creates a new Colors instance with default color settings
func NewColors() *Colors {
	return &Colors{
		Success: color.New(color.FgGreen, color.Bold),
		Error:   color.New(color.FgRed, color.Bold),
		Warning: color.New(color.FgYellow, color.Bold),
		Info:    color.New(color.FgCyan, color.Bold),
		Header:  color.New(color.FgCyan, color.Bold),
		Dim:     color.New(color.Faint),
	}
}

// Successf prints a success line with a check mark.
func (c *Colors) Successf(format string, args ...any) {
	c.Success.Print("✓ ")
	fmt.Printf(format+"\n", args...)
}

// Errorf prints an error line.
func (c *Colors) Errorf(format string, args ...any) {
	c.Error.Print("✗ Error: ")
	fmt.Printf(format+"\n", args...)
}

// Warnf prints a warning line.
func (c *Colors) Warnf(format string, args ...any) {
	c.Warning.Print("⚠ ")
	fmt.Printf(format+"\n", args...)
}

// Infof prints an informational line.
func (c *Colors) Infof(format string, args ...any) {
	c.Info.Print("ℹ ")
	fmt.Printf(format+"\n", args...)
}

// PrintRoleSummary shows the role name, description, and permission counts.
func (c *Colors) PrintRoleSummary(role *models.RoleDefinition) {
	fmt.Println()
	c.Header.Println("Role Summary")
	fmt.Printf("  Name: %s\n", role.Name)
	fmt.Printf("  Description: %s\n", role.Description)
	fmt.Printf("  Control Plane Actions: %d\n", role.ControlCount())
	fmt.Printf("  Data Plane Actions: %d\n", role.DataCount())
}

// PrintRoleDetails shows the full role including grouped permissions. When
// showAll is false, long groups are truncated.
func (c *Colors) PrintRoleDetails(role *models.RoleDefinition, showAll bool) {
	rule := strings.Repeat("═", 39)
	fmt.Println()
	c.Header.Println(rule)
	c.Header.Println(role.Name)
	c.Header.Println(rule)
	fmt.Printf("Description: %s\n", role.Description)
	fmt.Printf("ID: %s\n", role.Id)
	fmt.Printf("Type: %s\n", role.Type)
	fmt.Printf("Created: %s\n", role.CreatedOn)
	fmt.Printf("Updated: %s\n", role.UpdatedOn)
	fmt.Printf("Assignable Scopes: %s\n", strings.Join(role.AssignableScopes, ", "))

	fmt.Println()
	c.Header.Println("Permissions:")
	for i := range role.Permissions {
		if len(role.Permissions) > 1 {
			fmt.Println()
			c.Info.Printf("Block %d\n", i+1)
		}
		c.PrintPermissionSet(&role.Permissions[i], showAll)
	}
}

// PrintPermissionSet prints all four lists of a permission block grouped by
// provider namespace.
func (c *Colors) PrintPermissionSet(set *models.PermissionSet, showAll bool) {
	c.PrintGroupedPermissions("Actions", set.Actions, showAll, 10)
	c.PrintGroupedPermissions("Not Actions", set.NotActions, showAll, 5)
	c.PrintGroupedPermissions("Data Actions", set.DataActions, showAll, 5)
	c.PrintGroupedPermissions("Not Data Actions", set.NotDataActions, showAll, 5)
}

// PrintGroupedPermissions prints one permission list grouped by namespace
// (e.g. Microsoft.Storage/storageAccounts), truncating each group at limit
// unless showAll is set. Empty lists print nothing.
func (c *Colors) PrintGroupedPermissions(title string, permissions []string, showAll bool, limit int) {
	if len(permissions) == 0 {
		return
	}

	fmt.Printf("  %s (%d)\n", title, len(permissions))
	grouped := groupByNamespace(permissions)

	namespaces := make([]string, 0, len(grouped))
	for ns := range grouped {
		namespaces = append(namespaces, ns)
	}
	sort.Strings(namespaces)

	for _, ns := range namespaces {
		perms := grouped[ns]
		sort.Strings(perms)
		c.Info.Printf("    %s", ns)
		fmt.Printf(" (%d)\n", len(perms))

		shown := perms
		if !showAll && len(perms) > limit {
			shown = perms[:limit]
		}
		for _, perm := range shown {
			fmt.Printf("      • %s\n", perm)
		}
		if len(perms) > len(shown) {
			c.Dim.Printf("      ... and %d more\n", len(perms)-len(shown))
		}
	}
}

// PrintMergeReport summarizes a merge: per-source counts and unresolved
// names.
func (c *Colors) PrintMergeReport(report *roles.MergeReport) {
	for _, src := range report.Sources {
		fmt.Printf("  %s (%s): %d added, %d duplicate\n", src.Name, src.Origin, src.Added, src.Skipped)
	}
	if len(report.Unresolved) > 0 {
		c.Warnf("Roles not found (local or Azure): %s", strings.Join(report.Unresolved, ", "))
	}
}

// PrintTable renders rows as aligned columns with a colored header.
func (c *Colors) PrintTable(title string, headers []string, rows [][]string) {
	fmt.Println()
	if title != "" {
		c.Header.Println(title)
	}

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	printRow := func(cells []string, col *color.Color) {
		parts := make([]string, len(cells))
		for i, cell := range cells {
			parts[i] = fmt.Sprintf("%-*s", widths[i], cell)
		}
		line := "  " + strings.Join(parts, "  ")
		if col != nil {
			col.Println(strings.TrimRight(line, " "))
		} else {
			fmt.Println(strings.TrimRight(line, " "))
		}
	}

	printRow(headers, c.Info)
	for _, row := range rows {
		printRow(row, nil)
	}
}

func groupByNamespace(permissions []string) map[string][]string {
	grouped := make(map[string][]string)
	for _, perm := range permissions {
		parts := strings.Split(perm, "/")
		ns := parts[0]
		if len(parts) >= 2 {
			ns = parts[0] + "/" + parts[1]
		}
		grouped[ns] = append(grouped[ns], perm)
	}
	return grouped
}
