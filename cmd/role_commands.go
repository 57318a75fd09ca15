package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
)

func (c *CLI) runCreate(nameArg, nameFlag, description string) error {
	name := nameFlag
	if name == "" {
		name = nameArg
	}
	if nameFlag != "" && nameArg != "" && nameFlag != nameArg {
		return fmt.Errorf("conflicting values provided: use either --name or positional role name, not both")
	}
	if name == "" {
		var err error
		name, err = c.promptText("Role name")
		if err != nil {
			return err
		}
		if name == "" {
			return fmt.Errorf("role name cannot be empty")
		}
	}

	role := models.NewRoleDefinition(name, description)
	c.session.Role = role
	c.session.RoleFile = ""

	c.colors.Successf("Created new role: %s", role.Name)
	fmt.Printf("  Description: %s\n", role.Description)
	fmt.Printf("  ID: %s\n", role.Id)
	fmt.Println("\nUse 'merge' command to add permissions from existing roles.")
	return nil
}

// runLoad resolves a role in fixed order: direct file path, local roles
// directory, then Azure when a subscription is available.
func (c *CLI) runLoad(ctx context.Context, nameArg, nameFlag, roleDir, subscriptionID string) error {
	name, err := resolveSingle(nameFlag, nameArg, "name", "role name")
	if err != nil {
		return err
	}

	store, err := c.storeFor(roleDir)
	if err != nil {
		return err
	}

	// Direct file path wins.
	if info, statErr := os.Stat(name); statErr == nil && !info.IsDir() {
		role, loadErr := store.Load(name)
		if loadErr != nil {
			return loadErr
		}
		c.session.Role = role
		c.session.RoleFile = name
		c.colors.Successf("Loaded role from file: %s", role.Name)
		c.colors.PrintRoleSummary(role)
		return nil
	}

	role, err := store.LoadByName(name)
	if err == nil {
		c.session.Role = role
		c.session.RoleFile = store.Path(name)
		c.colors.Successf("Loaded role from local storage: %s", role.Name)
		c.colors.PrintRoleSummary(role)
		return nil
	}
	if !errors.Is(err, roles.ErrNotFound) {
		return err
	}

	// Azure fallback needs a subscription; without one a local miss is final.
	subID := subscriptionID
	if subID == "" {
		subID = c.session.SubscriptionID
	}
	if subID != "" {
		client, clientErr := c.azureClient(subID)
		if clientErr != nil {
			return clientErr
		}
		c.colors.Infof("Searching Azure for role...")
		role, azErr := client.FindByName(ctx, name)
		if azErr == nil {
			c.session.Role = role
			c.session.RoleFile = ""
			c.colors.Successf("Loaded role from Azure: %s", role.Name)
			c.colors.PrintRoleSummary(role)
			return nil
		}
		if !errors.Is(azErr, roles.ErrNotFound) {
			return azErr
		}
	}

	return fmt.Errorf("role not found (local or Azure): %s", name)
}

func (c *CLI) runMerge(ctx context.Context, rolesArg, rolesFlag, pattern, planeName string) error {
	list, err := resolveSingle(rolesFlag, rolesArg, "roles", "role list")
	if err != nil {
		return err
	}
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	f, err := buildFilter(pattern, planeName)
	if err != nil {
		return err
	}

	var names []string
	for _, name := range strings.Split(list, ",") {
		if name = strings.TrimSpace(name); name != "" {
			names = append(names, name)
		}
	}

	resolvers := []roles.Resolver{c.store}
	if subID := c.session.SubscriptionID; subID != "" {
		if client, clientErr := c.azureClient(subID); clientErr == nil {
			resolvers = append(resolvers, newAzureResolver(client))
		}
	}

	report, err := roles.Merge(ctx, role, names, f, resolvers...)
	if err != nil {
		if report != nil {
			if len(report.Sources) > 0 {
				c.colors.Warnf("Merged %d role(s) before the failure:", len(report.Sources))
				c.colors.PrintMergeReport(report)
			}
			if len(report.Unresolved) > 0 {
				c.colors.Warnf("Roles not found (local or Azure): %s", strings.Join(report.Unresolved, ", "))
			}
		}
		return err
	}

	c.colors.Successf("Merged permissions from %d role(s): %d added, %d duplicate", len(report.Sources), report.Added, report.Skipped)
	c.colors.PrintMergeReport(report)
	c.colors.PrintRoleSummary(role)
	return nil
}

func (c *CLI) runRemove(pattern, planeName string) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	if pattern == "" && planeName == "" {
		return fmt.Errorf("specify --filter and/or --filter-type")
	}
	f, err := buildFilter(pattern, planeName)
	if err != nil {
		return err
	}

	res := role.RemoveMatching(f)
	c.colors.Successf("Removed %d permission(s)", res.Removed)
	c.colors.PrintRoleSummary(role)
	return nil
}

func (c *CLI) runSetName(name string) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	oldName := role.Name
	role.Name = name
	role.Touch()
	c.colors.Successf("Role name changed: %s → %s", oldName, name)
	return nil
}

func (c *CLI) runSetDescription(description string) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	oldDescription := role.Description
	role.Description = description
	role.Touch()
	c.colors.Successf("Description changed:")
	fmt.Printf("  Old: %s\n", oldDescription)
	fmt.Printf("  New: %s\n", description)
	return nil
}

func (c *CLI) runSetScopes(scopes string) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}

	var scopeList []string
	for _, scope := range strings.Split(scopes, ",") {
		if scope = strings.TrimSpace(scope); scope != "" {
			scopeList = append(scopeList, scope)
		}
	}
	if len(scopeList) == 0 {
		return fmt.Errorf("at least one assignable scope is required")
	}

	oldScopes := role.AssignableScopes
	role.AssignableScopes = scopeList
	role.Touch()
	c.colors.Successf("Assignable scopes changed:")
	fmt.Printf("  Old: %s\n", strings.Join(oldScopes, ", "))
	fmt.Printf("  New: %s\n", strings.Join(scopeList, ", "))
	return nil
}

func (c *CLI) runList(name, roleDir string) error {
	store, err := c.storeFor(roleDir)
	if err != nil {
		return err
	}

	if name != "" {
		role, err := store.LoadByName(name)
		if err != nil {
			return err
		}
		c.colors.PrintRoleDetails(role, false)
		return nil
	}

	names, err := store.List()
	if err != nil {
		return err
	}
	if len(names) == 0 {
		fmt.Println("No roles found")
		return nil
	}

	rows := make([][]string, 0, len(names))
	for _, n := range names {
		rows = append(rows, []string{n, n + ".json"})
	}
	c.colors.PrintTable("Available Roles", []string{"Role Name", "File"}, rows)
	return nil
}

func (c *CLI) runDelete(name, roleDir, pattern string, force bool) error {
	store, err := c.storeFor(roleDir)
	if err != nil {
		return err
	}

	if name == "" && pattern == "" {
		return fmt.Errorf("provide either a role name or use --filter for pattern matching")
	}
	if name != "" && pattern != "" {
		return fmt.Errorf("provide either a role name or --filter, not both")
	}

	if name != "" {
		if _, err := os.Stat(store.Path(name)); err != nil {
			return fmt.Errorf("role not found: %s", name)
		}
		if !force {
			c.colors.Warnf("Delete role '%s'?", name)
			if !c.confirm("Are you sure?") {
				c.colors.Dim.Println("Deletion cancelled")
				return nil
			}
		}
		deleted, err := store.Delete(name)
		if err != nil {
			return err
		}
		if !deleted {
			return fmt.Errorf("failed to delete role: %s", name)
		}
		c.colors.Successf("Deleted role '%s'", name)
		return nil
	}

	available, err := store.List()
	if err != nil {
		return err
	}
	if len(available) == 0 {
		return fmt.Errorf("no roles found")
	}

	var matching []string
	for _, roleName := range available {
		if filter.Matches(roleName, pattern) {
			matching = append(matching, roleName)
		}
	}
	if len(matching) == 0 {
		return fmt.Errorf("no roles match filter: %s", pattern)
	}

	c.colors.Warnf("Found %d role(s) matching filter '%s':", len(matching), pattern)
	for _, roleName := range matching {
		fmt.Printf("  • %s\n", roleName)
	}
	if !force {
		if !c.confirm(fmt.Sprintf("Delete %d role(s)?", len(matching))) {
			c.colors.Dim.Println("Deletion cancelled")
			return nil
		}
	}

	deleted := 0
	for _, roleName := range matching {
		ok, err := store.Delete(roleName)
		if err != nil {
			return err
		}
		if ok {
			deleted++
		}
	}
	if deleted == len(matching) {
		c.colors.Successf("Deleted %d role(s)", deleted)
	} else {
		c.colors.Warnf("Deleted %d of %d role(s)", deleted, len(matching))
	}
	return nil
}

func (c *CLI) runView(showAll bool) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	c.colors.PrintRoleDetails(role, showAll)
	return nil
}

func (c *CLI) runSave(nameArg, nameFlag, output string, overwrite bool) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}

	if nameFlag != "" && nameArg != "" && nameFlag != nameArg {
		return fmt.Errorf("conflicting values provided: use either --name or positional output filename, not both")
	}
	requested := nameFlag
	if requested == "" {
		requested = nameArg
	}
	if output != "" && requested == "" {
		requested = role.Name
	}

	saveTo := func(path string, force bool) error {
		if err := c.store.Save(role, path, force); err != nil {
			if errors.Is(err, roles.ErrExists) {
				return fmt.Errorf("file already exists: %s (use --overwrite to replace)", path)
			}
			return err
		}
		c.session.RoleFile = path
		c.colors.Successf("Role saved to: %s", path)
		return nil
	}

	// Save-as: explicit path or named file in the roles directory.
	if requested != "" {
		if output != "" {
			return saveTo(output, overwrite)
		}
		return saveTo(c.store.Path(requested), overwrite)
	}

	// Quick-save to the backing file when known.
	if c.session.RoleFile != "" {
		return saveTo(c.session.RoleFile, true)
	}

	promptName, err := c.promptText("Output filename")
	if err != nil {
		return err
	}
	if promptName == "" {
		return fmt.Errorf("output filename cannot be empty")
	}
	return saveTo(c.store.Path(promptName), overwrite)
}
