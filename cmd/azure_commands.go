package cmd

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/mathwro/azrole/internal/azure"
	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
)

func newAzureResolver(client *azure.Client) roles.Resolver {
	return azure.NewResolver(client)
}

func (c *CLI) runLoadAzure(ctx context.Context, nameArg, nameFlag, subscriptionID string) error {
	name, err := resolveSingle(nameFlag, nameArg, "name", "role name")
	if err != nil {
		return err
	}
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}
	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Fetching role from Azure...")
	role, err := client.FindByName(ctx, name)
	if err != nil {
		return err
	}

	c.session.Role = role
	c.session.RoleFile = ""
	c.colors.Successf("Loaded role from Azure: %s", role.Name)
	c.colors.PrintRoleSummary(role)
	return nil
}

func (c *CLI) runPublish(ctx context.Context, nameArg, nameFlag, subscriptionID string) error {
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}

	// An explicit name publishes the role under that name.
	name := nameFlag
	if name == "" {
		name = nameArg
	}
	if name != "" {
		role.Name = name
		role.Touch()
	}

	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Publishing to Azure...")
	published, err := client.Publish(ctx, role)
	if err != nil {
		return err
	}

	c.colors.Successf("Role published to Azure")
	fmt.Printf("  ID: %s\n", published.Id)
	fmt.Printf("  Name: %s\n", published.Name)
	return nil
}

func (c *CLI) runListAzure(ctx context.Context, subscriptionID string) error {
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}
	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Fetching roles from Azure...")
	customRoles, err := client.ListCustomRoles(ctx)
	if err != nil {
		return err
	}
	if len(customRoles) == 0 {
		fmt.Println("No custom roles found in subscription")
		return nil
	}

	rows := make([][]string, 0, len(customRoles))
	for _, role := range customRoles {
		count := role.ControlCount() + role.DataCount()
		rows = append(rows, []string{role.Name, role.Id, fmt.Sprintf("%d", count)})
	}
	c.colors.PrintTable("Azure Custom Roles", []string{"Role Name", "ID", "Permissions"}, rows)
	return nil
}

func (c *CLI) runViewAzure(ctx context.Context, nameArg, nameFlag, pattern, subscriptionID string) error {
	name, err := resolveSingle(nameFlag, nameArg, "name", "role name")
	if err != nil {
		return err
	}
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}
	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Fetching role from Azure...")
	role, err := client.FindByName(ctx, name)
	if err != nil {
		return err
	}

	if pattern != "" {
		f := filter.New(pattern, filter.PlaneAny)
		for i := range role.Permissions {
			keepMatching(&role.Permissions[i], f)
		}
	}

	c.colors.PrintRoleDetails(role, true)
	return nil
}

// keepMatching reduces a permission block to the entries that match the
// filter, for display.
func keepMatching(set *models.PermissionSet, f filter.Filter) {
	keep := func(list []string) []string {
		kept := list[:0]
		for _, entry := range list {
			if f.MatchString(entry) {
				kept = append(kept, entry)
			}
		}
		return kept
	}
	set.Actions = keep(set.Actions)
	set.NotActions = keep(set.NotActions)
	set.DataActions = keep(set.DataActions)
	set.NotDataActions = keep(set.NotDataActions)
}

// permissionMatches maps each matched permission to the roles that carry it,
// split by plane (positionally: actions vs data actions).
type permissionMatches struct {
	control map[string][]string
	data    map[string][]string
}

func collectPermissionMatches(all []*models.RoleDefinition, f filter.Filter) permissionMatches {
	matches := permissionMatches{
		control: make(map[string][]string),
		data:    make(map[string][]string),
	}
	for _, role := range all {
		for i := range role.Permissions {
			block := &role.Permissions[i]
			for _, perm := range block.Actions {
				if f.MatchString(perm) {
					matches.control[perm] = appendRole(matches.control[perm], role.Name)
				}
			}
			for _, perm := range block.DataActions {
				if f.MatchString(perm) {
					matches.data[perm] = appendRole(matches.data[perm], role.Name)
				}
			}
		}
	}
	return matches
}

func appendRole(names []string, name string) []string {
	for _, n := range names {
		if n == name {
			return names
		}
	}
	return append(names, name)
}

func (m permissionMatches) merged() map[string][]string {
	out := make(map[string][]string, len(m.control)+len(m.data))
	for perm, names := range m.control {
		out[perm] = names
	}
	for perm, names := range m.data {
		out[perm] = append(out[perm], names...)
	}
	return out
}

func (c *CLI) runSearchPermissions(ctx context.Context, filterArg, filterFlag, subscriptionID string) error {
	pattern, err := resolveSingle(filterFlag, filterArg, "filter", "permission filter pattern")
	if err != nil {
		return err
	}
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}
	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Searching roles in Azure...")
	all, err := client.ListAllRoles(ctx)
	if err != nil {
		return err
	}

	matched := collectPermissionMatches(all, filter.New(pattern, filter.PlaneAny)).merged()
	if len(matched) == 0 {
		fmt.Printf("No permissions found matching: %s\n", pattern)
		return nil
	}

	perms := make([]string, 0, len(matched))
	for perm := range matched {
		perms = append(perms, perm)
	}
	sort.Strings(perms)

	rows := make([][]string, 0, len(perms))
	for _, perm := range perms {
		names := matched[perm]
		sort.Strings(names)
		preview := strings.Join(names, ", ")
		if len(names) > 3 {
			preview = strings.Join(names[:3], ", ") + fmt.Sprintf(" (+%d more)", len(names)-3)
		}
		rows = append(rows, []string{perm, fmt.Sprintf("%d", len(names)), preview})
	}
	c.colors.PrintTable(fmt.Sprintf("Permissions matching '%s'", pattern), []string{"Permission", "Roles", "Example Roles"}, rows)
	fmt.Printf("\nFound %d unique permission(s) matching '%s'.\n", len(perms), pattern)
	return nil
}

func (c *CLI) runImportPermissions(ctx context.Context, filterArg, filterFlag, subscriptionID string) error {
	pattern, err := resolveSingle(filterFlag, filterArg, "filter", "permission filter pattern")
	if err != nil {
		return err
	}
	role, err := c.requireRole()
	if err != nil {
		return err
	}
	subID, err := c.requireSubscription(subscriptionID)
	if err != nil {
		return err
	}
	client, err := c.azureClient(subID)
	if err != nil {
		return err
	}

	c.colors.Infof("Fetching permissions from Azure...")
	all, err := client.ListAllRoles(ctx)
	if err != nil {
		return err
	}

	matches := collectPermissionMatches(all, filter.New(pattern, filter.PlaneAny))
	if len(matches.control) == 0 && len(matches.data) == 0 {
		fmt.Printf("No permissions found matching: %s\n", pattern)
		return nil
	}

	// Matched actions stay control-plane, matched data actions stay
	// data-plane; the merge engine handles dedup against the current role.
	source := &models.RoleDefinition{
		Permissions: []models.PermissionSet{{
			Actions:     sortedKeys(matches.control),
			DataActions: sortedKeys(matches.data),
		}},
	}
	res := role.MergeFrom(source, filter.Filter{})

	c.colors.Successf("Imported Azure permissions into %s (%d added, %d already present)", role.Name, res.Added, res.Skipped)
	c.colors.PrintRoleSummary(role)
	return nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (c *CLI) runSubscriptions(ctx context.Context) error {
	manager, err := azure.NewSubscriptionManager()
	if err != nil {
		return err
	}

	c.colors.Infof("Fetching subscriptions...")
	subs, err := manager.List(ctx)
	if err != nil {
		return err
	}
	if len(subs) == 0 {
		fmt.Println("No subscriptions found")
		return nil
	}

	rows := make([][]string, 0, len(subs))
	for _, sub := range subs {
		name := sub.DisplayName
		if sub.ID == c.session.SubscriptionID {
			name += " ✓"
		}
		rows = append(rows, []string{sub.ID, name, sub.State})
	}
	c.colors.PrintTable("Available Subscriptions", []string{"Subscription ID", "Display Name", "State"}, rows)
	return nil
}

func (c *CLI) runUseSubscription(ctx context.Context, positional, id, name string) error {
	if positional == "" && id == "" && name == "" {
		return fmt.Errorf("specify a subscription ID or name")
	}

	manager, err := azure.NewSubscriptionManager()
	if err != nil {
		return err
	}

	var sub *azure.Subscription
	switch {
	case id != "":
		sub, err = manager.GetByID(ctx, id)
	case name != "":
		sub, err = manager.GetByName(ctx, name)
	default:
		// Positional value may be an ID or a display name.
		sub, err = manager.GetByID(ctx, positional)
		if err == nil && sub == nil {
			sub, err = manager.GetByName(ctx, positional)
		}
	}
	if err != nil {
		return err
	}
	if sub == nil {
		search := id
		if search == "" {
			search = name
		}
		if search == "" {
			search = positional
		}
		return fmt.Errorf("subscription not found: %s", search)
	}

	c.session.SubscriptionID = sub.ID
	c.colors.Successf("Switched to subscription: %s", sub.DisplayName)
	fmt.Printf("  ID: %s\n", sub.ID)
	return nil
}
