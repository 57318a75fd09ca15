// Package cmd wires the command-line surface of azrole: the kingpin command
// tree, the one-shot dispatcher, and the interactive console.
package cmd

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kingpin/v2"

	"github.com/mathwro/azrole/internal/azure"
	"github.com/mathwro/azrole/internal/config"
	"github.com/mathwro/azrole/internal/display"
	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
	"github.com/mathwro/azrole/internal/shell"
)

const version = "1.0.0"

// Session is the state a sequence of commands operates on: the current role
// being designed, its backing file (for quick-save), and the selected
// subscription. It is passed explicitly to every handler rather than held as
// ambient global state.
type Session struct {
	Role           *models.RoleDefinition
	RoleFile       string
	SubscriptionID string
}

// CLI owns the collaborators every command needs.
type CLI struct {
	cfg     *config.Config
	store   *roles.Manager
	colors  *display.Colors
	session *Session

	// console is set while the interactive console runs; prompts and
	// confirmations go through it so history and completion stay active.
	console *shell.Console
}

// NewCLI creates a CLI instance with configuration loaded from the
// environment.
func NewCLI() (*CLI, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	store, err := roles.NewManager(cfg.RolesDir)
	if err != nil {
		return nil, err
	}

	return &CLI{
		cfg:     cfg,
		store:   store,
		colors:  display.NewColors(),
		session: &Session{SubscriptionID: cfg.SubscriptionID},
	}, nil
}

// Run executes one top-level invocation. With no arguments it prints usage.
func (c *CLI) Run(args []string) error {
	if len(args) == 0 {
		app, _ := c.newApp()
		app.Usage(nil)
		return nil
	}
	return c.Dispatch(context.Background(), args)
}

// appModel binds the kingpin command clauses to their flag/arg values. A
// fresh model is built per dispatch so console invocations never see stale
// flag state from a previous line.
type appModel struct {
	create            *kingpin.CmdClause
	createNameArg     *string
	createName        *string
	createDescription *string

	load        *kingpin.CmdClause
	loadNameArg *string
	loadName    *string
	loadRoleDir *string
	loadSubID   *string

	loadAzure        *kingpin.CmdClause
	loadAzureNameArg *string
	loadAzureName    *string
	loadAzureSubID   *string

	merge           *kingpin.CmdClause
	mergeRolesArg   *string
	mergeRoles      *string
	mergeFilter     *string
	mergeFilterType *string

	remove           *kingpin.CmdClause
	removeFilter     *string
	removeFilterType *string

	setName      *kingpin.CmdClause
	setNameValue *string

	setDescription      *kingpin.CmdClause
	setDescriptionValue *string

	setScopes      *kingpin.CmdClause
	setScopesValue *string

	list        *kingpin.CmdClause
	listName    *string
	listRoleDir *string

	del        *kingpin.CmdClause
	delNameArg *string
	delRoleDir *string
	delFilter  *string
	delForce   *bool

	view    *kingpin.CmdClause
	viewAll *bool

	save          *kingpin.CmdClause
	saveNameArg   *string
	saveName      *string
	saveOutput    *string
	saveOverwrite *bool

	publish        *kingpin.CmdClause
	publishNameArg *string
	publishName    *string
	publishSubID   *string

	listAzure      *kingpin.CmdClause
	listAzureSubID *string

	viewAzure        *kingpin.CmdClause
	viewAzureNameArg *string
	viewAzureName    *string
	viewAzureFilter  *string
	viewAzureSubID   *string

	search          *kingpin.CmdClause
	searchFilterArg *string
	searchFilter    *string
	searchSubID     *string

	importPerms          *kingpin.CmdClause
	importPermsFilterArg *string
	importPermsFilter    *string
	importPermsSubID     *string

	subscriptions *kingpin.CmdClause

	useSubscription    *kingpin.CmdClause
	useSubscriptionArg *string
	useSubscriptionID  *string
	useSubscriptionNam *string

	console *kingpin.CmdClause
}

func (c *CLI) newApp() (*kingpin.Application, *appModel) {
	app := kingpin.New("azrole", "Azure Custom Role Designer - create and manage Azure custom role definitions.")
	app.Version(version)
	app.HelpFlag.Short('h')
	app.Terminate(nil)
	app.UsageWriter(os.Stdout)

	m := &appModel{}

	m.create = app.Command("create", "Create a new custom role from scratch.")
	m.createNameArg = m.create.Arg("name", "Name of the custom role.").String()
	m.createName = m.create.Flag("name", "Name of the custom role.").String()
	m.createDescription = m.create.Flag("description", "Role description.").String()

	m.load = app.Command("load", "Load a role from file path, local storage, or Azure.")
	m.loadNameArg = m.load.Arg("name", "Role name or file path.").String()
	m.loadName = m.load.Flag("name", "Role name (local or Azure).").String()
	m.loadRoleDir = m.load.Flag("role-dir", "Custom role directory.").String()
	m.loadSubID = m.load.Flag("subscription-id", "Azure subscription ID for fallback.").String()

	m.loadAzure = app.Command("load-azure", "Load a role from Azure and set as current role.")
	m.loadAzureNameArg = m.loadAzure.Arg("name", "Role name to load from Azure.").String()
	m.loadAzureName = m.loadAzure.Flag("name", "Role name to load from Azure.").String()
	m.loadAzureSubID = m.loadAzure.Flag("subscription-id", "Azure subscription ID.").String()

	m.merge = app.Command("merge", "Merge permissions from other roles into the current role.")
	m.mergeRolesArg = m.merge.Arg("roles", "Comma-separated list of role names to merge.").String()
	m.mergeRoles = m.merge.Flag("roles", "Comma-separated list of role names to merge.").String()
	m.mergeFilter = m.merge.Flag("filter", "Filter permissions by wildcard pattern (e.g. 'Microsoft.Storage*', '*delete').").String()
	m.mergeFilterType = m.merge.Flag("filter-type", "Filter by permission type (control or data).").Enum("control", "data")

	m.remove = app.Command("remove", "Remove permissions from the current role.")
	m.removeFilter = m.remove.Flag("filter", "Filter permissions by wildcard pattern.").String()
	m.removeFilterType = m.remove.Flag("filter-type", "Filter by permission type (control or data).").Enum("control", "data")

	m.setName = app.Command("set-name", "Change the current role's name.")
	m.setNameValue = m.setName.Flag("name", "New role name.").Required().String()

	m.setDescription = app.Command("set-description", "Change the current role's description.")
	m.setDescriptionValue = m.setDescription.Flag("description", "New description.").Required().String()

	m.setScopes = app.Command("set-scopes", "Change the current role's assignable scopes.")
	m.setScopesValue = m.setScopes.Flag("scopes", "Comma-separated list of assignable scopes.").Required().String()

	m.list = app.Command("list", "List available roles or show role details.")
	m.listName = m.list.Flag("name", "Show a specific role.").String()
	m.listRoleDir = m.list.Flag("role-dir", "Custom role directory.").String()

	m.del = app.Command("delete", "Delete a local role or roles matching a filter pattern.")
	m.delNameArg = m.del.Arg("name", "Role name to delete.").String()
	m.delRoleDir = m.del.Flag("role-dir", "Custom role directory.").String()
	m.delFilter = m.del.Flag("filter", "Wildcard pattern for bulk deletion (e.g. '*test*').").String()
	m.delForce = m.del.Flag("force", "Skip confirmation prompt.").Bool()

	m.view = app.Command("view", "View the current role.")
	m.viewAll = m.view.Flag("all", "Show all permissions (not truncated).").Bool()

	m.save = app.Command("save", "Save current role (quick-save by default, save-as when a name or path is given).")
	m.saveNameArg = m.save.Arg("name", "Output filename (without .json).").String()
	m.saveName = m.save.Flag("name", "Output filename (without .json).").String()
	m.saveOutput = m.save.Flag("output", "Custom output path.").String()
	m.saveOverwrite = m.save.Flag("overwrite", "Overwrite existing file.").Bool()

	m.publish = app.Command("publish", "Publish the current role to Azure.")
	m.publishNameArg = m.publish.Arg("name", "Role name to publish under.").String()
	m.publishName = m.publish.Flag("name", "Role name to publish under.").String()
	m.publishSubID = m.publish.Flag("subscription-id", "Azure subscription ID.").String()

	m.listAzure = app.Command("list-azure", "List custom roles in the Azure subscription.")
	m.listAzureSubID = m.listAzure.Flag("subscription-id", "Azure subscription ID.").String()

	m.viewAzure = app.Command("view-azure", "View detailed permissions of an Azure role (built-in or custom).")
	m.viewAzureNameArg = m.viewAzure.Arg("name", "Role name to view.").String()
	m.viewAzureName = m.viewAzure.Flag("name", "Role name to view.").String()
	m.viewAzureFilter = m.viewAzure.Flag("filter", "Show only permissions matching this wildcard pattern.").String()
	m.viewAzureSubID = m.viewAzure.Flag("subscription-id", "Azure subscription ID.").String()

	m.search = app.Command("search-permissions", "Search Azure permissions by pattern and show which roles include them.")
	m.searchFilterArg = m.search.Arg("filter", "Permission wildcard pattern.").String()
	m.searchFilter = m.search.Flag("filter", "Permission wildcard pattern.").String()
	m.searchSubID = m.search.Flag("subscription-id", "Azure subscription ID.").String()

	m.importPerms = app.Command("import-azure-permissions", "Import matching Azure permissions into the current role.")
	m.importPermsFilterArg = m.importPerms.Arg("filter", "Permission wildcard pattern.").String()
	m.importPermsFilter = m.importPerms.Flag("filter", "Permission wildcard pattern.").String()
	m.importPermsSubID = m.importPerms.Flag("subscription-id", "Azure subscription ID.").String()

	m.subscriptions = app.Command("subscriptions", "List available Azure subscriptions.")

	m.useSubscription = app.Command("use-subscription", "Switch to a different Azure subscription.")
	m.useSubscriptionArg = m.useSubscription.Arg("subscription", "Subscription ID or display name.").String()
	m.useSubscriptionID = m.useSubscription.Flag("id", "Subscription ID (explicit).").String()
	m.useSubscriptionNam = m.useSubscription.Flag("name", "Subscription display name (explicit).").String()

	m.console = app.Command("console", "Enter console mode for running multiple commands.")

	return app, m
}

// Dispatch parses and executes a single command invocation.
func (c *CLI) Dispatch(ctx context.Context, args []string) error {
	app, m := c.newApp()

	command, err := app.Parse(args)
	if err != nil {
		return err
	}

	switch command {
	case m.create.FullCommand():
		return c.runCreate(*m.createNameArg, *m.createName, *m.createDescription)
	case m.load.FullCommand():
		return c.runLoad(ctx, *m.loadNameArg, *m.loadName, *m.loadRoleDir, *m.loadSubID)
	case m.loadAzure.FullCommand():
		return c.runLoadAzure(ctx, *m.loadAzureNameArg, *m.loadAzureName, *m.loadAzureSubID)
	case m.merge.FullCommand():
		return c.runMerge(ctx, *m.mergeRolesArg, *m.mergeRoles, *m.mergeFilter, *m.mergeFilterType)
	case m.remove.FullCommand():
		return c.runRemove(*m.removeFilter, *m.removeFilterType)
	case m.setName.FullCommand():
		return c.runSetName(*m.setNameValue)
	case m.setDescription.FullCommand():
		return c.runSetDescription(*m.setDescriptionValue)
	case m.setScopes.FullCommand():
		return c.runSetScopes(*m.setScopesValue)
	case m.list.FullCommand():
		return c.runList(*m.listName, *m.listRoleDir)
	case m.del.FullCommand():
		return c.runDelete(*m.delNameArg, *m.delRoleDir, *m.delFilter, *m.delForce)
	case m.view.FullCommand():
		return c.runView(*m.viewAll)
	case m.save.FullCommand():
		return c.runSave(*m.saveNameArg, *m.saveName, *m.saveOutput, *m.saveOverwrite)
	case m.publish.FullCommand():
		return c.runPublish(ctx, *m.publishNameArg, *m.publishName, *m.publishSubID)
	case m.listAzure.FullCommand():
		return c.runListAzure(ctx, *m.listAzureSubID)
	case m.viewAzure.FullCommand():
		return c.runViewAzure(ctx, *m.viewAzureNameArg, *m.viewAzureName, *m.viewAzureFilter, *m.viewAzureSubID)
	case m.search.FullCommand():
		return c.runSearchPermissions(ctx, *m.searchFilterArg, *m.searchFilter, *m.searchSubID)
	case m.importPerms.FullCommand():
		return c.runImportPermissions(ctx, *m.importPermsFilterArg, *m.importPermsFilter, *m.importPermsSubID)
	case m.subscriptions.FullCommand():
		return c.runSubscriptions(ctx)
	case m.useSubscription.FullCommand():
		return c.runUseSubscription(ctx, *m.useSubscriptionArg, *m.useSubscriptionID, *m.useSubscriptionNam)
	case m.console.FullCommand():
		return c.runConsole(ctx)
	}
	return nil
}

// resolveSingle reconciles a value that may arrive as a flag or a positional
// argument.
func resolveSingle(option, positional, optionName, description string) (string, error) {
	if option != "" && positional != "" && option != positional {
		return "", fmt.Errorf("conflicting values provided: use either --%s or positional %s, not both", optionName, description)
	}
	value := option
	if value == "" {
		value = positional
	}
	if value == "" {
		return "", fmt.Errorf("missing %s: use --%s or pass it as positional argument", description, optionName)
	}
	return value, nil
}

// requireRole returns the current role or an invalid-state error.
func (c *CLI) requireRole() (*models.RoleDefinition, error) {
	if c.session.Role == nil {
		return nil, fmt.Errorf("no current role: create or load a role first")
	}
	return c.session.Role, nil
}

// requireSubscription returns the effective subscription ID, preferring an
// explicit override over the session's selection.
func (c *CLI) requireSubscription(override string) (string, error) {
	if override != "" {
		return override, nil
	}
	if c.session.SubscriptionID != "" {
		return c.session.SubscriptionID, nil
	}
	return "", fmt.Errorf("no subscription selected: use 'use-subscription' or provide --subscription-id")
}

func (c *CLI) azureClient(subscriptionID string) (*azure.Client, error) {
	return azure.NewClient(subscriptionID)
}

// buildFilter validates and compiles the --filter/--filter-type pair.
func buildFilter(pattern, planeName string) (filter.Filter, error) {
	plane, err := filter.ParsePlane(planeName)
	if err != nil {
		return filter.Filter{}, err
	}
	return filter.New(pattern, plane), nil
}

// promptText asks the user for a value, through the console when one is
// active, otherwise via stdin.
func (c *CLI) promptText(label string) (string, error) {
	if c.console != nil {
		value, err := c.console.ReadLine(label + ": ")
		if err != nil {
			return "", fmt.Errorf("input cancelled")
		}
		return value, nil
	}

	fmt.Printf("%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", fmt.Errorf("input cancelled")
	}
	return strings.TrimSpace(line), nil
}

// confirm asks a yes/no question, defaulting to no.
func (c *CLI) confirm(message string) bool {
	for {
		answer, err := c.promptText(message + " [y/N]")
		if err != nil {
			return false
		}
		switch strings.ToLower(answer) {
		case "", "n", "no":
			return false
		case "y", "yes":
			return true
		}
		c.colors.Warnf("Please answer 'y' or 'n'.")
	}
}

// storeFor returns the default store or one rooted at an override directory.
func (c *CLI) storeFor(roleDir string) (*roles.Manager, error) {
	if roleDir == "" {
		return c.store, nil
	}
	return roles.NewManager(roleDir)
}
