// Package azure integrates with the Azure authorization management API for
// remote role resolution, publishing, and subscription discovery.
package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/authorization/armauthorization/v2"
	"github.com/google/uuid"

	"github.com/mathwro/azrole/internal/models"
	"github.com/mathwro/azrole/internal/roles"
)

// Client manages role definitions in a single Azure subscription.
type Client struct {
	subscriptionID string
	defs           *armauthorization.RoleDefinitionsClient
}

// NewClient creates a client for the given subscription. Credentials are
// resolved through the Azure CLI first (the usual case for an engineer at a
// terminal), then the default credential chain.
func NewClient(subscriptionID string) (*Client, error) {
	if subscriptionID == "" {
		return nil, fmt.Errorf("no subscription selected")
	}

	cred, err := credential()
	if err != nil {
		return nil, err
	}

	defs, err := armauthorization.NewRoleDefinitionsClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create role definitions client: %w", err)
	}

	return &Client{subscriptionID: subscriptionID, defs: defs}, nil
}

// SubscriptionID returns the subscription this client operates on.
func (c *Client) SubscriptionID() string { return c.subscriptionID }

func (c *Client) scope() string {
	return "/subscriptions/" + c.subscriptionID
}

// ListAllRoles returns every role definition (built-in and custom) visible
// at the subscription scope.
func (c *Client) ListAllRoles(ctx context.Context) ([]*models.RoleDefinition, error) {
	var result []*models.RoleDefinition

	pager := c.defs.NewListPager(c.scope(), nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list role definitions: %w", err)
		}
		for _, def := range page.Value {
			result = append(result, fromARM(def))
		}
	}
	return result, nil
}

// ListCustomRoles returns only the custom role definitions in the
// subscription.
func (c *Client) ListCustomRoles(ctx context.Context) ([]*models.RoleDefinition, error) {
	all, err := c.ListAllRoles(ctx)
	if err != nil {
		return nil, err
	}

	var custom []*models.RoleDefinition
	for _, role := range all {
		if role.IsCustom {
			custom = append(custom, role)
		}
	}
	return custom, nil
}

// FindByName returns the role definition whose display name matches
// (case-insensitive), or roles.ErrNotFound.
func (c *Client) FindByName(ctx context.Context, name string) (*models.RoleDefinition, error) {
	all, err := c.ListAllRoles(ctx)
	if err != nil {
		return nil, err
	}
	for _, role := range all {
		if strings.EqualFold(role.Name, name) {
			return role, nil
		}
	}
	return nil, fmt.Errorf("role %q not found in subscription %s: %w", name, c.subscriptionID, roles.ErrNotFound)
}

// Publish creates or updates the role definition in Azure and returns the
// service's view of it. Role definition IDs must be GUIDs; locally generated
// IDs are replaced with a fresh one.
func (c *Client) Publish(ctx context.Context, role *models.RoleDefinition) (*models.RoleDefinition, error) {
	defID := role.Id
	if _, err := uuid.Parse(defID); err != nil {
		defID = uuid.New().String()
	}

	scopes := role.AssignableScopes
	if len(scopes) == 0 {
		scopes = []string{c.scope()}
	}

	def := armauthorization.RoleDefinition{
		Properties: &armauthorization.RoleDefinitionProperties{
			RoleName:         to.Ptr(role.Name),
			Description:      to.Ptr(role.Description),
			RoleType:         to.Ptr(models.RoleType),
			AssignableScopes: toPtrSlice(scopes),
			Permissions:      toARMPermissions(role.Permissions),
		},
	}

	resp, err := c.defs.CreateOrUpdate(ctx, c.scope(), defID, def, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to publish role %q: %w", role.Name, err)
	}
	return fromARM(&resp.RoleDefinition), nil
}

// Delete removes a custom role definition from Azure.
func (c *Client) Delete(ctx context.Context, roleDefinitionID string) error {
	if _, err := c.defs.Delete(ctx, c.scope(), roleDefinitionID, nil); err != nil {
		return fmt.Errorf("failed to delete role definition %s: %w", roleDefinitionID, err)
	}
	return nil
}

// Resolver adapts Client to the roles.Resolver interface so Azure can serve
// as the remote fallback in the resolution chain.
type Resolver struct {
	client *Client
}

// NewResolver wraps a client for use in a resolver chain.
func NewResolver(client *Client) *Resolver {
	return &Resolver{client: client}
}

// Origin implements roles.Resolver.
func (r *Resolver) Origin() string { return "azure" }

// ResolveByName implements roles.Resolver.
func (r *Resolver) ResolveByName(ctx context.Context, name string) (*models.RoleDefinition, error) {
	return r.client.FindByName(ctx, name)
}

// credential prefers the Azure CLI login, matching how platform engineers
// run this tool, and falls back to the default chain (environment, managed
// identity, ...).
func credential() (azcore.TokenCredential, error) {
	var available []azcore.TokenCredential

	if cli, err := azidentity.NewAzureCLICredential(nil); err == nil {
		available = append(available, cli)
	}
	if def, err := azidentity.NewDefaultAzureCredential(nil); err == nil {
		available = append(available, def)
	}

	if len(available) == 0 {
		return nil, fmt.Errorf("no Azure credential available (run 'az login' or configure environment credentials)")
	}

	chain, err := azidentity.NewChainedTokenCredential(available, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build credential chain: %w", err)
	}
	return chain, nil
}
