package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
)

// Subscription is the slice of subscription metadata the tool cares about.
type Subscription struct {
	ID          string
	DisplayName string
	State       string
}

// SubscriptionManager lists and looks up the subscriptions visible to the
// current credentials.
type SubscriptionManager struct {
	client *armsubscriptions.Client
}

// NewSubscriptionManager creates a subscription manager using the same
// credential chain as the role client.
func NewSubscriptionManager() (*SubscriptionManager, error) {
	cred, err := credential()
	if err != nil {
		return nil, err
	}

	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create subscriptions client: %w", err)
	}
	return &SubscriptionManager{client: client}, nil
}

// List returns all visible subscriptions.
func (m *SubscriptionManager) List(ctx context.Context) ([]Subscription, error) {
	var subs []Subscription

	pager := m.client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list subscriptions: %w", err)
		}
		for _, sub := range page.Value {
			if sub == nil {
				continue
			}
			s := Subscription{
				ID:          deref(sub.SubscriptionID),
				DisplayName: deref(sub.DisplayName),
			}
			if sub.State != nil {
				s.State = string(*sub.State)
			}
			subs = append(subs, s)
		}
	}
	return subs, nil
}

// GetByID returns the subscription with the given ID, or nil.
func (m *SubscriptionManager) GetByID(ctx context.Context, id string) (*Subscription, error) {
	subs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if subs[i].ID == id {
			return &subs[i], nil
		}
	}
	return nil, nil
}

// GetByName returns the subscription with the given display name
// (case-insensitive), or nil.
func (m *SubscriptionManager) GetByName(ctx context.Context, name string) (*Subscription, error) {
	subs, err := m.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range subs {
		if strings.EqualFold(subs[i].DisplayName, name) {
			return &subs[i], nil
		}
	}
	return nil, nil
}
