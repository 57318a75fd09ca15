package roles

import (
	"context"
	"errors"
	"fmt"

	"github.com/mathwro/azrole/internal/filter"
	"github.com/mathwro/azrole/internal/models"
)

// Resolver finds a role definition by name. Implementations report
// ErrNotFound for a clean miss so the caller can try the next resolver;
// any other error aborts resolution for that name.
type Resolver interface {
	// Origin identifies the source in reports ("local", "azure").
	Origin() string
	ResolveByName(ctx context.Context, name string) (*models.RoleDefinition, error)
}

// Origin implements Resolver: the local roles directory is always the first
// source tried.
func (m *Manager) Origin() string { return "local" }

// ResolveByName implements Resolver over the roles directory.
func (m *Manager) ResolveByName(_ context.Context, name string) (*models.RoleDefinition, error) {
	return m.LoadByName(name)
}

// SourceReport describes what one resolved source contributed to a merge.
type SourceReport struct {
	Name    string
	Origin  string
	Added   int
	Skipped int
}

// MergeReport aggregates a multi-source merge: per-source counts plus the
// names that no resolver could find. Unresolved names are a partial failure,
// not a fatal one.
type MergeReport struct {
	Sources    []SourceReport
	Unresolved []string
	Added      int
	Skipped    int
}

// Merge resolves each named source role through the resolver chain in order
// (first match per name wins), merges every resolved role into dst under the
// filter, and reports what happened. It fails only when zero names resolve or
// a resolver fails hard; the report is always returned, so on a mid-chain
// failure the caller still sees which sources were already merged into dst.
func Merge(ctx context.Context, dst *models.RoleDefinition, names []string, f filter.Filter, resolvers ...Resolver) (*MergeReport, error) {
	report := &MergeReport{}

	for _, name := range names {
		src, origin, err := resolve(ctx, name, resolvers)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				report.Unresolved = append(report.Unresolved, name)
				continue
			}
			return report, fmt.Errorf("failed to resolve role %q: %w", name, err)
		}

		res := dst.MergeFrom(src, f)
		report.Sources = append(report.Sources, SourceReport{
			Name:    name,
			Origin:  origin,
			Added:   res.Added,
			Skipped: res.Skipped,
		})
		report.Added += res.Added
		report.Skipped += res.Skipped
	}

	if len(report.Sources) == 0 {
		return report, fmt.Errorf("no source roles could be resolved: %w", ErrNotFound)
	}
	return report, nil
}

func resolve(ctx context.Context, name string, resolvers []Resolver) (*models.RoleDefinition, string, error) {
	for _, r := range resolvers {
		role, err := r.ResolveByName(ctx, name)
		if err == nil {
			return role, r.Origin(), nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, "", err
		}
	}
	return nil, "", ErrNotFound
}
