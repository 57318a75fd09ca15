package models

import (
	"encoding/json"
	"strings"

	"github.com/mathwro/azrole/internal/filter"
)

// PermissionSet is one permission block of an Azure role definition: the
// control-plane allow/deny lists and the data-plane allow/deny lists. The
// JSON field names are a compatibility contract with Azure's role definition
// schema and must not change.
//
// Invariant: no list contains duplicate entries (case-insensitive); all four
// lists are always present, possibly empty.
type PermissionSet struct {
	Actions        []string `json:"Actions"`
	NotActions     []string `json:"NotActions"`
	DataActions    []string `json:"DataActions"`
	NotDataActions []string `json:"NotDataActions"`
}

// MergeResult reports what a merge did, for caller-side summaries.
type MergeResult struct {
	Added   int
	Skipped int
}

// Combine accumulates another result into this one.
func (r *MergeResult) Combine(other MergeResult) {
	r.Added += other.Added
	r.Skipped += other.Skipped
}

// RemoveResult reports how many entries a removal took out. Zero matches is a
// valid outcome, not a failure.
type RemoveResult struct {
	Removed int
}

// IsEmpty reports whether all four lists are empty.
func (p *PermissionSet) IsEmpty() bool {
	return len(p.Actions) == 0 && len(p.NotActions) == 0 &&
		len(p.DataActions) == 0 && len(p.NotDataActions) == 0
}

// ControlCount returns the number of control-plane entries (allow and deny).
func (p *PermissionSet) ControlCount() int {
	return len(p.Actions) + len(p.NotActions)
}

// DataCount returns the number of data-plane entries (allow and deny).
func (p *PermissionSet) DataCount() int {
	return len(p.DataActions) + len(p.NotDataActions)
}

// MergeFrom appends entries from the corresponding lists of other that pass
// the filter and are not already present (case-insensitive). Insertion order
// follows other; entries already present are skipped silently, so repeated
// merges of the same source are idempotent and first-source-wins across
// multiple calls.
func (p *PermissionSet) MergeFrom(other *PermissionSet, f filter.Filter) MergeResult {
	var res MergeResult
	if f.AllowsControl() {
		res.Combine(mergeList(&p.Actions, other.Actions, f))
		res.Combine(mergeList(&p.NotActions, other.NotActions, f))
	}
	if f.AllowsData() {
		res.Combine(mergeList(&p.DataActions, other.DataActions, f))
		res.Combine(mergeList(&p.NotDataActions, other.NotDataActions, f))
	}
	return res
}

// RemoveMatching removes every entry that satisfies the same string/plane
// filter combination MergeFrom uses.
func (p *PermissionSet) RemoveMatching(f filter.Filter) RemoveResult {
	var res RemoveResult
	if f.AllowsControl() {
		res.Removed += removeFromList(&p.Actions, f)
		res.Removed += removeFromList(&p.NotActions, f)
	}
	if f.AllowsData() {
		res.Removed += removeFromList(&p.DataActions, f)
		res.Removed += removeFromList(&p.NotDataActions, f)
	}
	return res
}

// Deduplicate normalizes all four lists: case-insensitive,
// first-occurrence-wins, idempotent. Invoked on load and merge paths.
func (p *PermissionSet) Deduplicate() {
	p.Actions = dedupeList(p.Actions)
	p.NotActions = dedupeList(p.NotActions)
	p.DataActions = dedupeList(p.DataActions)
	p.NotDataActions = dedupeList(p.NotDataActions)
}

// MarshalJSON writes empty lists as [] rather than null. Files on disk always
// carry all four lists, so a nil slice must not leak into the JSON.
func (p PermissionSet) MarshalJSON() ([]byte, error) {
	type permissionSetJSON PermissionSet
	out := permissionSetJSON(p)
	if out.Actions == nil {
		out.Actions = []string{}
	}
	if out.NotActions == nil {
		out.NotActions = []string{}
	}
	if out.DataActions == nil {
		out.DataActions = []string{}
	}
	if out.NotDataActions == nil {
		out.NotDataActions = []string{}
	}
	return json.Marshal(out)
}

// Clone returns a deep copy.
func (p *PermissionSet) Clone() *PermissionSet {
	return &PermissionSet{
		Actions:        append([]string(nil), p.Actions...),
		NotActions:     append([]string(nil), p.NotActions...),
		DataActions:    append([]string(nil), p.DataActions...),
		NotDataActions: append([]string(nil), p.NotDataActions...),
	}
}

func mergeList(dst *[]string, src []string, f filter.Filter) MergeResult {
	var res MergeResult
	for _, entry := range src {
		if !f.MatchString(entry) {
			continue
		}
		if containsFold(*dst, entry) {
			res.Skipped++
			continue
		}
		*dst = append(*dst, entry)
		res.Added++
	}
	return res
}

func removeFromList(list *[]string, f filter.Filter) int {
	kept := (*list)[:0]
	removed := 0
	for _, entry := range *list {
		if f.MatchString(entry) {
			removed++
			continue
		}
		kept = append(kept, entry)
	}
	*list = kept
	return removed
}

func dedupeList(list []string) []string {
	seen := make(map[string]struct{}, len(list))
	result := list[:0]
	for _, entry := range list {
		key := strings.ToLower(entry)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, entry)
	}
	return result
}

func containsFold(list []string, s string) bool {
	for _, entry := range list {
		if strings.EqualFold(entry, s) {
			return true
		}
	}
	return false
}
