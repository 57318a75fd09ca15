// Package filter implements the permission filtering rules shared by the
// merge, remove, and search operations: case-insensitive wildcard matching
// over permission strings, and routing of permissions to the control or data
// plane.
package filter

import (
	"fmt"
	"regexp"
	"strings"
)

// Plane selects which side of a permission set an operation applies to.
// Classification is positional: a permission is data-plane because it lives
// in (or is routed to) the DataActions/NotDataActions lists, never because of
// how the string looks.
type Plane string

const (
	// PlaneAny applies to all four permission lists.
	PlaneAny Plane = ""
	// PlaneControl restricts an operation to Actions/NotActions.
	PlaneControl Plane = "control"
	// PlaneData restricts an operation to DataActions/NotDataActions.
	PlaneData Plane = "data"
)

// ParsePlane converts a user-supplied plane name. The empty string means no
// plane restriction.
func ParsePlane(s string) (Plane, error) {
	switch Plane(strings.ToLower(s)) {
	case PlaneAny, PlaneControl, PlaneData:
		return Plane(strings.ToLower(s)), nil
	}
	return PlaneAny, fmt.Errorf("invalid permission type %q (expected %q or %q)", s, PlaneControl, PlaneData)
}

// Filter combines a wildcard string pattern with a plane restriction. The
// zero value matches every permission in every list.
type Filter struct {
	pattern string
	re      *regexp.Regexp
	plane   Plane
}

// New compiles a filter. The pattern syntax has a single special token: '*'
// matches any run of characters (including none); everything else is literal
// and compared case-insensitively. An empty pattern matches everything, so
// compilation cannot fail.
func New(pattern string, plane Plane) Filter {
	return Filter{pattern: pattern, re: compile(pattern), plane: plane}
}

// Pattern returns the raw pattern string the filter was built from.
func (f Filter) Pattern() string { return f.pattern }

// Plane returns the plane restriction.
func (f Filter) Plane() Plane { return f.plane }

// IsEmpty reports whether the filter restricts nothing.
func (f Filter) IsEmpty() bool { return f.pattern == "" && f.plane == PlaneAny }

// MatchString reports whether a permission string satisfies the string
// pattern. The plane restriction is not consulted here; callers apply it per
// list via AllowsControl/AllowsData.
func (f Filter) MatchString(permission string) bool {
	if f.re == nil {
		return true
	}
	return f.re.MatchString(permission)
}

// AllowsControl reports whether the filter admits entries from the
// control-plane lists (Actions/NotActions).
func (f Filter) AllowsControl() bool { return f.plane == PlaneAny || f.plane == PlaneControl }

// AllowsData reports whether the filter admits entries from the data-plane
// lists (DataActions/NotDataActions).
func (f Filter) AllowsData() bool { return f.plane == PlaneAny || f.plane == PlaneData }

// Matches is a convenience for one-off pattern checks.
func Matches(permission, pattern string) bool {
	return New(pattern, PlaneAny).MatchString(permission)
}

// compile translates a wildcard pattern into an anchored, case-insensitive
// regexp. A nil result means match-all.
func compile(pattern string) *regexp.Regexp {
	if pattern == "" {
		return nil
	}
	parts := strings.Split(pattern, "*")
	quoted := make([]string, len(parts))
	for i, part := range parts {
		quoted[i] = regexp.QuoteMeta(part)
	}
	body := strings.Join(quoted, ".*")
	// Collapse runs of '*' so "a**b" compiles the same as "a*b".
	for strings.Contains(body, ".*.*") {
		body = strings.ReplaceAll(body, ".*.*", ".*")
	}
	return regexp.MustCompile("(?i)^" + body + "$")
}
