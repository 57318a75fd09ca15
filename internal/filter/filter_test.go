package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchExactWithoutWildcard(t *testing.T) {
	f := New("Microsoft.Storage/storageAccounts/read", PlaneAny)

	assert.True(t, f.MatchString("Microsoft.Storage/storageAccounts/read"))
	assert.True(t, f.MatchString("MICROSOFT.STORAGE/STORAGEACCOUNTS/READ"))
	assert.False(t, f.MatchString("Microsoft.Storage/storageAccounts/read/extra"))
	assert.False(t, f.MatchString("Microsoft.Storage/storageAccounts"))
}

func TestMatchPrefixWildcard(t *testing.T) {
	f := New("Microsoft.Storage*", PlaneAny)

	assert.True(t, f.MatchString("Microsoft.Storage/storageAccounts/read"))
	assert.True(t, f.MatchString("microsoft.storage/blobServices/write"))
	assert.True(t, f.MatchString("Microsoft.Storage"))
	assert.False(t, f.MatchString("Microsoft.Compute/virtualMachines/read"))
	assert.False(t, f.MatchString("My.Microsoft.Storage/read"))
}

func TestMatchSuffixAndInfixWildcards(t *testing.T) {
	suffix := New("*delete", PlaneAny)
	assert.True(t, suffix.MatchString("Microsoft.Storage/storageAccounts/delete"))
	assert.True(t, suffix.MatchString("delete"))
	assert.False(t, suffix.MatchString("Microsoft.Storage/delete/snapshots"))

	infix := New("Microsoft.*/read", PlaneAny)
	assert.True(t, infix.MatchString("Microsoft.Storage/read"))
	assert.True(t, infix.MatchString("Microsoft.Compute/virtualMachines/read"))
	assert.False(t, infix.MatchString("Azure.Storage/read"))
}

func TestWildcardMatchesEmptyRun(t *testing.T) {
	f := New("read*", PlaneAny)

	assert.True(t, f.MatchString("read"))
	assert.True(t, f.MatchString("readAll"))
}

func TestConsecutiveWildcardsCollapse(t *testing.T) {
	a := New("Microsoft.**Storage*", PlaneAny)
	b := New("Microsoft.*Storage*", PlaneAny)

	for _, perm := range []string{
		"Microsoft.Storage/read",
		"Microsoft.ClassicStorage/read",
		"Microsoft.Compute/read",
	} {
		assert.Equal(t, b.MatchString(perm), a.MatchString(perm), perm)
	}
}

func TestEmptyPatternMatchesEverything(t *testing.T) {
	f := New("", PlaneAny)

	assert.True(t, f.IsEmpty())
	assert.True(t, f.MatchString("Microsoft.Storage/storageAccounts/read"))
	assert.True(t, f.MatchString(""))
}

func TestRegexMetacharactersAreLiteral(t *testing.T) {
	f := New("Microsoft.Storage/a+b(c)/read", PlaneAny)

	assert.True(t, f.MatchString("Microsoft.Storage/a+b(c)/read"))
	assert.False(t, f.MatchString("Microsoft.Storage/aab(c)/read"))
}

func TestAnyStringCompiles(t *testing.T) {
	for _, pattern := range []string{"(", "[unclosed", "a{2,", "\\", "***"} {
		assert.NotPanics(t, func() { New(pattern, PlaneAny) }, pattern)
	}
}

func TestParsePlane(t *testing.T) {
	plane, err := ParsePlane("control")
	require.NoError(t, err)
	assert.Equal(t, PlaneControl, plane)

	plane, err = ParsePlane("DATA")
	require.NoError(t, err)
	assert.Equal(t, PlaneData, plane)

	plane, err = ParsePlane("")
	require.NoError(t, err)
	assert.Equal(t, PlaneAny, plane)

	_, err = ParsePlane("management")
	assert.Error(t, err)
}

func TestPlaneGates(t *testing.T) {
	any := New("", PlaneAny)
	assert.True(t, any.AllowsControl())
	assert.True(t, any.AllowsData())

	control := New("", PlaneControl)
	assert.True(t, control.AllowsControl())
	assert.False(t, control.AllowsData())

	data := New("", PlaneData)
	assert.False(t, data.AllowsControl())
	assert.True(t, data.AllowsData())
}

func TestMatchesConvenience(t *testing.T) {
	assert.True(t, Matches("Microsoft.Storage/read", "*storage*"))
	assert.False(t, Matches("Microsoft.Compute/read", "*storage*"))
}
