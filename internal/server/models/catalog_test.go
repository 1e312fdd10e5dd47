package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSupplementBaseName(t *testing.T) {
	tests := []struct {
		name string
		want string
	}{
		{"genesiod", "genesiod"},
		{"genesiod_devel", "genesiod"},
		{"genesiod_debuginfo", "genesiod"},
		{"genesiod_source", "genesiod"},
		{"genesiod_x86", "genesiod"},
		{"_devel", "_devel"}, // suffix alone is a whole name, not a variant
		{"tool_developer", "tool_developer"},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, SupplementBaseName(tc.name), tc.name)
	}
}

func TestIsSubordinateName(t *testing.T) {
	assert.True(t, IsSubordinateName("genesiod_devel"))
	assert.False(t, IsSubordinateName("genesiod"))
}

func TestPackageURL(t *testing.T) {
	s := &RepositorySource{BaseURL: "https://mirror.example.org/master/x86_64/current/"}
	got := s.PackageURL("genesiod", MakeCoordinate(1, 2, 0, "", 3), "x86_64")
	assert.Equal(t, "https://mirror.example.org/master/x86_64/current/packages/genesiod-1.2.0-3-x86_64.hpkg", got)
}
