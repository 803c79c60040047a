package version

import (
	"strings"
	"testing"
)

func TestString(t *testing.T) {
	got := String("cloudmesh")
	if !strings.HasPrefix(got, "cloudmesh "+Version) {
		t.Errorf("String() = %q, want prefix %q", got, "cloudmesh "+Version)
	}
	if !strings.Contains(got, GitSHA) {
		t.Errorf("String() = %q, missing git sha %q", got, GitSHA)
	}
}
