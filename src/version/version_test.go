package version

import (
	"strings"
	"testing"
)

func TestVersionCarriesFlag(t *testing.T) {
	if !strings.HasPrefix(Version, "0.1.0") {
		t.Fatalf("Version should start with the release number, not %s", Version)
	}
	if Flag != "" && !strings.Contains(Version, "-"+Flag) {
		t.Fatalf("Version %s should contain flag %s", Version, Flag)
	}
}
