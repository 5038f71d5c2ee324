package version

import (
	"strings"
	"testing"
)

func TestInfo(t *testing.T) {
	info := Info()
	for _, key := range []string{"version", "buildTime", "gitCommit", "goVersion"} {
		if _, ok := info[key]; !ok {
			t.Errorf("Info() missing %q", key)
		}
	}
}

func TestString(t *testing.T) {
	prevVersion, prevCommit := Version, GitCommit
	defer func() { Version, GitCommit = prevVersion, prevCommit }()

	Version = "v1.2.3"
	GitCommit = "0123456789abcdef0123"

	got := String()
	if !strings.HasPrefix(got, "ctxpack v1.2.3 ") {
		t.Errorf("String() = %q, want version prefix", got)
	}
	if !strings.Contains(got, "commit 0123456789ab,") {
		t.Errorf("String() = %q, want commit shortened to 12 chars", got)
	}
}
