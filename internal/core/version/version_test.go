package version

import (
	"testing"

	"swiftconcur/internal/platform/testkit"
)

func TestInfo(t *testing.T) {
	testkit.Swap(t, &version, "v1.2.3")
	testkit.Swap(t, &commit, "abc1234")
	got := Info("swiftconcur-api")
	if got.Service != "swiftconcur-api" || got.Version != "v1.2.3" || got.Commit != "abc1234" || got.Date != "unknown" {
		t.Fatalf("Info = %+v", got)
	}
	if got.Go == "" {
		t.Fatalf("go version missing")
	}
}
