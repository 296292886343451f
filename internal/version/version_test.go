package version

import (
	"runtime"
	"strings"
	"testing"
	"time"
)

func TestGetInfo(t *testing.T) {
	origVersion, origCommit, origDate := Version, Commit, Date
	Version = "1.0.0"
	Commit = "abc123def456"
	Date = "2024-01-01T12:00:00Z"
	defer func() {
		Version, Commit, Date = origVersion, origCommit, origDate
	}()

	info := GetInfo()

	if info.Version != "1.0.0" {
		t.Errorf("GetInfo().Version = %v, want 1.0.0", info.Version)
	}
	if info.GoVersion != runtime.Version() {
		t.Errorf("GetInfo().GoVersion = %v, want %v", info.GoVersion, runtime.Version())
	}
	if info.Platform != runtime.GOOS+"/"+runtime.GOARCH {
		t.Errorf("GetInfo().Platform = %v", info.Platform)
	}

	s := info.String()
	for _, want := range []string{"makeflow 1.0.0", "(abc123de)", runtime.Version()} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
	if info.Short() != "1.0.0" {
		t.Errorf("Short() = %q", info.Short())
	}
}

func TestCheckDue(t *testing.T) {
	now := time.Date(2026, 1, 10, 12, 0, 0, 0, time.UTC)
	dayAgo := now.Add(-25 * time.Hour).Unix()
	hourAgo := now.Add(-time.Hour).Unix()

	tests := []struct {
		name     string
		interval string
		last     int64
		want     bool
	}{
		{"never", IntervalNever, 0, false},
		{"always", IntervalAlways, hourAgo, true},
		{"first check", IntervalWeekly, 0, true},
		{"daily elapsed", IntervalDaily, dayAgo, true},
		{"daily not elapsed", IntervalDaily, hourAgo, false},
		{"weekly default", "", dayAgo, false},
		{"monthly not elapsed", IntervalMonthly, dayAgo, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CheckDue(tt.interval, tt.last, now); got != tt.want {
				t.Errorf("CheckDue(%q) = %v, want %v", tt.interval, got, tt.want)
			}
		})
	}
}

func TestVersionComparisons(t *testing.T) {
	if Canonical("1.2") != "v1.2.0" {
		t.Errorf("Canonical(1.2) = %q", Canonical("1.2"))
	}
	if Canonical("dev") != "" {
		t.Error("dev should not be canonical")
	}

	if !IsNewer("1.2.0", "v1.3.0") {
		t.Error("expected 1.3.0 to be newer")
	}
	if IsNewer("1.3.0", "1.3.0") {
		t.Error("same version is not newer")
	}
	if IsNewer("dev", "1.0.0") {
		t.Error("dev builds never report updates")
	}

	if !MeetsMinimum("1.4.0", "1.2.0") {
		t.Error("1.4.0 meets 1.2.0")
	}
	if MeetsMinimum("1.1.9", "1.2.0") {
		t.Error("1.1.9 does not meet 1.2.0")
	}
	if !MeetsMinimum("dev", "9.0.0") {
		t.Error("dev builds meet any minimum")
	}
}
