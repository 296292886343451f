package version

import (
	"bytes"
	"context"
	"os/exec"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

// Update check intervals accepted in the global config.
const (
	IntervalAlways  = "always"
	IntervalDaily   = "daily"
	IntervalWeekly  = "weekly"
	IntervalMonthly = "monthly"
	IntervalNever   = "never"
)

// LatestFunc returns the newest published version of the module.
type LatestFunc func(ctx context.Context) (string, error)

// CheckDue reports whether an update check should run now, given the configured
// interval and the unix timestamp of the previous check (0 when never checked).
func CheckDue(interval string, lastCheck int64, now time.Time) bool {
	var period time.Duration
	switch strings.ToLower(strings.TrimSpace(interval)) {
	case IntervalNever:
		return false
	case IntervalAlways:
		return true
	case IntervalDaily:
		period = 24 * time.Hour
	case IntervalMonthly:
		period = 30 * 24 * time.Hour
	default:
		period = 7 * 24 * time.Hour
	}

	if lastCheck <= 0 {
		return true
	}
	return now.Sub(time.Unix(lastCheck, 0)) >= period
}

// Canonical returns v as a semver string with a leading "v", or "" when v is not
// a valid semantic version.
func Canonical(v string) string {
	v = strings.TrimSpace(v)
	if v == "" {
		return ""
	}
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return ""
	}
	return semver.Canonical(v)
}

// IsNewer reports whether latest is a strictly newer release than current.
// Development builds never report updates.
func IsNewer(current, latest string) bool {
	c, l := Canonical(current), Canonical(latest)
	if c == "" || l == "" {
		return false
	}
	return semver.Compare(l, c) > 0
}

// MeetsMinimum reports whether current satisfies the minimum version. Development
// builds and unparsable minimums are accepted.
func MeetsMinimum(current, minimum string) bool {
	c, m := Canonical(current), Canonical(minimum)
	if c == "" || m == "" {
		return true
	}
	return semver.Compare(c, m) >= 0
}

// GoListLatest queries the Go module proxy through the go tool.
func GoListLatest(ctx context.Context) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var stdout bytes.Buffer
	cmd := exec.CommandContext(ctx, "go", "list", "-m", "-f", "{{.Version}}", ModulePath+"@latest")
	cmd.Stdout = &stdout
	if err := cmd.Run(); err != nil {
		return "", err
	}
	return strings.TrimSpace(stdout.String()), nil
}
