package quota

import (
	"fmt"
	"strings"
)

const warnThreshold = 80.0

// TierStatus describes one ceiling's usage.
type TierStatus struct {
	Used       int
	Limit      int
	Remaining  int
	Percentage float64
}

// Status is a point-in-time snapshot of both ceilings.
type Status struct {
	Daily       TierStatus
	Session     TierStatus
	CanContinue bool
}

// Status returns the current usage snapshot.
func (t *Tracker) Status() Status {
	daily := t.store.DailyQuota().TotalRequests
	session := t.store.Session().APIRequestsCount

	return Status{
		Daily: TierStatus{
			Used:       daily,
			Limit:      t.dailyMax,
			Remaining:  t.RemainingDaily(),
			Percentage: percent(daily, t.dailyMax),
		},
		Session: TierStatus{
			Used:       session,
			Limit:      t.sessionMax,
			Remaining:  t.RemainingSession(),
			Percentage: percent(session, t.sessionMax),
		},
		CanContinue: t.limitReached(session, daily) == LimitNone,
	}
}

// Summary renders a human-readable multi-line usage report, with a warning
// line for any tier past 80%.
func (t *Tracker) Summary() string {
	s := t.Status()
	lines := []string{
		"Quota status:",
		fmt.Sprintf("  Daily: %d/%d (%.1f%%)", s.Daily.Used, s.Daily.Limit, s.Daily.Percentage),
		fmt.Sprintf("  Session: %d/%d (%.1f%%)", s.Session.Used, s.Session.Limit, s.Session.Percentage),
		fmt.Sprintf("  Remaining: %d requests", t.Remaining()),
	}
	if s.Daily.Percentage > warnThreshold {
		lines = append(lines, "  Warning: approaching daily limit")
	}
	if s.Session.Percentage > warnThreshold {
		lines = append(lines, "  Warning: approaching session limit")
	}
	return strings.Join(lines, "\n")
}

// ShouldWarn reports whether either tier is past 80% usage, with a reason.
func (t *Tracker) ShouldWarn() (bool, string) {
	s := t.Status()
	if s.Daily.Percentage > warnThreshold {
		return true, fmt.Sprintf("Daily quota at %.1f%% (%d/%d)", s.Daily.Percentage, s.Daily.Used, s.Daily.Limit)
	}
	if s.Session.Percentage > warnThreshold {
		return true, fmt.Sprintf("Session quota at %.1f%% (%d/%d)", s.Session.Percentage, s.Session.Used, s.Session.Limit)
	}
	return false, ""
}

// EstimateBackupRequests sizes a whole backup run: two requests per file,
// one album create and one add-to-album call per directory, the initial
// album listing, plus a 10% buffer for retries.
func EstimateBackupRequests(numFiles, numDirectories, existingAlbums int) int {
	requests := numFiles * 2
	requests += numDirectories * 2
	pages := (existingAlbums + albumPageSize - 1) / albumPageSize
	if pages < 1 {
		pages = 1
	}
	requests += pages
	return requests + requests/10
}

func percent(used, limit int) float64 {
	if limit <= 0 {
		return 0
	}
	p := float64(used) / float64(limit) * 100
	return float64(int(p*10+0.5)) / 10
}
