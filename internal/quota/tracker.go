// Package quota enforces the two-tier request budget: a per-session ceiling
// and a per-day ceiling counted against the reference-timezone calendar day.
// Every remote call that consumes quota must pass through the Tracker.
package quota

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/state"
)

// LimitKind identifies which ceiling was hit, if any.
type LimitKind int

const (
	LimitNone LimitKind = iota
	LimitDaily
	LimitSession
)

// Operation names a quota-consuming remote action with a fixed cost.
type Operation string

const (
	OpUploadFile  Operation = "upload_file"
	OpCreateAlbum Operation = "create_album"
	OpAddToAlbum  Operation = "add_to_album"
	OpListAlbums  Operation = "list_albums"
)

const albumPageSize = 50

// Tracker counts requests against both ceilings. Counters live in the state
// store so usage survives restarts; the tracker only decides.
type Tracker struct {
	store      *state.Store
	sessionMax int
	dailyMax   int
	log        zerolog.Logger
}

// New builds a tracker over the given store. Zero or negative maxima fall
// back to nothing; validation happens at config load.
func New(store *state.Store, sessionMax, dailyMax int, logger zerolog.Logger) *Tracker {
	return &Tracker{
		store:      store,
		sessionMax: sessionMax,
		dailyMax:   dailyMax,
		log:        logger.With().Str("component", "quota").Logger(),
	}
}

// RecordRequests adds count to both counters and reports whether the caller
// may continue. The daily rollover check runs first so requests never accrue
// past a reference-timezone midnight. When a ceiling is crossed the stop
// reason is persisted on the session.
func (t *Tracker) RecordRequests(count int) bool {
	t.store.RollDailyQuota()
	session, daily := t.store.AddAPIRequests(count)

	kind := t.limitReached(session, daily)
	if kind == LimitNone {
		return true
	}

	reason := t.stopReason(kind, session, daily)
	t.store.SetStopReason(reason)
	t.log.Warn().
		Int("session_usage", session).
		Int("daily_usage", daily).
		Msg(reason)
	return false
}

// CanMakeRequests reports whether count more requests fit under both
// ceilings, after rolling the day if needed.
func (t *Tracker) CanMakeRequests(count int) bool {
	t.store.RollDailyQuota()
	q := t.store.DailyQuota()
	sess := t.store.Session()
	return q.TotalRequests+count <= t.dailyMax &&
		sess.APIRequestsCount+count <= t.sessionMax
}

// EstimateCost returns the fixed request cost of an operation. For
// OpListAlbums, count is the estimated album total; pagination is one
// request per page of 50.
func (t *Tracker) EstimateCost(op Operation, count int) int {
	switch op {
	case OpUploadFile:
		// Byte transfer plus media-item creation. The transfer itself does
		// not count against quota, so this is conservative.
		return 2
	case OpCreateAlbum, OpAddToAlbum:
		return 1
	case OpListAlbums:
		if count < 1 {
			count = albumPageSize
		}
		pages := (count + albumPageSize - 1) / albumPageSize
		if pages < 1 {
			pages = 1
		}
		return pages
	default:
		return 1
	}
}

// CanPerform checks whether the operation's estimated cost still fits. The
// returned reason distinguishes an already-reached ceiling from insufficient
// headroom for this specific operation.
func (t *Tracker) CanPerform(op Operation, count int) (bool, string) {
	est := t.EstimateCost(op, count)
	if t.CanMakeRequests(est) {
		return true, ""
	}

	sess := t.store.Session()
	daily := t.store.DailyQuota()
	if kind := t.limitReached(sess.APIRequestsCount, daily.TotalRequests); kind != LimitNone {
		return false, t.stopReason(kind, sess.APIRequestsCount, daily.TotalRequests)
	}

	if r := t.RemainingDaily(); r < est {
		return false, fmt.Sprintf("Not enough daily quota remaining (%d < %d)", r, est)
	}
	return false, fmt.Sprintf("Not enough session quota remaining (%d < %d)", t.RemainingSession(), est)
}

// RemainingDaily returns the unused daily budget, never negative.
func (t *Tracker) RemainingDaily() int {
	r := t.dailyMax - t.store.DailyQuota().TotalRequests
	if r < 0 {
		return 0
	}
	return r
}

// RemainingSession returns the unused session budget, never negative.
func (t *Tracker) RemainingSession() int {
	r := t.sessionMax - t.store.Session().APIRequestsCount
	if r < 0 {
		return 0
	}
	return r
}

// Remaining returns the tighter of the two remaining budgets.
func (t *Tracker) Remaining() int {
	d, s := t.RemainingDaily(), t.RemainingSession()
	if d < s {
		return d
	}
	return s
}

func (t *Tracker) limitReached(session, daily int) LimitKind {
	if daily >= t.dailyMax {
		return LimitDaily
	}
	if session >= t.sessionMax {
		return LimitSession
	}
	return LimitNone
}

func (t *Tracker) stopReason(kind LimitKind, session, daily int) string {
	switch kind {
	case LimitDaily:
		return fmt.Sprintf("Daily API quota reached (%d/%d requests). Resume tomorrow.", daily, t.dailyMax)
	case LimitSession:
		return fmt.Sprintf("Session limit reached (%d/%d requests). Resume with same command.", session, t.sessionMax)
	default:
		return "Unknown quota limit reached"
	}
}
