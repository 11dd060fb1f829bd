// Package albums manages remote albums: a process-lifetime title-to-id
// cache, idempotent get-or-create with an exists policy, and batched
// add-to-album calls.
package albums

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/photos"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
)

// ExistsPolicy decides what happens when a target album already exists.
type ExistsPolicy string

const (
	// PolicySkip leaves the album alone; the caller skips its uploads.
	PolicySkip ExistsPolicy = "skip"
	// PolicyMerge reuses the existing album and uploads into it.
	PolicyMerge ExistsPolicy = "merge"
	// PolicyStop refuses to touch an existing album.
	PolicyStop ExistsPolicy = "stop"
)

// ErrAlbumExists is returned by GetOrCreate under PolicyStop.
var ErrAlbumExists = errors.New("album already exists")

// estimatedAlbums sizes the quota gate for the initial listing.
const estimatedAlbums = 100

// Manager caches remote albums and creates missing ones. The remote service
// only exposes albums created by this tool's credentials; that is an API
// restriction, not something to work around.
type Manager struct {
	svc   photos.Service
	store *state.Store
	quota *quota.Tracker
	cfg   *config.Config
	log   zerolog.Logger
	sleep func(ctx context.Context, d time.Duration) error

	cache  map[string]string
	loaded bool
}

// New builds a Manager. The cache stays empty until LoadExisting runs.
func New(svc photos.Service, store *state.Store, tracker *quota.Tracker, cfg *config.Config, logger zerolog.Logger) *Manager {
	return &Manager{
		svc:   svc,
		store: store,
		quota: tracker,
		cfg:   cfg,
		log:   logger.With().Str("component", "albums").Logger(),
		sleep: sleepCtx,
		cache: make(map[string]string),
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (m *Manager) backoff(attempt int) time.Duration {
	return time.Duration(float64(m.cfg.Upload.RetryDelay) * math.Pow(m.cfg.Upload.BackoffFactor, float64(attempt)))
}

// LoadExisting pages through all app-created albums into the cache. It runs
// at most once per process; 429 answers retry the same page after a fixed
// delay, and 403 means no app-created albums exist yet.
func (m *Manager) LoadExisting(ctx context.Context) error {
	if m.loaded {
		return nil
	}

	if ok, reason := m.quota.CanPerform(quota.OpListAlbums, estimatedAlbums); !ok {
		return fmt.Errorf("cannot list albums: %s", reason)
	}

	m.log.Info().Msg("loading app-created albums")
	found := make(map[string]string)
	pageToken := ""
	pages := 0

	for {
		if !m.quota.CanMakeRequests(1) {
			return errors.New("quota exhausted while loading albums")
		}

		resp, err := m.svc.ListAlbums(ctx, pageToken)
		if err != nil {
			if photos.IsRateLimited(err) {
				m.log.Warn().Msg("rate limited while listing albums, retrying page")
				if err := m.sleep(ctx, m.cfg.Upload.RetryDelay); err != nil {
					return err
				}
				continue
			}
			if photos.IsPermissionDenied(err) {
				m.log.Info().Msg("no app-created albums visible yet")
				break
			}
			return fmt.Errorf("listing albums: %w", err)
		}

		if !m.quota.RecordRequests(1) {
			return errors.New("quota exhausted after listing albums")
		}
		pages++

		for _, a := range resp.Albums {
			if a.Title != "" && a.ID != "" {
				found[a.Title] = a.ID
			}
		}
		if resp.NextPageToken == "" {
			break
		}
		pageToken = resp.NextPageToken
	}

	m.cache = found
	m.loaded = true
	m.log.Info().Int("albums", len(found)).Int("pages", pages).Msg("album cache loaded")
	return nil
}

// Invalidate drops the cache so the next LoadExisting fetches again.
func (m *Manager) Invalidate() {
	m.cache = make(map[string]string)
	m.loaded = false
}

// Exists checks the persisted state first, then the remote cache, loading it
// on first use.
func (m *Manager) Exists(ctx context.Context, name string) (bool, string, error) {
	if id, ok := m.store.AlbumID(name); ok {
		return true, id, nil
	}
	if err := m.LoadExisting(ctx); err != nil {
		return false, "", err
	}
	id, ok := m.cache[name]
	return ok, id, nil
}

// Create makes a new album after sanitizing its name. Rate limits and
// transient failures retry with exponential backoff; a 409 conflict falls
// back to looking the album up instead of failing.
func (m *Manager) Create(ctx context.Context, name string) (string, error) {
	title := m.cfg.SanitizeAlbumName(name)
	if title == "" {
		return "", fmt.Errorf("invalid album name %q", name)
	}

	if ok, reason := m.quota.CanPerform(quota.OpCreateAlbum, 0); !ok {
		return "", fmt.Errorf("cannot create album %q: %s", title, reason)
	}

	var lastErr error
	for attempt := 0; attempt <= m.cfg.Upload.MaxRetries; attempt++ {
		album, err := m.svc.CreateAlbum(ctx, title)
		if err == nil {
			if !m.quota.RecordRequests(1) {
				return "", errors.New("quota exhausted after creating album")
			}
			m.log.Info().Str("album", title).Str("id", album.ID).Msg("album created")
			m.store.AddCreatedAlbum(title, album.ID)
			m.cache[title] = album.ID
			return album.ID, nil
		}

		switch {
		case photos.IsConflict(err):
			m.log.Warn().Str("album", title).Msg("album may already exist, looking it up")
			exists, id, lookupErr := m.Exists(ctx, title)
			if lookupErr != nil {
				return "", lookupErr
			}
			if exists && id != "" {
				m.store.AddCreatedAlbum(title, id)
				return id, nil
			}
			return "", fmt.Errorf("album %q conflicts but cannot be found", title)
		case photos.IsRateLimited(err):
			m.log.Warn().Str("album", title).Dur("wait", m.backoff(attempt)).Msg("rate limited creating album")
		default:
			m.log.Error().Err(err).Str("album", title).Int("attempt", attempt+1).Msg("album create failed")
		}

		lastErr = err
		if attempt < m.cfg.Upload.MaxRetries {
			if err := m.sleep(ctx, m.backoff(attempt)); err != nil {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("creating album %q after %d attempts: %w", title, m.cfg.Upload.MaxRetries+1, lastErr)
}

// GetOrCreate resolves an album by name under the given policy. The second
// return reports whether the album was newly created. Under PolicySkip an
// existing album yields an empty id; under PolicyStop it yields
// ErrAlbumExists.
func (m *Manager) GetOrCreate(ctx context.Context, name string, policy ExistsPolicy) (string, bool, error) {
	title := m.cfg.SanitizeAlbumName(name)
	if title == "" {
		return "", false, fmt.Errorf("invalid album name %q", name)
	}

	exists, id, err := m.Exists(ctx, title)
	if err != nil {
		return "", false, err
	}

	if exists && id != "" {
		m.log.Info().Str("album", title).Str("id", id).Msg("album already exists")
		switch policy {
		case PolicySkip:
			return "", false, nil
		case PolicyMerge:
			m.store.AddCreatedAlbum(title, id)
			return id, false, nil
		default:
			return "", false, fmt.Errorf("%w: %q (use --skip-existing or --merge-existing)", ErrAlbumExists, title)
		}
	}

	created, err := m.Create(ctx, title)
	if err != nil {
		return "", false, err
	}
	return created, true, nil
}

// AddMedia places already-created media items into an album with one batched
// call. An empty id list is a successful no-op. Per-item failures are logged
// but the call only fails when nothing succeeded.
func (m *Manager) AddMedia(ctx context.Context, albumID string, mediaItemIDs []string) error {
	if len(mediaItemIDs) == 0 {
		return nil
	}

	if ok, reason := m.quota.CanPerform(quota.OpAddToAlbum, 0); !ok {
		return fmt.Errorf("cannot add media to album: %s", reason)
	}

	var lastErr error
	for attempt := 0; attempt <= m.cfg.Upload.MaxRetries; attempt++ {
		resp, err := m.svc.AddMediaToAlbum(ctx, albumID, mediaItemIDs)
		if err == nil {
			if !m.quota.RecordRequests(1) {
				return errors.New("quota exhausted after adding media to album")
			}
			return m.checkAddResults(albumID, mediaItemIDs, resp)
		}

		if photos.IsRateLimited(err) {
			m.log.Warn().Dur("wait", m.backoff(attempt)).Msg("rate limited adding media to album")
		} else {
			m.log.Error().Err(err).Int("attempt", attempt+1).Msg("adding media to album failed")
		}

		lastErr = err
		if attempt < m.cfg.Upload.MaxRetries {
			if err := m.sleep(ctx, m.backoff(attempt)); err != nil {
				return err
			}
		}
	}
	return fmt.Errorf("adding media to album after %d attempts: %w", m.cfg.Upload.MaxRetries+1, lastErr)
}

func (m *Manager) checkAddResults(albumID string, ids []string, resp *photos.BatchAddResponse) error {
	if len(resp.NewMediaItemResults) == 0 {
		m.log.Debug().Int("items", len(ids)).Str("album", albumID).Msg("media added to album")
		return nil
	}

	succeeded := 0
	for _, r := range resp.NewMediaItemResults {
		if r.Succeeded() {
			succeeded++
			continue
		}
		m.log.Warn().Str("album", albumID).Str("status", r.Status.Message).Msg("item not added to album")
	}
	if succeeded == 0 {
		return fmt.Errorf("no media items were added to album %s", albumID)
	}
	if succeeded < len(ids) {
		m.log.Warn().Int("succeeded", succeeded).Int("total", len(ids)).Msg("partial add to album")
	}
	return nil
}

// Summary renders a one-line album overview.
func (m *Manager) Summary() string {
	return fmt.Sprintf("Albums: %d recorded in state, %d visible remotely", len(m.store.CreatedAlbums()), len(m.cache))
}
