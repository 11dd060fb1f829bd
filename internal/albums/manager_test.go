package albums

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/photup/internal/clock"
	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/photos"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
)

type fakeService struct {
	listAlbums      func(ctx context.Context, pageToken string) (*photos.ListAlbumsResponse, error)
	createAlbum     func(ctx context.Context, title string) (*photos.Album, error)
	addMediaToAlbum func(ctx context.Context, albumID string, ids []string) (*photos.BatchAddResponse, error)

	createCalls int
	addCalls    int
}

func (f *fakeService) ListAlbums(ctx context.Context, pageToken string) (*photos.ListAlbumsResponse, error) {
	if f.listAlbums == nil {
		return &photos.ListAlbumsResponse{}, nil
	}
	return f.listAlbums(ctx, pageToken)
}

func (f *fakeService) CreateAlbum(ctx context.Context, title string) (*photos.Album, error) {
	f.createCalls++
	return f.createAlbum(ctx, title)
}

func (f *fakeService) AddMediaToAlbum(ctx context.Context, albumID string, ids []string) (*photos.BatchAddResponse, error) {
	f.addCalls++
	return f.addMediaToAlbum(ctx, albumID, ids)
}

func (f *fakeService) UploadBytes(context.Context, string) (string, error) {
	panic("not used in album tests")
}

func (f *fakeService) CreateMediaItem(context.Context, string, string, string) (*photos.BatchCreateResponse, error) {
	panic("not used in album tests")
}

func newTestManager(t *testing.T, svc photos.Service) (*Manager, *state.Store) {
	t.Helper()
	clk, err := clock.NewFixed("America/Los_Angeles", func() time.Time {
		return time.Date(2023, 6, 15, 20, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	store, err := state.Open(t.TempDir(), t.TempDir(), clk, zerolog.Nop())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Upload.RetryDelay = time.Millisecond

	tracker := quota.New(store, cfg.Quota.MaxSessionRequests, cfg.Quota.MaxDailyRequests, zerolog.Nop())
	m := New(svc, store, tracker, cfg, zerolog.Nop())
	m.sleep = func(context.Context, time.Duration) error { return nil }
	return m, store
}

func apiErr(status int) error {
	return &photos.APIError{StatusCode: status}
}

func TestLoadExistingPagesUntilDone(t *testing.T) {
	svc := &fakeService{
		listAlbums: func(_ context.Context, pageToken string) (*photos.ListAlbumsResponse, error) {
			if pageToken == "" {
				return &photos.ListAlbumsResponse{
					Albums:        []photos.Album{{ID: "a1", Title: "2022"}},
					NextPageToken: "p2",
				}, nil
			}
			return &photos.ListAlbumsResponse{
				Albums: []photos.Album{{ID: "a2", Title: "2023"}},
			}, nil
		},
	}
	m, _ := newTestManager(t, svc)

	require.NoError(t, m.LoadExisting(context.Background()))
	exists, id, err := m.Exists(context.Background(), "2023")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "a2", id)
}

func TestLoadExistingRetriesRateLimitedPage(t *testing.T) {
	calls := 0
	svc := &fakeService{
		listAlbums: func(context.Context, string) (*photos.ListAlbumsResponse, error) {
			calls++
			if calls == 1 {
				return nil, apiErr(http.StatusTooManyRequests)
			}
			return &photos.ListAlbumsResponse{Albums: []photos.Album{{ID: "a1", Title: "2022"}}}, nil
		},
	}
	m, _ := newTestManager(t, svc)

	require.NoError(t, m.LoadExisting(context.Background()))
	assert.Equal(t, 2, calls)
}

func TestLoadExistingPermissionDeniedMeansEmpty(t *testing.T) {
	svc := &fakeService{
		listAlbums: func(context.Context, string) (*photos.ListAlbumsResponse, error) {
			return nil, apiErr(http.StatusForbidden)
		},
	}
	m, _ := newTestManager(t, svc)

	require.NoError(t, m.LoadExisting(context.Background()))
	exists, _, err := m.Exists(context.Background(), "anything")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestExistsPrefersState(t *testing.T) {
	svc := &fakeService{
		listAlbums: func(context.Context, string) (*photos.ListAlbumsResponse, error) {
			t.Fatal("state hit must not trigger a remote listing")
			return nil, nil
		},
	}
	m, store := newTestManager(t, svc)
	store.AddCreatedAlbum("Vacation", "album-7")

	exists, id, err := m.Exists(context.Background(), "Vacation")
	require.NoError(t, err)
	assert.True(t, exists)
	assert.Equal(t, "album-7", id)
}

func TestCreateRecordsStateAndCache(t *testing.T) {
	svc := &fakeService{
		createAlbum: func(_ context.Context, title string) (*photos.Album, error) {
			assert.Equal(t, "Summer 2023", title)
			return &photos.Album{ID: "new-1", Title: title}, nil
		},
	}
	m, store := newTestManager(t, svc)

	id, err := m.Create(context.Background(), "  Summer   2023  ")
	require.NoError(t, err)
	assert.Equal(t, "new-1", id)

	got, ok := store.AlbumID("Summer 2023")
	assert.True(t, ok)
	assert.Equal(t, "new-1", got)
	assert.Equal(t, 1, store.Session().APIRequestsCount)
}

func TestCreateRetriesThenSucceeds(t *testing.T) {
	svc := &fakeService{}
	svc.createAlbum = func(_ context.Context, title string) (*photos.Album, error) {
		if svc.createCalls < 3 {
			return nil, apiErr(http.StatusTooManyRequests)
		}
		return &photos.Album{ID: "new-2", Title: title}, nil
	}
	m, _ := newTestManager(t, svc)

	id, err := m.Create(context.Background(), "Trips")
	require.NoError(t, err)
	assert.Equal(t, "new-2", id)
	assert.Equal(t, 3, svc.createCalls)
}

func TestCreateConflictFallsBackToLookup(t *testing.T) {
	svc := &fakeService{
		createAlbum: func(context.Context, string) (*photos.Album, error) {
			return nil, apiErr(http.StatusConflict)
		},
		listAlbums: func(context.Context, string) (*photos.ListAlbumsResponse, error) {
			return &photos.ListAlbumsResponse{Albums: []photos.Album{{ID: "dup-1", Title: "Trips"}}}, nil
		},
	}
	m, store := newTestManager(t, svc)

	id, err := m.Create(context.Background(), "Trips")
	require.NoError(t, err)
	assert.Equal(t, "dup-1", id)
	got, _ := store.AlbumID("Trips")
	assert.Equal(t, "dup-1", got)
}

func TestGetOrCreatePolicies(t *testing.T) {
	tests := []struct {
		name       string
		policy     ExistsPolicy
		wantID     string
		wantNew    bool
		wantErr    error
		wantCreate int
	}{
		{"skip returns no id", PolicySkip, "", false, nil, 0},
		{"merge reuses existing", PolicyMerge, "existing-1", false, nil, 0},
		{"stop refuses", PolicyStop, "", false, ErrAlbumExists, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeService{
				createAlbum: func(context.Context, string) (*photos.Album, error) {
					return &photos.Album{ID: "should-not-happen"}, nil
				},
			}
			m, store := newTestManager(t, svc)
			store.AddCreatedAlbum("Vacation", "existing-1")

			id, created, err := m.GetOrCreate(context.Background(), "Vacation", tt.policy)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.wantID, id)
			assert.Equal(t, tt.wantNew, created)
			assert.Equal(t, tt.wantCreate, svc.createCalls, "existing album must not be recreated")
		})
	}
}

func TestGetOrCreateCreatesWhenMissing(t *testing.T) {
	svc := &fakeService{
		createAlbum: func(_ context.Context, title string) (*photos.Album, error) {
			return &photos.Album{ID: "fresh-1", Title: title}, nil
		},
	}
	m, _ := newTestManager(t, svc)

	id, created, err := m.GetOrCreate(context.Background(), "New Album", PolicyStop)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "fresh-1", id)
}

func TestAddMediaEmptyIsNoOp(t *testing.T) {
	svc := &fakeService{
		addMediaToAlbum: func(context.Context, string, []string) (*photos.BatchAddResponse, error) {
			t.Fatal("empty input must not reach the service")
			return nil, nil
		},
	}
	m, store := newTestManager(t, svc)

	require.NoError(t, m.AddMedia(context.Background(), "album-1", nil))
	assert.Equal(t, 0, store.Session().APIRequestsCount)
}

func TestAddMediaPartialFailureStillSucceeds(t *testing.T) {
	svc := &fakeService{
		addMediaToAlbum: func(context.Context, string, []string) (*photos.BatchAddResponse, error) {
			return &photos.BatchAddResponse{NewMediaItemResults: []photos.BatchAddItemResult{
				{Status: photos.ItemStatus{Code: 0}},
				{Status: photos.ItemStatus{Code: 13, Message: "Internal error"}},
			}}, nil
		},
	}
	m, _ := newTestManager(t, svc)

	assert.NoError(t, m.AddMedia(context.Background(), "album-1", []string{"m1", "m2"}))
}

func TestAddMediaAllFailedFails(t *testing.T) {
	svc := &fakeService{
		addMediaToAlbum: func(context.Context, string, []string) (*photos.BatchAddResponse, error) {
			return &photos.BatchAddResponse{NewMediaItemResults: []photos.BatchAddItemResult{
				{Status: photos.ItemStatus{Code: 13, Message: "Internal error"}},
			}}, nil
		},
	}
	m, _ := newTestManager(t, svc)

	err := m.AddMedia(context.Background(), "album-1", []string{"m1"})
	assert.ErrorContains(t, err, "no media items were added")
}
