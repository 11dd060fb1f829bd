package uploader

import (
	"bytes"
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bnema/photup/internal/clock"
	"github.com/bnema/photup/internal/config"
	"github.com/bnema/photup/internal/logging"
	"github.com/bnema/photup/internal/photos"
	"github.com/bnema/photup/internal/quota"
	"github.com/bnema/photup/internal/state"
)

type fakeService struct {
	uploadBytes     func(ctx context.Context, path string) (string, error)
	createMediaItem func(ctx context.Context, token, filename, albumID string) (*photos.BatchCreateResponse, error)

	uploadCalls int
	createCalls int
}

func (f *fakeService) UploadBytes(ctx context.Context, path string) (string, error) {
	f.uploadCalls++
	if f.uploadBytes == nil {
		return "token-" + filepath.Base(path), nil
	}
	return f.uploadBytes(ctx, path)
}

func (f *fakeService) CreateMediaItem(ctx context.Context, token, filename, albumID string) (*photos.BatchCreateResponse, error) {
	f.createCalls++
	if f.createMediaItem == nil {
		return successResponse("media-" + filename), nil
	}
	return f.createMediaItem(ctx, token, filename, albumID)
}

func (f *fakeService) ListAlbums(context.Context, string) (*photos.ListAlbumsResponse, error) {
	panic("not used in uploader tests")
}

func (f *fakeService) CreateAlbum(context.Context, string) (*photos.Album, error) {
	panic("not used in uploader tests")
}

func (f *fakeService) AddMediaToAlbum(context.Context, string, []string) (*photos.BatchAddResponse, error) {
	panic("not used in uploader tests")
}

func successResponse(id string) *photos.BatchCreateResponse {
	return &photos.BatchCreateResponse{NewMediaItemResults: []photos.NewMediaItemResult{{
		Status:    photos.ItemStatus{Code: 0, Message: "Success"},
		MediaItem: &photos.MediaItem{ID: id},
	}}}
}

type harness struct {
	up    *Uploader
	store *state.Store
	svc   *fakeService
	dir   string
}

func newHarness(t *testing.T, svc *fakeService, sessionMax int) *harness {
	t.Helper()
	clk, err := clock.NewFixed("America/Los_Angeles", func() time.Time {
		return time.Date(2023, 6, 15, 20, 0, 0, 0, time.UTC)
	})
	require.NoError(t, err)

	dir := t.TempDir()
	store, err := state.Open(t.TempDir(), dir, clk, zerolog.Nop())
	require.NoError(t, err)

	cfg := config.DefaultConfig()
	cfg.Upload.RetryDelay = time.Millisecond
	if sessionMax == 0 {
		sessionMax = cfg.Quota.MaxSessionRequests
	}

	tracker := quota.New(store, sessionMax, cfg.Quota.MaxDailyRequests, zerolog.Nop())
	up := New(svc, store, tracker, cfg, zerolog.Nop())
	up.sleep = func(context.Context, time.Duration) error { return nil }
	return &harness{up: up, store: store, svc: svc, dir: dir}
}

func (h *harness) writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestUploadFileSuccess(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "album-1")

	assert.Equal(t, Uploaded, res.Outcome)
	assert.Equal(t, "media-photo.jpg", res.MediaItemID)
	assert.True(t, h.store.IsUploaded(path))
	assert.Equal(t, 1, h.store.Session().APIRequestsCount, "only media-item creation consumes quota")
}

func TestUploadFileIdempotent(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	first := h.up.UploadFile(context.Background(), path, "")
	second := h.up.UploadFile(context.Background(), path, "")

	assert.Equal(t, Uploaded, first.Outcome)
	assert.Equal(t, Skipped, second.Outcome)
	assert.Equal(t, "already uploaded", second.Reason)
	assert.Equal(t, 1, svc.uploadCalls, "second run must not re-upload")
	assert.Equal(t, 1, h.store.UploadedCount())
}

func TestUploadFileValidation(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)

	h.up.cfg.Upload.MaxImageSize = 3

	tests := []struct {
		name    string
		path    func() string
		outcome Outcome
		reason  string
	}{
		{"missing file", func() string { return filepath.Join(h.dir, "nope.jpg") }, Failed, "file does not exist"},
		{"unsupported extension", func() string { return h.writeFile(t, "notes.txt", "x") }, Skipped, "unsupported file format"},
		{"empty file", func() string { return h.writeFile(t, "empty.jpg", "") }, Skipped, "empty file"},
		{"oversized image", func() string { return h.writeFile(t, "big.jpg", "too big") }, Skipped, "file too large"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := h.up.UploadFile(context.Background(), tt.path(), "")
			assert.Equal(t, tt.outcome, res.Outcome)
			assert.Contains(t, res.Reason, tt.reason)
		})
	}
	assert.Equal(t, 0, svc.uploadCalls, "invalid files must not reach the service")
}

func TestUploadBytesRetriesRateLimit(t *testing.T) {
	svc := &fakeService{}
	svc.uploadBytes = func(_ context.Context, path string) (string, error) {
		if svc.uploadCalls < 3 {
			return "", &photos.APIError{StatusCode: http.StatusTooManyRequests}
		}
		return "token-ok", nil
	}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "")
	assert.Equal(t, Uploaded, res.Outcome)
	assert.Equal(t, 3, svc.uploadCalls)
}

func TestUploadBytesExhaustsRetries(t *testing.T) {
	svc := &fakeService{
		uploadBytes: func(context.Context, string) (string, error) {
			return "", &photos.APIError{StatusCode: http.StatusInternalServerError}
		},
	}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "")
	assert.Equal(t, Failed, res.Outcome)
	assert.Contains(t, res.Reason, "failed to upload file bytes")
	assert.Equal(t, 4, svc.uploadCalls, "initial attempt plus three retries")

	entry, ok := h.store.FailedUpload(path)
	require.True(t, ok)
	assert.Equal(t, 1, entry.Attempts)
}

func TestCreateMediaItemFailureMarksFailed(t *testing.T) {
	svc := &fakeService{
		createMediaItem: func(context.Context, string, string, string) (*photos.BatchCreateResponse, error) {
			return &photos.BatchCreateResponse{NewMediaItemResults: []photos.NewMediaItemResult{{
				Status: photos.ItemStatus{Code: 13, Message: "Internal error"},
			}}}, nil
		},
	}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "")
	assert.Equal(t, Failed, res.Outcome)
	assert.False(t, h.store.IsUploaded(path))
}

func TestUploadDirectoryScenario(t *testing.T) {
	// Three supported files plus one unsupported, fresh state: all three
	// upload, the fourth is skipped.
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	h.writeFile(t, "a.jpg", "aa")
	h.writeFile(t, "b.png", "bb")
	h.writeFile(t, "c.mp4", "cc")
	h.writeFile(t, "readme.txt", "dd")

	res := h.up.UploadDirectory(context.Background(), h.dir, "album-1")
	assert.Equal(t, 3, res.Uploaded)
	assert.Equal(t, 1, res.Skipped)
	assert.Equal(t, 0, res.Failed)
	assert.False(t, res.Halted)

	// Second run over the same directory re-uploads nothing.
	res = h.up.UploadDirectory(context.Background(), h.dir, "album-1")
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, 4, res.Skipped)
	assert.Equal(t, 3, svc.uploadCalls)
}

func TestUploadDirectoryHaltsOnSessionLimit(t *testing.T) {
	// Session budget of 2: the first file passes the gate and consumes one
	// unit; the second file's estimated cost of 2 no longer fits. The
	// remaining files stay untouched.
	svc := &fakeService{}
	h := newHarness(t, svc, 2)
	h.writeFile(t, "a.jpg", "aa")
	h.writeFile(t, "b.jpg", "bb")
	h.writeFile(t, "c.jpg", "cc")

	res := h.up.UploadDirectory(context.Background(), h.dir, "")
	assert.Equal(t, 1, res.Uploaded)
	assert.Equal(t, 0, res.Failed)
	assert.True(t, res.Halted)

	assert.Contains(t, h.store.Session().StopReason, "session quota")
	assert.Equal(t, 1, h.store.UploadedCount())
	assert.Equal(t, 0, h.store.FailedCount(), "unprocessed files are neither uploaded nor failed")
}

func TestUploadDirectoryStopsOnCancel(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	h.writeFile(t, "a.jpg", "aa")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := h.up.UploadDirectory(ctx, h.dir, "")
	assert.True(t, res.Halted)
	assert.Equal(t, 0, res.Uploaded)
	assert.Equal(t, "Interrupted by user", h.store.Session().StopReason)
}

func TestUploadDirectoryMissing(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)

	res := h.up.UploadDirectory(context.Background(), filepath.Join(h.dir, "nope"), "")
	assert.Equal(t, 1, res.Failed)
}

func TestCountDirectoryMedia(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	h.writeFile(t, "a.jpg", "aa")
	h.writeFile(t, "b.heic", "bb")
	h.writeFile(t, "notes.txt", "cc")

	total, supported := CountDirectoryMedia(h.dir)
	assert.Equal(t, 3, total)
	assert.Equal(t, 2, supported)
}

func TestUploadBytesUnauthorizedNotRetried(t *testing.T) {
	svc := &fakeService{
		uploadBytes: func(context.Context, string) (string, error) {
			return "", &photos.APIError{StatusCode: http.StatusUnauthorized, Message: "invalid credentials"}
		},
	}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "")

	assert.Equal(t, Failed, res.Outcome)
	assert.Contains(t, res.Reason, "authorization expired")
	assert.Equal(t, 1, svc.uploadCalls, "the client already refreshed and replayed once; no further retries")
}

func TestCreateMediaItemUnauthorizedNotRetried(t *testing.T) {
	svc := &fakeService{
		createMediaItem: func(context.Context, string, string, string) (*photos.BatchCreateResponse, error) {
			return nil, &photos.APIError{StatusCode: http.StatusUnauthorized}
		},
	}
	h := newHarness(t, svc, 0)
	path := h.writeFile(t, "photo.jpg", "bytes")

	res := h.up.UploadFile(context.Background(), path, "")

	assert.Equal(t, Failed, res.Outcome)
	assert.Equal(t, 1, svc.createCalls)
}

func TestUploadDirectoryLogsCarryContextFields(t *testing.T) {
	svc := &fakeService{}
	h := newHarness(t, svc, 0)
	h.writeFile(t, "photo.jpg", "bytes")

	var buf bytes.Buffer
	ctx := logging.WithContext(context.Background(), zerolog.New(&buf))

	h.up.UploadDirectory(ctx, h.dir, "")

	out := buf.String()
	assert.Contains(t, out, `"component":"uploader"`)
	assert.Contains(t, out, `"directory":"`+h.dir)
	assert.Contains(t, out, "directory complete")
}
