package photos

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/bnema/photup/internal/config"
)

// Service is the remote capability set the engine consumes. Client is the
// production implementation; tests provide fakes.
type Service interface {
	// ListAlbums fetches one page of app-created albums.
	ListAlbums(ctx context.Context, pageToken string) (*ListAlbumsResponse, error)
	// CreateAlbum creates an album with the given title.
	CreateAlbum(ctx context.Context, title string) (*Album, error)
	// AddMediaToAlbum adds already-created media items to an album.
	AddMediaToAlbum(ctx context.Context, albumID string, mediaItemIDs []string) (*BatchAddResponse, error)
	// UploadBytes streams a file's raw bytes and returns an opaque upload
	// token. The transfer itself does not consume API quota.
	UploadBytes(ctx context.Context, path string) (string, error)
	// CreateMediaItem turns an upload token into a library media item,
	// optionally placing it in an album.
	CreateMediaItem(ctx context.Context, uploadToken, filename, albumID string) (*BatchCreateResponse, error)
}

const (
	listPageSize   = 50
	requestTimeout = 30 * time.Second
)

// Client is the HTTP implementation of Service with bearer-token auth.
// A 401 answer triggers one forced token refresh and an immediate retry;
// all other retry policy lives in the callers.
type Client struct {
	httpClient   *http.Client
	uploadClient *http.Client
	tokens       TokenProvider
	baseURL      string
	uploadURL    string
	log          zerolog.Logger
}

var _ Service = (*Client)(nil)

// NewClient builds a Client against the configured endpoints.
func NewClient(cfg config.ServiceConfig, tokens TokenProvider, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		// Uploads can legitimately run for minutes; the context governs
		// cancellation instead of a fixed timeout.
		uploadClient: &http.Client{},
		tokens:       tokens,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		uploadURL:    cfg.UploadURL,
		log:          logger.With().Str("component", "photos").Logger(),
	}
}

func (c *Client) ListAlbums(ctx context.Context, pageToken string) (*ListAlbumsResponse, error) {
	q := url.Values{}
	q.Set("pageSize", fmt.Sprint(listPageSize))
	if pageToken != "" {
		q.Set("pageToken", pageToken)
	}

	var out ListAlbumsResponse
	if err := c.doJSON(ctx, http.MethodGet, c.baseURL+"/albums?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateAlbum(ctx context.Context, title string) (*Album, error) {
	req := createAlbumRequest{Album: albumTitle{Title: title}}

	var out Album
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/albums", req, &out); err != nil {
		return nil, err
	}
	if out.ID == "" {
		return nil, fmt.Errorf("album create response carried no id")
	}
	return &out, nil
}

func (c *Client) AddMediaToAlbum(ctx context.Context, albumID string, mediaItemIDs []string) (*BatchAddResponse, error) {
	req := batchAddRequest{MediaItemIDs: mediaItemIDs}

	var out BatchAddResponse
	endpoint := fmt.Sprintf("%s/albums/%s:batchAddMediaItems", c.baseURL, url.PathEscape(albumID))
	if err := c.doJSON(ctx, http.MethodPost, endpoint, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateMediaItem(ctx context.Context, uploadToken, filename, albumID string) (*BatchCreateResponse, error) {
	req := batchCreateRequest{
		AlbumID: albumID,
		NewMediaItems: []NewMediaItem{{
			Description: filename,
			SimpleMediaItem: SimpleMediaItem{
				UploadToken: uploadToken,
				FileName:    filename,
			},
		}},
	}

	var out BatchCreateResponse
	if err := c.doJSON(ctx, http.MethodPost, c.baseURL+"/mediaItems:batchCreate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// UploadBytes streams the file at path to the upload endpoint. The filename
// header is URL-escaped so non-ASCII names survive HTTP transport.
func (c *Client) UploadBytes(ctx context.Context, path string) (string, error) {
	resp, err := c.postFile(ctx, path)
	if err != nil {
		return "", err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		if _, err := c.tokens.ForceRefresh(ctx); err != nil {
			return "", fmt.Errorf("refreshing token after 401: %w", err)
		}
		if resp, err = c.postFile(ctx, path); err != nil {
			return "", err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("reading upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", newAPIError(resp.StatusCode, body)
	}

	token := strings.TrimSpace(string(body))
	if token == "" {
		return "", fmt.Errorf("upload succeeded but returned no token")
	}
	return token, nil
}

func (c *Client) postFile(ctx context.Context, path string) (*http.Response, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("building upload request: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		f.Close()
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set("Content-Type", "application/octet-stream")
	req.Header.Set("X-Goog-Upload-Protocol", "raw")
	req.Header.Set("X-Goog-Upload-File-Name", url.PathEscape(filepath.Base(path)))
	req.Header.Set("X-Goog-Upload-Content-Type", config.MimeType(path))

	resp, err := c.uploadClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("uploading %s: %w", filepath.Base(path), err)
	}
	return resp, nil
}

// doJSON sends a JSON request and decodes a JSON response. On 401 it forces
// one token refresh and replays the request.
func (c *Client) doJSON(ctx context.Context, method, endpoint string, in, out any) error {
	var payload []byte
	if in != nil {
		var err error
		if payload, err = json.Marshal(in); err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
	}

	resp, err := c.send(ctx, method, endpoint, payload)
	if err != nil {
		return err
	}

	if resp.StatusCode == http.StatusUnauthorized {
		drainAndClose(resp)
		if _, err := c.tokens.ForceRefresh(ctx); err != nil {
			return fmt.Errorf("refreshing token after 401: %w", err)
		}
		if resp, err = c.send(ctx, method, endpoint, payload); err != nil {
			return err
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newAPIError(resp.StatusCode, body)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decoding response: %w", err)
		}
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, endpoint string, payload []byte) (*http.Response, error) {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}

	tok, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, endpoint, err)
	}
	return resp, nil
}

func newAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status, Body: string(body)}

	// The service wraps errors as {"error": {"message": "..."}}.
	var wrapped struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &wrapped); err == nil {
		apiErr.Message = wrapped.Error.Message
	}
	return apiErr
}

func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
