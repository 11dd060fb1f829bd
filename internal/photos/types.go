// Package photos talks to the remote photo-library API: raw byte uploads,
// media-item creation, and album management. Everything above it consumes
// the Service interface so tests can swap in a fake.
package photos

// Album is one remote album visible to this tool's credentials.
type Album struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	ProductURL      string `json:"productUrl,omitempty"`
	MediaItemsCount string `json:"mediaItemsCount,omitempty"`
}

// ListAlbumsResponse is one page of the albums listing.
type ListAlbumsResponse struct {
	Albums        []Album `json:"albums"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
}

type createAlbumRequest struct {
	Album albumTitle `json:"album"`
}

type albumTitle struct {
	Title string `json:"title"`
}

// SimpleMediaItem references previously uploaded bytes by their token.
type SimpleMediaItem struct {
	UploadToken string `json:"uploadToken"`
	FileName    string `json:"fileName"`
}

// NewMediaItem is one item in a batch-create request.
type NewMediaItem struct {
	Description     string          `json:"description,omitempty"`
	SimpleMediaItem SimpleMediaItem `json:"simpleMediaItem"`
}

type batchCreateRequest struct {
	AlbumID       string         `json:"albumId,omitempty"`
	NewMediaItems []NewMediaItem `json:"newMediaItems"`
}

// ItemStatus is the per-item status inside a batch response.
type ItemStatus struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// MediaItem is the created library entry.
type MediaItem struct {
	ID         string `json:"id"`
	ProductURL string `json:"productUrl,omitempty"`
	Filename   string `json:"filename,omitempty"`
}

// NewMediaItemResult is one per-item outcome of a batch create.
type NewMediaItemResult struct {
	UploadToken string     `json:"uploadToken,omitempty"`
	Status      ItemStatus `json:"status"`
	MediaItem   *MediaItem `json:"mediaItem,omitempty"`
}

// Succeeded reports whether this item was created. The API signals success
// three ways depending on endpoint version: status code 0, the literal
// message "Success", or simply the presence of the created media item.
func (r *NewMediaItemResult) Succeeded() bool {
	return r.Status.Code == 0 || r.Status.Message == "Success" || r.MediaItem != nil
}

// BatchCreateResponse is the full batch-create reply.
type BatchCreateResponse struct {
	NewMediaItemResults []NewMediaItemResult `json:"newMediaItemResults"`
}

type batchAddRequest struct {
	MediaItemIDs []string `json:"mediaItemIds"`
}

// BatchAddItemResult is one per-item outcome of adding media to an album.
type BatchAddItemResult struct {
	Status ItemStatus `json:"status"`
}

// Succeeded reports whether the item was added.
func (r *BatchAddItemResult) Succeeded() bool {
	return r.Status.Code == 0 || r.Status.Message == "Success"
}

// BatchAddResponse is the reply to a batch add-to-album call. An empty
// result list means the whole batch succeeded.
type BatchAddResponse struct {
	NewMediaItemResults []BatchAddItemResult `json:"newMediaItemResults"`
}
