package gallery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/jwhitmore/gallery-sync/internal/errors"
	"github.com/tidwall/gjson"
)

// Client talks to the photo store's REST API. It satisfies the session's
// DirectoryClient interface.
type Client struct {
	httpClient *http.Client
	baseURL    string
	token      string
}

// NewClient creates an API client for the given base URL.
// If httpClient is nil, http.DefaultClient is used.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
	}
}

// SetToken installs the session token sent with every request.
func (c *Client) SetToken(token string) {
	c.token = token
}

// apiError is the error envelope the store returns, sometimes with
// status 200.
type apiError struct {
	Error string `json:"error"`
	Msg   string `json:"msg"`
}

// post sends a JSON POST request and returns the raw response body.
// Responses are returned raw rather than decoded into typed structs
// because record shapes vary by API version; callers normalize with
// the helpers in types.go.
func (c *Client) post(ctx context.Context, endpoint string, body any) ([]byte, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshalling request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: sending request to %s: %v", apperrors.ErrAPIRequest, endpoint, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", endpoint, err)
	}

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrInvalidToken, endpoint)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%w: %s (%d): %s", apperrors.ErrAPIResponse, endpoint, resp.StatusCode, apiErr.Error)
		}

		return nil, fmt.Errorf("%w: %s returned status %d", apperrors.ErrAPIResponse, endpoint, resp.StatusCode)
	}

	// The store also reports errors as 200 with an "error" field.
	var apiErr apiError
	if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error != "" {
		return nil, fmt.Errorf("%w: %s: %s", apperrors.ErrAPIResponse, endpoint, apiErr.Error)
	}

	return respBody, nil
}

// Signin authenticates with email and password, returning a session token.
// The token is not installed on the client; callers decide whether to
// cache it first.
func (c *Client) Signin(ctx context.Context, email, password string) (string, error) {
	body, err := c.post(ctx, "/user/signin", map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return "", fmt.Errorf("signing in: %w", err)
	}

	token := gjson.GetBytes(body, "token").Str
	if token == "" {
		return "", fmt.Errorf("%w: signin response missing token", apperrors.ErrAPIResponse)
	}

	return token, nil
}

// FetchNodes lists the folders and albums under the given node. An empty
// nodeID lists the root. The server includes an explicit breadcrumb path
// for non-root listings; when present it is normalized verbatim.
func (c *Client) FetchNodes(ctx context.Context, nodeID string) (*NodesResponse, error) {
	body, err := c.post(ctx, "/gallery/list", map[string]string{"parent_id": nodeID})
	if err != nil {
		return nil, fmt.Errorf("listing nodes under %q: %w", nodeID, err)
	}

	resp := &NodesResponse{}

	for _, raw := range gjson.GetBytes(body, "nodes").Array() {
		resp.Nodes = append(resp.Nodes, normalizeNode(raw))
	}

	crumbs := gjson.GetBytes(body, "breadcrumbs")
	if crumbs.Exists() {
		for _, raw := range crumbs.Array() {
			resp.Breadcrumbs = append(resp.Breadcrumbs, normalizeBreadcrumb(raw))
		}
	}

	return resp, nil
}

// FetchAlbumPhotos lists the photos of one album.
func (c *Client) FetchAlbumPhotos(ctx context.Context, albumID string) ([]PhotoRef, error) {
	body, err := c.post(ctx, "/gallery/photos", map[string]string{"album_id": albumID})
	if err != nil {
		return nil, fmt.Errorf("listing photos of album %q: %w", albumID, err)
	}

	var photos []PhotoRef
	for _, raw := range gjson.GetBytes(body, "photos").Array() {
		photos = append(photos, normalizePhoto(raw))
	}

	return photos, nil
}

// SyncAlbum asks the store to materialize the album's photos into the
// processing database. This is a mutating call: photo listings fetched
// before it are stale once it returns.
func (c *Client) SyncAlbum(ctx context.Context, albumID string) (*SyncResult, error) {
	body, err := c.post(ctx, "/gallery/sync", map[string]string{"album_id": albumID})
	if err != nil {
		return nil, fmt.Errorf("syncing album %q: %w", albumID, err)
	}

	return &SyncResult{
		SyncedPhotoCount: int(gjson.GetBytes(body, "synced_photo_count").Int()),
		AlbumName:        firstString(gjson.ParseBytes(body), "album_name", "name"),
	}, nil
}

// UpdatePhotoStatus marks the given processing-database rows with status.
// Advisory UI state only; the batch endpoint is authoritative.
func (c *Client) UpdatePhotoStatus(ctx context.Context, localIDs []int64, status ProcessingStatus) error {
	_, err := c.post(ctx, "/process/status", map[string]any{
		"local_ids": localIDs,
		"status":    string(status),
	})
	if err != nil {
		return fmt.Errorf("updating photo status: %w", err)
	}

	return nil
}

// SubmitBatch runs AI processing over the given processing-database rows.
// The single response carries the authoritative total and processed
// counts; the store offers no progress stream.
func (c *Client) SubmitBatch(ctx context.Context, localIDs []int64) (*BatchResult, error) {
	body, err := c.post(ctx, "/process/batch", map[string]any{"local_ids": localIDs})
	if err != nil {
		return nil, fmt.Errorf("submitting batch: %w", err)
	}

	return &BatchResult{
		Total:     int(gjson.GetBytes(body, "total").Int()),
		Processed: int(gjson.GetBytes(body, "processed").Int()),
	}, nil
}

// SearchAlbums returns ranked album matches for a free-text query. The
// ranking heuristics live entirely on the server.
func (c *Client) SearchAlbums(ctx context.Context, query string) ([]Node, error) {
	body, err := c.post(ctx, "/gallery/search", map[string]string{"query": query})
	if err != nil {
		return nil, fmt.Errorf("searching albums: %w", err)
	}

	var nodes []Node
	for _, raw := range gjson.GetBytes(body, "results").Array() {
		nodes = append(nodes, normalizeNode(raw))
	}

	return nodes, nil
}
