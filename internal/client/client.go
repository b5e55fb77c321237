// Package client implements the HTTP client for the snippet backend's search
// and saved-search endpoints. The engine degrades gracefully against any
// failure here: callers surface messages, they never crash.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/snipshelf/tansaku/internal/models"
)

// ErrUnauthorized is returned when the backend rejects a call for lack of a
// signed-in user. Saved-search listing maps this to "empty list, no error".
var ErrUnauthorized = errors.New("unauthorized")

// Client talks to the snippet backend.
type Client struct {
	baseURL    string
	authToken  string
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the backend at baseURL. authToken may be empty for
// anonymous requests.
func New(baseURL, authToken string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		authToken:  authToken,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// Search queries the remote corpus. Unset query fields are omitted from the
// request; page is 1-based.
func (c *Client) Search(ctx context.Context, q models.Query, page, limit int) (*models.SearchPage, error) {
	params := url.Values{}
	if text := strings.TrimSpace(q.Text); text != "" {
		params.Set("q", text)
	}
	if len(q.Tags) > 0 {
		params.Set("tags", strings.Join(q.Tags, ","))
	}
	if book := strings.TrimSpace(q.Book); book != "" {
		params.Set("book", book)
	}
	if q.CreatedFrom != nil {
		params.Set("createdFrom", q.CreatedFrom.UTC().Format(time.RFC3339))
	}
	if q.CreatedTo != nil {
		params.Set("createdTo", q.CreatedTo.UTC().Format(time.RFC3339))
	}
	params.Set("page", strconv.Itoa(page))
	params.Set("limit", strconv.Itoa(limit))

	var result models.SearchPage
	err := c.do(ctx, http.MethodGet, "/api/search/snippets?"+params.Encode(), nil, http.StatusOK, &result)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ListSavedSearches fetches all saved searches for the current user.
func (c *Client) ListSavedSearches(ctx context.Context) ([]models.SavedSearch, error) {
	var result []models.SavedSearch
	if err := c.do(ctx, http.MethodGet, "/api/search/saved", nil, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return result, nil
}

// CreateSavedSearch stores a new named search on the backend.
func (c *Client) CreateSavedSearch(ctx context.Context, name string, q models.Query) (*models.SavedSearch, error) {
	body := map[string]interface{}{"name": name, "query": q}
	var result models.SavedSearch
	if err := c.do(ctx, http.MethodPost, "/api/search/saved", body, http.StatusCreated, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UpdateSavedSearch renames an existing saved search.
func (c *Client) UpdateSavedSearch(ctx context.Context, id int64, name string) (*models.SavedSearch, error) {
	body := map[string]interface{}{"name": name}
	var result models.SavedSearch
	path := fmt.Sprintf("/api/search/saved/%d", id)
	if err := c.do(ctx, http.MethodPut, path, body, http.StatusOK, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// DeleteSavedSearch removes a saved search by id.
func (c *Client) DeleteSavedSearch(ctx context.Context, id int64) error {
	path := fmt.Sprintf("/api/search/saved/%d", id)
	return c.do(ctx, http.MethodDelete, path, nil, http.StatusNoContent, nil)
}

// do issues one request and decodes the response into out (when non-nil).
// Any status other than expectStatus becomes an error carrying the backend's
// detail message when one is present.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, expectStatus int, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.authToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.authToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	if resp.StatusCode != expectStatus {
		detail := decodeDetail(resp.Body)
		c.logger.Debug("backend error response",
			zap.String("path", path), zap.Int("status", resp.StatusCode), zap.String("detail", detail))
		return &apiError{status: resp.StatusCode, detail: detail}
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// decodeDetail extracts the backend's {"detail": "..."} message, if any.
func decodeDetail(r io.Reader) string {
	var payload struct {
		Detail string `json:"detail"`
	}
	if err := json.NewDecoder(r).Decode(&payload); err != nil {
		return ""
	}
	return payload.Detail
}

// apiError is a non-2xx response from the backend.
type apiError struct {
	status int
	detail string
}

func (e *apiError) Error() string {
	if e.detail != "" {
		return e.detail
	}
	return fmt.Sprintf("backend returned status %d", e.status)
}

// Detail returns the backend-supplied message for err, when err wraps a
// backend error response that carried one.
func Detail(err error) (string, bool) {
	var ae *apiError
	if errors.As(err, &ae) && ae.detail != "" {
		return ae.detail, true
	}
	return "", false
}

// UserMessage renders err for display: the backend's detail when present,
// otherwise fallback. Transport failures never leak Go error text to the user.
func UserMessage(err error, fallback string) string {
	if msg, ok := Detail(err); ok {
		return msg
	}
	return fallback
}
