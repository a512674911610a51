package listview

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
)

// APIError is a non-2xx reply from the server. The body carries a message
// string only; there is no machine-readable error code.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// FormSubmission carries the registration form fields in wire format.
// Age is text and SelectedDate an ISO timestamp, matching the form inputs.
type FormSubmission struct {
	FirstName    string `json:"firstName"`
	LastName     string `json:"lastName"`
	Email        string `json:"email"`
	Gender       string `json:"gender"`
	Age          string `json:"age"`
	Country      string `json:"country"`
	Bio          string `json:"bio"`
	SelectedDate string `json:"selectedDate"`
	Notification string `json:"notification"`
}

// Client talks to the listing endpoints over HTTP/JSON. Requests carry a
// bounded timeout and idempotent calls get one retry on transient failure.
type Client struct {
	baseURL string
	client  *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(h *http.Client) ClientOption {
	return func(c *Client) { c.client = h }
}

// NewClient builds a client for the server at baseURL (e.g. http://localhost:5002).
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type userDataResponse struct {
	UserData  []Row  `json:"userData"`
	TotalRows string `json:"totalRows"`
}

type autocompleteResponse struct {
	Values []Row `json:"values"`
}

type autocompleteOptionsResponse struct {
	AutocompleteOptions []string `json:"autocompleteOptions"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// ListRows fetches one unfiltered page. page is 1-based.
func (c *Client) ListRows(ctx context.Context, page, rowsPerPage int) (*ListPage, error) {
	endpoint := fmt.Sprintf("%s/api/getUserData?page=%d&rowsPerPage=%d", c.baseURL, page, rowsPerPage)
	var resp userDataResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp, true); err != nil {
		return nil, err
	}
	return toListPage(resp)
}

// SearchRows fetches one page filtered by searchTerm. page is 1-based.
func (c *Client) SearchRows(ctx context.Context, searchTerm string, page, rowsPerPage int) (*ListPage, error) {
	endpoint := fmt.Sprintf("%s/api/searchUserData?searchTerm=%s&page=%d&rowsPerPage=%d",
		c.baseURL, url.QueryEscape(searchTerm), page, rowsPerPage)
	var resp userDataResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp, true); err != nil {
		return nil, err
	}
	return toListPage(resp)
}

// SubmitForm creates one record and returns it with the assigned id.
// Not retried: create is not idempotent.
func (c *Client) SubmitForm(ctx context.Context, form FormSubmission) (*Row, error) {
	var created Row
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/api/submitForm", form, &created, false); err != nil {
		return nil, err
	}
	return &created, nil
}

// DeleteRow deletes one row by id. Safe to retry: deleting an absent id
// still succeeds.
func (c *Client) DeleteRow(ctx context.Context, id int) error {
	endpoint := fmt.Sprintf("%s/api/deleteRow/%d", c.baseURL, id)
	var resp messageResponse
	return c.do(ctx, http.MethodDelete, endpoint, nil, &resp, true)
}

// DeleteRows deletes every listed id in one call.
func (c *Client) DeleteRows(ctx context.Context, ids []int) error {
	body := struct {
		IDs []int `json:"ids"`
	}{IDs: ids}
	var resp messageResponse
	return c.do(ctx, http.MethodDelete, c.baseURL+"/api/deleteAllRows", body, &resp, true)
}

// Autocomplete fetches up to ten rows matching searchTerm on any column.
func (c *Client) Autocomplete(ctx context.Context, searchTerm string) ([]Row, error) {
	endpoint := fmt.Sprintf("%s/api/autocomplete?searchTerm=%s", c.baseURL, url.QueryEscape(searchTerm))
	var resp autocompleteResponse
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.Values, nil
}

// AutocompleteOptions fetches the distinct first names for seeding the
// suggestion list.
func (c *Client) AutocompleteOptions(ctx context.Context) ([]string, error) {
	var resp autocompleteOptionsResponse
	if err := c.do(ctx, http.MethodGet, c.baseURL+"/api/getAutocompleteOptions", nil, &resp, true); err != nil {
		return nil, err
	}
	return resp.AutocompleteOptions, nil
}

func toListPage(resp userDataResponse) (*ListPage, error) {
	total, err := strconv.Atoi(resp.TotalRows)
	if err != nil {
		return nil, fmt.Errorf("parsing totalRows %q: %w", resp.TotalRows, err)
	}
	rows := resp.UserData
	if rows == nil {
		rows = []Row{}
	}
	return &ListPage{Rows: rows, TotalRows: total}, nil
}

// do executes one request, decoding a 2xx body into out. When retry is set
// and the call fails transiently (network fault or 5xx), it is attempted
// once more.
func (c *Client) do(ctx context.Context, method, endpoint string, body interface{}, out interface{}, retry bool) error {
	attempts := 1
	if retry {
		attempts = 2
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		err := c.doOnce(ctx, method, endpoint, body, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !transient(err) || ctx.Err() != nil {
			return err
		}
	}
	return lastErr
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr errorResponse
		message := strings.TrimSpace(string(data))
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error != "" {
			message = apiErr.Error
		}
		return &APIError{StatusCode: resp.StatusCode, Message: message}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func transient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode >= 500
	}
	// Network-level faults (no HTTP status) are worth one retry
	return true
}
