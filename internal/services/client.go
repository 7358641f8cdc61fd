// HTTP [API] implementation for the deck-generation service.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/avast/retry-go/v4"
	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
	"golang.org/x/oauth2"
)

const defaultBaseURL string = "http://localhost:8080"

// Client implements [API] over the service's JSON endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	attempts   uint
}

// ClientOpts contains construction options for [Client].
type ClientOpts struct {
	BaseURL    string
	Token      string       // optional bearer token, attached to every request
	Retries    uint         // transport retry attempts per request (default 3)
	HTTPClient *http.Client // overrides Token when set, used in tests
}

// NewClient creates a deck service client.
func NewClient(opts ClientOpts) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		if opts.Token != "" {
			src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token})
			httpClient = oauth2.NewClient(context.Background(), src)
		} else {
			httpClient = &http.Client{Timeout: 30 * time.Second}
		}
	}

	attempts := opts.Retries
	if attempts == 0 {
		attempts = 3
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		attempts:   attempts,
	}
}

// Name returns the service name.
func (c *Client) Name() string {
	return "deck service"
}

// BaseURL returns the configured service URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// doRequest performs one JSON request with transport-level retries.
//
// 5xx responses and connection errors are retried; 4xx responses are not.
// The synchronizer above this layer never retries on its own.
func (c *Client) doRequest(ctx context.Context, method, endpoint string, body, result any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
	}

	return retry.Do(
		func() error {
			var reader io.Reader
			if payload != nil {
				reader = bytes.NewReader(payload)
			}

			req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
			if err != nil {
				return retry.Unrecoverable(fmt.Errorf("failed to create request: %w", err))
			}
			req.Header.Set("Content-Type", "application/json")

			resp, err := c.httpClient.Do(req)
			if err != nil {
				return fmt.Errorf("request failed: %w", err)
			}
			defer resp.Body.Close()

			respBody, err := io.ReadAll(resp.Body)
			if err != nil {
				return fmt.Errorf("failed to read response: %w", err)
			}

			if resp.StatusCode == http.StatusNotFound {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", shared.ErrProjectNotFound, apiDetail(respBody, resp.StatusCode)))
			}
			if resp.StatusCode >= 500 {
				return fmt.Errorf("%w: %s", shared.ErrAPIRequest, apiDetail(respBody, resp.StatusCode))
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				return retry.Unrecoverable(fmt.Errorf("%w: %s", shared.ErrAPIRequest, apiDetail(respBody, resp.StatusCode)))
			}

			if result != nil && len(respBody) > 0 {
				if err := json.Unmarshal(respBody, result); err != nil {
					return retry.Unrecoverable(fmt.Errorf("failed to decode response: %w", err))
				}
			}
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(250*time.Millisecond),
		retry.LastErrorOnly(true),
	)
}

// apiDetail extracts the service's error detail field, falling back to the
// status code.
func apiDetail(body []byte, status int) string {
	var errResp struct {
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &errResp); err == nil && errResp.Detail != "" {
		return errResp.Detail
	}
	return fmt.Sprintf("status %d", status)
}

// CreateProject creates a new project from the given intent.
func (c *Client) CreateProject(ctx context.Context, intent models.CreateIntent) (string, error) {
	if err := intent.Validate(); err != nil {
		return "", fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	var resp struct {
		ProjectID string `json:"project_id"`
	}
	if err := c.doRequest(ctx, http.MethodPost, "/api/projects", intent, &resp); err != nil {
		return "", err
	}
	if resp.ProjectID == "" {
		return "", fmt.Errorf("%w: server returned no project id", shared.ErrAPIRequest)
	}
	return resp.ProjectID, nil
}

// GetProject fetches the authoritative project snapshot.
func (c *Client) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	var project models.Project
	endpoint := fmt.Sprintf("/api/projects/%s", projectID)
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &project); err != nil {
		return nil, err
	}
	return &project, nil
}

// UpdatePage persists a partial page update.
func (c *Client) UpdatePage(ctx context.Context, projectID, pageID string, patch models.PagePatch) error {
	endpoint := fmt.Sprintf("/api/projects/%s/pages/%s", projectID, pageID)
	return c.doRequest(ctx, http.MethodPatch, endpoint, patch, nil)
}

// ReorderPages persists a new page order.
func (c *Client) ReorderPages(ctx context.Context, projectID string, orderedIDs []string) error {
	endpoint := fmt.Sprintf("/api/projects/%s/pages/order", projectID)
	body := map[string]any{"page_ids": orderedIDs}
	return c.doRequest(ctx, http.MethodPut, endpoint, body, nil)
}

// AddPage appends a new page to the project.
func (c *Client) AddPage(ctx context.Context, projectID string, data models.PagePatch) error {
	endpoint := fmt.Sprintf("/api/projects/%s/pages", projectID)
	return c.doRequest(ctx, http.MethodPost, endpoint, data, nil)
}

// DeletePage removes a page from the project.
func (c *Client) DeletePage(ctx context.Context, projectID, pageID string) error {
	endpoint := fmt.Sprintf("/api/projects/%s/pages/%s", projectID, pageID)
	return c.doRequest(ctx, http.MethodDelete, endpoint, nil, nil)
}

// SubmitTask starts an asynchronous server-side operation.
func (c *Client) SubmitTask(ctx context.Context, category models.TaskCategory, projectID, pageID string, params map[string]any) (*TaskSubmission, error) {
	endpoint := fmt.Sprintf("/api/projects/%s/tasks", projectID)
	body := map[string]any{"category": category}
	if pageID != "" {
		body["page_id"] = pageID
	}
	if len(params) > 0 {
		body["params"] = params
	}

	var sub TaskSubmission
	if err := c.doRequest(ctx, http.MethodPost, endpoint, body, &sub); err != nil {
		return nil, err
	}
	return &sub, nil
}

// GetTaskStatus polls one task's status.
func (c *Client) GetTaskStatus(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error) {
	endpoint := fmt.Sprintf("/api/projects/%s/tasks/%s", projectID, taskID)
	var status models.TaskStatus
	if err := c.doRequest(ctx, http.MethodGet, endpoint, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// UploadTemplate uploads a template file as multipart form data.
func (c *Client) UploadTemplate(ctx context.Context, projectID, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open template: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("template", filepath.Base(path))
	if err != nil {
		return fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("failed to read template: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finalize form: %w", err)
	}

	endpoint := fmt.Sprintf("/api/projects/%s/template", projectID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, &buf)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: %s", shared.ErrAPIRequest, apiDetail(body, resp.StatusCode))
	}
	return nil
}
