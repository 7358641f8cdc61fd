// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"net/http"
	"os"
	"sync"
	"testing"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/services"
)

// MockAPI is a configurable test double for [services.API]. Zero-value
// methods succeed with empty results; set the corresponding func field to
// script behavior. Call counts are safe for concurrent use.
type MockAPI struct {
	mu    sync.Mutex
	calls map[string]int

	CreateProjectFn  func(ctx context.Context, intent models.CreateIntent) (string, error)
	GetProjectFn     func(ctx context.Context, projectID string) (*models.Project, error)
	UpdatePageFn     func(ctx context.Context, projectID, pageID string, patch models.PagePatch) error
	ReorderPagesFn   func(ctx context.Context, projectID string, orderedIDs []string) error
	AddPageFn        func(ctx context.Context, projectID string, data models.PagePatch) error
	DeletePageFn     func(ctx context.Context, projectID, pageID string) error
	SubmitTaskFn     func(ctx context.Context, category models.TaskCategory, projectID, pageID string, params map[string]any) (*services.TaskSubmission, error)
	GetTaskStatusFn  func(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error)
	UploadTemplateFn func(ctx context.Context, projectID, path string) error
}

func (m *MockAPI) record(method string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.calls == nil {
		m.calls = make(map[string]int)
	}
	m.calls[method]++
}

// Calls returns how many times the named method was invoked.
func (m *MockAPI) Calls(method string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[method]
}

func (m *MockAPI) CreateProject(ctx context.Context, intent models.CreateIntent) (string, error) {
	m.record("CreateProject")
	if m.CreateProjectFn != nil {
		return m.CreateProjectFn(ctx, intent)
	}
	return "project-1", nil
}

func (m *MockAPI) GetProject(ctx context.Context, projectID string) (*models.Project, error) {
	m.record("GetProject")
	if m.GetProjectFn != nil {
		return m.GetProjectFn(ctx, projectID)
	}
	return &models.Project{ID: projectID}, nil
}

func (m *MockAPI) UpdatePage(ctx context.Context, projectID, pageID string, patch models.PagePatch) error {
	m.record("UpdatePage")
	if m.UpdatePageFn != nil {
		return m.UpdatePageFn(ctx, projectID, pageID, patch)
	}
	return nil
}

func (m *MockAPI) ReorderPages(ctx context.Context, projectID string, orderedIDs []string) error {
	m.record("ReorderPages")
	if m.ReorderPagesFn != nil {
		return m.ReorderPagesFn(ctx, projectID, orderedIDs)
	}
	return nil
}

func (m *MockAPI) AddPage(ctx context.Context, projectID string, data models.PagePatch) error {
	m.record("AddPage")
	if m.AddPageFn != nil {
		return m.AddPageFn(ctx, projectID, data)
	}
	return nil
}

func (m *MockAPI) DeletePage(ctx context.Context, projectID, pageID string) error {
	m.record("DeletePage")
	if m.DeletePageFn != nil {
		return m.DeletePageFn(ctx, projectID, pageID)
	}
	return nil
}

func (m *MockAPI) SubmitTask(ctx context.Context, category models.TaskCategory, projectID, pageID string, params map[string]any) (*services.TaskSubmission, error) {
	m.record("SubmitTask")
	if m.SubmitTaskFn != nil {
		return m.SubmitTaskFn(ctx, category, projectID, pageID, params)
	}
	return &services.TaskSubmission{TaskID: "task-1"}, nil
}

func (m *MockAPI) GetTaskStatus(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error) {
	m.record("GetTaskStatus")
	if m.GetTaskStatusFn != nil {
		return m.GetTaskStatusFn(ctx, projectID, taskID)
	}
	return &models.TaskStatus{State: models.TaskCompleted}, nil
}

func (m *MockAPI) UploadTemplate(ctx context.Context, projectID, path string) error {
	m.record("UploadTemplate")
	if m.UploadTemplateFn != nil {
		return m.UploadTemplateFn(ctx, projectID, path)
	}
	return nil
}

func (m *MockAPI) Name() string { return "mock" }

// MockSessions is an in-memory session pointer.
type MockSessions struct {
	mu sync.Mutex
	id string

	// SetActiveErr, ClearErr force the corresponding calls to fail.
	SetActiveErr error
	ClearErr     error
}

func (m *MockSessions) Active() (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.id, m.id != "", nil
}

func (m *MockSessions) SetActive(projectID string) error {
	if m.SetActiveErr != nil {
		return m.SetActiveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = projectID
	return nil
}

func (m *MockSessions) Clear() error {
	if m.ClearErr != nil {
		return m.ClearErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.id = ""
	return nil
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// MustChdirTemp switches to a fresh temp directory for the duration of the
// test, restoring the working directory on cleanup.
func MustChdirTemp(t *testing.T) string {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Failed to get working directory: %v", err)
	}
	dir := t.TempDir()
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("Failed to change directory to %s: %v", dir, err)
	}
	t.Cleanup(func() { os.Chdir(wd) })
	return dir
}

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
