package services

import (
	"context"

	"github.com/desertthunder/slidex/internal/models"
)

// API defines the remote operations the synchronizer consumes.
type API interface {
	// CreateProject creates a new project from one of the three creation
	// intents and returns its server-assigned identity.
	CreateProject(ctx context.Context, intent models.CreateIntent) (string, error)

	// GetProject fetches the authoritative project snapshot.
	// Returns an error wrapping [shared.ErrProjectNotFound] if the identity
	// no longer exists server-side.
	GetProject(ctx context.Context, projectID string) (*models.Project, error)

	// UpdatePage persists a field-level partial update for one page.
	UpdatePage(ctx context.Context, projectID, pageID string, patch models.PagePatch) error

	// ReorderPages persists a new total page order.
	ReorderPages(ctx context.Context, projectID string, orderedIDs []string) error

	// AddPage appends a new page; insertion position is assigned server-side.
	AddPage(ctx context.Context, projectID string, data models.PagePatch) error

	// DeletePage removes a page.
	DeletePage(ctx context.Context, projectID, pageID string) error

	// SubmitTask starts a server-side asynchronous operation. The returned
	// submission carries a task id to poll, or none when the server
	// completed the operation synchronously.
	SubmitTask(ctx context.Context, category models.TaskCategory, projectID, pageID string, params map[string]any) (*TaskSubmission, error)

	// GetTaskStatus polls one task.
	GetTaskStatus(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error)

	// UploadTemplate uploads a local template file for the project.
	// Callers treat failures as best-effort.
	UploadTemplate(ctx context.Context, projectID, path string) error

	// Name returns a human-readable service name for logs and output.
	Name() string
}

// TaskSubmission is the result of submitting a task.
type TaskSubmission struct {
	TaskID string         `json:"task_id,omitempty"`
	Result map[string]any `json:"result,omitempty"`
}

// Async reports whether the submission must be polled to completion.
func (s *TaskSubmission) Async() bool {
	return s != nil && s.TaskID != ""
}
