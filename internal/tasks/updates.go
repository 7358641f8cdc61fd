package tasks

import (
	"fmt"

	"github.com/desertthunder/slidex/internal/models"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	Submit Phase = iota
	Poll
	Complete
	Fail
	Persist
	Sync
)

func (p Phase) String() string {
	switch p {
	case Submit:
		return "submit"
	case Poll:
		return "poll"
	case Complete:
		return "complete"
	case Fail:
		return "fail"
	case Persist:
		return "persist"
	case Sync:
		return "sync"
	default:
		return ""
	}
}

func submittedUpdate(handle models.TaskHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Submit,
		Step:    0,
		Total:   1,
		Message: fmt.Sprintf("Submitted %s task %s", handle.Category, handle.ID),
		Data:    handle,
	}
}

func pollingUpdate(handle models.TaskHandle, status *models.TaskStatus) ProgressUpdate {
	update := ProgressUpdate{
		Phase:   Poll,
		Message: fmt.Sprintf("%s task %s: %s", handle.Category, handle.ID, status.State),
		Data:    status,
	}
	if status.HasProgress() {
		update.Step = status.Completed
		update.Total = status.Total
		update.Message = fmt.Sprintf("[%d/%d] %s task %s: %s", status.Completed, status.Total, handle.Category, handle.ID, status.State)
	}
	return update
}

func completedUpdate(handle models.TaskHandle) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Complete,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✓ %s task %s completed", handle.Category, handle.ID),
		Data:    handle,
	}
}

func failedUpdate(handle models.TaskHandle, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Fail,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("✗ %s task %s: %v", handle.Category, handle.ID, err),
		Data:    handle,
	}
}

func batchProgressUpdate(handle models.TaskHandle, completed, total int, percent float64) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Poll,
		Step:    completed,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] %s %.0f%%", completed, total, handle.Category, percent),
		Data:    percent,
	}
}

// PersistUpdate reports a debounced write reaching the server.
func PersistUpdate(pageID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Persist,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Saved page %s", pageID),
	}
}

// SyncUpdate reports a full mirror resynchronization.
func SyncUpdate(projectID string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Sync,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Synchronized project %s", projectID),
	}
}
