package models

import (
	"fmt"
	"time"
)

// PageStatus enumerates the generation lifecycle of a single page.
type PageStatus string

const (
	PageDraft                PageStatus = "DRAFT"
	PageDescriptionGenerated PageStatus = "DESCRIPTION_GENERATED"
	PageGenerating           PageStatus = "GENERATING"
	PageCompleted            PageStatus = "COMPLETED"
	PageFailed               PageStatus = "FAILED"
)

// Page is one slide within a project.
//
// Pages are mutated in two ways only: an optimistic local patch applied by the
// store, or wholesale replacement when the mirror resynchronizes.
type Page struct {
	ID               string     `json:"id"`
	Position         int        `json:"position"`
	Outline          string     `json:"outline"`
	Description      string     `json:"description,omitempty"`
	ImageURL         string     `json:"image_url,omitempty"`
	Status           PageStatus `json:"status"`
	ErrorMessage     string     `json:"error_message,omitempty"`
	UncaptionedCount int        `json:"uncaptioned_count,omitempty"`
}

// Project is the root aggregate: an ordered deck of pages.
// Page order is semantically meaningful, it is the deck order.
type Project struct {
	ID         string    `json:"id"`
	Status     string    `json:"status"`
	TemplateID string    `json:"template_id,omitempty"`
	Pages      []Page    `json:"pages"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Clone returns a deep copy of the project so callers can hold a snapshot
// without aliasing the store's mirror.
func (p *Project) Clone() *Project {
	if p == nil {
		return nil
	}
	out := *p
	out.Pages = make([]Page, len(p.Pages))
	copy(out.Pages, p.Pages)
	return &out
}

// PageByID returns the page with the given id, or nil if absent.
func (p *Project) PageByID(id string) *Page {
	if p == nil {
		return nil
	}
	for i := range p.Pages {
		if p.Pages[i].ID == id {
			return &p.Pages[i]
		}
	}
	return nil
}

// PageIDs returns page ids in deck order.
func (p *Project) PageIDs() []string {
	if p == nil {
		return nil
	}
	ids := make([]string, len(p.Pages))
	for i, pg := range p.Pages {
		ids[i] = pg.ID
	}
	return ids
}

// PagePatch is a field-level partial update for a page. Nil fields are left
// untouched by both the local optimistic apply and the remote persist.
type PagePatch struct {
	Outline     *string `json:"outline,omitempty"`
	Description *string `json:"description,omitempty"`
}

// Empty reports whether the patch carries no changes.
func (pp PagePatch) Empty() bool {
	return pp.Outline == nil && pp.Description == nil
}

// Merge overlays other on top of pp, keeping the latest value per field.
func (pp PagePatch) Merge(other PagePatch) PagePatch {
	if other.Outline != nil {
		pp.Outline = other.Outline
	}
	if other.Description != nil {
		pp.Description = other.Description
	}
	return pp
}

// Apply mutates page in place with the patch's non-nil fields.
func (pp PagePatch) Apply(page *Page) {
	if pp.Outline != nil {
		page.Outline = *pp.Outline
	}
	if pp.Description != nil {
		page.Description = *pp.Description
	}
}

// IntentKind enumerates the creation modes for a new project.
type IntentKind string

const (
	IntentPrompt    IntentKind = "prompt"
	IntentOutline   IntentKind = "outline"
	IntentNarrative IntentKind = "narrative"
)

// CreateIntent is the payload for project creation.
type CreateIntent struct {
	Kind         IntentKind `json:"kind"`
	Content      string     `json:"content"`
	TemplateRef  string     `json:"template_id,omitempty"`
	TemplatePath string     `json:"-"`
}

// Validate checks the intent before it is sent to the server.
func (ci CreateIntent) Validate() error {
	switch ci.Kind {
	case IntentPrompt, IntentOutline, IntentNarrative:
	default:
		return fmt.Errorf("unknown intent kind: %q", ci.Kind)
	}
	if ci.Content == "" {
		return fmt.Errorf("intent content is empty")
	}
	return nil
}

// TaskCategory enumerates the kinds of server-side asynchronous tasks.
type TaskCategory string

const (
	CategoryDescription      TaskCategory = "description"
	CategoryBatchDescription TaskCategory = "batch_description"
	CategoryImage            TaskCategory = "image"
	CategoryImageEdit        TaskCategory = "image_edit"
	CategoryExport           TaskCategory = "export"
)

// TaskState enumerates polled task states as reported by the server.
type TaskState string

const (
	TaskPending    TaskState = "PENDING"
	TaskProcessing TaskState = "PROCESSING"
	TaskCompleted  TaskState = "COMPLETED"
	TaskFailed     TaskState = "FAILED"
)

// Terminal reports whether the state ends polling.
func (s TaskState) Terminal() bool {
	return s == TaskCompleted || s == TaskFailed
}

// Known reports whether the state is one the poller understands. Anything
// else is treated as terminal-with-error (fail closed).
func (s TaskState) Known() bool {
	switch s {
	case TaskPending, TaskProcessing, TaskCompleted, TaskFailed:
		return true
	}
	return false
}

// TaskHandle identifies one in-flight server task. It lives only in the task
// registry and poller for the task's duration; it is never persisted.
type TaskHandle struct {
	ID       string
	Scope    string // project id, or a synthetic scope for global operations
	Category TaskCategory
	PageID   string // empty for project-wide tasks
}

// TaskStatus is a polled status snapshot.
type TaskStatus struct {
	State     TaskState `json:"status"`
	Completed int       `json:"completed,omitempty"`
	Total     int       `json:"total,omitempty"`
	Error     string    `json:"error,omitempty"`
	ResultURL string    `json:"result_url,omitempty"`
}

// HasProgress reports whether the status carries a progress pair.
func (ts *TaskStatus) HasProgress() bool {
	return ts != nil && ts.Total > 0
}
