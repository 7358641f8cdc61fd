package tasks

import (
	"sync"

	"github.com/desertthunder/slidex/internal/models"
)

// Key identifies one registry slot. Distinct categories are independent: a
// page may be busy generating a description and still free for image work.
// Project-wide tasks use an empty PageID within their category.
type Key struct {
	Category models.TaskCategory
	PageID   string
}

// Registry tracks at most one in-flight task per [Key].
//
// It is the only mutual-exclusion device in the synchronizer, and it is
// advisory: a rejected duplicate declines to start a second remote task
// rather than queuing it.
type Registry struct {
	mu    sync.Mutex
	slots map[Key]models.TaskHandle
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{slots: make(map[Key]models.TaskHandle)}
}

// TryAcquire reserves the slot for the given key. Returns false if a task is
// already registered, in which case the caller must ignore the new request.
//
// The slot is reserved before the remote submission is made, so two racing
// submissions can never both reach the server; [Bind] attaches the handle
// once the server assigns one.
func (r *Registry) TryAcquire(category models.TaskCategory, pageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{Category: category, PageID: pageID}
	if _, busy := r.slots[key]; busy {
		return false
	}
	r.slots[key] = models.TaskHandle{Category: category, PageID: pageID}
	return true
}

// Bind attaches the server-assigned handle to an acquired slot.
func (r *Registry) Bind(handle models.TaskHandle) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{Category: handle.Category, PageID: handle.PageID}
	if _, held := r.slots[key]; held {
		r.slots[key] = handle
	}
}

// Release frees the slot for the given key. Reports whether a slot was held,
// so releasing an already-free key is visible to tests as a no-op.
func (r *Registry) Release(category models.TaskCategory, pageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := Key{Category: category, PageID: pageID}
	if _, held := r.slots[key]; !held {
		return false
	}
	delete(r.slots, key)
	return true
}

// Busy reports whether a task is in flight for the given key.
func (r *Registry) Busy(category models.TaskCategory, pageID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, busy := r.slots[Key{Category: category, PageID: pageID}]
	return busy
}

// Active returns a snapshot of all in-flight task handles, for UI display.
func (r *Registry) Active() []models.TaskHandle {
	r.mu.Lock()
	defer r.mu.Unlock()

	handles := make([]models.TaskHandle, 0, len(r.slots))
	for _, h := range r.slots {
		handles = append(handles, h)
	}
	return handles
}

// Len returns the number of in-flight tasks.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.slots)
}
