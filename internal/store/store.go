package store

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/services"
	"github.com/desertthunder/slidex/internal/shared"
	"github.com/desertthunder/slidex/internal/tasks"
)

// SessionStore is the durable "most recently active project" pointer. It is
// set on successful creation and resync, and cleared only when the server
// confirms the project no longer exists.
type SessionStore interface {
	Active() (string, bool, error)
	SetActive(projectID string) error
	Clear() error
}

// Opts configures a [Store].
type Opts struct {
	API      services.API
	Sessions SessionStore
	Logger   *log.Logger
	Progress chan<- tasks.ProgressUpdate // optional, never blocked on

	DebounceWindow       time.Duration // default 1s
	PollInterval         time.Duration // default 2s
	MaxTransportFailures int           // default 5
}

// Store mirrors one server-held project and mediates every read and write
// against it.
//
// The mirror is guarded by a mutex and mutated only by Store methods:
// optimistic local patches on edit, and wholesale replacement on resync.
// Remote failures never escape as panics; they are translated to sentinel
// errors and recorded in a single user-facing error string.
type Store struct {
	api      services.API
	sessions SessionStore
	logger   *log.Logger
	progress chan<- tasks.ProgressUpdate
	registry *tasks.Registry

	debounceWindow       time.Duration
	pollInterval         time.Duration
	maxTransportFailures int

	// ctx bounds background pollers and debounced persists; Close cancels it.
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu      sync.Mutex
	mirror  *models.Project
	lastErr string
	writers map[string]*pageWriter
	closed  bool
}

// pageWriter coalesces edits to one page. Concurrent patches within the
// debounce window merge field-wise, latest value per field.
type pageWriter struct {
	mu      sync.Mutex
	pending models.PagePatch
	deb     *Debouncer
}

// NewStore creates a store with no mirror loaded.
func NewStore(opts Opts) *Store {
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.DebounceWindow <= 0 {
		opts.DebounceWindow = time.Second
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = 2 * time.Second
	}
	if opts.MaxTransportFailures <= 0 {
		opts.MaxTransportFailures = 5
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Store{
		api:                  opts.API,
		sessions:             opts.Sessions,
		logger:               opts.Logger,
		progress:             opts.Progress,
		registry:             tasks.NewRegistry(),
		debounceWindow:       opts.DebounceWindow,
		pollInterval:         opts.PollInterval,
		maxTransportFailures: opts.MaxTransportFailures,
		ctx:                  ctx,
		cancel:               cancel,
		writers:              make(map[string]*pageWriter),
	}
}

// LoadOrCreate creates a new project from the given intent, records it as
// the active project, and loads the mirror.
//
// The template upload, if the intent carries a local template path, is
// best-effort and never aborts creation.
func (s *Store) LoadOrCreate(ctx context.Context, intent models.CreateIntent) (*models.Project, error) {
	if err := intent.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	projectID, err := s.api.CreateProject(ctx, intent)
	if err != nil {
		wrapped := fmt.Errorf("%w: %v", shared.ErrCreation, err)
		s.setErr(wrapped)
		return nil, wrapped
	}
	s.logger.Info("project created", "project", projectID, "intent", intent.Kind)

	if err := s.sessions.SetActive(projectID); err != nil {
		s.logger.Warn("could not persist active project pointer", "error", err)
	}

	if intent.TemplatePath != "" {
		if err := s.api.UploadTemplate(ctx, projectID, intent.TemplatePath); err != nil {
			s.logger.Warn("template upload failed", "path", intent.TemplatePath, "error", err)
		}
	}

	if err := s.Resync(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Resume loads the mirror from the durable session pointer. Returns
// [shared.ErrNoActiveProject] when no pointer is set.
func (s *Store) Resume(ctx context.Context) (*models.Project, error) {
	projectID, ok, err := s.sessions.Active()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, shared.ErrNoActiveProject
	}
	if err := s.Resync(ctx, projectID); err != nil {
		return nil, err
	}
	return s.Snapshot(), nil
}

// Resync replaces the mirror wholesale with the authoritative server
// snapshot. The project resolves from the explicit argument, then the loaded
// mirror, then the durable pointer; with none of the three the call is a
// no-op returning the empty state.
//
// NotFound clears the durable pointer and empties the mirror; this is the
// sole path that does so. Any other fetch failure leaves the mirror
// untouched and surfaces a transient error.
func (s *Store) Resync(ctx context.Context, projectID ...string) error {
	id := ""
	if len(projectID) > 0 {
		id = projectID[0]
	}
	if id == "" {
		id = s.ActiveProjectID()
	}
	if id == "" {
		return nil
	}

	project, err := s.api.GetProject(ctx, id)
	switch {
	case errors.Is(err, shared.ErrProjectNotFound):
		if cerr := s.sessions.Clear(); cerr != nil {
			s.logger.Warn("could not clear active project pointer", "error", cerr)
		}
		s.mu.Lock()
		s.mirror = nil
		s.dropWritersLocked()
		s.mu.Unlock()
		s.logger.Info("project gone server-side, cleared local state", "project", id)
		wrapped := fmt.Errorf("%w: %s", shared.ErrProjectNotFound, id)
		s.setErr(wrapped)
		return wrapped

	case err != nil:
		wrapped := fmt.Errorf("%w: %v", shared.ErrTransientFetch, err)
		s.setErr(wrapped)
		return wrapped
	}

	s.mu.Lock()
	s.mirror = project
	s.lastErr = ""
	s.mu.Unlock()

	if err := s.sessions.SetActive(project.ID); err != nil {
		s.logger.Warn("could not persist active project pointer", "error", err)
	}
	s.sendProgress(tasks.SyncUpdate(project.ID))
	return nil
}

// MutatePageLocally applies an optimistic field-level patch to one page and
// schedules a debounced remote persist of the same change. It returns
// without waiting for persistence.
func (s *Store) MutatePageLocally(pageID string, patch models.PagePatch) error {
	if patch.Empty() {
		return nil
	}

	s.mu.Lock()
	page := s.mirror.PageByID(pageID)
	if page == nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: page %s not in current project", shared.ErrInvalidInput, pageID)
	}
	patch.Apply(page)
	writer := s.writerLocked(pageID)
	s.mu.Unlock()

	writer.mu.Lock()
	writer.pending = writer.pending.Merge(patch)
	writer.mu.Unlock()
	writer.deb.Trigger()
	return nil
}

// writerLocked returns the page's writer, creating it on first edit.
// Caller holds s.mu.
func (s *Store) writerLocked(pageID string) *pageWriter {
	if w, ok := s.writers[pageID]; ok {
		return w
	}
	w := &pageWriter{}
	w.deb = NewDebouncer(s.debounceWindow, func() { s.persistPage(pageID, w) })
	s.writers[pageID] = w
	return w
}

// persistPage sends the writer's accumulated patch. A failure is logged and
// recorded but not retried; local edits keep flowing regardless.
func (s *Store) persistPage(pageID string, w *pageWriter) {
	w.mu.Lock()
	patch := w.pending
	w.pending = models.PagePatch{}
	w.mu.Unlock()
	if patch.Empty() {
		return
	}

	projectID := s.ActiveProjectID()
	if projectID == "" {
		return
	}

	if err := s.api.UpdatePage(s.ctx, projectID, pageID, patch); err != nil {
		s.logger.Warn("debounced page persist failed", "page", pageID, "error", err)
		s.setErr(fmt.Errorf("%w: %v", shared.ErrAPIRequest, err))
		return
	}
	s.sendProgress(tasks.PersistUpdate(pageID))

	// The server stamps the project's updated_at on write; refresh so history
	// views sorted by that timestamp see the edit.
	if err := s.Resync(s.ctx); err != nil {
		s.logger.Warn("post-persist resync failed", "page", pageID, "error", err)
	}
}

// CommitPendingEdits flushes every outstanding debounced persist
// synchronously, then forces one resync so the mirror reflects the last
// local edit before a user-visible "saved" acknowledgment.
func (s *Store) CommitPendingEdits(ctx context.Context) error {
	s.mu.Lock()
	writers := make([]*pageWriter, 0, len(s.writers))
	for _, w := range s.writers {
		writers = append(writers, w)
	}
	s.mu.Unlock()

	for _, w := range writers {
		w.deb.Flush()
	}
	return s.Resync(ctx)
}

// PendingWrites reports whether any page has an edit waiting to persist.
func (s *Store) PendingWrites() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.writers {
		if w.deb.Pending() {
			return true
		}
	}
	return false
}

// Reorder optimistically re-sequences pages to the given total order and
// persists it. On remote failure the rollback is a forced resync, never a
// local revert, so the mirror always converges on the server's order.
func (s *Store) Reorder(ctx context.Context, orderedIDs []string) error {
	s.mu.Lock()
	if s.mirror == nil {
		s.mu.Unlock()
		return shared.ErrNoActiveProject
	}
	if err := s.reorderLocked(orderedIDs); err != nil {
		s.mu.Unlock()
		return err
	}
	projectID := s.mirror.ID
	s.mu.Unlock()

	if err := s.api.ReorderPages(ctx, projectID, orderedIDs); err != nil {
		s.logger.Warn("reorder persist failed, rolling back via resync", "error", err)
		wrapped := fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		s.setErr(wrapped)
		if rerr := s.Resync(ctx); rerr != nil {
			s.logger.Warn("rollback resync failed", "error", rerr)
		}
		return wrapped
	}
	return nil
}

// reorderLocked validates that orderedIDs is a permutation of the current
// pages and applies it, resequencing positions without gaps.
func (s *Store) reorderLocked(orderedIDs []string) error {
	if len(orderedIDs) != len(s.mirror.Pages) {
		return fmt.Errorf("%w: order names %d pages, project has %d", shared.ErrInvalidInput, len(orderedIDs), len(s.mirror.Pages))
	}
	byID := make(map[string]models.Page, len(s.mirror.Pages))
	for _, p := range s.mirror.Pages {
		byID[p.ID] = p
	}

	pages := make([]models.Page, 0, len(orderedIDs))
	for i, id := range orderedIDs {
		page, ok := byID[id]
		if !ok {
			return fmt.Errorf("%w: page %s not in current project", shared.ErrInvalidInput, id)
		}
		delete(byID, id)
		page.Position = i
		pages = append(pages, page)
	}
	s.mirror.Pages = pages
	return nil
}

// AddPage appends a page remote-first and resyncs; the insertion position is
// assigned server-side, so there is no optimistic local edit.
func (s *Store) AddPage(ctx context.Context, data models.PagePatch) error {
	projectID := s.ActiveProjectID()
	if projectID == "" {
		return shared.ErrNoActiveProject
	}
	if err := s.api.AddPage(ctx, projectID, data); err != nil {
		wrapped := fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		s.setErr(wrapped)
		return wrapped
	}
	return s.Resync(ctx)
}

// DeletePage removes a page remote-first and resyncs.
func (s *Store) DeletePage(ctx context.Context, pageID string) error {
	projectID := s.ActiveProjectID()
	if projectID == "" {
		return shared.ErrNoActiveProject
	}
	if err := s.api.DeletePage(ctx, projectID, pageID); err != nil {
		wrapped := fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		s.setErr(wrapped)
		return wrapped
	}

	s.mu.Lock()
	if w, ok := s.writers[pageID]; ok {
		w.deb.Stop()
		delete(s.writers, pageID)
	}
	s.mu.Unlock()

	return s.Resync(ctx)
}

// SubmitGenerationTask invokes submit and drives any returned task handle to
// a terminal outcome in the background.
//
// A nil channel with a nil error means no poll was started: either the
// (category, pageID) slot was busy, making the submission a silent no-op, or
// the server completed the operation synchronously, in which case an
// immediate resync already ran.
func (s *Store) SubmitGenerationTask(ctx context.Context, category models.TaskCategory, pageID string, submit func(ctx context.Context) (*services.TaskSubmission, error)) (<-chan tasks.Outcome, error) {
	if !s.registry.TryAcquire(category, pageID) {
		s.logger.Debug("task already in flight, ignoring", "category", category, "page", pageID)
		return nil, nil
	}

	submission, err := submit(ctx)
	if err != nil {
		s.registry.Release(category, pageID)
		wrapped := fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		s.setErr(wrapped)
		return nil, wrapped
	}

	if !submission.Async() {
		s.registry.Release(category, pageID)
		if err := s.Resync(ctx); err != nil {
			s.logger.Warn("resync after synchronous task failed", "error", err)
		}
		return nil, nil
	}

	handle := models.TaskHandle{
		ID:       submission.TaskID,
		Scope:    s.taskScope(),
		Category: category,
		PageID:   pageID,
	}
	s.registry.Bind(handle)

	poller := tasks.NewPoller(s.api, handle, s.pollerOpts())
	ch := make(chan tasks.Outcome, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out := poller.Run(s.ctx)
		if out.Err != nil {
			s.setErr(out.Err)
		}
		ch <- out
		close(ch)
	}()
	return ch, nil
}

func (s *Store) pollerOpts() tasks.PollerOpts {
	return tasks.PollerOpts{
		Interval:             s.pollInterval,
		MaxTransportFailures: s.maxTransportFailures,
		Logger:               s.logger,
		Progress:             s.progress,
		Registry:             s.registry,
		Resync:               func(ctx context.Context) error { return s.Resync(ctx) },
	}
}

// taskScope returns the polling scope for new tasks: the active project, or
// a synthetic id for operations submitted outside any project.
func (s *Store) taskScope() string {
	if id := s.ActiveProjectID(); id != "" {
		return id
	}
	return shared.GenerateID()
}

// GenerateDescription starts description generation for one page.
func (s *Store) GenerateDescription(ctx context.Context, pageID string) (<-chan tasks.Outcome, error) {
	return s.submitForPage(ctx, models.CategoryDescription, pageID, nil)
}

// GenerateImage starts image generation for one page.
func (s *Store) GenerateImage(ctx context.Context, pageID string) (<-chan tasks.Outcome, error) {
	return s.submitForPage(ctx, models.CategoryImage, pageID, nil)
}

// EditImage starts an instruction-driven edit of a page's generated image.
func (s *Store) EditImage(ctx context.Context, pageID, instruction string) (<-chan tasks.Outcome, error) {
	if instruction == "" {
		return nil, fmt.Errorf("%w: empty edit instruction", shared.ErrInvalidInput)
	}
	return s.submitForPage(ctx, models.CategoryImageEdit, pageID, map[string]any{"instruction": instruction})
}

func (s *Store) submitForPage(ctx context.Context, category models.TaskCategory, pageID string, params map[string]any) (<-chan tasks.Outcome, error) {
	projectID := s.ActiveProjectID()
	if projectID == "" {
		return nil, shared.ErrNoActiveProject
	}
	if s.Snapshot().PageByID(pageID) == nil {
		return nil, fmt.Errorf("%w: page %s not in current project", shared.ErrInvalidInput, pageID)
	}
	return s.SubmitGenerationTask(ctx, category, pageID, func(ctx context.Context) (*services.TaskSubmission, error) {
		return s.api.SubmitTask(ctx, category, projectID, pageID, params)
	})
}

// GenerateAllDescriptions starts the project-wide description fan-out task.
// The returned channel delivers the terminal batch result; nil means the
// batch slot was busy or the server completed synchronously.
func (s *Store) GenerateAllDescriptions(ctx context.Context) (<-chan tasks.BatchResult, error) {
	projectID := s.ActiveProjectID()
	if projectID == "" {
		return nil, shared.ErrNoActiveProject
	}

	category := models.CategoryBatchDescription
	if !s.registry.TryAcquire(category, "") {
		s.logger.Debug("batch generation already in flight, ignoring")
		return nil, nil
	}

	submission, err := s.api.SubmitTask(ctx, category, projectID, "", nil)
	if err != nil {
		s.registry.Release(category, "")
		wrapped := fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
		s.setErr(wrapped)
		return nil, wrapped
	}
	if !submission.Async() {
		s.registry.Release(category, "")
		if err := s.Resync(ctx); err != nil {
			s.logger.Warn("resync after synchronous batch failed", "error", err)
		}
		return nil, nil
	}

	handle := models.TaskHandle{ID: submission.TaskID, Scope: projectID, Category: category}
	s.registry.Bind(handle)

	runner := tasks.NewBatchRunner(s.api, handle, s.pollerOpts(), s.Snapshot)
	ch := make(chan tasks.BatchResult, 1)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result := runner.Run(s.ctx)
		if result.Outcome.Err != nil {
			s.setErr(result.Outcome.Err)
		}
		ch <- *result
		close(ch)
	}()
	return ch, nil
}

// Export starts a deck export task for the active project.
func (s *Store) Export(ctx context.Context) (<-chan tasks.Outcome, error) {
	projectID := s.ActiveProjectID()
	if projectID == "" {
		return nil, shared.ErrNoActiveProject
	}
	return s.SubmitGenerationTask(ctx, models.CategoryExport, "", func(ctx context.Context) (*services.TaskSubmission, error) {
		return s.api.SubmitTask(ctx, models.CategoryExport, projectID, "", nil)
	})
}

// Snapshot returns a deep copy of the mirror, or nil when no project is
// loaded. Callers may hold it across further Store mutations.
func (s *Store) Snapshot() *models.Project {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mirror.Clone()
}

// ActiveProjectID returns the loaded project's id, falling back to the
// durable pointer, or empty when neither is set.
func (s *Store) ActiveProjectID() string {
	s.mu.Lock()
	mirror := s.mirror
	s.mu.Unlock()
	if mirror != nil {
		return mirror.ID
	}
	if s.sessions == nil {
		return ""
	}
	id, ok, err := s.sessions.Active()
	if err != nil || !ok {
		return ""
	}
	return id
}

// Busy reports whether a task of the given category is in flight for the
// page. An empty pageID queries the project-wide slot.
func (s *Store) Busy(category models.TaskCategory, pageID string) bool {
	return s.registry.Busy(category, pageID)
}

// ActiveTasks returns the in-flight task handles for UI display.
func (s *Store) ActiveTasks() []models.TaskHandle {
	return s.registry.Active()
}

// LastError returns the most recent user-facing error message, empty when
// the last remote interaction succeeded.
func (s *Store) LastError() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Store) setErr(err error) {
	s.mu.Lock()
	s.lastErr = err.Error()
	s.mu.Unlock()
}

// dropWritersLocked stops and removes every page writer. Caller holds s.mu.
func (s *Store) dropWritersLocked() {
	for id, w := range s.writers {
		w.deb.Stop()
		delete(s.writers, id)
	}
}

// Close stops every debounce timer, cancels in-flight pollers, and waits
// for background goroutines to exit. Unflushed edits are discarded; call
// [Store.CommitPendingEdits] first to keep them.
func (s *Store) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.dropWritersLocked()
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	return nil
}

// sendProgress forwards an update without blocking.
func (s *Store) sendProgress(update tasks.ProgressUpdate) {
	if s.progress == nil {
		return
	}
	select {
	case s.progress <- update:
	default:
	}
}
