package tasks

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
)

// scriptedAPI returns queued statuses and errors in order, then repeats the
// last entry.
type scriptedAPI struct {
	script []scriptEntry
	calls  int
}

type scriptEntry struct {
	status *models.TaskStatus
	err    error
}

func statuses(states ...models.TaskState) []scriptEntry {
	entries := make([]scriptEntry, len(states))
	for i, s := range states {
		entries[i] = scriptEntry{status: &models.TaskStatus{State: s}}
	}
	return entries
}

func (s *scriptedAPI) GetTaskStatus(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error) {
	idx := s.calls
	if idx >= len(s.script) {
		idx = len(s.script) - 1
	}
	s.calls++
	entry := s.script[idx]
	return entry.status, entry.err
}

func testHandle() models.TaskHandle {
	return models.TaskHandle{ID: "t-1", Scope: "proj-1", Category: models.CategoryImage, PageID: "p1"}
}

func acquiredRegistry(t *testing.T, handle models.TaskHandle) *Registry {
	t.Helper()
	r := NewRegistry()
	if !r.TryAcquire(handle.Category, handle.PageID) {
		t.Fatal("acquire failed")
	}
	r.Bind(handle)
	return r
}

func TestPollerTickSequence(t *testing.T) {
	api := &scriptedAPI{script: statuses(models.TaskPending, models.TaskProcessing, models.TaskProcessing, models.TaskCompleted)}

	resyncs := 0
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	p := NewPoller(api, handle, PollerOpts{
		Registry: registry,
		Resync:   func(ctx context.Context) error { resyncs++; return nil },
	})

	ctx := context.Background()
	for i := 0; i < 3; i++ {
		out, done := p.Tick(ctx)
		if done {
			t.Fatalf("tick %d terminal early: %+v", i, out)
		}
		if resyncs != 0 {
			t.Fatalf("resync triggered before terminal tick")
		}
	}

	out, done := p.Tick(ctx)
	if !done {
		t.Fatal("expected terminal outcome on COMPLETED")
	}
	if out.State != models.TaskCompleted || out.Err != nil {
		t.Errorf("unexpected outcome: %+v", out)
	}
	if resyncs != 1 {
		t.Errorf("expected exactly one resync, got %d", resyncs)
	}
	if registry.Busy(handle.Category, handle.PageID) {
		t.Error("slot not released after completion")
	}
}

func TestPollerFailureSurfacesServerMessage(t *testing.T) {
	tests := []struct {
		name    string
		status  *models.TaskStatus
		wantMsg string
	}{
		{
			name:    "server message preserved",
			status:  &models.TaskStatus{State: models.TaskFailed, Error: "image model unavailable"},
			wantMsg: "image model unavailable",
		},
		{
			name:    "generic fallback when message empty",
			status:  &models.TaskStatus{State: models.TaskFailed},
			wantMsg: "generation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &scriptedAPI{script: []scriptEntry{{status: tt.status}}}
			resyncs := 0
			handle := testHandle()
			registry := acquiredRegistry(t, handle)
			p := NewPoller(api, handle, PollerOpts{
				Registry: registry,
				Resync:   func(ctx context.Context) error { resyncs++; return nil },
			})

			out, done := p.Tick(context.Background())
			if !done {
				t.Fatal("expected terminal outcome on FAILED")
			}
			if !errors.Is(out.Err, shared.ErrTaskFailed) {
				t.Errorf("expected ErrTaskFailed, got %v", out.Err)
			}
			if !strings.Contains(out.Err.Error(), tt.wantMsg) {
				t.Errorf("error %q missing %q", out.Err, tt.wantMsg)
			}
			if registry.Busy(handle.Category, handle.PageID) {
				t.Error("slot not released after failure")
			}
			if resyncs != 1 {
				t.Errorf("expected best-effort resync after failure, got %d", resyncs)
			}
		})
	}
}

func TestPollerUnrecognizedStatusIsTerminal(t *testing.T) {
	api := &scriptedAPI{script: []scriptEntry{{status: &models.TaskStatus{State: "EXPLODED"}}}}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	resyncs := 0
	p := NewPoller(api, handle, PollerOpts{
		Registry: registry,
		Resync:   func(ctx context.Context) error { resyncs++; return nil },
	})

	out, done := p.Tick(context.Background())
	if !done {
		t.Fatal("unrecognized status must be terminal")
	}
	if out.Err == nil || !strings.Contains(out.Err.Error(), "EXPLODED") {
		t.Errorf("expected error naming the status, got %v", out.Err)
	}
	if registry.Busy(handle.Category, handle.PageID) {
		t.Error("slot not released on unrecognized status")
	}
	if resyncs != 0 {
		t.Errorf("fail-closed path should not resync, got %d", resyncs)
	}
}

func TestPollerTransportErrorsRetryThenGiveUp(t *testing.T) {
	api := &scriptedAPI{script: []scriptEntry{{err: fmt.Errorf("connection refused")}}}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	p := NewPoller(api, handle, PollerOpts{
		MaxTransportFailures: 3,
		Registry:             registry,
	})

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		out, done := p.Tick(ctx)
		if done {
			t.Fatalf("tick %d gave up early: %+v", i, out)
		}
	}

	out, done := p.Tick(ctx)
	if !done {
		t.Fatal("expected give-up on third consecutive transport failure")
	}
	if !errors.Is(out.Err, shared.ErrTransientFetch) {
		t.Errorf("expected ErrTransientFetch, got %v", out.Err)
	}
	if registry.Busy(handle.Category, handle.PageID) {
		t.Error("slot not released on transport give-up")
	}
}

func TestPollerTransportFailureCountResets(t *testing.T) {
	api := &scriptedAPI{script: []scriptEntry{
		{err: fmt.Errorf("timeout")},
		{err: fmt.Errorf("timeout")},
		{status: &models.TaskStatus{State: models.TaskProcessing}},
		{err: fmt.Errorf("timeout")},
		{err: fmt.Errorf("timeout")},
		{status: &models.TaskStatus{State: models.TaskCompleted}},
	}}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	p := NewPoller(api, handle, PollerOpts{
		MaxTransportFailures: 3,
		Registry:             registry,
		Resync:               func(ctx context.Context) error { return nil },
	})

	ctx := context.Background()
	for i := 0; i < 5; i++ {
		out, done := p.Tick(ctx)
		if done {
			t.Fatalf("tick %d terminal early: %+v", i, out)
		}
	}

	out, done := p.Tick(ctx)
	if !done || out.State != models.TaskCompleted {
		t.Errorf("expected completion after interleaved failures, got %+v", out)
	}
}

func TestPollerRunReleasesOnCancel(t *testing.T) {
	api := &scriptedAPI{script: statuses(models.TaskProcessing)}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	p := NewPoller(api, handle, PollerOpts{
		Interval: 10 * time.Millisecond,
		Registry: registry,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan Outcome, 1)
	go func() { done <- p.Run(ctx) }()

	time.Sleep(30 * time.Millisecond)
	cancel()

	select {
	case out := <-done:
		if out.Err == nil {
			t.Error("expected cancellation error")
		}
	case <-time.After(time.Second):
		t.Fatal("Run did not terminate after cancel")
	}

	if registry.Busy(handle.Category, handle.PageID) {
		t.Error("slot not released after cancellation")
	}
}

func TestPollerRunToCompletion(t *testing.T) {
	api := &scriptedAPI{script: statuses(models.TaskPending, models.TaskProcessing, models.TaskCompleted)}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)
	resyncs := 0
	progress := make(chan ProgressUpdate, 64)
	p := NewPoller(api, handle, PollerOpts{
		Interval: time.Millisecond,
		Registry: registry,
		Progress: progress,
		Resync:   func(ctx context.Context) error { resyncs++; return nil },
	})

	out := p.Run(context.Background())
	if out.State != models.TaskCompleted || out.Err != nil {
		t.Fatalf("unexpected outcome: %+v", out)
	}
	if resyncs != 1 {
		t.Errorf("expected exactly one resync, got %d", resyncs)
	}
	if api.calls != 3 {
		t.Errorf("expected 3 status fetches, got %d", api.calls)
	}

	// Progress stream ends with a completion update.
	close(progress)
	var last ProgressUpdate
	for u := range progress {
		last = u
	}
	if last.Phase != Complete {
		t.Errorf("expected final phase %v, got %v", Complete, last.Phase)
	}
}

func TestPollerProgressNeverBlocks(t *testing.T) {
	api := &scriptedAPI{script: statuses(
		models.TaskPending, models.TaskProcessing, models.TaskProcessing, models.TaskCompleted,
	)}
	handle := testHandle()
	registry := acquiredRegistry(t, handle)

	// Unbuffered channel with no reader: every send must be dropped, not block.
	progress := make(chan ProgressUpdate)
	p := NewPoller(api, handle, PollerOpts{
		Interval: time.Millisecond,
		Registry: registry,
		Progress: progress,
		Resync:   func(ctx context.Context) error { return nil },
	})

	done := make(chan Outcome, 1)
	go func() { done <- p.Run(context.Background()) }()

	select {
	case out := <-done:
		if out.State != models.TaskCompleted {
			t.Errorf("unexpected outcome: %+v", out)
		}
	case <-time.After(time.Second):
		t.Fatal("poller blocked on progress channel")
	}
}
