package tasks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/slidex/internal/models"
	"github.com/desertthunder/slidex/internal/shared"
	"golang.org/x/time/rate"
)

// StatusAPI is the minimal remote surface the poller needs.
type StatusAPI interface {
	GetTaskStatus(ctx context.Context, projectID, taskID string) (*models.TaskStatus, error)
}

// Outcome is the terminal result of a polled task.
type Outcome struct {
	Handle models.TaskHandle
	State  models.TaskState   // terminal state, empty on transport give-up or cancellation
	Status *models.TaskStatus // last observed status, may be nil
	Err    error              // non-nil on failure, unrecognized status, give-up, cancellation
}

// PollerOpts configures a [Poller].
type PollerOpts struct {
	Interval             time.Duration                   // delay between ticks, default 2s
	MaxTransportFailures int                             // consecutive transport failures before give-up, default 5
	Logger               *log.Logger                     // required
	Progress             chan<- ProgressUpdate           // optional, never blocked on
	Registry             *Registry                       // slot released exactly once on every terminal path
	Resync               func(ctx context.Context) error // mirror refresh, required on completion
}

// Poller drives a single task handle from submission to terminal state.
//
// The state machine is SUBMITTED → PENDING|PROCESSING → ... → COMPLETED |
// FAILED | unrecognized. [Poller.Tick] is the single transition function;
// [Poller.Run] schedules it. Splitting the two keeps cancellation and testing
// deterministic: tests drive Tick directly with scripted statuses.
type Poller struct {
	api    StatusAPI
	handle models.TaskHandle
	opts   PollerOpts

	transportFails int
	releaseOnce    sync.Once
}

// NewPoller creates a poller for the given handle.
func NewPoller(api StatusAPI, handle models.TaskHandle, opts PollerOpts) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = 2 * time.Second
	}
	if opts.MaxTransportFailures <= 0 {
		opts.MaxTransportFailures = 5
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}

	return &Poller{
		api:    api,
		handle: handle,
		opts:   opts,
	}
}

// Handle returns the task handle being polled.
func (p *Poller) Handle() models.TaskHandle {
	return p.handle
}

// sendProgress sends a progress update through the channel without blocking.
func (p *Poller) sendProgress(update ProgressUpdate) {
	if p.opts.Progress == nil {
		return
	}
	select {
	case p.opts.Progress <- update:
	default:
	}
}

// release frees the registry slot. Safe to call from multiple terminal paths;
// only the first call has effect.
func (p *Poller) release() {
	p.releaseOnce.Do(func() {
		if p.opts.Registry != nil {
			p.opts.Registry.Release(p.handle.Category, p.handle.PageID)
		}
	})
}

// resync refreshes the mirror, logging rather than propagating failure. The
// mirror surfaces its own errors; a failed post-task resync leaves it stale
// until the next operation, which is acceptable under eventual consistency.
func (p *Poller) resync(ctx context.Context) {
	if p.opts.Resync == nil {
		return
	}
	if err := p.opts.Resync(ctx); err != nil {
		p.opts.Logger.Warn("post-task resync failed", "task", p.handle.ID, "error", err)
	}
}

// Tick performs exactly one status fetch and advances the state machine.
//
// The second return value reports whether the task reached a terminal
// outcome; false means another tick must be scheduled.
func (p *Poller) Tick(ctx context.Context) (Outcome, bool) {
	status, err := p.api.GetTaskStatus(ctx, p.handle.Scope, p.handle.ID)
	if err != nil {
		p.transportFails++
		if p.transportFails >= p.opts.MaxTransportFailures {
			p.opts.Logger.Error("giving up on task after consecutive poll failures",
				"task", p.handle.ID, "failures", p.transportFails, "error", err)
			out := Outcome{
				Handle: p.handle,
				Err:    fmt.Errorf("%w: %d consecutive poll failures: %v", shared.ErrTransientFetch, p.transportFails, err),
			}
			p.release()
			return out, true
		}
		p.opts.Logger.Warn("poll tick failed, retrying",
			"task", p.handle.ID, "failures", p.transportFails, "error", err)
		return Outcome{}, false
	}
	p.transportFails = 0

	p.sendProgress(pollingUpdate(p.handle, status))

	switch {
	case status.State == models.TaskCompleted:
		out := Outcome{Handle: p.handle, State: models.TaskCompleted, Status: status}
		p.resync(ctx)
		p.release()
		p.sendProgress(completedUpdate(p.handle))
		return out, true

	case status.State == models.TaskFailed:
		msg := status.Error
		if msg == "" {
			msg = "generation failed"
		}
		out := Outcome{
			Handle: p.handle,
			State:  models.TaskFailed,
			Status: status,
			Err:    fmt.Errorf("%w: %s", shared.ErrTaskFailed, msg),
		}
		p.release()
		// Best-effort refresh so partial server-side progress is visible.
		p.resync(ctx)
		p.sendProgress(failedUpdate(p.handle, out.Err))
		return out, true

	case !status.State.Known():
		// Fail closed: never poll indefinitely on data we do not understand.
		out := Outcome{
			Handle: p.handle,
			Status: status,
			Err:    fmt.Errorf("%w: unrecognized task status %q", shared.ErrTaskFailed, status.State),
		}
		p.release()
		p.sendProgress(failedUpdate(p.handle, out.Err))
		return out, true

	default: // PENDING, PROCESSING
		return Outcome{}, false
	}
}

// Run drives the poller to a terminal outcome, pacing ticks at the configured
// interval. The first tick fires immediately.
//
// Context cancellation terminates the loop and releases the registry slot;
// there is no other cancel primitive.
func (p *Poller) Run(ctx context.Context) Outcome {
	p.sendProgress(submittedUpdate(p.handle))

	limiter := rate.NewLimiter(rate.Every(p.opts.Interval), 1)
	for {
		if err := limiter.Wait(ctx); err != nil {
			p.release()
			return Outcome{Handle: p.handle, Err: err}
		}

		out, done := p.Tick(ctx)
		if done {
			return out
		}
	}
}
