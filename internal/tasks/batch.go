package tasks

import (
	"context"

	"github.com/desertthunder/slidex/internal/models"
)

// BatchResult is the terminal result of a project-wide fan-out task.
type BatchResult struct {
	Outcome    Outcome
	Percent    float64                      // last observed coarse progress percentage
	PageStates map[string]models.PageStatus // per-page sub-status from the refreshed mirror
}

// BatchRunner drives an aggregate task (for example "generate descriptions
// for all pages") to completion.
//
// The server reports only an aggregate progress pair; per-page outcomes are
// derived from the mirror after the terminal resync, since each page carries
// its own status in the authoritative snapshot.
type BatchRunner struct {
	poller   *Poller
	inner    chan ProgressUpdate
	outer    chan<- ProgressUpdate
	snapshot func() *models.Project
}

// NewBatchRunner creates a runner for the given aggregate task handle.
// snapshot must return the current mirror state (or nil when empty).
func NewBatchRunner(api StatusAPI, handle models.TaskHandle, opts PollerOpts, snapshot func() *models.Project) *BatchRunner {
	inner := make(chan ProgressUpdate, 32)
	outer := opts.Progress
	opts.Progress = inner

	return &BatchRunner{
		poller:   NewPoller(api, handle, opts),
		inner:    inner,
		outer:    outer,
		snapshot: snapshot,
	}
}

// forward relays an update to the outer channel without blocking.
func (b *BatchRunner) forward(update ProgressUpdate) {
	if b.outer == nil {
		return
	}
	select {
	case b.outer <- update:
	default:
	}
}

// percentOf converts a progress pair to a coarse percentage.
func percentOf(completed, total int) float64 {
	if total <= 0 {
		return 0
	}
	return float64(completed) / float64(total) * 100
}

// Run polls the aggregate task to a terminal outcome, converting progress
// pairs to percentages for the UI along the way.
func (b *BatchRunner) Run(ctx context.Context) *BatchResult {
	done := make(chan Outcome, 1)
	go func() {
		done <- b.poller.Run(ctx)
	}()

	result := &BatchResult{}
	for {
		select {
		case update := <-b.inner:
			if update.Total > 0 {
				result.Percent = percentOf(update.Step, update.Total)
				b.forward(batchProgressUpdate(b.poller.Handle(), update.Step, update.Total, result.Percent))
			} else {
				b.forward(update)
			}

		case out := <-done:
			// Drain any progress emitted on the terminal tick.
			for {
				select {
				case update := <-b.inner:
					if update.Total > 0 {
						result.Percent = percentOf(update.Step, update.Total)
					}
					b.forward(update)
					continue
				default:
				}
				break
			}

			result.Outcome = out
			if out.State == models.TaskCompleted {
				result.Percent = 100
			}
			if project := b.snapshot(); project != nil {
				result.PageStates = make(map[string]models.PageStatus, len(project.Pages))
				for _, page := range project.Pages {
					result.PageStates[page.ID] = page.Status
				}
			}
			return result
		}
	}
}
