// Package tasks drives server-side asynchronous operations from submission to
// terminal state, with real-time progress reporting.
//
// # Components
//
//  1. [Registry] : at most one in-flight task per (category, page) key.
//     A second submission for a busy key is rejected and the caller treats
//     the request as a no-op. The registry is advisory, it coordinates
//     submissions rather than queuing them.
//
//  2. [Poller] : explicit polling state machine for one task handle.
//     [Poller.Tick] performs exactly one status fetch and returns the
//     transition; [Poller.Run] paces ticks with a rate limiter until a
//     terminal outcome. Transport errors are retried up to a bound before
//     the poller gives up and surfaces the degradation. Unrecognized status
//     strings are terminal-with-error so a poller can never spin forever on
//     data it does not understand.
//
//  3. [BatchRunner] : wraps a poller for project-wide fan-out tasks,
//     converting the server's progress pair into a coarse percentage and
//     deriving per-page sub-status from the refreshed mirror once the task
//     completes.
//
// # Progress Reporting
//
// All operations use non-blocking channel sends for progress updates; a full
// or absent channel never stalls polling. The [ProgressUpdate] struct carries
// phase, step counters, messages, and optional data for advanced UI rendering.
//
// # Slot Lifecycle
//
// Every acquired registry slot is released exactly once, on every terminal
// path: completion, failure, unrecognized status, transport give-up, and
// context cancellation. A leaked slot would permanently disable a page's
// controls, so release goes through [sync.Once].
package tasks
