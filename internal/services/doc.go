// Package services defines the [API] contract for the remote deck-generation
// service and implements it over HTTP.
//
// # API Interface
//
// The synchronizer consumes the service through a narrow abstract contract:
// project CRUD, page updates, task submission, and task status polling. The
// store and poller only ever see this interface, which keeps them testable
// against scripted fakes.
//
// # HTTP Implementation
//
// [Client] wraps the service's JSON endpoints. Transport concerns live here
// and nowhere else:
//   - transient failures are retried with avast/retry-go (the synchronizer
//     above never retries; it resyncs)
//   - a configured bearer token is attached via an oauth2 static token source
//   - 404 on project fetch maps to [shared.ErrProjectNotFound] so the store
//     can distinguish deletion from a transient failure
//
// Task submission responses may carry a task_id (asynchronous, to be polled)
// or no task_id at all, which means the operation completed synchronously.
package services
