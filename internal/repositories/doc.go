// Package repositories implements SQLite persistence for local client state.
//
// The synchronizer itself holds no durable data; the only thing that survives
// a restart is the session pointer: the identity of the most recently active
// project. [SessionRepository] owns that single row. It is set whenever a
// project is created or successfully resynchronized, and cleared only when
// the server confirms the project no longer exists.
package repositories
