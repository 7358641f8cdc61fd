// Package models defines the domain entities for the slidex deck synchronizer.
//
// The package contains three categories of types:
//
// 1. Aggregate types mirrored from the server:
//   - [Project] : Root aggregate, one slide deck under construction
//   - [Page] : One slide within a project, independently generated and edited
//
// 2. Edit and creation payloads:
//   - [PagePatch] : Field-level partial update sent by the debounced writer
//   - [CreateIntent] : One of three creation modes (prompt, outline, narrative)
//
// 3. Ephemeral task values, never persisted:
//   - [TaskHandle] : Identity and scope of one in-flight server task
//   - [TaskStatus] : Polled status snapshot with optional progress pair
//
// The [Project] value held by the store is the single source of truth for the
// UI; [Project.Clone] exists so snapshots can be handed out without aliasing
// the mirror.
package models
