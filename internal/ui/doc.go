// Package ui implements an interactive terminal interface using bubbletea's Elm architecture.
//
// The TUI is a single deck view: a page list with per-page status glyphs and
// busy markers, an inline editor for outline text, and a status line fed by
// the synchronizer's progress channel. Edits apply optimistically and persist
// through the store's debounced writer; generation keys submit background
// tasks whose terminal outcomes arrive as messages.
//
// The [Model] implements bubbletea/Elm's standard Init/Update/View pattern.
// Progress updates flow through a channel from the store's pollers, providing
// non-blocking status reporting while tasks run.
//
// Keyboard navigation uses vim-style bindings (j/k, J/K, enter, esc, q) with
// contextual help displayed via charmbracelet/bubbles/help.
package ui
