// Package review provides the review session: the orchestrator that
// composes the dataset registry, the comparison set, and the field-group
// schema behind navigation, retrieval, and label/note-saving operations.
//
// A Session is an explicitly constructed value owned by exactly one
// logical reviewer. Hosting layers (HTTP handlers, the terminal UI) hold
// one instance per session and serialize access to it; the session
// itself performs no locking.
package review
