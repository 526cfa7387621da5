// Package services implements the federation migration workflow on top of
// the management API client.
//
// Both commands are composed from the same leaf operations:
//
//	Inspector ──► FetchSnapshot ──► report ──► Exporter
//	Migrator  ──► auth gates ──► plugin check ──► backups ──► Writer ──► verify
//
// # Error classes
//
// Every operation falls into exactly one escalation class; there are no
// retries anywhere.
//
//	┌───────────────────────────────┬──────────────────────────────────────┐
//	│ Class                         │ Behavior                             │
//	├───────────────────────────────┼──────────────────────────────────────┤
//	│ Fatal precondition            │ process exits 1                      │
//	│   missing configuration       │                                      │
//	│   failed authentication       │                                      │
//	│   failed primary fetch        │                                      │
//	├───────────────────────────────┼──────────────────────────────────────┤
//	│ Per-item write failure        │ logged with name and broker response │
//	│                               │ detail, loop continues               │
//	├───────────────────────────────┼──────────────────────────────────────┤
//	│ Advisory                      │ warning, execution proceeds          │
//	│   link-status fetch           │                                      │
//	│   target backup               │                                      │
//	│   verification mismatch       │                                      │
//	│   snapshot export write       │                                      │
//	│   upstream reachability probe │                                      │
//	└───────────────────────────────┴──────────────────────────────────────┘
//
// The write batch is not transactional: the management API offers no
// multi-resource transaction primitive, so the writer optimizes for
// visibility (log every success and failure) over atomicity. Re-running a
// migration overwrites same-named resources through the PUT upsert
// semantics of the API.
package services
