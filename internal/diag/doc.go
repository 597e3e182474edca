// Package diag defines the diagnostic model shared by every phase of an
// autoplugin pass.
//
// # Purpose
//
//   - Provide deterministic data structures for findings produced by the
//     marker scanner, the unit state store and the code synthesizer.
//   - Offer light-weight utilities (Reporter, Bag) that let producers emit
//     diagnostics without coupling to storage or formatting.
//
// # Scope
//
// Package diag does no IO and no colouring. Rendering lives in
// internal/diagfmt; orchestration lives in internal/driver.
//
// # Data model
//
// Diagnostic is the central record:
//
//   - Severity – Info, Warning or Error (severity.go).
//   - Code – numeric identifier with a stable string form (codes.go).
//   - Message – short, actionable text. Messages for duplicate targets,
//     late contributions and missing plugin entries are part of the
//     tool's output contract and must not change.
//   - Primary – the marker or declaration the finding is about.
//   - Subject – set instead of Primary for unit-level findings (a unit
//     that never reached its plugin entry has no single site).
//   - Notes – optional secondary spans, e.g. the first occurrence of a
//     duplicate target.
//
// # Emitting diagnostics
//
// Phases take a Reporter. Every goroutine owns its Bag and wraps it in
// BagReporter; the driver merges the bags once the goroutines are done.
// ReportBuilder chains WithNote before Emit.
package diag
