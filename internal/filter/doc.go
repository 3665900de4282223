// Package filter reduces raw candidate records to a physically
// plausible subset for one compound and temperature range.
//
// The pipeline is a closed, ordered list of stages. Each stage receives
// the previous stage's output and may only remove records or attach
// statistics, never add records. Canonical order:
//
//  1. dedup        - collapse identical / coefficient-identical rows
//  2. overlap      - keep records intersecting the requested range,
//                    expanding the effective range once if none do
//  3. phase        - keep records whose phase is physically active at
//                    the midpoint of their overlap
//  4. reliability  - among records covering the same sub-interval and
//                    phase, keep the best reliability class
//  5. coverage     - flag (never remove) uncovered sub-intervals
//
// FAILURE SEMANTICS:
// A stage that would remove every remaining record no-ops and records a
// warning instead - the pipeline never silently empties the set. If the
// final result is still empty the pipeline returns a typed
// *NoCoverageError value so the caller decides how to degrade.
//
// Stages are pure with respect to their inputs, so running the pipeline
// twice over the same candidates yields identical records and identical
// context statistics.
package filter
