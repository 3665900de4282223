// Package selector picks the minimal set of records covering a
// requested temperature range and arranges them into an ordered,
// contiguous list of phase segments.
//
// Selection runs three tiers in order, first success wins:
//
//  1. exact   - phases match the physically active phase everywhere and
//               the union of records covers the range with no gaps
//  2. widened - phase constraints relax at boundaries and minor gaps
//               (below the gap tolerance) are bridged by extending the
//               earlier record's effective bound
//  3. relaxed - best-effort top records by reliability; coverage may be
//               partial and the result is marked relaxed
//
// After selection an optimization pass merges temperature-adjacent,
// same-phase, coefficient-equivalent records into virtual records.
// A junction that coincides with a declared phase transition (within
// the transition tolerance) is never merged away: reference-record
// selection in the thermo package depends on those boundaries staying
// visible.
package selector
