// Package record defines the data model shared by every stage of the
// resolution pipeline: database records, phases, temperature ranges,
// phase segments, and structured diagnostics.
//
// Records are read-only inputs. A Record is created by a record source
// (SQLite store, dataset compiler, or test fixture) and is never mutated
// afterwards; the optimization pass in the selector package produces new
// virtual records rather than editing the originals.
//
// RELIABILITY ORDERING:
// Reliability classes are 1..9 with 1 best. Class 0 means "unranked" and
// sorts after 9. Never compare raw class values - use ReliabilityRank,
// which encodes this total order explicitly.
package record
