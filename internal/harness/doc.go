// Package harness runs declarative resolution scenarios for
// conformance testing.
//
// A scenario is a YAML file bundling a record fixture set, one
// resolution request, and expectations about the outcome. Running a
// scenario executes the full pipeline (search, filter, range build)
// against an in-memory record source and produces a deterministic
// line-oriented trace: the candidate count, per-stage statistics, the
// coverage status, the final segments, detected transitions, and
// diagnostic codes.
//
// Traces are compared against golden files with goldie, so a behavior
// change in any pipeline stage shows up as a readable trace diff.
// Regenerate golden files with:
//
//	go test ./internal/harness -update
package harness
