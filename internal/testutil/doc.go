// Package testutil provides deterministic fakes for tests and the scenario
// harness: a recording chat platform, fixed relay IDs and a trace sequence.
package testutil
