// Package harness runs relay scenarios written in YAML against a fresh
// in-memory store and a recording platform.
//
// A scenario is a list of steps (create, grant, relay, delete, list, access,
// xp, fail) executed in order. Each step expects an outcome, "OK" or an
// error code, and records a trace event holding its result and the
// platform calls it caused. Level-up notifications are drained after every
// step, so they appear in the trace of the relay that earned them.
//
// Traces are deterministic: relay IDs come from a fixed generator and
// bindings are numbered by the recording platform. Golden files under
// testdata/golden pin them.
package harness
