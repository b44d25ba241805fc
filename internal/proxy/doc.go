// Package proxy implements proxy identities: who may speak as which proxy,
// and the relay that sends a message under a proxy's name and avatar.
//
// ARCHITECTURE:
//
// Access control:
// Every proxy has a flat access set (the proxy_users relation). Creating a
// proxy puts its creator in the set; any member may add members; only the
// operator's administrator capability may delete a proxy. AccessControl.Authorize
// is the one predicate every relay and grant goes through.
//
// Relay pipeline:
// Relayer.Relay runs one invocation as an ordered pipeline:
//  1. Authorize (no side effects on failure)
//  2. Resolve the proxy
//  3. Resolve the host channel (parent of a thread or forum post)
//  4. Provision a transient sender binding on the host channel
//  5. Send the text through the binding into the original channel
//  6. Release the binding, whatever happened in step 5
//  7. Delete the invoking message, best-effort
//  8. Award XP through the Awarder
//
// Relay success is defined by steps 1-5. A binding belongs to exactly one
// Relay call and is never cached or shared.
package proxy
