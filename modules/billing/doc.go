// Package billing is the HTTP module exposing entitlements, usage
// enforcement, checkout, processor webhooks and admin subscription edits.
//
// Authenticated routes read the caller from the X-User-ID header, which the
// upstream auth proxy sets, and build the entitlement snapshot once per
// request. Denied gate checks answer 402 with the denial and an upgrade hint;
// invariant violations answer 422 with per-field details; storage failures
// answer 503.
package billing
