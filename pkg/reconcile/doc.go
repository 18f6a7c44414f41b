// Package reconcile applies payment processor subscription events to the
// subscription facts stored on user records.
//
// The event log is the idempotency barrier. Apply first records the event
// with an insert-or-ignore keyed by its external id, then applies the effect
// in one unit of work that locks the event row and the user row, validates
// the resulting facts, writes them together with at most one payment ledger
// row, and marks the event processed. A failure rolls the unit back and
// leaves the event pending; ReplayPending retries pending events from their
// stored normalized form.
//
// Effects are pure (see ApplyEffect) and set state rather than accumulate it,
// so replaying an event is safe.
//
//	r := reconcile.New(store, catalog, reconcile.WithLogger(log))
//	res, err := r.Apply(ctx, ev)
package reconcile
