package reconcile

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// Reconciler applies subscription lifecycle events to stored subscription
// facts exactly once per external event id.
type Reconciler struct {
	store       Store
	catalog     *tier.Catalog
	now         func() time.Time
	logger      *slog.Logger
	maxAttempts int
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithClock overrides the time source used for effect timestamps.
func WithClock(now func() time.Time) Option {
	return func(r *Reconciler) {
		if now != nil {
			r.now = now
		}
	}
}

// WithLogger sets the reconciler logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Reconciler) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMaxAttempts sets how many failed attempts a pending event may have
// before ReplayPending stops retrying it. Zero disables the limit.
func WithMaxAttempts(n int) Option {
	return func(r *Reconciler) {
		if n >= 0 {
			r.maxAttempts = n
		}
	}
}

// New creates a reconciler. Panics if store or catalog is nil.
func New(store Store, catalog *tier.Catalog, opts ...Option) *Reconciler {
	if store == nil {
		panic("reconcile: Store is required")
	}
	if catalog == nil {
		panic("reconcile: tier catalog is required")
	}

	r := &Reconciler{
		store:       store,
		catalog:     catalog,
		now:         time.Now,
		logger:      slog.Default(),
		maxAttempts: 10,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Apply records the event in the log and applies it.
//
// A redelivered event that was already processed is a no-op reported as
// OutcomeDuplicate with a nil error. An event that references no known user
// is marked processed as OutcomeOrphaned. Any other failure leaves the event
// unprocessed so that redelivery or ReplayPending can complete it.
func (r *Reconciler) Apply(ctx context.Context, ev Event) (Result, error) {
	if err := ev.Validate(); err != nil {
		return Result{}, err
	}

	normalized, err := json.Marshal(ev)
	if err != nil {
		return Result{}, errors.Join(ErrFailedToRecord, err)
	}

	rec, err := r.store.RecordEvent(ctx, Record{
		ExternalEventID: ev.ExternalEventID,
		Provider:        ev.Provider,
		EventType:       ev.Type,
		SubjectID:       ev.SubjectID,
		Payload:         ev.Payload,
		Normalized:      normalized,
		ReceivedAt:      r.now().UTC(),
	})
	if err != nil {
		r.logger.ErrorContext(ctx, "failed to record subscription event",
			logger.ExternalEventID(ev.ExternalEventID),
			logger.EventType(string(ev.Type)),
			logger.Error(err),
		)
		return Result{}, errors.Join(ErrFailedToRecord, err)
	}
	if rec.Processed {
		r.logger.DebugContext(ctx, "subscription event already processed",
			logger.ExternalEventID(ev.ExternalEventID),
			logger.EventType(string(ev.Type)),
		)
		return Result{EventID: ev.ExternalEventID, Outcome: OutcomeDuplicate}, nil
	}

	return r.apply(ctx, ev)
}

// ReplayPending re-applies up to limit unprocessed events from their stored
// normalized form. Events that used up their attempts are not loaded. It
// returns the number of events that reached a final outcome and the joined
// errors of those that failed again.
func (r *Reconciler) ReplayPending(ctx context.Context, limit int) (int, error) {
	recs, err := r.store.PendingEvents(ctx, limit, r.maxAttempts)
	if err != nil {
		return 0, errors.Join(entitlement.ErrStorage, err)
	}

	var (
		done int
		errs []error
	)
	for _, rec := range recs {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		ev, err := rec.Event()
		if err != nil {
			r.recordFailure(ctx, rec.ExternalEventID, err)
			errs = append(errs, err)
			continue
		}
		if _, err := r.apply(ctx, ev); err != nil {
			if r.maxAttempts > 0 && rec.Attempts+1 >= r.maxAttempts {
				r.logger.WarnContext(ctx, "subscription event exhausted replay attempts",
					logger.ExternalEventID(rec.ExternalEventID),
					logger.RetryCount(rec.Attempts+1),
				)
			}
			errs = append(errs, err)
			continue
		}
		done++
	}

	if done > 0 || len(errs) > 0 {
		r.logger.InfoContext(ctx, "replayed pending subscription events",
			slog.Int("replayed", done),
			slog.Int("failed", len(errs)),
		)
	}
	return done, errors.Join(errs...)
}

func (r *Reconciler) apply(ctx context.Context, ev Event) (Result, error) {
	res := Result{EventID: ev.ExternalEventID}

	err := r.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		rec, err := tx.LockEvent(ctx, ev.ExternalEventID)
		if err != nil {
			return err
		}
		if rec.Processed {
			return entitlement.ErrDuplicateEvent
		}

		now := r.now().UTC()
		userID, facts, err := tx.LockUser(ctx, refOf(ev))
		if errors.Is(err, entitlement.ErrNotFound) {
			res.Outcome = OutcomeOrphaned
			return tx.MarkProcessed(ctx, ev.ExternalEventID, OutcomeOrphaned, now)
		}
		if err != nil {
			return err
		}
		res.UserID = userID

		next, err := ApplyEffect(r.catalog, facts, ev, now)
		if err != nil {
			return err
		}
		if err := entitlement.ValidateSubscriptionFacts(next); err != nil {
			return err
		}
		if err := tx.SaveFacts(ctx, userID, next); err != nil {
			return err
		}

		if entry, ok := ledgerEntryFor(ev, userID, next, now); ok {
			inserted, err := tx.InsertLedgerEntry(ctx, entry)
			if err != nil {
				return err
			}
			res.LedgerRecorded = inserted
		}

		res.Outcome = OutcomeApplied
		return tx.MarkProcessed(ctx, ev.ExternalEventID, OutcomeApplied, now)
	})

	switch {
	case errors.Is(err, entitlement.ErrDuplicateEvent):
		return Result{EventID: ev.ExternalEventID, Outcome: OutcomeDuplicate}, nil
	case err != nil:
		r.recordFailure(ctx, ev.ExternalEventID, err)
		r.logger.ErrorContext(ctx, "failed to apply subscription event",
			logger.ExternalEventID(ev.ExternalEventID),
			logger.EventType(string(ev.Type)),
			logger.Provider(ev.Provider),
			logger.Error(err),
		)
		return Result{}, errors.Join(ErrFailedToApply, err)
	}

	if res.Outcome == OutcomeOrphaned {
		r.logger.WarnContext(ctx, "subscription event references no known user",
			logger.ExternalEventID(ev.ExternalEventID),
			logger.EventType(string(ev.Type)),
			slog.String("subject_id", ev.SubjectID),
			slog.String("customer_id", ev.CustomerID),
		)
		return res, nil
	}

	r.logger.InfoContext(ctx, "subscription event applied",
		logger.ExternalEventID(ev.ExternalEventID),
		logger.EventType(string(ev.Type)),
		logger.UserID(res.UserID),
		slog.Bool("ledger_recorded", res.LedgerRecorded),
	)
	return res, nil
}

// recordFailure is best effort; the event stays pending either way.
func (r *Reconciler) recordFailure(ctx context.Context, eventID string, cause error) {
	if err := r.store.RecordFailure(ctx, eventID, cause.Error()); err != nil {
		r.logger.WarnContext(ctx, "failed to record subscription event failure",
			logger.ExternalEventID(eventID),
			logger.Error(err),
		)
	}
}
