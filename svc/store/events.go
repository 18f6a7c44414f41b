package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/pg"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
)

const eventColumns = `external_event_id, provider, event_type, subject_id, payload, normalized,
	processed, outcome, attempts, last_error, received_at, processed_at`

func scanRecord(row pgx.Row) (reconcile.Record, error) {
	var (
		rec       reconcile.Record
		eventType string
		outcome   string
	)
	err := row.Scan(
		&rec.ExternalEventID, &rec.Provider, &eventType, &rec.SubjectID, &rec.Payload, &rec.Normalized,
		&rec.Processed, &outcome, &rec.Attempts, &rec.LastError, &rec.ReceivedAt, &rec.ProcessedAt,
	)
	if err != nil {
		return reconcile.Record{}, err
	}
	rec.EventType = reconcile.EventType(eventType)
	rec.Outcome = reconcile.Outcome(outcome)
	return rec, nil
}

// RecordEvent inserts the event unless it is already logged and returns the
// stored row.
func (s *Store) RecordEvent(ctx context.Context, rec reconcile.Record) (reconcile.Record, error) {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO subscription_events
			(external_event_id, provider, event_type, subject_id, payload, normalized, received_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (external_event_id) DO NOTHING`,
		rec.ExternalEventID, rec.Provider, string(rec.EventType), rec.SubjectID,
		nullJSON(rec.Payload), rec.Normalized, rec.ReceivedAt,
	)
	if err != nil {
		return reconcile.Record{}, storageErr(err)
	}

	stored, err := scanRecord(s.pool.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM subscription_events WHERE external_event_id = $1`, rec.ExternalEventID))
	if err != nil {
		return reconcile.Record{}, storageErr(err)
	}
	return stored, nil
}

// RecordFailure bumps the attempt counter of an unprocessed event.
func (s *Store) RecordFailure(ctx context.Context, eventID, cause string) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE subscription_events SET attempts = attempts + 1, last_error = $2
		WHERE external_event_id = $1 AND NOT processed`, eventID, cause)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrNotFound
	}
	return nil
}

// PendingEvents returns unprocessed events below maxAttempts failures, oldest
// first. A maxAttempts of zero returns every unprocessed event.
func (s *Store) PendingEvents(ctx context.Context, limit, maxAttempts int) ([]reconcile.Record, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+eventColumns+` FROM subscription_events
		WHERE NOT processed AND ($2 <= 0 OR attempts < $2)
		ORDER BY received_at, external_event_id
		LIMIT $1`, limit, maxAttempts)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []reconcile.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, storageErr(err)
		}
		out = append(out, rec)
	}
	return out, storageErr(rows.Err())
}

// Ledger lists a user's payment ledger entries, oldest first.
func (s *Store) Ledger(ctx context.Context, userID uuid.UUID) ([]reconcile.LedgerEntry, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT external_event_id, user_id, amount, currency, external_customer_id, created_at
		FROM payment_ledger WHERE user_id = $1
		ORDER BY created_at, external_event_id`, userID)
	if err != nil {
		return nil, storageErr(err)
	}
	defer rows.Close()

	var out []reconcile.LedgerEntry
	for rows.Next() {
		var e reconcile.LedgerEntry
		if err := rows.Scan(&e.ExternalEventID, &e.UserID, &e.Amount.Amount, &e.Amount.Currency,
			&e.ExternalCustomerID, &e.CreatedAt); err != nil {
			return nil, storageErr(err)
		}
		out = append(out, e)
	}
	return out, storageErr(rows.Err())
}

// InTx runs fn in a read-committed transaction. Errors returned by fn pass
// through unchanged; begin and commit failures are storage errors.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx reconcile.Tx) error) error {
	var fnErr error
	err := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		fnErr = fn(ctx, &eventTx{tx: tx})
		return fnErr
	})
	if fnErr != nil {
		return fnErr
	}
	if err != nil {
		return storageErr(err)
	}
	return nil
}

type eventTx struct {
	tx pgx.Tx
}

func (t *eventTx) LockEvent(ctx context.Context, eventID string) (reconcile.Record, error) {
	rec, err := scanRecord(t.tx.QueryRow(ctx,
		`SELECT `+eventColumns+` FROM subscription_events WHERE external_event_id = $1 FOR UPDATE`, eventID))
	if err != nil {
		return reconcile.Record{}, storageErr(err)
	}
	return rec, nil
}

// LockUser tries the user id, then the external subscription id, then the
// external customer id.
func (t *eventTx) LockUser(ctx context.Context, ref reconcile.UserRef) (uuid.UUID, entitlement.SubscriptionFacts, error) {
	type lookup struct {
		where string
		arg   any
		ok    bool
	}
	lookups := []lookup{
		{"id = $1", ref.UserID, ref.UserID != uuid.Nil},
		{"external_subscription_id = $1", ref.SubscriptionID, ref.SubscriptionID != ""},
		{"external_customer_id = $1", ref.CustomerID, ref.CustomerID != ""},
	}

	for _, l := range lookups {
		if !l.ok {
			continue
		}
		acc, err := scanAccount(t.tx.QueryRow(ctx,
			`SELECT `+userColumns+` FROM users WHERE `+l.where+` ORDER BY updated_at DESC LIMIT 1 FOR UPDATE`, l.arg))
		if pg.IsNotFoundError(err) {
			continue
		}
		if err != nil {
			return uuid.Nil, entitlement.SubscriptionFacts{}, storageErr(err)
		}
		return acc.UserID, acc.Facts, nil
	}
	return uuid.Nil, entitlement.SubscriptionFacts{}, entitlement.ErrNotFound
}

func (t *eventTx) SaveFacts(ctx context.Context, userID uuid.UUID, facts entitlement.SubscriptionFacts) error {
	return saveFacts(ctx, t.tx, userID, facts)
}

func (t *eventTx) InsertLedgerEntry(ctx context.Context, e reconcile.LedgerEntry) (bool, error) {
	tag, err := t.tx.Exec(ctx, `
		INSERT INTO payment_ledger (external_event_id, user_id, amount, currency, external_customer_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (external_event_id) DO NOTHING`,
		e.ExternalEventID, e.UserID, e.Amount.Amount, e.Amount.Currency, e.ExternalCustomerID, e.CreatedAt)
	if err != nil {
		return false, storageErr(err)
	}
	return tag.RowsAffected() == 1, nil
}

func (t *eventTx) MarkProcessed(ctx context.Context, eventID string, outcome reconcile.Outcome, at time.Time) error {
	tag, err := t.tx.Exec(ctx, `
		UPDATE subscription_events SET processed = TRUE, outcome = $2, processed_at = $3, last_error = ''
		WHERE external_event_id = $1`, eventID, string(outcome), at)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return errors.Join(entitlement.ErrNotFound, errors.New("event "+eventID))
	}
	return nil
}

// nullJSON stores empty payloads as NULL.
func nullJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return string(b)
}
