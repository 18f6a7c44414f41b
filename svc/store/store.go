package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/pg"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// Store is the PostgreSQL repository behind accounts, usage counters, the
// subscription event log and the payment ledger.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store on pool.
func New(pool *pgxpool.Pool) *Store {
	if pool == nil {
		panic("store: nil pool")
	}
	return &Store{pool: pool}
}

const userColumns = `id, email,
	is_subscribed, subscription_plan, subscription_end_date, subscription_started_at, cancelled_at,
	coupon_code_used, subscription_price_amount, subscription_price_currency,
	external_customer_id, external_subscription_id, provider_status,
	ai_credits_used, pdf_downloads_used, usage_period, resumes_created_today`

func scanAccount(row pgx.Row) (entitlement.Account, error) {
	var (
		acc         entitlement.Account
		priceAmount *int64
		priceCurr   string
	)
	f := &acc.Facts
	c := &acc.Counters
	err := row.Scan(
		&acc.UserID, &acc.Email,
		&f.IsSubscribed, &f.SubscriptionPlan, &f.SubscriptionEndDate, &f.SubscriptionStartedAt, &f.CancelledAt,
		&f.CouponCodeUsed, &priceAmount, &priceCurr,
		&f.ExternalCustomerID, &f.ExternalSubscriptionID, &f.ProviderStatus,
		&c.AICreditsUsed, &c.PDFDownloadsUsed, &c.UsagePeriod, &c.ResumesCreatedToday,
	)
	if err != nil {
		return entitlement.Account{}, err
	}
	if priceAmount != nil {
		f.SubscriptionPrice = &tier.Money{Amount: *priceAmount, Currency: priceCurr}
	}
	return acc, nil
}

// CreateUser inserts a free user with zeroed counters.
func (s *Store) CreateUser(ctx context.Context, id uuid.UUID, email string) error {
	_, err := s.pool.Exec(ctx, `INSERT INTO users (id, email) VALUES ($1, $2)`, id, email)
	if pg.IsDuplicateKeyError(err) {
		return ErrUserExists
	}
	return storageErr(err)
}

// Account loads a user's facts and counters.
func (s *Store) Account(ctx context.Context, id uuid.UUID) (entitlement.Account, error) {
	acc, err := scanAccount(s.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, id))
	if err != nil {
		return entitlement.Account{}, storageErr(err)
	}
	return acc, nil
}

// UserExists reports whether the user row exists.
func (s *Store) UserExists(ctx context.Context, id uuid.UUID) (bool, error) {
	var ok bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&ok)
	return ok, storageErr(err)
}

// UpdateFacts locks the user row, applies mutate and saves its result.
func (s *Store) UpdateFacts(ctx context.Context, id uuid.UUID, mutate func(entitlement.SubscriptionFacts) (entitlement.SubscriptionFacts, error)) (entitlement.Account, error) {
	var (
		acc   entitlement.Account
		fnErr error
	)
	txErr := pg.WithTx(ctx, s.pool, func(tx pgx.Tx) error {
		cur, err := scanAccount(tx.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1 FOR UPDATE`, id))
		if err != nil {
			return storageErr(err)
		}

		next, err := mutate(cur.Facts.Clone())
		if err != nil {
			fnErr = err
			return err
		}
		if err := saveFacts(ctx, tx, id, next); err != nil {
			return err
		}

		acc = cur
		acc.Facts = next
		return nil
	})
	if fnErr != nil {
		return entitlement.Account{}, fnErr
	}
	if txErr != nil {
		if errors.Is(txErr, entitlement.ErrNotFound) || errors.Is(txErr, entitlement.ErrStorage) {
			return entitlement.Account{}, txErr
		}
		return entitlement.Account{}, storageErr(txErr)
	}
	return acc, nil
}

func saveFacts(ctx context.Context, tx pgx.Tx, id uuid.UUID, f entitlement.SubscriptionFacts) error {
	var (
		priceAmount *int64
		priceCurr   string
	)
	if f.SubscriptionPrice != nil {
		amount := f.SubscriptionPrice.Amount
		priceAmount = &amount
		priceCurr = f.SubscriptionPrice.Currency
	}

	tag, err := tx.Exec(ctx, `UPDATE users SET
			is_subscribed = $2,
			subscription_plan = $3,
			subscription_end_date = $4,
			subscription_started_at = $5,
			cancelled_at = $6,
			coupon_code_used = $7,
			subscription_price_amount = $8,
			subscription_price_currency = $9,
			external_customer_id = $10,
			external_subscription_id = $11,
			provider_status = $12,
			updated_at = now()
		WHERE id = $1`,
		id, f.IsSubscribed, f.SubscriptionPlan, f.SubscriptionEndDate, f.SubscriptionStartedAt, f.CancelledAt,
		f.CouponCodeUsed, priceAmount, priceCurr,
		f.ExternalCustomerID, f.ExternalSubscriptionID, f.ProviderStatus,
	)
	if err != nil {
		return storageErr(err)
	}
	if tag.RowsAffected() == 0 {
		return entitlement.ErrNotFound
	}
	return nil
}
