package usage

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// Usage is a read-time view of a capped counter.
// Limit and Remaining are tier.Unlimited when the counter has no cap.
type Usage struct {
	Used      int64 `json:"used"`
	Limit     int64 `json:"limit"`
	Remaining int64 `json:"remaining"`
}

// Exceeded reports whether the capped counter has reached its limit.
func (u Usage) Exceeded() bool {
	return u.Limit != tier.Unlimited && u.Used >= u.Limit
}

// NewUsage builds a Usage from a used count and a cap.
func NewUsage(used, limit int64) Usage {
	if limit == tier.Unlimited {
		return Usage{Used: used, Limit: tier.Unlimited, Remaining: tier.Unlimited}
	}
	return Usage{Used: used, Limit: limit, Remaining: max(0, limit-used)}
}

// Service implements the usage counter operations on top of a Store.
type Service struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithClock overrides the time source used to compute the current period.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a usage service.
func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// PDFUsedInPeriod returns the PDF downloads counted in the period of now.
// A stale stored period reads as zero.
func PDFUsedInPeriod(c entitlement.UsageCounters, now time.Time) int64 {
	if c.UsagePeriod != Period(now) {
		return 0
	}
	return c.PDFDownloadsUsed
}

// HasExceededPDFLimit reports whether the monthly PDF cap is reached.
// An unlimited cap never exceeds.
func HasExceededPDFLimit(c entitlement.UsageCounters, limit int64, now time.Time) bool {
	return NewUsage(PDFUsedInPeriod(c, now), limit).Exceeded()
}

// RemainingAICredits returns max(0, total-used). Unlimited totals return
// tier.Unlimited.
func RemainingAICredits(c entitlement.UsageCounters, total int64) int64 {
	return NewUsage(c.AICreditsUsed, total).Remaining
}

// Counters returns the counters of a user.
func (s *Service) Counters(ctx context.Context, userID uuid.UUID) (entitlement.UsageCounters, error) {
	return s.store.Counters(ctx, userID)
}

// PDFUsage returns the PDF usage of the current period against limit.
func (s *Service) PDFUsage(ctx context.Context, userID uuid.UUID, limit int64) (Usage, error) {
	c, err := s.store.Counters(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	return NewUsage(PDFUsedInPeriod(c, s.now()), limit), nil
}

// AIUsage returns lifetime AI credit usage against total.
func (s *Service) AIUsage(ctx context.Context, userID uuid.UUID, total int64) (Usage, error) {
	c, err := s.store.Counters(ctx, userID)
	if err != nil {
		return Usage{}, err
	}
	return NewUsage(c.AICreditsUsed, total), nil
}

// IncrementPDFDownload records one PDF download in the current period and
// returns the new count. Limits are not checked here.
func (s *Service) IncrementPDFDownload(ctx context.Context, userID uuid.UUID) (int64, error) {
	period := Period(s.now())
	n, err := s.store.IncrementPDF(ctx, userID, period)
	if err != nil {
		s.logFailure(ctx, "pdf download increment failed", userID, err)
		return 0, err
	}
	s.logger.DebugContext(ctx, "pdf download recorded",
		logger.UserID(userID),
		slog.String("period", period),
		slog.Int64("used", n),
	)
	return n, nil
}

// IncrementAICredits records one consumed AI credit. Call it only after the AI
// invocation succeeded.
func (s *Service) IncrementAICredits(ctx context.Context, userID uuid.UUID) (int64, error) {
	return s.ConsumeAICredits(ctx, userID, 1)
}

// ConsumeAICredits records n consumed AI credits.
func (s *Service) ConsumeAICredits(ctx context.Context, userID uuid.UUID, n int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	used, err := s.store.IncrementAICredits(ctx, userID, n)
	if err != nil {
		s.logFailure(ctx, "ai credit increment failed", userID, err)
		return 0, err
	}
	return used, nil
}

// IncrementPDFDownloadWithin records one PDF download only while the current
// period count is below limit, and returns ErrLimitReached otherwise. The cap
// check and the write are one atomic store operation, so concurrent callers
// cannot overshoot limit. An unlimited cap increments unconditionally.
func (s *Service) IncrementPDFDownloadWithin(ctx context.Context, userID uuid.UUID, limit int64) (int64, error) {
	if limit == tier.Unlimited {
		return s.IncrementPDFDownload(ctx, userID)
	}
	period := Period(s.now())
	n, err := s.store.IncrementPDFWithin(ctx, userID, period, limit)
	if err != nil {
		s.logFailure(ctx, "pdf download increment failed", userID, err)
		return 0, err
	}
	s.logger.DebugContext(ctx, "pdf download recorded",
		logger.UserID(userID),
		slog.String("period", period),
		slog.Int64("used", n),
		slog.Int64("limit", limit),
	)
	return n, nil
}

// ConsumeAICreditsWithin records n consumed AI credits unless that would take
// lifetime usage past total.
func (s *Service) ConsumeAICreditsWithin(ctx context.Context, userID uuid.UUID, n, total int64) (int64, error) {
	if n <= 0 {
		return 0, ErrInvalidAmount
	}
	if total == tier.Unlimited {
		return s.ConsumeAICredits(ctx, userID, n)
	}
	used, err := s.store.IncrementAICreditsWithin(ctx, userID, n, total)
	if err != nil {
		s.logFailure(ctx, "ai credit increment failed", userID, err)
		return 0, err
	}
	return used, nil
}

func (s *Service) logFailure(ctx context.Context, msg string, userID uuid.UUID, err error) {
	if errors.Is(err, entitlement.ErrNotFound) || errors.Is(err, ErrLimitReached) {
		return
	}
	s.logger.ErrorContext(ctx, msg, logger.UserID(userID), logger.Error(err))
}
