package admin

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrymomot/resumekit/pkg/async"
	"github.com/dmitrymomot/resumekit/pkg/email"
	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

const (
	statusGranted = "granted"
	statusRevoked = "revoked"
)

// Service applies operator changes to subscription facts. Every change is
// validated before it is saved, under the same row lock webhook processing
// takes, so admin edits and reconciliation serialize per user.
type Service struct {
	store   Store
	catalog *tier.Catalog
	sender  email.Sender
	now     func() time.Time
	logger  *slog.Logger
}

// Option configures Service.
type Option func(*Service)

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithSender enables notification emails.
func WithSender(sender email.Sender) Option {
	return func(s *Service) { s.sender = sender }
}

// NewService creates an admin service.
func NewService(store Store, catalog *tier.Catalog, opts ...Option) *Service {
	if store == nil {
		panic("admin: nil store")
	}
	if catalog == nil {
		panic("admin: nil catalog")
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		now:     time.Now,
		logger:  logger.Discard(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UpdateSubscription replaces the user's subscription facts. Usage counters
// are not touched. The external processor ids are kept when facts leaves
// them empty. The provider status is never taken from facts: it stays as
// stored, and becomes "granted" when an admin subscribes a user the processor
// does not report as active.
func (s *Service) UpdateSubscription(ctx context.Context, userID uuid.UUID, facts entitlement.SubscriptionFacts) (entitlement.Account, error) {
	if facts.SubscriptionPlan != "" {
		if _, err := s.catalog.Plan(facts.SubscriptionPlan); err != nil {
			return entitlement.Account{}, errors.Join(ErrUnknownPlan, fmt.Errorf("plan %q", facts.SubscriptionPlan))
		}
	}

	acc, err := s.update(ctx, userID, func(cur entitlement.SubscriptionFacts) entitlement.SubscriptionFacts {
		next := facts.Clone()
		if next.ExternalCustomerID == "" {
			next.ExternalCustomerID = cur.ExternalCustomerID
		}
		if next.ExternalSubscriptionID == "" {
			next.ExternalSubscriptionID = cur.ExternalSubscriptionID
		}
		next.ProviderStatus = cur.ProviderStatus
		if next.IsSubscribed && cur.ProviderStatus != entitlement.StatusActive {
			next.ProviderStatus = statusGranted
		}
		return next
	})
	if err != nil {
		return entitlement.Account{}, err
	}

	s.notify(ctx, acc, "Your ResumeKit subscription was updated")
	return acc, nil
}

// GrantPlan gives the user a paid plan until the given time, or for one plan
// period from now when until is nil.
func (s *Service) GrantPlan(ctx context.Context, userID uuid.UUID, planID string, until *time.Time) (entitlement.Account, error) {
	plan, err := s.catalog.Plan(planID)
	if err != nil {
		return entitlement.Account{}, errors.Join(ErrUnknownPlan, fmt.Errorf("plan %q", planID))
	}

	now := s.now().UTC()
	end := plan.PeriodEnd(now)
	if until != nil {
		if !until.After(now) {
			return entitlement.Account{}, ErrInvalidPeriod
		}
		end = until.UTC()
	}

	acc, err := s.update(ctx, userID, func(cur entitlement.SubscriptionFacts) entitlement.SubscriptionFacts {
		next := cur.Clone()
		next.IsSubscribed = true
		next.SubscriptionPlan = plan.ID
		next.SubscriptionStartedAt = &now
		next.SubscriptionEndDate = &end
		next.CancelledAt = nil
		next.ProviderStatus = statusGranted
		price := plan.Price
		next.SubscriptionPrice = &price
		return next
	})
	if err != nil {
		return entitlement.Account{}, err
	}

	s.notify(ctx, acc, fmt.Sprintf("You have been granted %s", planName(plan)))
	return acc, nil
}

// Revoke ends paid access immediately. Plan and dates stay on the record for
// history.
func (s *Service) Revoke(ctx context.Context, userID uuid.UUID) (entitlement.Account, error) {
	now := s.now().UTC()

	acc, err := s.update(ctx, userID, func(cur entitlement.SubscriptionFacts) entitlement.SubscriptionFacts {
		next := cur.Clone()
		next.IsSubscribed = false
		next.ProviderStatus = statusRevoked
		if next.CancelledAt == nil {
			next.CancelledAt = &now
		}
		if next.SubscriptionEndDate != nil && next.SubscriptionEndDate.After(now) {
			next.SubscriptionEndDate = &now
		}
		return next
	})
	if err != nil {
		return entitlement.Account{}, err
	}

	s.notify(ctx, acc, "Your ResumeKit subscription has ended")
	return acc, nil
}

func (s *Service) update(ctx context.Context, userID uuid.UUID, change func(entitlement.SubscriptionFacts) entitlement.SubscriptionFacts) (entitlement.Account, error) {
	acc, err := s.store.UpdateFacts(ctx, userID, func(cur entitlement.SubscriptionFacts) (entitlement.SubscriptionFacts, error) {
		next := change(cur)
		if err := entitlement.ValidateSubscriptionFacts(next); err != nil {
			return cur, err
		}
		return next, nil
	})
	if err != nil {
		s.logger.WarnContext(ctx, "admin subscription change rejected",
			logger.UserID(userID), logger.Error(err))
		return entitlement.Account{}, err
	}

	s.logger.InfoContext(ctx, "admin subscription change saved",
		logger.UserID(userID),
		slog.Bool("is_subscribed", acc.Facts.IsSubscribed),
		slog.String("plan", acc.Facts.SubscriptionPlan),
	)
	return acc, nil
}

// notify sends the change notification in the background. Delivery failures
// are logged and never undo the saved change.
func (s *Service) notify(ctx context.Context, acc entitlement.Account, subject string) {
	if s.sender == nil || acc.Email == "" {
		return
	}

	msg, err := renderNotification(acc, subject)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to render admin notification", logger.UserID(acc.UserID), logger.Error(err))
		return
	}

	async.Async(context.WithoutCancel(ctx), msg, func(ctx context.Context, msg email.Message) (struct{}, error) {
		if err := s.sender.Send(ctx, msg); err != nil {
			s.logger.ErrorContext(ctx, "failed to send admin notification",
				logger.UserID(acc.UserID), logger.Error(err))
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
}

func planName(p tier.Plan) string {
	if p.Name != "" {
		return p.Name
	}
	return p.ID
}
