package billing

import (
	"context"
	"errors"
	"log/slog"

	"github.com/dmitrymomot/resumekit/pkg/logger"
	"github.com/dmitrymomot/resumekit/pkg/reconcile"
)

// Applier applies a normalized event. *reconcile.Reconciler implements it.
type Applier interface {
	Apply(ctx context.Context, ev reconcile.Event) (reconcile.Result, error)
}

// Receiver routes raw webhook deliveries to the matching provider and hands
// the normalized event to the reconciler.
type Receiver struct {
	providers map[string]Provider
	applier   Applier
	logger    *slog.Logger
}

// NewReceiver creates a Receiver. Providers are keyed by Name.
func NewReceiver(applier Applier, log *slog.Logger, providers ...Provider) *Receiver {
	if applier == nil {
		panic("billing: nil applier")
	}
	if log == nil {
		log = logger.Discard()
	}
	r := &Receiver{
		providers: make(map[string]Provider, len(providers)),
		applier:   applier,
		logger:    log,
	}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

// Enabled reports whether a provider with the given name is registered.
func (r *Receiver) Enabled(provider string) bool {
	_, ok := r.providers[provider]
	return ok
}

// Receive verifies and applies one delivery. Ignored event types return
// Result{} with a nil error.
func (r *Receiver) Receive(ctx context.Context, provider string, payload []byte, signature string) (reconcile.Result, error) {
	p, ok := r.providers[provider]
	if !ok {
		return reconcile.Result{}, ErrProviderUnavailable
	}

	ev, err := p.ParseWebhook(ctx, payload, signature)
	if errors.Is(err, ErrIgnoredEvent) {
		r.logger.DebugContext(ctx, "webhook ignored", logger.Provider(provider))
		return reconcile.Result{}, nil
	}
	if err != nil {
		r.logger.WarnContext(ctx, "webhook rejected", logger.Provider(provider), logger.Error(err))
		return reconcile.Result{}, err
	}

	return r.applier.Apply(ctx, ev)
}
