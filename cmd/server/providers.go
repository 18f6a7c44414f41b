package main

import (
	"github.com/dmitrymomot/resumekit/pkg/billing"
	"github.com/dmitrymomot/resumekit/pkg/config"
)

type providerSet struct {
	stripe *billing.StripeProvider
	paddle *billing.PaddleProvider
	all    []billing.Provider
}

// newProviders builds every processor whose webhook secret is configured.
func newProviders() (providerSet, error) {
	var set providerSet

	if cfg := config.MustLoad[billing.StripeConfig](); cfg.Enabled() {
		p, err := billing.NewStripeProvider(cfg)
		if err != nil {
			return set, err
		}
		set.stripe = p
		set.all = append(set.all, p)
	}
	if cfg := config.MustLoad[billing.PaddleConfig](); cfg.Enabled() {
		p, err := billing.NewPaddleProvider(cfg)
		if err != nil {
			return set, err
		}
		set.paddle = p
		set.all = append(set.all, p)
	}
	return set, nil
}

// checkout returns the named processor as a checkout provider, or nil.
func (s providerSet) checkout(name string) billing.CheckoutProvider {
	switch {
	case name == billing.ProviderStripe && s.stripe != nil:
		return s.stripe
	case name == billing.ProviderPaddle && s.paddle != nil:
		return s.paddle
	}
	return nil
}

func (s providerSet) portal(name string) billing.PortalProvider {
	switch {
	case name == billing.ProviderStripe && s.stripe != nil:
		return s.stripe
	case name == billing.ProviderPaddle && s.paddle != nil:
		return s.paddle
	}
	return nil
}
