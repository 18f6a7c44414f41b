// Package billing adapts Stripe and Paddle to the subscription reconciler.
//
// Each Provider verifies the processor's webhook signature and reduces the
// payload to a reconcile.Event. Event types the reconciler does not consume
// yield ErrIgnoredEvent. Receiver ties providers to the reconciler:
//
//	stripeProvider, err := billing.NewStripeProvider(stripeCfg)
//	receiver := billing.NewReceiver(reconciler, log, stripeProvider)
//	res, err := receiver.Receive(ctx, billing.ProviderStripe, body, r.Header.Get("Stripe-Signature"))
//
// Checkouts carry the user id in session metadata (Stripe) or custom data
// (Paddle) so lifecycle events can be matched to users before the processor
// customer id is known.
//
// Stripe mapping:
//
//	checkout.session.completed (subscription mode) -> checkout_completed
//	customer.subscription.created                  -> subscription_created
//	customer.subscription.updated                  -> subscription_updated
//	customer.subscription.deleted                  -> subscription_deleted
//	invoice.payment_succeeded (with subscription)  -> invoice_payment_succeeded
//	payment_intent.succeeded (without invoice)     -> payment_succeeded
//
// Paddle mapping:
//
//	subscription.created                -> subscription_created
//	subscription.updated|activated|...  -> subscription_updated
//	subscription.canceled               -> subscription_deleted
//	transaction.completed               -> checkout_completed, invoice_payment_succeeded
//	                                       or payment_succeeded by origin
package billing
