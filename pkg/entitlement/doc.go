// Package entitlement derives a user's effective access tier from stored
// subscription facts and owns the rules every subscription write must obey.
//
// ResolveTier is pure and total: it never fails and never performs I/O, so it
// is called on every request instead of being cached. A record is on the paid
// tier iff it is subscribed and its end date is strictly in the future.
//
//	r := entitlement.NewResolver(catalog)
//	ac := r.Authenticate(account, time.Now())
//	if !ac.Limits.Has(tier.FeatureCoverLetters) {
//		// deny
//	}
//
// ValidateSubscriptionFacts is shared by the admin edit path and the event
// reconciler. The package also defines the error taxonomy used by the usage
// store, the reconciler and the HTTP layer.
package entitlement
