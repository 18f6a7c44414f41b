// Package tier provides the static tier catalog: feature flags and numeric caps
// per access tier, plus the paid plans that map payment provider price ids onto
// the plan identifiers stored on a user's subscription.
//
// The catalog is built once at process start and injected wherever limits are
// needed. It is immutable and every accessor returns copies, so it can be shared
// freely between goroutines.
//
// # Usage
//
//	catalog, err := tier.NewSource(cfg).Load(ctx)
//	if err != nil {
//		return err
//	}
//
//	limits := catalog.GetLimits(tier.Free)
//	if !limits.Has(tier.FeatureCoverLetters) {
//		// render upgrade prompt
//	}
//
//	plan, err := catalog.PlanByPriceID("price_123")
//	end := plan.PeriodEnd(time.Now())
//
// Unknown tiers always resolve to the free limits. Numeric caps use
// Unlimited (-1) for "no cap".
//
// # Catalog files
//
// LoadYAML and NewFileSource read a YAML document with a tiers map and a plans
// list. The free tier is mandatory.
package tier
