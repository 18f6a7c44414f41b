package tier

// DefaultTiers returns the built-in free and paid tier limits.
func DefaultTiers() map[Tier]Limits {
	return map[Tier]Limits{
		Free: {
			Features: map[Feature]bool{
				FeaturePremiumTemplates:    false,
				FeatureCoverLetters:        false,
				FeatureVersionHistory:      false,
				FeatureResumeParsing:       false,
				FeatureATSDetailedInsights: false,
				FeatureWatermarkPDF:        true,
			},
			Caps: map[Resource]int64{
				ResourceAICredits:         5,
				ResourcePDFDownloadsMonth: 3,
				ResourceResumesPerDay:     3,
			},
			FreeTemplates: []string{"classic", "modern", "minimal"},
		},
		Paid: {
			Features: map[Feature]bool{
				FeaturePremiumTemplates:    true,
				FeatureCoverLetters:        true,
				FeatureVersionHistory:      true,
				FeatureResumeParsing:       true,
				FeatureATSDetailedInsights: true,
				FeatureWatermarkPDF:        false,
			},
			Caps: map[Resource]int64{
				ResourceAICredits:         Unlimited,
				ResourcePDFDownloadsMonth: Unlimited,
				ResourceResumesPerDay:     Unlimited,
			},
		},
	}
}

// DefaultPlans returns the built-in paid plans without provider price ids.
// Price ids are environment specific and are supplied by configuration.
func DefaultPlans() []Plan {
	return []Plan{
		{
			ID:       "monthly",
			Name:     "Pro Monthly",
			Interval: BillingIntervalMonthly,
			Price:    Money{Amount: 999, Currency: "USD"},
		},
		{
			ID:       "yearly",
			Name:     "Pro Yearly",
			Interval: BillingIntervalAnnual,
			Price:    Money{Amount: 7999, Currency: "USD"},
		},
	}
}

// DefaultCatalog builds the catalog from DefaultTiers and the given plans.
// When no plans are given DefaultPlans is used.
func DefaultCatalog(plans ...Plan) *Catalog {
	if len(plans) == 0 {
		plans = DefaultPlans()
	}
	return MustNewCatalog(DefaultTiers(), plans...)
}
