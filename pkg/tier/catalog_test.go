package tier_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/resumekit/pkg/tier"
)

func TestCatalog_GetLimits(t *testing.T) {
	t.Parallel()

	catalog := tier.DefaultCatalog()

	t.Run("free tier limits", func(t *testing.T) {
		t.Parallel()
		l := catalog.GetLimits(tier.Free)
		assert.Equal(t, tier.Free, l.Tier)
		assert.False(t, l.Has(tier.FeatureCoverLetters))
		assert.True(t, l.Has(tier.FeatureWatermarkPDF))
		assert.Equal(t, int64(5), l.Cap(tier.ResourceAICredits))
		assert.Equal(t, int64(3), l.Cap(tier.ResourcePDFDownloadsMonth))
	})

	t.Run("paid tier limits are unbounded", func(t *testing.T) {
		t.Parallel()
		l := catalog.GetLimits(tier.Paid)
		assert.Equal(t, tier.Paid, l.Tier)
		for _, r := range tier.Resources {
			assert.True(t, l.IsUnlimited(r), r)
		}
		assert.True(t, l.Has(tier.FeatureCoverLetters))
		assert.False(t, l.Has(tier.FeatureWatermarkPDF))
	})

	t.Run("unknown tier falls back to free", func(t *testing.T) {
		t.Parallel()
		l := catalog.GetLimits(tier.Tier("enterprise"))
		assert.Equal(t, tier.Free, l.Tier)
		assert.False(t, l.Has(tier.FeaturePremiumTemplates))

		l = catalog.GetLimits("")
		assert.Equal(t, tier.Free, l.Tier)
	})

	t.Run("returned limits are copies", func(t *testing.T) {
		t.Parallel()
		l := catalog.GetLimits(tier.Free)
		l.Features[tier.FeatureCoverLetters] = true
		l.Caps[tier.ResourceAICredits] = tier.Unlimited

		fresh := catalog.GetLimits(tier.Free)
		assert.False(t, fresh.Has(tier.FeatureCoverLetters))
		assert.Equal(t, int64(5), fresh.Cap(tier.ResourceAICredits))
	})
}

func TestNewCatalog_Validation(t *testing.T) {
	t.Parallel()

	t.Run("requires free tier", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewCatalog(map[tier.Tier]tier.Limits{tier.Paid: {}})
		assert.ErrorIs(t, err, tier.ErrFreeTierMissing)
	})

	t.Run("rejects unknown tier keys", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewCatalog(map[tier.Tier]tier.Limits{
			tier.Free:    {},
			"enterprise": {},
		})
		assert.ErrorIs(t, err, tier.ErrUnknownTier)
	})

	t.Run("rejects caps below unlimited", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewCatalog(map[tier.Tier]tier.Limits{
			tier.Free: {Caps: map[tier.Resource]int64{tier.ResourceAICredits: -2}},
		})
		assert.ErrorIs(t, err, tier.ErrInvalidTierConfiguration)
	})

	t.Run("rejects duplicate price ids", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewCatalog(tier.DefaultTiers(),
			tier.Plan{ID: "monthly", Interval: tier.BillingIntervalMonthly, PriceIDs: []string{"price_1"}},
			tier.Plan{ID: "yearly", Interval: tier.BillingIntervalAnnual, PriceIDs: []string{"price_1"}},
		)
		assert.ErrorIs(t, err, tier.ErrInvalidPlanConfiguration)
	})

	t.Run("rejects invalid interval", func(t *testing.T) {
		t.Parallel()
		_, err := tier.NewCatalog(tier.DefaultTiers(), tier.Plan{ID: "weekly", Interval: "weekly"})
		assert.ErrorIs(t, err, tier.ErrInvalidPlanConfiguration)
	})

	t.Run("undefined cap is zero, not unlimited", func(t *testing.T) {
		t.Parallel()
		c, err := tier.NewCatalog(map[tier.Tier]tier.Limits{tier.Free: {}})
		require.NoError(t, err)
		assert.Equal(t, int64(0), c.GetLimits(tier.Free).Cap(tier.ResourceAICredits))
	})
}

func TestCatalog_Plans(t *testing.T) {
	t.Parallel()

	catalog := tier.MustNewCatalog(tier.DefaultTiers(),
		tier.Plan{ID: "monthly", Interval: tier.BillingIntervalMonthly, PriceIDs: []string{"price_m"}},
		tier.Plan{ID: "yearly", Interval: tier.BillingIntervalAnnual, PriceIDs: []string{"price_y", "price_y_legacy"}},
	)

	p, err := catalog.PlanByPriceID("price_y_legacy")
	require.NoError(t, err)
	assert.Equal(t, "yearly", p.ID)

	_, err = catalog.PlanByPriceID("price_unknown")
	assert.ErrorIs(t, err, tier.ErrPlanNotFound)

	_, err = catalog.PlanByPriceID("")
	assert.ErrorIs(t, err, tier.ErrPlanNotFound)

	p, err = catalog.Plan("monthly")
	require.NoError(t, err)
	assert.Equal(t, tier.BillingIntervalMonthly, p.Interval)

	assert.Len(t, catalog.Plans(), 2)
}

func TestPlan_PeriodEnd(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)

	monthly := tier.Plan{Interval: tier.BillingIntervalMonthly}
	assert.Equal(t, time.Date(2024, 2, 15, 10, 0, 0, 0, time.UTC), monthly.PeriodEnd(start))

	annual := tier.Plan{Interval: tier.BillingIntervalAnnual}
	assert.Equal(t, time.Date(2025, 1, 15, 10, 0, 0, 0, time.UTC), annual.PeriodEnd(start))
}

func TestLimits_AllowsTemplate(t *testing.T) {
	t.Parallel()

	catalog := tier.DefaultCatalog()
	free := catalog.GetLimits(tier.Free)
	paid := catalog.GetLimits(tier.Paid)

	assert.True(t, free.AllowsTemplate("anything", false))
	assert.True(t, free.AllowsTemplate("classic", true))
	assert.False(t, free.AllowsTemplate("executive", true))
	assert.True(t, paid.AllowsTemplate("executive", true))
}

func TestCompare(t *testing.T) {
	t.Parallel()

	catalog := tier.DefaultCatalog()
	c := tier.Compare(catalog.GetLimits(tier.Free), catalog.GetLimits(tier.Paid))

	assert.Contains(t, c.GainedFeatures, tier.FeatureCoverLetters)
	assert.Contains(t, c.LostFeatures, tier.FeatureWatermarkPDF)
	assert.Equal(t, tier.CapChange{From: 5, To: tier.Unlimited}, c.RaisedCaps[tier.ResourceAICredits])
	assert.Empty(t, c.LoweredCaps)

	back := tier.Compare(catalog.GetLimits(tier.Paid), catalog.GetLimits(tier.Free))
	assert.Len(t, back.LoweredCaps, len(tier.Resources))
}

func TestLoadYAML(t *testing.T) {
	t.Parallel()

	doc := `
tiers:
  free:
    features:
      cover_letters: false
      watermark_pdf: true
    caps:
      ai_credits_total: 10
      pdf_downloads_per_month: 2
      max_resumes_per_day: 1
    free_templates: [classic]
  paid:
    features:
      cover_letters: true
    caps:
      ai_credits_total: -1
      pdf_downloads_per_month: -1
      max_resumes_per_day: -1
plans:
  - id: monthly
    name: Pro Monthly
    interval: monthly
    price_ids: [price_abc]
    price:
      amount: 999
      currency: USD
`
	catalog, err := tier.LoadYAML(strings.NewReader(doc))
	require.NoError(t, err)

	free := catalog.GetLimits(tier.Free)
	assert.Equal(t, int64(10), free.Cap(tier.ResourceAICredits))
	assert.Equal(t, []string{"classic"}, free.FreeTemplates)

	plan, err := catalog.PlanByPriceID("price_abc")
	require.NoError(t, err)
	assert.Equal(t, tier.Money{Amount: 999, Currency: "USD"}, plan.Price)

	_, err = tier.LoadYAML(strings.NewReader("tiers: [broken"))
	assert.ErrorIs(t, err, tier.ErrFailedToLoadCatalog)
}

func TestNewSource_DefaultsWithPriceIDs(t *testing.T) {
	t.Parallel()

	src := tier.NewSource(tier.Config{
		MonthlyPriceIDs: []string{"price_m"},
		YearlyPriceIDs:  []string{"price_y"},
	})
	catalog, err := src.Load(context.Background())
	require.NoError(t, err)

	p, err := catalog.PlanByPriceID("price_y")
	require.NoError(t, err)
	assert.Equal(t, "yearly", p.ID)
}
