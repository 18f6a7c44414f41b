package tier

// Tier is the effective access tier of a user.
type Tier string

const (
	Free Tier = "free"
	Paid Tier = "paid"
)

// Valid reports whether t is one of the known tiers.
func (t Tier) Valid() bool {
	return t == Free || t == Paid
}

// Feature represents a tier-specific boolean capability.
type Feature string

const (
	FeaturePremiumTemplates    Feature = "premium_templates"
	FeatureCoverLetters        Feature = "cover_letters"
	FeatureVersionHistory      Feature = "version_history"
	FeatureResumeParsing       Feature = "resume_parsing"
	FeatureATSDetailedInsights Feature = "ats_detailed_insights"
	FeatureWatermarkPDF        Feature = "watermark_pdf" // exported PDFs carry a watermark
)

// Features lists every boolean feature a tier must define.
var Features = []Feature{
	FeaturePremiumTemplates,
	FeatureCoverLetters,
	FeatureVersionHistory,
	FeatureResumeParsing,
	FeatureATSDetailedInsights,
	FeatureWatermarkPDF,
}

// Resource represents a numerically capped tier resource.
type Resource string

const (
	ResourceAICredits         Resource = "ai_credits_total"
	ResourcePDFDownloadsMonth Resource = "pdf_downloads_per_month"
	ResourceResumesPerDay     Resource = "max_resumes_per_day"
)

// Resources lists every numeric cap a tier must define.
var Resources = []Resource{
	ResourceAICredits,
	ResourcePDFDownloadsMonth,
	ResourceResumesPerDay,
}

const (
	// Unlimited indicates no cap for a resource (-1 chosen for SQL compatibility)
	Unlimited int64 = -1
)

// Money represents a monetary amount in the smallest currency unit.
// For example, $10.99 USD would be Amount: 1099, Currency: "USD".
type Money struct {
	Amount   int64  `json:"amount" yaml:"amount"`
	Currency string `json:"currency" yaml:"currency"`
}

// BillingInterval represents the billing frequency of a paid plan.
type BillingInterval string

const (
	BillingIntervalMonthly BillingInterval = "monthly"
	BillingIntervalAnnual  BillingInterval = "annual"
)
