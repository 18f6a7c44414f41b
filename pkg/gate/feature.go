package gate

import (
	"errors"
	"fmt"

	"github.com/dmitrymomot/resumekit/pkg/entitlement"
	"github.com/dmitrymomot/resumekit/pkg/tier"
)

// Feature is a gated action or capability.
type Feature string

// Boolean features mirror the tier catalog flags.
const (
	FeaturePremiumTemplates    = Feature(tier.FeaturePremiumTemplates)
	FeatureCoverLetters        = Feature(tier.FeatureCoverLetters)
	FeatureVersionHistory      = Feature(tier.FeatureVersionHistory)
	FeatureResumeParsing       = Feature(tier.FeatureResumeParsing)
	FeatureATSDetailedInsights = Feature(tier.FeatureATSDetailedInsights)
)

// Counted features are checked against usage counters.
const (
	FeaturePDFExport      Feature = "pdf_export"
	FeatureAIInvocation   Feature = "ai_invocation"
	FeatureResumeCreation Feature = "resume_creation"
)

type featureInfo struct {
	title    string
	unit     string
	resource tier.Resource // empty for boolean features
}

var features = map[Feature]featureInfo{
	FeaturePremiumTemplates:    {title: "Premium templates"},
	FeatureCoverLetters:        {title: "Cover letters"},
	FeatureVersionHistory:      {title: "Version history"},
	FeatureResumeParsing:       {title: "Resume import"},
	FeatureATSDetailedInsights: {title: "Detailed ATS insights"},
	FeaturePDFExport:           {title: "PDF downloads", unit: "PDF downloads this month", resource: tier.ResourcePDFDownloadsMonth},
	FeatureAIInvocation:        {title: "AI credits", unit: "AI credits", resource: tier.ResourceAICredits},
	FeatureResumeCreation:      {title: "New resumes", unit: "new resumes today", resource: tier.ResourceResumesPerDay},
}

// ParseFeature converts user input into a Feature.
// Unlike the check functions it returns an error for unknown keys.
func ParseFeature(s string) (Feature, error) {
	f := Feature(s)
	if _, ok := features[f]; !ok {
		return "", errors.Join(entitlement.ErrUnknownFeature, fmt.Errorf("feature %q", s))
	}
	return f, nil
}

// Counted reports whether the feature is checked against a usage counter.
func (f Feature) Counted() bool {
	return features[f].resource != ""
}

func mustInfo(f Feature) featureInfo {
	info, ok := features[f]
	if !ok {
		panic(errors.Join(entitlement.ErrUnknownFeature, fmt.Errorf("feature %q", f)))
	}
	return info
}
