package tier

import (
	"maps"
	"slices"
)

// Limits holds the feature flags and numeric caps of a tier.
type Limits struct {
	Tier          Tier
	Features      map[Feature]bool
	Caps          map[Resource]int64 // -1 represents unlimited
	FreeTemplates []string           // template ids usable without premium_templates
}

// Has reports whether the feature is enabled. Undefined features are disabled.
func (l Limits) Has(f Feature) bool {
	return l.Features[f]
}

// Cap returns the numeric cap for a resource. Undefined resources are capped at 0
// so that a misconfigured tier never grants unbounded usage.
func (l Limits) Cap(r Resource) int64 {
	v, ok := l.Caps[r]
	if !ok {
		return 0
	}
	return v
}

// IsUnlimited reports whether the resource has no cap.
func (l Limits) IsUnlimited(r Resource) bool {
	return l.Cap(r) == Unlimited
}

// AllowsTemplate reports whether a premium template is usable on this tier.
// Non-premium templates are always allowed.
func (l Limits) AllowsTemplate(id string, premium bool) bool {
	if !premium || l.Has(FeaturePremiumTemplates) {
		return true
	}
	return slices.Contains(l.FreeTemplates, id)
}

func (l Limits) clone() Limits {
	return Limits{
		Tier:          l.Tier,
		Features:      maps.Clone(l.Features),
		Caps:          maps.Clone(l.Caps),
		FreeTemplates: slices.Clone(l.FreeTemplates),
	}
}

// Comparison contains the differences between two tiers.
// Used to build upgrade hints.
type Comparison struct {
	GainedFeatures []Feature
	LostFeatures   []Feature
	RaisedCaps     map[Resource]CapChange
	LoweredCaps    map[Resource]CapChange
}

// CapChange represents a change of a numeric cap.
type CapChange struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

// Compare returns the differences between the current and the target limits.
func Compare(current, target Limits) Comparison {
	c := Comparison{
		GainedFeatures: make([]Feature, 0),
		LostFeatures:   make([]Feature, 0),
		RaisedCaps:     make(map[Resource]CapChange),
		LoweredCaps:    make(map[Resource]CapChange),
	}

	for _, f := range Features {
		switch {
		case target.Has(f) && !current.Has(f):
			c.GainedFeatures = append(c.GainedFeatures, f)
		case current.Has(f) && !target.Has(f):
			c.LostFeatures = append(c.LostFeatures, f)
		}
	}

	for _, r := range Resources {
		from, to := current.Cap(r), target.Cap(r)
		if from == to {
			continue
		}
		change := CapChange{From: from, To: to}
		switch {
		// Unlimited-to-limited is a decrease regardless of the numbers
		case from == Unlimited:
			c.LoweredCaps[r] = change
		case to == Unlimited, to > from:
			c.RaisedCaps[r] = change
		default:
			c.LoweredCaps[r] = change
		}
	}

	return c
}
