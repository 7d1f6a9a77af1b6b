package models

// Band classifies a trait value into the range used for directive selection.
type Band string

const (
	BandLow      Band = "low"
	BandModerate Band = "moderate"
	BandHigh     Band = "high"
)

// Band thresholds. Values of exactly 30 or 70 fall in the moderate band.
const (
	lowThreshold  = 30
	highThreshold = 70
)

// BandFor classifies a trait value.
func BandFor(value int) Band {
	switch {
	case value < lowThreshold:
		return BandLow
	case value > highThreshold:
		return BandHigh
	default:
		return BandModerate
	}
}

// TraitTier groups traits by when they were introduced. The tier only
// controls ordering in the compiled prompt; presence is decided per
// character.
type TraitTier int

const (
	TierCore TraitTier = iota
	TierExtended
	TierOptional
)

// Trait is one entry of the canonical trait registry. The registry is the
// single source of truth for trait ordering, labels and the behavioral
// directives attached to each band; the prompt compiler and the editor
// endpoints both consume it.
type Trait struct {
	Key   string
	Label string
	Tier  TraitTier

	// Directives per band. An empty string means no directive is emitted
	// for that band.
	HighDirective     string
	LowDirective      string
	ModerateDirective string
}

// Directive returns the directive line for the given band, or "" when the
// trait defines none for it.
func (t Trait) Directive(band Band) string {
	switch band {
	case BandHigh:
		return t.HighDirective
	case BandLow:
		return t.LowDirective
	default:
		return t.ModerateDirective
	}
}

// Registry lists every known trait in canonical prompt order: core traits
// first, then extended, then optional.
var Registry = []Trait{
	{
		Key:               "kinkiness",
		Label:             "Kinkiness",
		Tier:              TierCore,
		HighDirective:     "Be more suggestive and flirtatious",
		LowDirective:      "Keep responses clean and proper",
		ModerateDirective: "Be moderately suggestive when appropriate",
	},
	{
		Key:           "dominance",
		Label:         "Dominance",
		Tier:          TierCore,
		HighDirective: "Take charge in the conversation, be assertive",
	},
	{
		Key:           "submissiveness",
		Label:         "Submissiveness",
		Tier:          TierCore,
		HighDirective: "Be agreeable and acquiescent in your tone",
	},
	{
		Key:           "intelligence",
		Label:         "Intelligence",
		Tier:          TierExtended,
		HighDirective: "Use sophisticated vocabulary and complex ideas",
		LowDirective:  "Keep your language and ideas simple",
	},
	{
		Key:           "empathy",
		Label:         "Empathy",
		Tier:          TierExtended,
		HighDirective: "Show deep understanding and care for emotions",
		LowDirective:  "Be more logical and less emotional",
	},
	{
		Key:           "creativity",
		Label:         "Creativity",
		Tier:          TierExtended,
		HighDirective: "Be imaginative and original in your responses",
		LowDirective:  "Be straightforward and literal",
	},
	{
		Key:           "humor",
		Label:         "Humor",
		Tier:          TierExtended,
		HighDirective: "Incorporate humor and wit into your responses",
		LowDirective:  "Be serious and straightforward",
	},
	{
		Key:           "confidence",
		Label:         "Confidence",
		Tier:          TierExtended,
		HighDirective: "Express yourself with certainty and conviction",
		LowDirective:  "Show some hesitation and self-doubt",
	},
	{
		Key:           "curiosity",
		Label:         "Curiosity",
		Tier:          TierExtended,
		HighDirective: "Ask questions and show interest in learning more",
		LowDirective:  "Focus more on sharing than discovering",
	},
	{
		Key:           "reliability",
		Label:         "Reliability",
		Tier:          TierExtended,
		HighDirective: "Be consistent and dependable in your responses",
		LowDirective:  "Be more unpredictable and spontaneous",
	},
	{
		Key:           "passion",
		Label:         "Passion",
		Tier:          TierOptional,
		HighDirective: "Express strong emotions and desire in your responses",
		LowDirective:  "Be more reserved with your feelings",
	},
	{
		Key:           "sensuality",
		Label:         "Sensuality",
		Tier:          TierOptional,
		HighDirective: "Use sensory-rich language and focus on physical sensations",
		LowDirective:  "Stay more cerebral and abstract",
	},
	{
		Key:           "flirtatiousness",
		Label:         "Flirtatiousness",
		Tier:          TierOptional,
		HighDirective: "Be playful, teasing and suggestive in your conversation",
		LowDirective:  "Keep interactions more formal and direct",
	},
	{
		Key:           "adventurousness",
		Label:         "Adventurousness",
		Tier:          TierOptional,
		HighDirective: "Be open to unconventional topics and experiences",
		LowDirective:  "Prefer familiar and comfortable subjects",
	},
	{
		Key:           "intensity",
		Label:         "Intensity",
		Tier:          TierOptional,
		HighDirective: "Be passionate and emotionally expressive in your responses",
		LowDirective:  "Keep responses mild and measured",
	},
}

// TraitByKey looks up a registry entry.
func TraitByKey(key string) (Trait, bool) {
	for _, t := range Registry {
		if t.Key == key {
			return t, true
		}
	}
	return Trait{}, false
}

// KnownTrait reports whether the key names a registered trait.
func KnownTrait(key string) bool {
	_, ok := TraitByKey(key)
	return ok
}

// ClampTraitValue forces a trait value into the [0,100] range.
func ClampTraitValue(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
