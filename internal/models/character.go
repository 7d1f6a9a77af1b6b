package models

// Personality maps a registered trait key to its value in [0,100]. Traits
// absent from the map are simply not part of the character; they never
// default to a value.
type Personality map[string]int

// Clamped returns a copy with every value forced into [0,100] and unknown
// trait keys dropped.
func (p Personality) Clamped() Personality {
	out := make(Personality, len(p))
	for key, v := range p {
		if !KnownTrait(key) {
			continue
		}
		out[key] = ClampTraitValue(v)
	}
	return out
}

// Character is a user-defined AI persona. The ID is assigned on creation and
// never changes afterwards.
type Character struct {
	ID            string      `json:"id"`
	Name          string      `json:"name"`
	Description   string      `json:"description"`
	Personality   Personality `json:"personality"`
	ImageURL      string      `json:"imageUrl"`
	DefaultPrompt string      `json:"defaultPrompt"`
	Tags          []string    `json:"tags,omitempty"`
	IsFavorite    bool        `json:"isFavorite,omitempty"`
}

// CharacterDraft carries the user-editable fields of a character. It backs
// both the create request and the partial update request; on update, nil
// pointers mean "leave the field as is".
type CharacterDraft struct {
	Name          *string      `json:"name,omitempty"`
	Description   *string      `json:"description,omitempty"`
	Personality   *Personality `json:"personality,omitempty"`
	ImageURL      *string      `json:"imageUrl,omitempty"`
	DefaultPrompt *string      `json:"defaultPrompt,omitempty"`
	Tags          *[]string    `json:"tags,omitempty"`
	IsFavorite    *bool        `json:"isFavorite,omitempty"`
}

// ApplyTo merges the draft into the character, shallow field overwrite,
// omitted fields retained.
func (d CharacterDraft) ApplyTo(ch *Character) {
	if d.Name != nil {
		ch.Name = *d.Name
	}
	if d.Description != nil {
		ch.Description = *d.Description
	}
	if d.Personality != nil {
		ch.Personality = d.Personality.Clamped()
	}
	if d.ImageURL != nil {
		ch.ImageURL = *d.ImageURL
	}
	if d.DefaultPrompt != nil {
		ch.DefaultPrompt = *d.DefaultPrompt
	}
	if d.Tags != nil {
		ch.Tags = *d.Tags
	}
	if d.IsFavorite != nil {
		ch.IsFavorite = *d.IsFavorite
	}
}
