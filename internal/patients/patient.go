package patients

import "time"

// Gender is an optional patient attribute; the zero value means unknown.
type Gender string

const (
	GenderMale   Gender = "M"
	GenderFemale Gender = "F"
	GenderOther  Gender = "O"
)

// Origin records how a patient entered the registry.
type Origin string

const (
	OriginLLMExtraction Origin = "llm_extraction"
	OriginManualAdd     Origin = "manual_add"
	OriginFuzzyMatch    Origin = "fuzzy_match"
)

// Patient is an identity record. Slug is the immutable identity key; the
// canonical name and aliases are display data that widen recognition.
type Patient struct {
	CanonicalName string
	Slug          string
	Aliases       []string
	Gender        Gender
	BirthDate     *time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
	Confidence    float64
	Origin        Origin
}

// AllNames lists the canonical name followed by every alias, in insertion order.
func (p *Patient) AllNames() []string {
	names := make([]string, 0, 1+len(p.Aliases))
	names = append(names, p.CanonicalName)
	names = append(names, p.Aliases...)
	return names
}

// HasAlias reports whether alias is already present verbatim.
func (p *Patient) HasAlias(alias string) bool {
	for _, existing := range p.Aliases {
		if existing == alias {
			return true
		}
	}
	return false
}
