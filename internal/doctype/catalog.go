package doctype

import (
	"strings"

	"clinikondo/internal/textutil"
)

// DocumentType is a taxonomy entry. Immutable after catalog construction.
type DocumentType struct {
	TypeName             string
	DestinationSubfolder string
	Keywords             []string
	RelatedSpecialties   []string
	RequiresDate         bool
}

// Catalog resolves type labels to taxonomy entries.
type Catalog struct {
	entries []DocumentType
	byKey   map[string]int
}

const fallbackTypeName = "documento"

// NewCatalog builds a catalog from the default taxonomy plus any custom
// entries. Custom entries with a key already present override the default.
func NewCatalog(custom ...DocumentType) *Catalog {
	c := &Catalog{byKey: make(map[string]int)}
	for _, entry := range defaultTypes() {
		c.add(entry)
	}
	for _, entry := range custom {
		c.add(entry)
	}
	return c
}

func (c *Catalog) add(entry DocumentType) {
	key := typeKey(entry.TypeName)
	if index, exists := c.byKey[key]; exists {
		c.entries[index] = entry
		return
	}
	c.byKey[key] = len(c.entries)
	c.entries = append(c.entries, entry)
}

func typeKey(name string) string {
	return textutil.SanitizeToken(name, "_", true)
}

// Types lists every entry in catalog order.
func (c *Catalog) Types() []DocumentType {
	out := make([]DocumentType, len(c.entries))
	copy(out, c.entries)
	return out
}

// Resolve maps a free-text label onto a taxonomy entry. Resolution order is
// significant: direct key, synonym table, keyword scan, generic fallback.
func (c *Catalog) Resolve(label string) DocumentType {
	fallback := c.entries[c.byKey[fallbackTypeName]]
	if strings.TrimSpace(label) == "" {
		return fallback
	}
	key := typeKey(label)

	if index, ok := c.byKey[key]; ok {
		return c.entries[index]
	}

	if synonym, ok := typeSynonyms[key]; ok {
		if index, ok := c.byKey[typeKey(synonym)]; ok {
			return c.entries[index]
		}
	}

	for _, entry := range c.entries {
		for _, keyword := range entry.Keywords {
			if typeKey(keyword) == key {
				return entry
			}
		}
	}

	return fallback
}

// InferFromText returns the first catalog entry whose keyword appears inside
// the normalized text, else the generic fallback.
func (c *Catalog) InferFromText(text string) DocumentType {
	normalized := textutil.SanitizeToken(text, " ", true)
	for _, entry := range c.entries {
		for _, keyword := range entry.Keywords {
			if strings.Contains(normalized, textutil.SanitizeToken(keyword, " ", true)) {
				return entry
			}
		}
	}
	return c.Resolve(fallbackTypeName)
}
