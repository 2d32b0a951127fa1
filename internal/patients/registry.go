package patients

import (
	"fmt"
	"log/slog"
	"sort"
	"strconv"
	"strings"
	"time"

	"clinikondo/internal/logging"
	"clinikondo/internal/services"
	"clinikondo/internal/textutil"
)

const defaultFuzzyThreshold = 0.90

// emptyNormalized is the sanitizer fallback for names that normalize to
// nothing; such names never participate in matching.
const emptyNormalized = "na"

// ScoredPatient pairs a fuzzy-match candidate with its similarity score.
type ScoredPatient struct {
	Patient *Patient
	Score   float64
}

// DuplicatePair is a possible duplicate identity reported by the registry.
type DuplicatePair struct {
	A     *Patient
	B     *Patient
	Score float64
}

// Registry manages the set of known patients. It is not safe for concurrent
// use; the pipeline touches it from a single goroutine.
type Registry struct {
	store     Store
	logger    *slog.Logger
	threshold float64
	now       func() time.Time

	patients map[string]*Patient
	order    []string
}

// Option customizes the registry.
type Option func(*Registry)

// WithFuzzyThreshold overrides the similarity required for Match to accept a
// non-exact candidate (defaults to 0.90).
func WithFuzzyThreshold(threshold float64) Option {
	return func(r *Registry) {
		if threshold > 0 && threshold <= 1 {
			r.threshold = threshold
		}
	}
}

// WithClock overrides the time source (used in tests).
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewRegistry constructs a registry over the given store and loads its
// contents. Corrupt store data is recovered as an empty registry by the store.
func NewRegistry(store Store, logger *slog.Logger, opts ...Option) (*Registry, error) {
	if logger == nil {
		logger = logging.NewNop()
	}
	r := &Registry{
		store:     store,
		logger:    logger.With(logging.String(logging.FieldComponent, "patient-registry")),
		threshold: defaultFuzzyThreshold,
		now:       time.Now,
		patients:  make(map[string]*Patient),
	}
	for _, opt := range opts {
		opt(r)
	}
	loaded, err := store.Load()
	if err != nil {
		return nil, services.Wrap(services.ErrPersistence, "patients", "load", "read store", err)
	}
	for _, patient := range loaded {
		if _, exists := r.patients[patient.Slug]; exists {
			r.logger.Warn("duplicate slug in store, keeping first", logging.String("slug", patient.Slug))
			continue
		}
		r.patients[patient.Slug] = patient
		r.order = append(r.order, patient.Slug)
	}
	return r, nil
}

// Save persists the registry through its store, in stable insertion order.
func (r *Registry) Save() error {
	if err := r.store.Save(r.List()); err != nil {
		return services.Wrap(services.ErrPersistence, "patients", "save", "write store", err)
	}
	return nil
}

// List returns all patients in insertion order.
func (r *Registry) List() []*Patient {
	out := make([]*Patient, 0, len(r.order))
	for _, slug := range r.order {
		out = append(out, r.patients[slug])
	}
	return out
}

// Count returns the number of registered patients.
func (r *Registry) Count() int { return len(r.order) }

// GetBySlug returns the patient with the given slug, or nil.
func (r *Registry) GetBySlug(slug string) *Patient {
	return r.patients[slug]
}

// MatchExact resolves a name strictly: the normalized input must equal a
// patient's normalized canonical name or one of its normalized aliases.
func (r *Registry) MatchExact(name string) *Patient {
	normalized := textutil.NormalizeName(name)
	if normalized == emptyNormalized {
		return nil
	}
	for _, slug := range r.order {
		patient := r.patients[slug]
		for _, candidate := range patient.AllNames() {
			if textutil.NormalizeName(candidate) == normalized {
				return patient
			}
		}
	}
	return nil
}

// Match resolves a name, widening from exact to best-effort: when no exact
// match exists it falls back to fuzzy matching at the configured threshold
// and accepts the highest-scoring candidate, logging the similarity. Callers
// that must not guess use MatchExact instead.
func (r *Registry) Match(name string) *Patient {
	if patient := r.MatchExact(name); patient != nil {
		return patient
	}
	candidates := r.FuzzyMatch(name, r.threshold)
	if len(candidates) == 0 {
		return nil
	}
	best := candidates[0]
	r.logger.Info("accepted fuzzy patient match",
		logging.String("input", name),
		logging.String("patient", best.Patient.Slug),
		logging.Float64("score", best.Score),
	)
	return best.Patient
}

// MatchInText scans a document body for any patient's normalized name. The
// first containment match in registry order wins. Used as a second-chance
// resolution when the extracted name field fails Match.
func (r *Registry) MatchInText(text string) *Patient {
	normalizedText := textutil.NormalizeName(text)
	if normalizedText == emptyNormalized {
		return nil
	}
	for _, slug := range r.order {
		patient := r.patients[slug]
		for _, candidate := range patient.AllNames() {
			cleaned := textutil.NormalizeName(candidate)
			if cleaned == emptyNormalized {
				continue
			}
			if strings.Contains(normalizedText, cleaned) {
				return patient
			}
		}
	}
	return nil
}

// FuzzyMatch scores every patient against the input, keeping the best ratio
// across the canonical name and each alias, and returns those at or above
// threshold sorted by descending score.
func (r *Registry) FuzzyMatch(name string, threshold float64) []ScoredPatient {
	normalized := textutil.NormalizeName(name)
	if normalized == emptyNormalized {
		return nil
	}
	var matches []ScoredPatient
	for _, slug := range r.order {
		patient := r.patients[slug]
		best := 0.0
		for _, candidate := range patient.AllNames() {
			cleaned := textutil.NormalizeName(candidate)
			if cleaned == emptyNormalized {
				continue
			}
			if score := textutil.Ratio(normalized, cleaned); score > best {
				best = score
			}
		}
		if best >= threshold {
			matches = append(matches, ScoredPatient{Patient: patient, Score: best})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches
}

// EnsurePatient returns the existing match for name or, when creation is
// allowed, registers a new patient with a collision-free slug. Existing
// patients' slugs are never touched.
func (r *Registry) EnsurePatient(name string, createIfMissing bool, origin Origin) *Patient {
	if patient := r.Match(name); patient != nil {
		return patient
	}
	if !createIfMissing {
		return nil
	}
	base := textutil.Slugify(name)
	unique := base
	for index := 1; ; index++ {
		if _, taken := r.patients[unique]; !taken {
			break
		}
		unique = base + "-" + strconv.Itoa(index+1)
	}
	now := r.now()
	patient := &Patient{
		CanonicalName: name,
		Slug:          unique,
		Confidence:    1.0,
		Origin:        origin,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	r.patients[unique] = patient
	r.order = append(r.order, unique)
	r.logger.Info("registered new patient",
		logging.String("patient", unique),
		logging.String("origin", string(origin)),
	)
	return patient
}

// AddAlias binds an alternate name to a patient. Adding an alias that
// normalized-matches a different patient is refused with an alias conflict
// error; re-adding an alias the patient already holds is a no-op.
func (r *Registry) AddAlias(slug, alias string) error {
	patient := r.patients[slug]
	if patient == nil {
		return fmt.Errorf("unknown patient slug %q", slug)
	}
	if patient.HasAlias(alias) {
		return nil
	}
	if owner := r.MatchExact(alias); owner != nil && owner.Slug != slug {
		r.logger.Warn("alias already owned by another patient",
			logging.String("alias", alias),
			logging.String("owner", owner.Slug),
		)
		return services.Wrap(services.ErrAliasConflict, "patients", "add alias",
			fmt.Sprintf("%q already belongs to %s", alias, owner.Slug), nil)
	}
	patient.Aliases = append(patient.Aliases, alias)
	patient.UpdatedAt = r.now()
	return nil
}

// MergePatients absorbs source into target: source's aliases and canonical
// name become aliases of target (deduplicated) and the source record is
// deleted. Irreversible.
func (r *Registry) MergePatients(sourceSlug, targetSlug string) error {
	source := r.patients[sourceSlug]
	target := r.patients[targetSlug]
	if source == nil || target == nil {
		return fmt.Errorf("merge requires two known patients, got %q and %q", sourceSlug, targetSlug)
	}
	if sourceSlug == targetSlug {
		return fmt.Errorf("cannot merge patient %q into itself", sourceSlug)
	}
	for _, alias := range source.Aliases {
		if !target.HasAlias(alias) {
			target.Aliases = append(target.Aliases, alias)
		}
	}
	if !target.HasAlias(source.CanonicalName) {
		target.Aliases = append(target.Aliases, source.CanonicalName)
	}
	target.UpdatedAt = r.now()
	r.removeFromOrder(sourceSlug)
	delete(r.patients, sourceSlug)
	r.logger.Info("merged patients",
		logging.String("source", sourceSlug),
		logging.String("target", targetSlug),
	)
	return nil
}

// DetectPossibleDuplicates compares every unordered pair of canonical names
// and reports pairs scoring at or above threshold, best first. Aliases are
// not considered. O(n²) over the registry, which stays human-scale.
func (r *Registry) DetectPossibleDuplicates(threshold float64) []DuplicatePair {
	var pairs []DuplicatePair
	for i := 0; i < len(r.order); i++ {
		for j := i + 1; j < len(r.order); j++ {
			a := r.patients[r.order[i]]
			b := r.patients[r.order[j]]
			score := textutil.Ratio(
				textutil.NormalizeName(a.CanonicalName),
				textutil.NormalizeName(b.CanonicalName),
			)
			if score >= threshold {
				pairs = append(pairs, DuplicatePair{A: a, B: b, Score: score})
			}
		}
	}
	sort.SliceStable(pairs, func(i, j int) bool { return pairs[i].Score > pairs[j].Score })
	return pairs
}

// PatientUpdate describes a partial edit; zero-valued fields are left alone
// and a nil Aliases slice keeps the existing aliases.
type PatientUpdate struct {
	CanonicalName string
	Gender        Gender
	Aliases       []string
}

// UpdatePatient applies a partial edit to an existing patient.
func (r *Registry) UpdatePatient(slug string, update PatientUpdate) bool {
	patient := r.patients[slug]
	if patient == nil {
		return false
	}
	if strings.TrimSpace(update.CanonicalName) != "" {
		patient.CanonicalName = update.CanonicalName
	}
	if update.Gender != "" {
		patient.Gender = update.Gender
	}
	if update.Aliases != nil {
		patient.Aliases = update.Aliases
	}
	patient.UpdatedAt = r.now()
	return true
}

// RemovePatient deletes a patient outright.
func (r *Registry) RemovePatient(slug string) bool {
	patient := r.patients[slug]
	if patient == nil {
		return false
	}
	r.removeFromOrder(slug)
	delete(r.patients, slug)
	r.logger.Info("removed patient", logging.String("patient", slug))
	return true
}

func (r *Registry) removeFromOrder(slug string) {
	for i, existing := range r.order {
		if existing == slug {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}
