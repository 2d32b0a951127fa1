// Package patients owns the persistent registry of known patients and the
// reconciliation of free-text names into stable identities.
//
// The registry resolves names in widening steps: exact match on normalized
// canonical names and aliases, then fuzzy match above a configured threshold,
// then substring containment inside the document body. It also manages
// aliases (with cross-patient exclusivity), merge of duplicate identities,
// and O(n²) duplicate detection over canonical names.
//
// State persists as a flat JSON array through a pluggable Store; corrupt
// store contents are logged and treated as an empty registry, never as a
// fatal error.
package patients
