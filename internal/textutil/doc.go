// Package textutil provides text normalization utilities for patient name
// matching and filesystem-safe naming.
//
// The primary use cases are:
//   - Stripping accents and normalizing free-text names for comparison
//   - Producing filesystem-safe tokens and patient directory slugs
//   - Computing Ratcliff/Obershelp similarity ratios between normalized names
//   - Deriving short descriptions and dates from extracted document text
//
// Normalization lowercases text, removes combining marks, and collapses
// everything that is not a letter (or digit, where allowed) into a single
// separator character.
package textutil
