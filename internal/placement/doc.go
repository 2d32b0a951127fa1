// Package placement computes canonical filenames and collision-free
// destination paths for resolved documents.
//
// Filenames concatenate a fixed segment order (date prefix, patient slug
// token, type, specialty, short description) under a 150-character ceiling
// enforced by deterministically truncating only the description. Destination
// directories are patient- and type-scoped under the output root, with an
// optional shared bucket, and every write target is validated to resolve
// inside the output root before use.
package placement
