// Package doctype maps free-text document type labels onto the fixed
// taxonomy of medical document categories and their destination subfolders.
//
// Resolution is deterministic and ordered: direct key lookup, then a fixed
// synonym table, then a scan of every entry's keyword set, then the generic
// document fallback. The default taxonomy is immutable; catalogs may be
// constructed with additional custom entries.
package doctype
