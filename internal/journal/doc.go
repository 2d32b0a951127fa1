// Package journal persists per-run processing outcomes in a SQLite
// database under the state directory. The JSON stores remain the
// source of truth for patients and hashes; the journal only records
// what happened on each run so reports can be built after the fact.
package journal
