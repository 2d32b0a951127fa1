// Package hashledger tracks the content hash of every placed document so
// repeated ingestion of identical bytes can be detected and audited.
//
// Records are keyed by SHA-256 hex digest and are append/lookup only. The
// ledger persists as a JSON object; corrupt storage is logged and treated as
// an empty ledger, matching the registry's permissive recovery policy.
package hashledger
