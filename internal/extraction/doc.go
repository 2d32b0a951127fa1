// Package extraction turns raw document text into structured filing
// metadata. Two extractors are provided: an LLM-backed client for the
// OpenAI chat completions API and a rule-based fallback that works from
// local heuristics only.
package extraction
