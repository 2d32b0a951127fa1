// Package config loads, normalizes, and validates CliniKondo configuration.
//
// Configuration is TOML with per-subsystem sections:
//   - Paths: input, output, and log directories
//   - Matching: patient reconciliation switches and fuzzy threshold
//   - Processing: extractor selection, copy vs move, dry-run, dead-letter
//   - LLM: OpenAI-compatible endpoint settings for the LLM extractor
//   - Logging: log format and level
//
// Load resolves the config file (explicit flag, then the default user config,
// then a project-local clinikondo.toml), applies defaults, expands ~ in paths,
// and validates the result.
package config
