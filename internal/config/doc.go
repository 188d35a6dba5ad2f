// Package config loads and validates the monitor's TOML configuration,
// including the jurisdiction table, external service credentials, processing
// limits, and keyword lists used for discovery filtering and relevance
// scoring.
package config
