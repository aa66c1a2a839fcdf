// Package config handles configuration loading, parsing, and validation
// from defaults, an optional YAML file, and SCRY_ environment variables.
// Rate-limit tier profiles are resolved here once at start-up and injected
// into the pipeline.
package config
