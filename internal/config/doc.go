// Package config loads, normalizes, and validates quiltrender configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), and reads TOML files. The Config type gathers the output,
// recovery, history, and preset locations together with render defaults and
// logging options so the CLI discovers everything in one pass.
//
// Always obtain settings through this package so downstream code receives
// absolute paths, canonical log formats, and clear validation errors.
package config
