// Package config loads the daemon configuration from YAML over built-in
// defaults and validates it.
package config
