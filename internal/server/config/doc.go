// Package config provides server configuration for snapcoord.
//
// This package defines the server configuration structure and validation:
//
//   - spec.go: ServerConfig struct definition
//   - default.go: Default configuration values
//   - device.go: Feature and unit conversion
//   - verify.go: Validation (required sockets, durations, features, units)
//
// Configuration is loaded via internal/infra/confloader and supports
// multiple sources: files, environment variables, and flags.
package config
