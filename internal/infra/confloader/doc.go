// Package confloader provides configuration loading mechanism.
//
// This package implements a configuration loader on top of koanf.
//
// Features:
//
//   - Multiple Sources: YAML files, environment variables, maps
//   - Watch Support: change notification for config files via fsnotify
//   - Type Safety: Unmarshaling into typed structs
//   - Defaults: keys missing from every source keep the target's values
//
// Priority (highest to lowest):
//
//  1. Overrides (command-line flags) and maps loaded after Load
//  2. Environment variables
//  3. Configuration files
//  4. Values already present in the target struct
package confloader
