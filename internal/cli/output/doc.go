// Package output provides output formatting for snapcoord-cli.
//
//   - formatter.go: Formatter interface and factory
//   - table.go: column rendering of row structs, with wide and hex columns
//   - json.go: JSON output formatting
//   - yaml.go: YAML output formatting
package output
