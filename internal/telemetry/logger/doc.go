// Package logger provides structured logging for snapcoord.
//
// This package wraps log/slog:
//
//   - logger.go: Logger construction and the process-wide level
//   - context.go: Request IDs carried on the context
//   - attrs.go: Wire value formatting (hex correlation and versions)
//
// Features:
//
//   - JSON and text output formats
//   - Log level filtering, adjustable at runtime on config reload
//   - Request IDs for HTTP tracing
package logger
