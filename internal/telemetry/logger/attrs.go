package logger

import (
	"fmt"
	"log/slog"
)

// hexKeys are attributes carrying opaque wire values, logged in hex.
var hexKeys = map[string]bool{
	"correlation":      true,
	"want_correlation": true,
	"version":          true,
	"control_code":     true,
	"type":             true,
}

// formatAttr renders wire values in the form they appear in protocol dumps.
func formatAttr(_ []string, a slog.Attr) slog.Attr {
	if !hexKeys[a.Key] {
		return a
	}
	switch a.Value.Kind() {
	case slog.KindUint64:
		return slog.String(a.Key, fmt.Sprintf("%#x", a.Value.Uint64()))
	case slog.KindInt64:
		if v := a.Value.Int64(); v >= 0 {
			return slog.String(a.Key, fmt.Sprintf("%#x", v))
		}
	}
	return a
}
