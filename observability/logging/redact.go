package logging

import (
	"log/slog"
	"sort"
	"strings"
)

// RedactedValue replaces secret values in log output.
const RedactedValue = "[REDACTED]"

// plainKeys are header and field names whose values are safe to log.
var plainKeys = map[string]struct{}{
	"content-type": {},
	"x-team":       {},
	"x-request-id": {},
	"service":      {},
	"env":          {},
	"backend":      {},
	"listen":       {},
}

// IsPlain reports whether values under key may be logged verbatim.
func IsPlain(key string) bool {
	_, ok := plainKeys[strings.ToLower(strings.TrimSpace(key))]
	return ok
}

// MaskField returns key=value with the value masked unless the key is plain.
// Empty values pass through.
func MaskField(key, value string) slog.Attr {
	if strings.TrimSpace(value) == "" || IsPlain(key) {
		return slog.String(key, value)
	}
	return slog.String(key, RedactedValue)
}

// MaskHeaders groups headers under name, masking every value whose header
// is not plain. Keys are emitted in sorted order.
func MaskHeaders(name string, headers map[string]string) slog.Attr {
	keys := make([]string, 0, len(headers))
	for key := range headers {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	attrs := make([]any, 0, len(keys))
	for _, key := range keys {
		attrs = append(attrs, MaskField(key, headers[key]))
	}
	return slog.Group(name, attrs...)
}
