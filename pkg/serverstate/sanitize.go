package serverstate

import "fmt"

// SensitiveKeys is the default key set Sanitize redacts: accessToken,
// password, client_secret, clientSecret (spec §3/§4.5). Callers may pass
// additional caller-specified keys to Sanitize without mutating this set.
var SensitiveKeys = []string{"accessToken", "password", "client_secret", "clientSecret"}

// Sanitize walks value recursively and returns a new value structurally
// equal to value except that every key in SensitiveKeys (plus any extra
// keys supplied) is replaced, at any depth and through arrays, with a
// "[REDACTED length: N]" marker (length omitted when the original value
// is empty or nil). The input is never mutated; Sanitize always returns
// a fresh tree.
func Sanitize(value any, extraKeys []string) any {
	keys := make(map[string]struct{}, len(SensitiveKeys)+len(extraKeys))
	for _, k := range SensitiveKeys {
		keys[k] = struct{}{}
	}
	for _, k := range extraKeys {
		keys[k] = struct{}{}
	}
	return sanitizeValue(value, keys)
}

func sanitizeValue(value any, keys map[string]struct{}) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if _, sensitive := keys[k]; sensitive {
				out[k] = redactMarker(val)
				continue
			}
			out[k] = sanitizeValue(val, keys)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, val := range v {
			out[i] = sanitizeValue(val, keys)
		}
		return out
	default:
		return value
	}
}

// redactMarker builds the "[REDACTED length: N]" marker for a sensitive
// value, omitting the length when the value is nil or an empty string.
func redactMarker(value any) string {
	switch v := value.(type) {
	case nil:
		return "[REDACTED]"
	case string:
		if v == "" {
			return "[REDACTED]"
		}
		return fmt.Sprintf("[REDACTED length: %d]", len(v))
	default:
		return "[REDACTED]"
	}
}
