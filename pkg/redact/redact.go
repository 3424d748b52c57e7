// Package redact sanitizes arbitrary JSON-shaped data and pseudonymizes
// human actor identifiers before they enter the audit chain, following the
// fail-closed posture of tarsy's pkg/masking service but over plain
// substring key matching rather than compiled regex patterns, per the
// spec's simpler sanitizer contract.
package redact

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// RedactedPlaceholder replaces the value of any sensitive key.
const RedactedPlaceholder = "[REDACTED]"

// SensitiveKeyFragments are the lower-cased substrings that mark a key as
// sensitive. A key is redacted if its lower-cased form contains any fragment.
var SensitiveKeyFragments = []string{
	"password", "secret", "token", "api_key", "apikey", "key",
	"authorization", "auth", "credential", "private_key", "privatekey",
}

func isSensitiveKey(key string) bool {
	lower := strings.ToLower(key)
	for _, frag := range SensitiveKeyFragments {
		if strings.Contains(lower, frag) {
			return true
		}
	}
	return false
}

// Sanitize walks v (the generic value produced by encoding/json decoding,
// i.e. composed of map[string]any, []any, string, float64/json.Number, bool,
// nil) and replaces the value of any object key that matches a sensitive
// fragment with RedactedPlaceholder, recursing through nested objects and
// arrays. Sanitize is idempotent: Sanitize(Sanitize(x)) == Sanitize(x),
// since a placeholder string contains no sensitive key fragment itself and
// redacted keys are never renamed or removed.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, child := range val {
			if isSensitiveKey(k) {
				out[k] = RedactedPlaceholder
				continue
			}
			out[k] = Sanitize(child)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = Sanitize(elem)
		}
		return out
	default:
		return v
	}
}

// PseudonymizeActorID replaces a human actor id with the hex-encoded
// SHA-256 digest of the id, so audit events never carry the raw identifier.
func PseudonymizeActorID(id string) string {
	sum := sha256.Sum256([]byte(id))
	return hex.EncodeToString(sum[:])
}
