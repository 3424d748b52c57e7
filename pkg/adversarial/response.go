package adversarial

import (
	"encoding/json"
	"strings"
)

// RedResponse is the red agent's structured reply to a challenge prompt.
type RedResponse struct {
	IsChallenge       bool    `json:"is_challenge"`
	Confidence        float64 `json:"confidence"`
	Reasoning         string  `json:"reasoning"`
	SuggestedRevision *string `json:"suggested_revision"`
}

// ParseRedResponse extracts the JSON object embedded in raw (by locating
// the first '{' and the last '}', tolerating prose wrapped around the
// envelope) and decodes it into a RedResponse. If no valid JSON object can
// be parsed, it falls back to inferring IsChallenge from whether "disagree"
// appears anywhere in raw, with zero confidence and the raw text as
// reasoning.
func ParseRedResponse(raw string) RedResponse {
	if obj, ok := extractJSONObject(raw); ok {
		var resp RedResponse
		if err := json.Unmarshal([]byte(obj), &resp); err == nil {
			return resp
		}
	}

	return RedResponse{
		IsChallenge: strings.Contains(strings.ToLower(raw), "disagree"),
		Reasoning:   raw,
	}
}

func extractJSONObject(raw string) (string, bool) {
	start := strings.IndexByte(raw, '{')
	end := strings.LastIndexByte(raw, '}')
	if start < 0 || end < 0 || end < start {
		return "", false
	}
	return raw[start : end+1], true
}
