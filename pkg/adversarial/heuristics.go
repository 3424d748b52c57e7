// Package adversarial implements the blue/red debate protocol the agent
// executor runs to adversarially verify a response before accepting it:
// pattern-based challenge heuristics, the bounded debate record, and the
// consensus protocols that turn a set of votes into a verified/rejected
// decision.
package adversarial

import "strings"

// universalMarkers flag absolute or universal claims that are often
// overstated.
var universalMarkers = []string{"always", "never", "all ", "none ", "every ", "no one"}

// vagueQuantifiers flag imprecise quantities that should be challenged for
// specific numbers.
var vagueQuantifiers = []string{"many", "some", "often", "rarely", "significant"}

// causalMarkers flag causal claims that assert a mechanism without
// necessarily backing it with evidence.
var causalMarkers = []string{"because", "therefore", "causes", "leads to", "results in"}

// statisticalMarkers flag unattributed statistics.
var statisticalMarkers = []string{"%", "percent", "statistics", "data shows"}

// loadedWords flag emotionally loaded language that may signal bias.
var loadedWords = []string{"obvious", "clearly", "undeniable", "proven", "fact", "definitely", "absolutely", "certainly", "must"}

const maxAvgWordsPerSentence = 35

// DetectIssues scans a claim for the pattern-based red flags the red agent
// is prompted to challenge: universal claims, vague quantifiers, causal
// markers without evidence, unattributed statistics, loaded language, heavy
// jargon (uppercase density), and overly complex sentence structure.
func DetectIssues(claim string) []string {
	var issues []string
	lower := strings.ToLower(claim)

	if containsAny(lower, universalMarkers) {
		issues = append(issues, "Universal claim detected")
	}
	if containsAny(lower, vagueQuantifiers) {
		issues = append(issues, "Vague quantifier")
	}
	if containsAny(lower, causalMarkers) {
		issues = append(issues, "Verify mechanism")
	}
	if containsAny(lower, statisticalMarkers) {
		issues = append(issues, "Verify source and methodology")
	}
	if word, ok := firstMatch(lower, loadedWords); ok {
		issues = append(issues, "Loaded language ('"+word+"')")
	}
	if isHeavyJargon(claim) {
		issues = append(issues, "Heavy jargon")
	}
	if isComplexStructure(claim) {
		issues = append(issues, "Complex structure")
	}

	return issues
}

func containsAny(s string, markers []string) bool {
	_, ok := firstMatch(s, markers)
	return ok
}

func firstMatch(s string, markers []string) (string, bool) {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return m, true
		}
	}
	return "", false
}

// isHeavyJargon reports whether uppercase letters make up more than 1/8 of
// the claim's length, a proxy for dense acronym/jargon use.
func isHeavyJargon(claim string) bool {
	var upper int
	for _, r := range claim {
		if r >= 'A' && r <= 'Z' {
			upper++
		}
	}
	return upper > len(claim)/8
}

// isComplexStructure reports whether the claim's average words-per-sentence
// exceeds 35, a proxy for structure dense enough to hide issues.
func isComplexStructure(claim string) bool {
	sentences := strings.Count(claim, ".")
	if sentences < 1 {
		sentences = 1
	}
	words := len(strings.Fields(claim))
	return float64(words)/float64(sentences) > maxAvgWordsPerSentence
}

// ChallengePrompt builds the prompt instructing the red agent to challenge
// or clear a claim, folding in any heuristically-detected issues as
// targeted guidance.
func ChallengePrompt(claim string) string {
	issues := DetectIssues(claim)

	guidance := "Look for hidden assumptions, unstated premises, and edge cases."
	if len(issues) > 0 {
		guidance = "Pay special attention to these potential issues: " + strings.Join(issues, "; ")
	}

	var b strings.Builder
	b.WriteString("Critically analyze the following claim for factual accuracy and logical consistency:\n\n\"")
	b.WriteString(claim)
	b.WriteString("\"\n\n")
	b.WriteString(guidance)
	b.WriteString("\n\nReply in JSON: {\"is_challenge\": bool, \"confidence\": [0,1], \"reasoning\": string, \"suggested_revision\": string|null}\n")
	b.WriteString("If any issues are found, set is_challenge true and start your reasoning with [CHALLENGE]. Otherwise set is_challenge false and start with [CLEAN].")
	return b.String()
}
