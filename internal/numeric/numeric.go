// Package numeric normalizes German spoken numeric phrases and extracts
// phone number candidates from transcribed speech.
package numeric

import (
	"regexp"
	"strings"
)

// digitWords maps spoken German digit words (and common ASR variants) to
// digit characters.
var digitWords = map[string]string{
	"null":   "0",
	"o":      "0",
	"zero":   "0",
	"eins":   "1",
	"ein":    "1",
	"eine":   "1",
	"einer":  "1",
	"zwei":   "2",
	"zwo":    "2",
	"drei":   "3",
	"vier":   "4",
	"fünf":   "5",
	"sechs":  "6",
	"sieben": "7",
	"acht":   "8",
	"neun":   "9",
}

// letterWords maps single spelled letters to phonetic uppercase codes so
// spelled identifiers (order numbers, email local parts) survive
// normalization.
var letterWords = map[string]string{
	"a": "A", "ä": "AE", "b": "B", "c": "C", "d": "D", "e": "E",
	"f": "F", "g": "G", "h": "H", "i": "I", "j": "J", "k": "K",
	"l": "L", "m": "M", "n": "N", "o": "O", "ö": "OE", "p": "P",
	"q": "Q", "r": "R", "s": "S", "ß": "SS", "t": "T", "u": "U",
	"ü": "UE", "v": "V", "w": "W", "x": "X", "y": "Y", "z": "Z",
}

var (
	tokenPattern      = regexp.MustCompile(`[a-zäöüß]+|\d+|\+|#|-`)
	candidatePattern  = regexp.MustCompile(`\+?\d[\d\s-]{3,}\d`)
	phoneCleanPattern = regexp.MustCompile(`[^\d+]`)
	phoneValidPattern = regexp.MustCompile(`^(?:\+?49|0)\d{6,}$`)
)

// Analysis is the result of normalizing a phrase.
type Analysis struct {
	Normalized      string   `json:"normalized"`
	PhoneCandidates []string `json:"phone_candidates"`
}

// Normalize tokenizes text, substitutes spoken digits and letters, and
// extracts phone number candidates from the normalized token sequence.
func Normalize(text string) Analysis {
	if text == "" {
		return Analysis{PhoneCandidates: []string{}}
	}

	tokens := tokenPattern.FindAllString(strings.ToLower(text), -1)
	normalized := normalizeTokens(tokens)

	return Analysis{
		Normalized:      strings.TrimSpace(strings.Join(normalized, " ")),
		PhoneCandidates: extractPhoneCandidates(normalized),
	}
}

func normalizeTokens(tokens []string) []string {
	normalized := make([]string, 0, len(tokens))
	for _, token := range tokens {
		switch {
		case token == "doppel":
			// Duplicate the previous token only if it is numeric.
			if len(normalized) > 0 && isDigits(normalized[len(normalized)-1]) {
				normalized = append(normalized, normalized[len(normalized)-1])
			}
		case token == "plus":
			normalized = append(normalized, "+")
		default:
			if digit, ok := digitWords[token]; ok {
				normalized = append(normalized, digit)
				continue
			}
			if letter, ok := letterWords[token]; ok {
				normalized = append(normalized, letter)
				continue
			}
			normalized = append(normalized, token)
		}
	}
	return normalized
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func extractPhoneCandidates(tokens []string) []string {
	joined := strings.Join(tokens, " ")
	seen := make(map[string]struct{})
	unique := []string{}
	for _, match := range candidatePattern.FindAllString(joined, -1) {
		cleaned := phoneCleanPattern.ReplaceAllString(match, "")
		if len(cleaned) < 6 {
			continue
		}
		if _, dup := seen[cleaned]; dup {
			continue
		}
		seen[cleaned] = struct{}{}
		unique = append(unique, cleaned)
	}
	return unique
}

// IsPlausibleGermanPhone reports whether number looks like a German phone
// number: optional +49/49 country code or a leading 0, then at least six
// more digits. This is a sanity check, not a numbering-plan validator.
func IsPlausibleGermanPhone(number string) bool {
	if number == "" {
		return false
	}
	return phoneValidPattern.MatchString(number)
}

// PlausibleCandidates filters candidates down to the plausible subset,
// preserving order.
func PlausibleCandidates(candidates []string) []string {
	valid := []string{}
	for _, c := range candidates {
		if IsPlausibleGermanPhone(c) {
			valid = append(valid, c)
		}
	}
	return valid
}
