package store

import (
	"regexp"
	"strings"
	"unicode"
)

// tokenRegex matches alphanumeric sequences (underscores kept for the initial split).
var tokenRegex = regexp.MustCompile(`[a-zA-Z0-9_]+`)

// TokenizeText splits text into lowercase search terms. Identifiers that
// appear in technical documentation (snake_case, camelCase) are split into
// their parts so "tool_calling" and "toolCalling" both match "tool calling".
// Tokens shorter than 2 characters are dropped.
func TokenizeText(text string) []string {
	var tokens []string

	words := tokenRegex.FindAllString(text, -1)
	for _, word := range words {
		for _, t := range SplitIdentifier(word) {
			lower := strings.ToLower(t)
			if len(lower) >= 2 {
				tokens = append(tokens, lower)
			}
		}
	}

	return tokens
}

// SplitIdentifier splits snake_case and camelCase identifiers.
func SplitIdentifier(token string) []string {
	if strings.Contains(token, "_") {
		var result []string
		for _, part := range strings.Split(token, "_") {
			if part != "" {
				result = append(result, splitCamelCase(part)...)
			}
		}
		return result
	}
	return splitCamelCase(token)
}

// splitCamelCase splits camelCase and PascalCase, keeping acronyms whole:
// "getUserById" -> ["get", "User", "By", "Id"], "HTTPHandler" -> ["HTTP", "Handler"].
func splitCamelCase(s string) []string {
	if s == "" {
		return []string{}
	}

	var result []string
	var current strings.Builder

	runes := []rune(s)
	for i, r := range runes {
		if i > 0 && unicode.IsUpper(r) {
			prevIsLower := unicode.IsLower(runes[i-1])
			nextIsLower := i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevIsLower || nextIsLower {
				if current.Len() > 0 {
					result = append(result, current.String())
					current.Reset()
				}
			}
		}
		current.WriteRune(r)
	}

	if current.Len() > 0 {
		result = append(result, current.String())
	}

	return result
}

// BuildStopWordMap converts a slice of stop words to a lookup map.
func BuildStopWordMap(stopWords []string) map[string]struct{} {
	m := make(map[string]struct{}, len(stopWords))
	for _, word := range stopWords {
		m[strings.ToLower(word)] = struct{}{}
	}
	return m
}

// DefaultStopWords are common English words filtered from prose documentation.
// Deliberately conservative: domain words like "tool" or "agent" must survive.
var DefaultStopWords = []string{
	"the", "and", "for", "are", "but", "not", "you", "all", "can", "had",
	"was", "one", "our", "out", "has", "have", "been", "this", "that",
	"these", "those", "with", "from", "they", "their", "will", "would",
	"should", "could", "what", "which", "when", "where", "how", "than",
	"then", "into", "about", "such", "each", "other", "some", "any",
	"also", "its", "it", "is", "be", "as", "at", "by", "an", "or",
	"of", "to", "in", "on", "if", "so", "do", "does", "did", "a",
}
