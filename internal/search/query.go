package search

import (
	"regexp"
	"strings"
)

// conversationalPhrases matches filler phrases that hurt keyword precision
// ("tell me about X" should search for "about X", not "tell").
var conversationalPhrases = regexp.MustCompile(`(?i)\b(give me|tell me|can you tell me|what is|how to|please)\b`)

// CleanQuery strips conversational phrases before keyword search and
// collapses the remaining whitespace. If stripping leaves nothing, the
// original query is returned so the caller never searches for an empty
// string by accident.
func CleanQuery(query string) string {
	cleaned := conversationalPhrases.ReplaceAllString(query, "")
	cleaned = strings.Join(strings.Fields(cleaned), " ")
	if cleaned == "" {
		return query
	}
	return cleaned
}
