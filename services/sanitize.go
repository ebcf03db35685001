package services

import (
	"regexp"
	"strings"
)

// Pictographic ranges: emoticons, symbols & pictographs, transport & map
// symbols, regional flags, dingbats and enclosed characters.
var emojiPattern = regexp.MustCompile(`[` +
	`\x{1F600}-\x{1F64F}` +
	`\x{1F300}-\x{1F5FF}` +
	`\x{1F680}-\x{1F6FF}` +
	`\x{1F1E0}-\x{1F1FF}` +
	`\x{2702}-\x{27B0}` +
	`\x{24C2}-\x{1F251}` +
	`]+`)

// SanitizeOracleText strips pictographic characters from oracle-produced
// text before it is persisted or emitted. Best-effort cosmetic transform;
// it never fails.
func SanitizeOracleText(text string) string {
	return strings.TrimSpace(emojiPattern.ReplaceAllString(text, ""))
}
