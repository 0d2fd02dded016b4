package store

import "strings"

// TitleMaxLength is the maximum length for derived conversation titles,
// in runes.
const TitleMaxLength = 50

// truncateForTitle turns the first user message into a title. Truncates at
// a word boundary where possible and appends "..." when shortened.
func truncateForTitle(message string) string {
	message = strings.TrimSpace(message)
	runes := []rune(message)
	if len(runes) <= TitleMaxLength {
		return message
	}

	truncated := string(runes[:TitleMaxLength])
	lastSpace := strings.LastIndex(truncated, " ")
	if lastSpace > TitleMaxLength/2 {
		truncated = truncated[:lastSpace]
	}

	return strings.TrimSpace(truncated) + "..."
}
