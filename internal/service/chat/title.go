package chat

import (
	"strings"
	"unicode/utf8"
)

// TitleLimit is the rune budget for derived conversation titles.
const TitleLimit = 50

const ellipsis = "…"

// DeriveTitle builds a conversation title from the first user message:
// whitespace collapsed, truncated to TitleLimit runes with an ellipsis.
func DeriveTitle(content string) string {
	title := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(title) <= TitleLimit {
		return title
	}
	runes := []rune(title)
	return strings.TrimRight(string(runes[:TitleLimit]), " ") + ellipsis
}
