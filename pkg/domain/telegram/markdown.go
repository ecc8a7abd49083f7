package telegram

import "strings"

var markdownEscaper = strings.NewReplacer(
	"_", "\\_",
	"*", "\\*",
	"[", "\\[",
	"`", "\\`",
)

// EscapeMarkdown escapes the characters legacy Markdown treats as
// formatting, so user-controlled text cannot break message parsing.
func EscapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
