package minecraft

import (
	"fmt"
	"strings"

	"github.com/craftwatch/statusbot/pkg/domain/telegram"
)

const (
	markOnline  = "✅"
	markOffline = "❌"
)

// Render formats s as a Markdown chat reply.
func Render(s Status) string {
	mark := markOffline
	if s.Online {
		mark = markOnline
	}

	players := make([]string, 0, len(s.Players.List))
	for _, p := range s.Players.List {
		players = append(players, telegram.EscapeMarkdown(p))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Server %s @ %s:\n", telegram.EscapeMarkdown(s.Name()), telegram.EscapeMarkdown(s.Address()))
	fmt.Fprintf(&b, " -online %s\n", mark)
	fmt.Fprintf(&b, " -players \\[%s]", strings.Join(players, ", "))
	return b.String()
}
