package telegram

import (
	"sort"
	"strings"
	"unicode/utf16"
)

// Command is a bot command as it appeared in the message text, e.g.
// "/check_status" or "/check_status@statusbot".
type Command string

// Name returns the command without a trailing "@botname" mention.
func (c Command) Name() string {
	name, _, _ := strings.Cut(string(c), "@")
	return name
}

// Incoming is the processed view of an Update: its text with bot commands
// removed and the set of commands it carried.
type Incoming struct {
	UpdateID int64
	Text     string
	Commands map[Command]struct{}

	update Update
}

// NewIncoming extracts commands from u. Command entities are removed from the
// text in descending offset order, each together with the single character
// that follows it.
func NewIncoming(u Update) Incoming {
	in := Incoming{
		UpdateID: u.UpdateID,
		Commands: make(map[Command]struct{}),
		update:   u,
	}

	msg := u.Message
	if msg == nil || msg.Text == "" {
		msg = u.EditedMessage
	}
	if msg == nil {
		return in
	}
	in.Text = msg.Text
	if in.Text == "" {
		return in
	}

	var spans []Entity
	for _, e := range msg.Entities {
		if e.Type == EntityBotCommand {
			spans = append(spans, e)
		}
	}
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Offset > spans[j].Offset })

	units := utf16.Encode([]rune(in.Text))
	for _, e := range spans {
		// compare without adding so huge offsets cannot overflow
		if e.Offset < 0 || e.Length <= 0 || e.Offset > len(units) || e.Length > len(units)-e.Offset {
			continue
		}
		start, end := e.Offset, e.Offset+e.Length
		in.Commands[Command(string(utf16.Decode(units[start:end])))] = struct{}{}

		cut := end + 1
		if cut > len(units) {
			cut = len(units)
		}
		units = append(units[:start:start], units[cut:]...)
	}
	in.Text = string(utf16.Decode(units))

	return in
}

// NextOffset is the getUpdates offset that acknowledges this update.
func (in Incoming) NextOffset() int64 {
	return in.UpdateID + 1
}

// FromID returns the id of the user who sent the update, or zero.
func (in Incoming) FromID() int64 {
	u := in.update
	if u.Message != nil && u.Message.From != nil && u.Message.From.ID != 0 {
		return u.Message.From.ID
	}
	if u.EditedMessage != nil && u.EditedMessage.From != nil && u.EditedMessage.From.ID != 0 {
		return u.EditedMessage.From.ID
	}
	if u.MyChatMember != nil {
		return u.MyChatMember.From.ID
	}
	return 0
}

// ChatID returns the id of the chat the update belongs to, or zero.
func (in Incoming) ChatID() int64 {
	return in.chat().ID
}

// MessageID returns the id of the message or edited message, or zero.
func (in Incoming) MessageID() int64 {
	u := in.update
	if u.Message != nil && u.Message.MessageID != 0 {
		return u.Message.MessageID
	}
	if u.EditedMessage != nil {
		return u.EditedMessage.MessageID
	}
	return 0
}

// IsEdited reports whether the update carries an edited message.
func (in Incoming) IsEdited() bool {
	return in.update.EditedMessage != nil
}

// IsFromGroup reports whether the update comes from a group chat. Membership
// updates always count as group traffic.
func (in Incoming) IsFromGroup() bool {
	if in.update.MyChatMember != nil {
		return true
	}
	switch in.chat().Type {
	case ChatTypeGroup, ChatTypeSupergroup:
		return true
	}
	return false
}

// HasCommand reports whether the update carried the command name,
// ignoring any "@botname" suffix.
func (in Incoming) HasCommand(name string) bool {
	for c := range in.Commands {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// CommandNames returns the distinct command names, sorted.
func (in Incoming) CommandNames() []string {
	seen := make(map[string]struct{}, len(in.Commands))
	names := make([]string, 0, len(in.Commands))
	for c := range in.Commands {
		n := c.Name()
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func (in Incoming) chat() Chat {
	u := in.update
	if u.Message != nil && u.Message.Chat.ID != 0 {
		return u.Message.Chat
	}
	if u.EditedMessage != nil && u.EditedMessage.Chat.ID != 0 {
		return u.EditedMessage.Chat
	}
	if u.MyChatMember != nil {
		return u.MyChatMember.Chat
	}
	return Chat{}
}
