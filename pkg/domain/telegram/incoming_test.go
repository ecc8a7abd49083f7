package telegram

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func commandMessage(text string, entities ...Entity) *Message {
	return &Message{
		MessageID: 7,
		From:      &User{ID: 1001, FirstName: "Steve"},
		Chat:      Chat{ID: 555, Type: ChatTypePrivate},
		Text:      text,
		Entities:  entities,
	}
}

func TestNewIncoming_ExtractsCommand(t *testing.T) {
	in := NewIncoming(Update{
		UpdateID: 10,
		Message:  commandMessage("/check_status please", Entity{Type: EntityBotCommand, Offset: 0, Length: 13}),
	})

	assert.Equal(t, int64(10), in.UpdateID)
	assert.Contains(t, in.Commands, Command("/check_status"))
	assert.Equal(t, "please", in.Text)
	assert.Equal(t, []string{"/check_status"}, in.CommandNames())
	assert.True(t, in.HasCommand("/check_status"))
}

func TestNewIncoming_MultipleCommandsKeepSurroundingText(t *testing.T) {
	text := "hey /help and /check_status now"
	in := NewIncoming(Update{
		UpdateID: 1,
		Message: commandMessage(text,
			Entity{Type: EntityBotCommand, Offset: 4, Length: 5},
			Entity{Type: "bold", Offset: 10, Length: 3},
			Entity{Type: EntityBotCommand, Offset: 14, Length: 13},
		),
	})

	assert.Len(t, in.Commands, 2)
	assert.Equal(t, []string{"/check_status", "/help"}, in.CommandNames())
	assert.Equal(t, "hey and now", in.Text)
}

func TestNewIncoming_CommandAtEndOfText(t *testing.T) {
	in := NewIncoming(Update{
		UpdateID: 2,
		Message:  commandMessage("status /check_status", Entity{Type: EntityBotCommand, Offset: 7, Length: 13}),
	})

	assert.True(t, in.HasCommand("/check_status"))
	assert.Equal(t, "status ", in.Text)
}

func TestNewIncoming_UTF16Offsets(t *testing.T) {
	// "😀" is two UTF-16 code units, so the command starts at offset 3.
	in := NewIncoming(Update{
		UpdateID: 3,
		Message:  commandMessage("😀 /check_status ok", Entity{Type: EntityBotCommand, Offset: 3, Length: 13}),
	})

	assert.True(t, in.HasCommand("/check_status"))
	assert.Equal(t, "😀 ok", in.Text)
}

func TestNewIncoming_BotMentionSuffix(t *testing.T) {
	in := NewIncoming(Update{
		UpdateID: 4,
		Message:  commandMessage("/check_status@craft_bot", Entity{Type: EntityBotCommand, Offset: 0, Length: 23}),
	})

	assert.Contains(t, in.Commands, Command("/check_status@craft_bot"))
	assert.True(t, in.HasCommand("/check_status"))
	assert.Equal(t, []string{"/check_status"}, in.CommandNames())
}

func TestNewIncoming_OutOfRangeEntityIgnored(t *testing.T) {
	tests := []struct {
		name   string
		entity Entity
	}{
		{"length past end", Entity{Type: EntityBotCommand, Offset: 1, Length: 40}},
		{"offset past end", Entity{Type: EntityBotCommand, Offset: 4, Length: 1}},
		{"negative offset", Entity{Type: EntityBotCommand, Offset: -1, Length: 2}},
		{"zero length", Entity{Type: EntityBotCommand, Offset: 0, Length: 0}},
		{"offset overflows", Entity{Type: EntityBotCommand, Offset: math.MaxInt, Length: 1}},
		{"length overflows", Entity{Type: EntityBotCommand, Offset: 1, Length: math.MaxInt}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				in := NewIncoming(Update{UpdateID: 5, Message: commandMessage("/go", tt.entity)})
				assert.Empty(t, in.Commands)
				assert.Equal(t, "/go", in.Text)
			})
		})
	}
}

func TestNewIncoming_HugeOffsetFromJSON(t *testing.T) {
	payload := `{
		"update_id": 6,
		"message": {
			"message_id": 1,
			"chat": {"id": 2, "type": "private"},
			"text": "/check_status",
			"entities": [{"type": "bot_command", "offset": 9223372036854775807, "length": 1}]
		}
	}`

	var u Update
	require.NoError(t, json.Unmarshal([]byte(payload), &u))

	require.NotPanics(t, func() {
		in := NewIncoming(u)
		assert.Empty(t, in.Commands)
		assert.Equal(t, "/check_status", in.Text)
	})
}

func TestNewIncoming_EmptyUpdates(t *testing.T) {
	tests := []struct {
		name   string
		update Update
	}{
		{"no payload", Update{UpdateID: 9}},
		{"message without text", Update{UpdateID: 9, Message: &Message{MessageID: 1, Chat: Chat{ID: 2}}}},
		{"membership only", Update{UpdateID: 9, MyChatMember: &ChatMemberUpdated{Chat: Chat{ID: -100, Type: ChatTypeGroup}}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NotPanics(t, func() {
				in := NewIncoming(tt.update)
				assert.Empty(t, in.Commands)
				assert.Empty(t, in.Text)
				assert.Equal(t, int64(10), in.NextOffset())
			})
		})
	}
}

func TestIncoming_EditedMessageFallback(t *testing.T) {
	edited := commandMessage("/check_status", Entity{Type: EntityBotCommand, Offset: 0, Length: 13})
	edited.MessageID = 77
	edited.Chat = Chat{ID: -42, Type: ChatTypeSupergroup}

	in := NewIncoming(Update{UpdateID: 20, EditedMessage: edited})

	assert.True(t, in.IsEdited())
	assert.True(t, in.HasCommand("/check_status"))
	assert.Equal(t, int64(77), in.MessageID())
	assert.Equal(t, int64(-42), in.ChatID())
	assert.Equal(t, int64(1001), in.FromID())
	assert.True(t, in.IsFromGroup())
}

func TestIncoming_Accessors(t *testing.T) {
	in := NewIncoming(Update{UpdateID: 30, Message: commandMessage("hi")})

	assert.False(t, in.IsEdited())
	assert.False(t, in.IsFromGroup())
	assert.Equal(t, int64(555), in.ChatID())
	assert.Equal(t, int64(1001), in.FromID())
	assert.Equal(t, int64(7), in.MessageID())
	assert.Equal(t, int64(31), in.NextOffset())

	member := NewIncoming(Update{UpdateID: 31, MyChatMember: &ChatMemberUpdated{
		Chat: Chat{ID: -5, Type: ChatTypeGroup},
		From: User{ID: 99},
	}})
	assert.True(t, member.IsFromGroup())
	assert.Equal(t, int64(-5), member.ChatID())
	assert.Equal(t, int64(99), member.FromID())
	assert.Zero(t, member.MessageID())
}

func TestUpdate_DecodesBotAPIPayload(t *testing.T) {
	payload := `{
		"update_id": 815,
		"message": {
			"message_id": 12,
			"from": {"id": 4242, "is_bot": false, "first_name": "Alex"},
			"chat": {"id": -1001, "type": "supergroup", "title": "Crafters"},
			"date": 1700000000,
			"text": "/check_status@craft_bot",
			"entities": [{"type": "bot_command", "offset": 0, "length": 23}]
		}
	}`

	var u Update
	require.NoError(t, json.Unmarshal([]byte(payload), &u))

	in := NewIncoming(u)
	assert.True(t, in.HasCommand("/check_status"))
	assert.True(t, in.IsFromGroup())
	assert.Equal(t, int64(4242), in.FromID())
	assert.Equal(t, int64(816), in.NextOffset())
}

func TestEscapeMarkdown(t *testing.T) {
	assert.Equal(t, "a\\_b\\*c\\[d\\`e", EscapeMarkdown("a_b*c[d`e"))
	assert.Equal(t, "plain", EscapeMarkdown("plain"))
}
