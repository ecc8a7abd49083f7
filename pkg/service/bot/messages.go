package bot

import (
	"context"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/state"
	"github.com/craftwatch/statusbot/pkg/domain/telegram"
)

// SendMessage sends text to the chat and records it as the chat's last
// message.
func (b *Bot) SendMessage(ctx context.Context, chatID int64, text string, silent bool) (telegram.Message, error) {
	msg, err := b.api.SendMessage(ctx, telegram.SendMessageRequest{
		ChatID:              chatID,
		Text:                text,
		ParseMode:           telegram.ParseModeMarkdown,
		DisableNotification: silent,
	})
	if err != nil {
		return telegram.Message{}, err
	}
	b.remember(ctx, chatID, msg, text)
	return msg, nil
}

// EditMessage replaces the text of a message the bot sent earlier and
// records the result as the chat's last message.
func (b *Bot) EditMessage(ctx context.Context, chatID, messageID int64, text string) (telegram.Message, error) {
	msg, err := b.api.EditMessageText(ctx, chatID, messageID, text)
	if err != nil {
		return telegram.Message{}, err
	}
	b.remember(ctx, chatID, msg, text)
	return msg, nil
}

// EditLastMessage edits the last message the bot sent to the chat.
func (b *Bot) EditLastMessage(ctx context.Context, chatID int64, text string) (telegram.Message, error) {
	last, err := b.store.GetLastMessage(ctx, chatID)
	if err != nil {
		return telegram.Message{}, err
	}
	return b.EditMessage(ctx, chatID, last.MessageID, text)
}

// DeleteMessage deletes a message and forgets the chat's last message.
func (b *Bot) DeleteMessage(ctx context.Context, chatID, messageID int64) error {
	if err := b.api.DeleteMessage(ctx, chatID, messageID); err != nil {
		return err
	}
	if err := b.store.DeleteLastMessage(ctx, chatID); err != nil && !errors.IsCode(err, errors.CodeNotFound) {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to forget last message")
	}
	return nil
}

func (b *Bot) remember(ctx context.Context, chatID int64, msg telegram.Message, text string) {
	if msg.Chat.ID != 0 {
		chatID = msg.Chat.ID
	}
	if msg.Text != "" {
		text = msg.Text
	}
	err := b.store.PutLastMessage(ctx, state.LastMessage{
		ChatID:    chatID,
		MessageID: msg.MessageID,
		Text:      text,
		SentAt:    b.now(),
	})
	if err != nil {
		b.logger.Warn().Err(err).Int64("chat_id", chatID).Msg("Failed to record last message")
	}
}
