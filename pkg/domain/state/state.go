// Package state defines what the bot remembers between polls: the update
// offset it has acknowledged and the last message it sent to each chat.
package state

import (
	"context"
	"time"
)

// LastMessage is the most recent message the bot sent to a chat
type LastMessage struct {
	ChatID    int64     `json:"chat_id"`
	MessageID int64     `json:"message_id"`
	Text      string    `json:"text"`
	SentAt    time.Time `json:"sent_at"`
}

// Store persists bot state. SaveOffset never moves the offset backwards.
// GetLastMessage returns a CodeNotFound error when the chat has no record.
type Store interface {
	LoadOffset(ctx context.Context) (int64, error)
	SaveOffset(ctx context.Context, offset int64) error

	PutLastMessage(ctx context.Context, msg LastMessage) error
	GetLastMessage(ctx context.Context, chatID int64) (LastMessage, error)
	DeleteLastMessage(ctx context.Context, chatID int64) error
	ListLastMessages(ctx context.Context) ([]LastMessage, error)

	Close() error
}
