package state

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/state"
)

// MemoryPath selects MemoryStore in Open
const MemoryPath = ":memory:"

// MemoryStore keeps state in process memory; it is lost on exit
type MemoryStore struct {
	mu       sync.RWMutex
	offset   int64
	messages map[int64]state.LastMessage
}

var _ state.Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty MemoryStore
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{messages: make(map[int64]state.LastMessage)}
}

func (s *MemoryStore) LoadOffset(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.offset, nil
}

func (s *MemoryStore) SaveOffset(ctx context.Context, offset int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if offset > s.offset {
		s.offset = offset
	}
	return nil
}

func (s *MemoryStore) PutLastMessage(ctx context.Context, msg state.LastMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.messages[msg.ChatID] = msg
	return nil
}

func (s *MemoryStore) GetLastMessage(ctx context.Context, chatID int64) (state.LastMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg, ok := s.messages[chatID]
	if !ok {
		return state.LastMessage{}, errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("chat %d has no last message", chatID), nil)
	}
	return msg, nil
}

func (s *MemoryStore) DeleteLastMessage(ctx context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.messages[chatID]; !ok {
		return errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("chat %d has no last message", chatID), nil)
	}
	delete(s.messages, chatID)
	return nil
}

func (s *MemoryStore) ListLastMessages(ctx context.Context) ([]state.LastMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := make([]state.LastMessage, 0, len(s.messages))
	for _, m := range s.messages {
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ChatID < msgs[j].ChatID })
	return msgs, nil
}

func (s *MemoryStore) Close() error { return nil }
