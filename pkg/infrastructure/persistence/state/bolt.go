// Package state provides bbolt and in-memory implementations of the bot's
// state store.
package state

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
	"github.com/craftwatch/statusbot/pkg/domain/state"
	"github.com/rs/zerolog"
	"go.etcd.io/bbolt"
)

const (
	offsetsBucket      = "offsets"
	lastMessagesBucket = "last_messages"

	telegramOffsetKey = "telegram"
)

// BoltStore implements state.Store using BoltDB
type BoltStore struct {
	db     *bbolt.DB
	logger zerolog.Logger
}

var _ state.Store = (*BoltStore)(nil)

// NewBoltStore opens (or creates) the state file at dbPath
func NewBoltStore(dbPath string, logger zerolog.Logger) (*BoltStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errors.New(errors.CodeIoError, "persistence", fmt.Sprintf("failed to create directory %s", dir), err)
	}

	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{
		Timeout: 1 * time.Second,
	})
	if err != nil {
		if strings.Contains(err.Error(), "resource temporarily unavailable") ||
			strings.Contains(err.Error(), "timeout") {
			return nil, errors.New(errors.CodeIoError, "persistence",
				fmt.Sprintf("state file '%s' is already in use by another statusbot instance. "+
					"Use STATUSBOT_STATE_PATH to specify a different file", dbPath), err)
		}
		return nil, errors.New(errors.CodeIoError, "persistence", "failed to open bolt db", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range []string{offsetsBucket, lastMessagesBucket} {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, errors.New(errors.CodeIoError, "persistence", "failed to create buckets", err)
	}

	logger = logger.With().Str("component", "state").Str("path", dbPath).Logger()
	logger.Debug().Msg("State store opened")

	return &BoltStore{db: db, logger: logger}, nil
}

// Close closes the BoltDB connection
func (s *BoltStore) Close() error {
	return s.db.Close()
}

// LoadOffset returns the last saved update offset, or zero
func (s *BoltStore) LoadOffset(ctx context.Context) (int64, error) {
	var offset int64
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(offsetsBucket)).Get([]byte(telegramOffsetKey))
		if len(data) == 8 {
			offset = int64(binary.BigEndian.Uint64(data))
		}
		return nil
	})
	if err != nil {
		return 0, errors.New(errors.CodeIoError, "persistence", "failed to read offset", err)
	}
	return offset, nil
}

// SaveOffset stores offset unless a larger one is already stored
func (s *BoltStore) SaveOffset(ctx context.Context, offset int64) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(offsetsBucket))
		if data := bucket.Get([]byte(telegramOffsetKey)); len(data) == 8 {
			if int64(binary.BigEndian.Uint64(data)) >= offset {
				return nil
			}
		}
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(offset))
		return bucket.Put([]byte(telegramOffsetKey), buf)
	})
	if err != nil {
		return errors.New(errors.CodeIoError, "persistence", "failed to store offset", err)
	}
	return nil
}

// PutLastMessage replaces the chat's last message record
func (s *BoltStore) PutLastMessage(ctx context.Context, msg state.LastMessage) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.New(errors.CodeInternalError, "persistence", "failed to marshal last message", err)
		}
		if err := tx.Bucket([]byte(lastMessagesBucket)).Put(chatKey(msg.ChatID), data); err != nil {
			return errors.New(errors.CodeIoError, "persistence", "failed to store last message", err)
		}
		return nil
	})
}

// GetLastMessage retrieves the chat's last message record
func (s *BoltStore) GetLastMessage(ctx context.Context, chatID int64) (state.LastMessage, error) {
	var msg state.LastMessage

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(lastMessagesBucket)).Get(chatKey(chatID))
		if data == nil {
			return errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("chat %d has no last message", chatID), nil)
		}
		if err := json.Unmarshal(data, &msg); err != nil {
			return errors.New(errors.CodeTypeConversionFailed, "persistence", "failed to unmarshal last message", err)
		}
		return nil
	})
	if err != nil {
		return state.LastMessage{}, err
	}

	return msg, nil
}

// DeleteLastMessage removes the chat's last message record
func (s *BoltStore) DeleteLastMessage(ctx context.Context, chatID int64) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(lastMessagesBucket))

		if bucket.Get(chatKey(chatID)) == nil {
			return errors.New(errors.CodeNotFound, "persistence", fmt.Sprintf("chat %d has no last message", chatID), nil)
		}
		if err := bucket.Delete(chatKey(chatID)); err != nil {
			return errors.New(errors.CodeIoError, "persistence", "failed to delete last message", err)
		}
		return nil
	})
}

// ListLastMessages returns every record ordered by chat id
func (s *BoltStore) ListLastMessages(ctx context.Context) ([]state.LastMessage, error) {
	var msgs []state.LastMessage

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(lastMessagesBucket)).ForEach(func(k, v []byte) error {
			var msg state.LastMessage
			if err := json.Unmarshal(v, &msg); err != nil {
				s.logger.Warn().Err(err).Str("key", string(k)).Msg("Skipping unreadable last message")
				return nil
			}
			msgs = append(msgs, msg)
			return nil
		})
	})
	if err != nil {
		return nil, errors.New(errors.CodeIoError, "persistence", "failed to list last messages", err)
	}

	sort.Slice(msgs, func(i, j int) bool { return msgs[i].ChatID < msgs[j].ChatID })
	return msgs, nil
}

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}
