// Package history maintains the bounded per-chat conversation log. Every chat
// holds at most a configured number of turns; the oldest turns are dropped on
// append. Storage failures degrade to an empty history and never propagate to
// update handling.
package history

import (
	"encoding/json"
	"strings"

	"github.com/savelyev/relay-bot/internal/storage"
	"go.uber.org/zap"
)

type Store struct {
	store     storage.Store
	limit     int
	botPrefix string
	logger    *zap.Logger
}

func New(store storage.Store, limit int, botPrefix string, logger *zap.Logger) *Store {
	return &Store{
		store:     store,
		limit:     limit,
		botPrefix: botPrefix,
		logger:    logger,
	}
}

func (s *Store) key(chatID string) string {
	return "chat_" + storage.SanitizeKey(chatID)
}

// Append adds one turn to the chat's history and trims it to the configured
// limit, replacing the whole stored sequence.
func (s *Store) Append(chatID, text string) {
	err := s.store.Update(s.key(chatID), func(current []byte) ([]byte, error) {
		turns := s.decode(chatID, current)
		turns = append(turns, text)
		if len(turns) > s.limit {
			turns = turns[len(turns)-s.limit:]
		}
		return json.MarshalIndent(turns, "", "    ")
	})
	if err != nil {
		s.logger.Error("Failed to append to message history",
			zap.Error(err),
			zap.String("chat_id", chatID))
	}
}

// Read returns the stored turns in chronological order. Any read or parse
// failure yields an empty history.
func (s *Store) Read(chatID string) []string {
	data, ok, err := s.store.Get(s.key(chatID))
	if err != nil || !ok {
		return []string{}
	}
	return s.decode(chatID, data)
}

// CountSinceLastBotTurn counts the turns stored after the most recent
// bot-authored turn. If the bot has not spoken yet it returns the full length.
func (s *Store) CountSinceLastBotTurn(chatID string) int {
	turns := s.Read(chatID)
	count := 0
	for i := len(turns) - 1; i >= 0; i-- {
		if strings.HasPrefix(turns[i], s.botPrefix) {
			return count
		}
		count++
	}
	return count
}

// Clear removes all stored turns for the chat.
func (s *Store) Clear(chatID string) {
	if err := s.store.Delete(s.key(chatID)); err != nil {
		s.logger.Error("Failed to clear message history",
			zap.Error(err),
			zap.String("chat_id", chatID))
	}
}

func (s *Store) decode(chatID string, data []byte) []string {
	if len(data) == 0 {
		return []string{}
	}
	var turns []string
	if err := json.Unmarshal(data, &turns); err != nil {
		s.logger.Error("Failed to decode message history",
			zap.Error(err),
			zap.String("chat_id", chatID))
		return []string{}
	}
	return turns
}
