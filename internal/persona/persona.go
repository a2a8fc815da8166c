// Package persona maps chat ids to persona overrides. The whole mapping lives
// in one shared JSON object, loaded once at startup and written back in full
// on every mutation.
package persona

import (
	"encoding/json"
	"sync"

	"github.com/savelyev/relay-bot/internal/storage"
	"go.uber.org/zap"
)

const storeKey = "chat_roles"

type Store struct {
	store       storage.Store
	defaultText string
	logger      *zap.Logger

	mu       sync.RWMutex
	personas map[string]string
}

func New(store storage.Store, defaultText string, logger *zap.Logger) *Store {
	s := &Store{
		store:       store,
		defaultText: defaultText,
		logger:      logger,
		personas:    make(map[string]string),
	}
	s.load()
	return s
}

func (s *Store) load() {
	data, ok, err := s.store.Get(storeKey)
	if err != nil {
		s.logger.Error("Failed to read persona settings", zap.Error(err))
		return
	}
	if !ok {
		s.logger.Info("No persona settings found, using default persona")
		return
	}
	if err := json.Unmarshal(data, &s.personas); err != nil {
		s.logger.Error("Failed to decode persona settings", zap.Error(err))
		s.personas = make(map[string]string)
		return
	}
	s.logger.Info("Persona settings loaded", zap.Int("count", len(s.personas)))
}

// Get returns the persona for the chat, falling back to the default when no
// non-empty override is stored.
func (s *Store) Get(chatID string) string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.personas[chatID]; ok && p != "" {
		return p
	}
	return s.defaultText
}

// Set stores a persona override; an empty text removes the override so the
// chat reverts to the default. The in-memory mapping is updated even when the
// save fails, so a failed save is lost on the next restart.
func (s *Store) Set(chatID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if text == "" {
		delete(s.personas, chatID)
	} else {
		s.personas[chatID] = text
	}
	return s.save()
}

func (s *Store) save() error {
	data, err := json.MarshalIndent(s.personas, "", "    ")
	if err != nil {
		return err
	}
	if err := s.store.Put(storeKey, data); err != nil {
		s.logger.Error("Failed to save persona settings", zap.Error(err))
		return err
	}
	return nil
}
