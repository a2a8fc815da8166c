// Package usage keeps the append-only per-chat token ledger. Records are never
// updated or trimmed; absent token counts are stored as null, not zero.
package usage

import (
	"encoding/json"
	"time"

	"github.com/savelyev/relay-bot/internal/models"
	"github.com/savelyev/relay-bot/internal/storage"
	"go.uber.org/zap"
)

const timeLayout = "2006-01-02 15:04:05"

type Ledger struct {
	store  storage.Store
	logger *zap.Logger
	now    func() time.Time
}

func New(store storage.Store, logger *zap.Logger) *Ledger {
	return &Ledger{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

func (l *Ledger) key(chatID string) string {
	return "chat_" + storage.SanitizeKey(chatID) + "_tokens"
}

// Record appends one usage entry to the chat's ledger.
func (l *Ledger) Record(chatID, provider, model string, promptTokens, completionTokens, totalTokens *int) {
	record := models.UsageRecord{
		Timestamp:        l.now().Format(timeLayout),
		Provider:         provider,
		Model:            model,
		PromptTokens:     promptTokens,
		CompletionTokens: completionTokens,
		TotalTokens:      totalTokens,
	}

	err := l.store.Update(l.key(chatID), func(current []byte) ([]byte, error) {
		var records []models.UsageRecord
		if len(current) > 0 {
			if err := json.Unmarshal(current, &records); err != nil {
				l.logger.Error("Failed to decode token usage ledger",
					zap.Error(err),
					zap.String("chat_id", chatID))
				records = nil
			}
		}
		records = append(records, record)
		return json.MarshalIndent(records, "", "    ")
	})
	if err != nil {
		l.logger.Error("Failed to record token usage",
			zap.Error(err),
			zap.String("chat_id", chatID))
		return
	}
	l.logger.Debug("Token usage recorded",
		zap.String("chat_id", chatID),
		zap.String("provider", provider))
}
