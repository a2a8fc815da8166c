package bot

import (
	"encoding/json"
	"io"
	"net/http"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

// HandleWebhook processes one Telegram webhook delivery synchronously: the
// update runs to completion before the 200 is written, so Telegram's retry
// behavior doubles as at-least-once delivery.
func (b *Bot) HandleWebhook(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil || len(body) == 0 {
		b.logger.Error("Failed to read webhook body", zap.Error(err))
		http.Error(w, "Error: No data received", http.StatusBadRequest)
		return
	}

	var update tgbotapi.Update
	if err := json.Unmarshal(body, &update); err != nil {
		b.logger.Error("Failed to decode webhook update", zap.Error(err))
		http.Error(w, "Error: Invalid JSON", http.StatusBadRequest)
		return
	}

	b.HandleUpdate(update)

	w.WriteHeader(http.StatusOK)
	io.WriteString(w, "OK")
}

// HandleSetWebhook registers the webhook with Telegram and reports the
// outcome to the caller.
func (b *Bot) HandleSetWebhook(w http.ResponseWriter, r *http.Request) {
	if err := b.RegisterWebhook(); err != nil {
		b.logger.Error("Webhook registration failed", zap.Error(err))
		http.Error(w, "Webhook registration failed: "+err.Error(), http.StatusBadGateway)
		return
	}
	io.WriteString(w, "Webhook registered successfully")
}
