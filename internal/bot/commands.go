package bot

import (
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
)

func (b *Bot) handleCommand(logger *zap.Logger, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "role":
		b.handleRole(message)
	case "setrole":
		b.handleSetRole(logger, message)
	case "forget":
		b.handleForget(logger, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.", 0)
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Hi! I'm an AI chat companion.

Talk to me directly in private chats, or mention me in groups and I'll join in.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome, 0)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/role - Show the persona used for this chat
/setrole <text> - Set a persona for this chat (empty text resets to default)
/forget - Clear the conversation history for this chat

In groups I reply when mentioned, when a monitored keyword comes up,
or when someone answers one of my messages.`

	b.sendMessage(message.Chat.ID, help, 0)
}

func (b *Bot) handleRole(message *tgbotapi.Message) {
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	b.sendMessage(message.Chat.ID, "Current persona for this chat:\n"+b.personas.Get(chatID), 0)
}

func (b *Bot) handleSetRole(logger *zap.Logger, message *tgbotapi.Message) {
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	text := message.CommandArguments()

	if err := b.personas.Set(chatID, text); err != nil {
		logger.Error("Failed to save persona",
			zap.Error(err),
			zap.String("chat_id", chatID))
		b.sendMessage(message.Chat.ID, "The persona is active but could not be saved; it will be lost on restart.", 0)
		return
	}

	if text == "" {
		b.sendMessage(message.Chat.ID, "Persona reset to default.", 0)
		return
	}
	b.sendMessage(message.Chat.ID, "Persona updated for this chat.", 0)
}

func (b *Bot) handleForget(logger *zap.Logger, message *tgbotapi.Message) {
	chatID := strconv.FormatInt(message.Chat.ID, 10)
	b.history.Clear(chatID)
	logger.Info("Message history cleared", zap.String("chat_id", chatID))
	b.sendMessage(message.Chat.ID, "Conversation history cleared.", 0)
}
