package bot

import (
	"context"
	"fmt"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/savelyev/relay-bot/internal/ai"
	"github.com/savelyev/relay-bot/internal/history"
	"github.com/savelyev/relay-bot/internal/models"
	"github.com/savelyev/relay-bot/internal/persona"
	"github.com/savelyev/relay-bot/internal/usage"
	"github.com/savelyev/relay-bot/pkg/config"
	"go.uber.org/zap"
)

// TelegramAPI is the slice of *tgbotapi.BotAPI the bot needs; tests substitute
// a recorder.
type TelegramAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type Bot struct {
	api      TelegramAPI
	history  *history.Store
	personas *persona.Store
	ledger   *usage.Ledger
	provider ai.Provider
	cfg      *config.Config
	logger   *zap.Logger
}

func New(api TelegramAPI, hist *history.Store, personas *persona.Store, ledger *usage.Ledger, provider ai.Provider, cfg *config.Config, logger *zap.Logger) *Bot {
	return &Bot{
		api:      api,
		history:  hist,
		personas: personas,
		ledger:   ledger,
		provider: provider,
		cfg:      cfg,
		logger:   logger,
	}
}

func (b *Bot) policy() policy {
	return policy{
		providerReady:         b.provider != nil,
		respondToChannelPosts: b.cfg.Telegram.RespondToChannelPosts,
		proactiveEnabled:      b.cfg.Proactive.Enabled,
		proactiveThreshold:    b.cfg.Proactive.Threshold,
	}
}

// HandleUpdate processes one inbound update to completion. It never returns
// an error: every failure inside is logged and degraded so the webhook caller
// can always be acknowledged.
func (b *Bot) HandleUpdate(update tgbotapi.Update) {
	logger := b.logger.With(zap.String("update_id", uuid.New().String()))

	if update.Message != nil && update.Message.IsCommand() {
		b.handleCommand(logger, update.Message)
		return
	}

	msg := normalizeUpdate(update, b.cfg.Telegram.BotUsername, b.cfg.Keywords)
	if msg == nil {
		logger.Debug("Update carries no processable message, skipping")
		return
	}

	chatID := strconv.FormatInt(msg.ChatID, 10)
	logger = logger.With(zap.String("chat_id", chatID))
	logger.Info("Message received",
		zap.String("from", msg.Sender),
		zap.String("chat_type", string(msg.ChatType)),
		zap.Bool("is_channel_post", msg.IsChannelPost),
		zap.Bool("is_from_bot", msg.SenderIsBot),
		zap.Int("text_length", len(msg.Text)))

	// The inbound turn goes into history first, unless we sent it ourselves.
	if !msg.SenderIsSelf {
		prefix := msg.Sender + ": "
		if msg.IsChannelPost && !msg.HasAuthorSignature {
			prefix = ""
		}
		b.history.Append(chatID, prefix+msg.Text)
	}

	responded := false
	if b.policy().shouldRespond(msg) {
		responded = true
		b.respond(logger, chatID, msg)
	} else {
		logger.Debug("Message does not require a direct response")
	}

	b.maybeEngageProactively(logger, chatID, msg, responded)
}

func (b *Bot) respond(logger *zap.Logger, chatID string, msg *models.Message) {
	logger.Info("Message requires an AI response",
		zap.Bool("is_mentioned", msg.MentionsBot),
		zap.Bool("keyword_found", msg.KeywordFound),
		zap.Bool("is_reply_to_bot", msg.IsReplyToSelf))

	prompt := buildPrompt(b.history.Read(chatID), msg.Sender, msg.Text)
	personaText := b.personas.Get(chatID)

	result, err := b.generate(prompt, personaText)
	if err != nil {
		logger.Error("Failed to generate AI response", zap.Error(err))
		b.sendMessage(msg.ChatID, b.cfg.Telegram.FallbackMessage, msg.MessageID)
		return
	}

	b.dispatch(logger, chatID, msg, result)
}

func (b *Bot) maybeEngageProactively(logger *zap.Logger, chatID string, msg *models.Message, responded bool) {
	if !b.policy().proactiveCandidate(msg, responded) {
		return
	}

	since := b.history.CountSinceLastBotTurn(chatID)
	logger.Debug("Checking proactive engagement",
		zap.Int("messages_since_bot", since),
		zap.Int("threshold", b.cfg.Proactive.Threshold))
	if !b.policy().shouldEngageProactively(msg, responded, since) {
		return
	}

	logger.Info("Proactive engagement threshold reached", zap.Int("count", since))

	prompt := buildProactivePrompt(b.cfg.Proactive.PromptTemplate, b.history.Read(chatID))
	result, err := b.generate(prompt, b.cfg.Proactive.Persona)
	if err != nil {
		// No fallback message on the proactive path, only a log line.
		logger.Error("Failed to generate proactive AI response", zap.Error(err))
		return
	}

	if err := b.sendMessage(msg.ChatID, result.Text, 0); err != nil {
		return
	}
	b.persistBotTurn(chatID, result)
	logger.Info("Proactive response sent", zap.Int("response_length", len(result.Text)))
}

// dispatch sends the generated reply and records the bot turn. Private chats
// and channel posts get a plain send; everything else replies to the
// triggering message.
func (b *Bot) dispatch(logger *zap.Logger, chatID string, msg *models.Message, result *ai.Result) {
	replyTo := msg.MessageID
	if msg.ChatType == models.ChatTypePrivate || msg.IsChannelPost {
		replyTo = 0
	}

	if err := b.sendMessage(msg.ChatID, result.Text, replyTo); err != nil {
		return
	}

	b.persistBotTurn(chatID, result)
	logger.Info("AI response sent", zap.Int("response_length", len(result.Text)))
}

// persistBotTurn writes the history turn and the usage record. The two writes
// are independent; a failure between them leaves them out of sync.
func (b *Bot) persistBotTurn(chatID string, result *ai.Result) {
	b.history.Append(chatID, b.cfg.History.BotPrefix+result.Text)
	b.ledger.Record(chatID, b.provider.Name(), b.provider.ModelName(),
		result.PromptTokens, result.CompletionTokens, result.TotalTokens)
}

func (b *Bot) generate(prompt, personaText string) (*ai.Result, error) {
	timeout := time.Duration(b.cfg.AI.TimeoutSeconds) * time.Second
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return b.provider.Generate(ctx, prompt, personaText)
}

func (b *Bot) sendMessage(chatID int64, text string, replyTo int) error {
	msg := tgbotapi.NewMessage(chatID, text)
	if replyTo != 0 {
		msg.ReplyToMessageID = replyTo
	}
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
		return err
	}
	return nil
}

// RegisterWebhook points Telegram at the configured webhook URL, dropping any
// updates queued while the bot was away.
func (b *Bot) RegisterWebhook() error {
	if b.cfg.Telegram.WebhookURL == "" {
		return fmt.Errorf("webhook URL is not configured")
	}

	wh, err := tgbotapi.NewWebhook(b.cfg.Telegram.WebhookURL)
	if err != nil {
		return fmt.Errorf("failed to build webhook config: %w", err)
	}
	wh.DropPendingUpdates = true

	resp, err := b.api.Request(wh)
	if err != nil {
		return fmt.Errorf("failed to register webhook: %w", err)
	}
	if !resp.Ok {
		return fmt.Errorf("telegram rejected webhook: %s", resp.Description)
	}

	b.logger.Info("Webhook registered", zap.String("url", b.cfg.Telegram.WebhookURL))
	return nil
}
