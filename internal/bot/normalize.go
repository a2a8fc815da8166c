package bot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/savelyev/relay-bot/internal/models"
)

// normalizeUpdate turns a raw Telegram update into the canonical inbound
// record. It returns nil when the update carries neither a message nor a
// channel post with text; the caller still acknowledges such updates.
func normalizeUpdate(update tgbotapi.Update, botUsername string, keywords []string) *models.Message {
	raw := update.Message
	isChannelPost := false
	if raw == nil {
		raw = update.ChannelPost
		isChannelPost = raw != nil
	}
	if raw == nil || raw.Chat == nil || raw.Text == "" {
		return nil
	}

	msg := &models.Message{
		ChatID:             raw.Chat.ID,
		MessageID:          raw.MessageID,
		Text:               raw.Text,
		ChatType:           models.ChatType(raw.Chat.Type),
		Sender:             "UnknownUser",
		IsChannelPost:      isChannelPost,
		HasAuthorSignature: raw.AuthorSignature != "",
	}

	switch {
	case raw.From != nil:
		// Regular messages from users or bots
		if raw.From.UserName != "" {
			msg.Sender = raw.From.UserName
		} else if raw.From.FirstName != "" {
			msg.Sender = raw.From.FirstName
		} else {
			msg.Sender = "UserWithoutUsername"
		}
		msg.SenderIsBot = raw.From.IsBot
		msg.SenderIsSelf = raw.From.IsBot && raw.From.UserName == botUsername
	case raw.SenderChat != nil:
		// Messages sent on behalf of a channel into a group or supergroup
		if raw.SenderChat.Title != "" {
			msg.Sender = raw.SenderChat.Title
		} else {
			msg.Sender = "ChannelAsUser"
		}
	case msg.ChatType == models.ChatTypeChannel:
		// Channel posts carry the channel title, or the author's signature
		if raw.Chat.Title != "" {
			msg.Sender = raw.Chat.Title
		} else {
			msg.Sender = "Channel"
		}
		if raw.AuthorSignature != "" {
			msg.Sender = raw.AuthorSignature
		}
	}

	if !isChannelPost {
		msg.MentionsBot = mentionsUsername(raw.Text, raw.Entities, botUsername)
	}

	if !isChannelPost && !msg.MentionsBot && !msg.SenderIsBot && len(keywords) > 0 {
		msg.KeywordFound = containsKeyword(raw.Text, keywords)
	}

	if raw.ReplyToMessage != nil && raw.ReplyToMessage.From != nil {
		msg.IsReplyToSelf = raw.ReplyToMessage.From.IsBot &&
			raw.ReplyToMessage.From.UserName == botUsername
	}

	return msg
}

// mentionsUsername scans mention entities for an exact, case-sensitive match
// against the bot's username.
func mentionsUsername(text string, entities []tgbotapi.MessageEntity, botUsername string) bool {
	if len(entities) == 0 {
		return false
	}
	runes := []rune(text)
	for _, entity := range entities {
		if entity.Type != "mention" {
			continue
		}
		if entity.Offset < 0 || entity.Offset+entity.Length > len(runes) {
			continue
		}
		mentioned := string(runes[entity.Offset : entity.Offset+entity.Length])
		if strings.TrimLeft(mentioned, "@") == botUsername {
			return true
		}
	}
	return false
}

// containsKeyword does a case-insensitive substring search; the first match
// wins.
func containsKeyword(text string, keywords []string) bool {
	lowered := strings.ToLower(text)
	for _, keyword := range keywords {
		if keyword == "" {
			continue
		}
		if strings.Contains(lowered, strings.ToLower(keyword)) {
			return true
		}
	}
	return false
}
