package models

// ChatType mirrors the Telegram chat type field.
type ChatType string

const (
	ChatTypePrivate    ChatType = "private"
	ChatTypeGroup      ChatType = "group"
	ChatTypeSupergroup ChatType = "supergroup"
	ChatTypeChannel    ChatType = "channel"
)

// Message is the canonical inbound record built from a raw Telegram update.
// It is fully resolved by the normalizer and never mutated afterwards.
type Message struct {
	ChatID             int64
	MessageID          int
	Text               string
	ChatType           ChatType
	Sender             string
	SenderIsBot        bool
	SenderIsSelf       bool
	IsChannelPost      bool
	HasAuthorSignature bool
	MentionsBot        bool
	KeywordFound       bool
	IsReplyToSelf      bool
}

// UsageRecord is one entry of the per-chat token ledger. Token counts are
// pointers so an absent count survives storage as null rather than 0.
type UsageRecord struct {
	Timestamp        string `json:"timestamp"`
	Provider         string `json:"provider"`
	Model            string `json:"model"`
	PromptTokens     *int   `json:"prompt_tokens"`
	CompletionTokens *int   `json:"completion_tokens"`
	TotalTokens      *int   `json:"total_tokens"`
}
