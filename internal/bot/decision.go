package bot

import (
	"fmt"
	"strings"

	"github.com/savelyev/relay-bot/internal/models"
)

const contextHeader = "Context of previous messages:"

// policy holds the knobs of the engagement decisions. Both decisions are pure
// functions of an inbound message and this struct.
type policy struct {
	providerReady         bool
	respondToChannelPosts bool
	proactiveEnabled      bool
	proactiveThreshold    int
}

// shouldRespond is the primary engagement decision, evaluated once per
// message.
func (p policy) shouldRespond(m *models.Message) bool {
	if !p.providerReady {
		return false
	}
	if strings.TrimSpace(m.Text) == "" {
		return false
	}
	if m.IsChannelPost && !p.respondToChannelPosts {
		return false
	}
	return m.MentionsBot ||
		m.KeywordFound ||
		(m.ChatType == models.ChatTypePrivate && !m.SenderIsBot) ||
		m.IsReplyToSelf
}

// proactiveCandidate gates the proactive decision on everything except the
// history counter: groups only, human senders only, never the message that
// already earned a primary response.
func (p policy) proactiveCandidate(m *models.Message, primaryResponded bool) bool {
	if !p.providerReady || !p.proactiveEnabled || primaryResponded {
		return false
	}
	if m.ChatType != models.ChatTypeGroup && m.ChatType != models.ChatTypeSupergroup {
		return false
	}
	return !m.IsChannelPost && !m.SenderIsBot && !m.SenderIsSelf
}

// shouldEngageProactively completes the proactive decision with the count of
// turns since the bot last spoke.
func (p policy) shouldEngageProactively(m *models.Message, primaryResponded bool, sinceLastBotTurn int) bool {
	return p.proactiveCandidate(m, primaryResponded) && sinceLastBotTurn >= p.proactiveThreshold
}

// buildPrompt assembles the primary prompt: the bounded history oldest to
// newest, then the current sender and text.
func buildPrompt(history []string, sender, text string) string {
	var sb strings.Builder
	if len(history) > 0 {
		sb.WriteString(contextHeader)
		sb.WriteString("\n")
		sb.WriteString(strings.Join(history, "\n"))
		sb.WriteString("\n\n")
	}
	sb.WriteString("Current message from ")
	sb.WriteString(sender)
	sb.WriteString(": ")
	sb.WriteString(text)
	return sb.String()
}

// buildProactivePrompt substitutes the joined history block into the
// configured template.
func buildProactivePrompt(template string, history []string) string {
	block := strings.TrimRight(strings.Join(history, "\n"), " \t\n\r")
	return fmt.Sprintf(template, block)
}
