package models

import "time"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// DefaultTitle is the placeholder title of a conversation that has not yet
// received its first assistant reply.
const DefaultTitle = "New Chat"

const maxTitleLen = 50

type Message struct {
	ID        string    `json:"id"`
	ConvID    string    `json:"conversation_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is one thread with its full transcript. Messages is never
// nil once loaded, so it always encodes as a JSON array.
type Conversation struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Messages     []Message `json:"messages"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

// ConversationSummary is a sidebar entry: a conversation without its messages.
type ConversationSummary struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	MessageCount int       `json:"message_count"`
	CreatedAt    time.Time `json:"created_at"`
}

func (c *Conversation) Summary() *ConversationSummary {
	return &ConversationSummary{
		ID:           c.ID,
		Title:        c.Title,
		MessageCount: len(c.Messages),
		CreatedAt:    c.CreatedAt,
	}
}

// HistoryEntry is one prior turn handed to the response provider.
type HistoryEntry struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History maps messages to role/content pairs, oldest first.
func History(messages []Message) []HistoryEntry {
	history := make([]HistoryEntry, 0, len(messages))
	for _, m := range messages {
		history = append(history, HistoryEntry{Role: m.Role, Content: m.Content})
	}
	return history
}

// TitleFrom derives a conversation title from the user text that opened it:
// the first 50 characters, with "..." appended when anything was cut.
func TitleFrom(text string) string {
	runes := []rune(text)
	if len(runes) <= maxTitleLen {
		return text
	}
	return string(runes[:maxTitleLen]) + "..."
}
