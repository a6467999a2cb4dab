package db

import (
	"context"
	"sync"

	"github.com/RichardoC/Pad-i/internal/models"
)

// Memory is a Repository backed by plain Go slices.
type Memory struct {
	mu            sync.RWMutex
	conversations []*models.Conversation // newest first
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	stored := *conv
	stored.Messages = append(make([]models.Message, 0, len(conv.Messages)), conv.Messages...)
	stored.MessageCount = len(stored.Messages)
	m.conversations = append([]*models.Conversation{&stored}, m.conversations...)
	return nil
}

func (m *Memory) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	conv, _ := m.find(id)
	if conv == nil {
		return nil, ErrNotFound
	}
	out := *conv
	out.Messages = append(make([]models.Message, 0, len(conv.Messages)), conv.Messages...)
	return &out, nil
}

func (m *Memory) ListConversations(_ context.Context) ([]*models.ConversationSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.ConversationSummary, 0, len(m.conversations))
	for _, conv := range m.conversations {
		out = append(out, conv.Summary())
	}
	return out, nil
}

func (m *Memory) DeleteConversation(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, idx := m.find(id)
	if idx < 0 {
		return ErrNotFound
	}
	m.conversations = append(m.conversations[:idx], m.conversations[idx+1:]...)
	return nil
}

func (m *Memory) UpdateConversationTitle(_ context.Context, id, title string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, _ := m.find(id)
	if conv == nil {
		return ErrNotFound
	}
	conv.Title = title
	return nil
}

func (m *Memory) SaveMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	conv, _ := m.find(msg.ConvID)
	if conv == nil {
		return ErrNotFound
	}
	conv.Messages = append(conv.Messages, *msg)
	conv.MessageCount = len(conv.Messages)
	return nil
}

func (m *Memory) Close() error {
	return nil
}

func (m *Memory) find(id string) (*models.Conversation, int) {
	for i, conv := range m.conversations {
		if conv.ID == id {
			return conv, i
		}
	}
	return nil, -1
}
