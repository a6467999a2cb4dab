package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/RichardoC/Pad-i/internal/models"
)

var ErrNotFound = errors.New("not found")

// Repository holds the conversation set for the lifetime of the process.
// ListConversations returns summaries, the most recently created
// conversation first; GetConversation returns messages oldest first and
// never a nil Messages slice.
type Repository interface {
	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	ListConversations(ctx context.Context) ([]*models.ConversationSummary, error)
	DeleteConversation(ctx context.Context, id string) error
	UpdateConversationTitle(ctx context.Context, id, title string) error
	SaveMessage(ctx context.Context, msg *models.Message) error
	Close() error
}

const (
	BackendMemory = "memory"
	BackendSQLite = "sqlite"
)

// Open returns the repository for the named backend.
func Open(backend string) (Repository, error) {
	switch backend {
	case "", BackendMemory:
		return NewMemory(), nil
	case BackendSQLite:
		return New()
	default:
		return nil, fmt.Errorf("unknown storage backend %q", backend)
	}
}
