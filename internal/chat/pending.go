package chat

import (
	"context"

	"github.com/RichardoC/Pad-i/internal/models"
)

// Pending tracks one submitted message until its reply has been applied.
type Pending struct {
	ConversationID string
	UserMessage    models.Message

	done  chan struct{}
	reply models.Message
	err   error
}

// Done is closed once the reply (or the error reply) has been stored and
// the store is no longer busy.
func (p *Pending) Done() <-chan struct{} {
	return p.done
}

// Wait blocks until the reply is stored or ctx ends. It returns an error
// only when the reply could not be stored, e.g. because the conversation
// was deleted in the meantime. Giving up on ctx does not cancel generation.
func (p *Pending) Wait(ctx context.Context) (models.Message, error) {
	select {
	case <-p.done:
		return p.reply, p.err
	case <-ctx.Done():
		return models.Message{}, ctx.Err()
	}
}
