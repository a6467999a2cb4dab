package chat

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/RichardoC/Pad-i/internal/db"
	"github.com/RichardoC/Pad-i/internal/metrics"
	"github.com/RichardoC/Pad-i/internal/models"
)

// ErrorReply is appended in place of an assistant reply when generation fails.
const ErrorReply = "I apologize, but I encountered an error while processing your request. Please try again or check your API configuration."

var ErrEmptyMessage = errors.New("message content is empty")

// Responder produces the assistant reply for a prompt. history holds the
// conversation's earlier turns and never includes prompt itself.
type Responder interface {
	Generate(ctx context.Context, prompt string, history []models.HistoryEntry) (string, error)
}

type Option func(*Store)

// WithWelcome seeds the session with a titled conversation holding one
// assistant greeting, instead of an empty one.
func WithWelcome(title, greeting string) Option {
	return func(s *Store) {
		s.welcomeTitle = title
		s.welcomeGreeting = greeting
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// Store owns the conversation set of one session: the conversations, which
// one is active, and whether a reply is outstanding. Every state transition
// happens under a single mutex. The set is never empty and the active ID
// always names one of its members.
type Store struct {
	mu        sync.Mutex
	repo      db.Repository
	responder Responder
	logger    *zap.Logger
	metrics   *metrics.Metrics
	now       func() time.Time

	welcomeTitle    string
	welcomeGreeting string

	activeID string
	busy     bool
}

// State is a consistent snapshot of what the UI renders.
type State struct {
	Conversations        []*models.ConversationSummary `json:"conversations"`
	ActiveConversationID string                        `json:"active_conversation_id"`
	IsLoading            bool                          `json:"is_loading"`
}

func New(ctx context.Context, repo db.Repository, responder Responder, logger *zap.Logger, opts ...Option) (*Store, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		repo:      repo,
		responder: responder,
		logger:    logger.Named("chat"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := repo.ListConversations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	if len(existing) > 0 {
		s.activeID = existing[0].ID
		s.metrics.SetConversations(len(existing))
		return s, nil
	}

	var conv *models.Conversation
	if s.welcomeTitle != "" {
		conv, err = s.insertConversation(ctx, s.welcomeTitle, s.welcomeGreeting)
	} else {
		conv, err = s.insertConversation(ctx, models.DefaultTitle, "")
	}
	if err != nil {
		return nil, err
	}
	s.activeID = conv.ID
	s.metrics.SetConversations(1)
	return s, nil
}

func (s *Store) Conversations(ctx context.Context) ([]*models.ConversationSummary, error) {
	return s.repo.ListConversations(ctx)
}

func (s *Store) ActiveConversation(ctx context.Context) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.repo.GetConversation(ctx, s.activeID)
}

// Conversation returns id with its messages, or db.ErrNotFound.
func (s *Store) Conversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.repo.GetConversation(ctx, id)
}

func (s *Store) ActiveConversationID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.activeID
}

func (s *Store) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.busy
}

func (s *Store) State(ctx context.Context) (*State, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conversations, err := s.repo.ListConversations(ctx)
	if err != nil {
		return nil, err
	}
	return &State{
		Conversations:        conversations,
		ActiveConversationID: s.activeID,
		IsLoading:            s.busy,
	}, nil
}

// CreateConversation adds an empty conversation at the front of the set and
// makes it active.
func (s *Store) CreateConversation(ctx context.Context) (*models.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.insertConversation(ctx, models.DefaultTitle, "")
	if err != nil {
		return nil, err
	}
	s.activeID = conv.ID
	s.observeCount(ctx)

	s.logger.Debug("conversation created", zap.String("conversation_id", conv.ID))
	return conv, nil
}

// SelectConversation makes id active. Unknown IDs are ignored.
func (s *Store) SelectConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.repo.GetConversation(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Debug("ignoring selection of unknown conversation", zap.String("conversation_id", id))
			return nil
		}
		return err
	}
	s.activeID = id
	return nil
}

// DeleteConversation removes id. Deleting the last conversation replaces it
// with a fresh empty one; deleting the active one activates the first
// remaining conversation. Unknown IDs are ignored.
func (s *Store) DeleteConversation(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.repo.DeleteConversation(ctx, id); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete conversation: %w", err)
	}
	s.logger.Debug("conversation deleted", zap.String("conversation_id", id))

	remaining, err := s.repo.ListConversations(ctx)
	if err != nil {
		return fmt.Errorf("failed to list conversations: %w", err)
	}

	switch {
	case len(remaining) == 0:
		conv, err := s.insertConversation(ctx, models.DefaultTitle, "")
		if err != nil {
			return err
		}
		s.activeID = conv.ID
	case id == s.activeID:
		s.activeID = remaining[0].ID
	}
	s.observeCount(ctx)
	return nil
}

// Submit appends text as a user message to the active conversation, marks
// the store busy and asks the responder for a reply in the background. The
// user message is stored before Submit returns. The reply lands in the
// conversation that was active at submission even if another one has been
// selected since.
//
// Submit does not guard against overlapping submissions; callers check
// IsLoading first.
func (s *Store) Submit(ctx context.Context, text string) (*Pending, error) {
	if text == "" {
		return nil, ErrEmptyMessage
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.repo.GetConversation(ctx, s.activeID)
	if err != nil {
		return nil, fmt.Errorf("failed to load active conversation: %w", err)
	}
	history := models.History(conv.Messages)

	userMsg := s.newMessage(conv.ID, models.RoleUser, text)
	if err := s.repo.SaveMessage(ctx, &userMsg); err != nil {
		return nil, fmt.Errorf("failed to save user message: %w", err)
	}
	s.busy = true

	p := &Pending{
		ConversationID: conv.ID,
		UserMessage:    userMsg,
		done:           make(chan struct{}),
	}
	go s.resolve(context.WithoutCancel(ctx), p, text, history)

	s.logger.Debug("user message recorded",
		zap.String("conversation_id", conv.ID),
		zap.String("message_id", userMsg.ID),
		zap.Int("history", len(history)))
	return p, nil
}

// Send submits text and waits for the reply.
func (s *Store) Send(ctx context.Context, text string) (models.Message, error) {
	p, err := s.Submit(ctx, text)
	if err != nil {
		return models.Message{}, err
	}
	return p.Wait(ctx)
}

func (s *Store) resolve(ctx context.Context, p *Pending, prompt string, history []models.HistoryEntry) {
	defer close(p.done)

	reply, genErr := s.generate(ctx, prompt, history)
	if genErr != nil {
		s.logger.Error("error generating response",
			zap.Error(genErr),
			zap.String("conversation_id", p.ConversationID))
		reply = ErrorReply
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	defer func() { s.busy = false }()

	p.reply, p.err = s.appendReply(ctx, p.ConversationID, prompt, reply, genErr == nil)
	switch {
	case p.err != nil:
		s.metrics.ObserveSubmission(metrics.OutcomeDropped)
	case genErr != nil:
		s.metrics.ObserveSubmission(metrics.OutcomeError)
	default:
		s.metrics.ObserveSubmission(metrics.OutcomeReply)
	}
}

func (s *Store) generate(ctx context.Context, prompt string, history []models.HistoryEntry) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("responder panicked: %v", r)
		}
	}()
	return s.responder.Generate(ctx, prompt, history)
}

// appendReply stores the assistant message. On a successful first exchange
// the conversation is titled after the prompt.
func (s *Store) appendReply(ctx context.Context, convID, prompt, content string, succeeded bool) (models.Message, error) {
	conv, err := s.repo.GetConversation(ctx, convID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			s.logger.Warn("conversation deleted before reply arrived, dropping reply",
				zap.String("conversation_id", convID))
		}
		return models.Message{}, err
	}

	msg := s.newMessage(convID, models.RoleAssistant, content)
	if err := s.repo.SaveMessage(ctx, &msg); err != nil {
		s.logger.Error("failed to save reply", zap.Error(err), zap.String("conversation_id", convID))
		return models.Message{}, err
	}

	if succeeded && len(conv.Messages) == 1 {
		if err := s.repo.UpdateConversationTitle(ctx, convID, models.TitleFrom(prompt)); err != nil {
			s.logger.Error("failed to set conversation title", zap.Error(err), zap.String("conversation_id", convID))
		}
	}
	return msg, nil
}

func (s *Store) insertConversation(ctx context.Context, title, greeting string) (*models.Conversation, error) {
	conv := &models.Conversation{
		ID:        uuid.NewString(),
		Title:     title,
		Messages:  []models.Message{},
		CreatedAt: s.now(),
	}
	if greeting != "" {
		conv.Messages = []models.Message{s.newMessage(conv.ID, models.RoleAssistant, greeting)}
		conv.MessageCount = 1
	}
	if err := s.repo.CreateConversation(ctx, conv); err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	return conv, nil
}

func (s *Store) newMessage(convID string, role models.Role, content string) models.Message {
	return models.Message{
		ID:        uuid.NewString(),
		ConvID:    convID,
		Role:      role,
		Content:   content,
		CreatedAt: s.now(),
	}
}

func (s *Store) observeCount(ctx context.Context) {
	if s.metrics == nil {
		return
	}
	if list, err := s.repo.ListConversations(ctx); err == nil {
		s.metrics.SetConversations(len(list))
	}
}
