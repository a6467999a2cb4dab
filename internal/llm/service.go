package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
	"go.uber.org/zap"

	"github.com/RichardoC/Pad-i/internal/config"
	"github.com/RichardoC/Pad-i/internal/metrics"
	"github.com/RichardoC/Pad-i/internal/models"
)

const defaultHistoryLimit = 10

// Options tunes the requests sent to the model endpoint.
type Options struct {
	AssistantName    string
	Model            string
	MaxTokens        int
	Temperature      float64
	PresencePenalty  float64
	FrequencyPenalty float64
	HistoryLimit     int
}

func (o Options) withDefaults() Options {
	if o.AssistantName == "" {
		o.AssistantName = "Pad-i"
	}
	if o.MaxTokens <= 0 {
		o.MaxTokens = 1000
	}
	if o.HistoryLimit <= 0 {
		o.HistoryLimit = defaultHistoryLimit
	}
	return o
}

// Service produces assistant replies. Without a model it answers every
// prompt with FallbackResponse.
type Service struct {
	llm     llms.Model
	opts    Options
	logger  *zap.Logger
	metrics *metrics.Metrics
}

// New builds a Service from configuration. A missing or placeholder API key
// leaves the service unconfigured for its whole lifetime.
func New(cfg config.OpenAIConfig, assistantName string, logger *zap.Logger, m *metrics.Metrics) (*Service, error) {
	opts := Options{
		AssistantName:    assistantName,
		Model:            cfg.Model,
		MaxTokens:        cfg.MaxTokens,
		Temperature:      cfg.Temperature,
		PresencePenalty:  cfg.PresencePenalty,
		FrequencyPenalty: cfg.FrequencyPenalty,
		HistoryLimit:     cfg.HistoryLimit,
	}

	if !cfg.Configured() {
		if logger != nil {
			logger.Info("no OpenAI API key configured, running in demo mode")
		}
		return NewWithModel(nil, opts, logger, m), nil
	}

	clientOpts := []openai.Option{
		openai.WithToken(cfg.APIKey),
		openai.WithModel(cfg.Model),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.Timeout}),
	}
	if cfg.BaseURL != "" {
		clientOpts = append(clientOpts, openai.WithBaseURL(cfg.BaseURL))
	}

	model, err := openai.New(clientOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize OpenAI client: %w", err)
	}
	return NewWithModel(model, opts, logger, m), nil
}

// NewWithModel wraps an existing model. A nil model yields an unconfigured
// service.
func NewWithModel(model llms.Model, opts Options, logger *zap.Logger, m *metrics.Metrics) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		llm:     model,
		opts:    opts.withDefaults(),
		logger:  logger.Named("llm"),
		metrics: m,
	}
}

func (s *Service) IsConfigured() bool {
	return s.llm != nil
}

func (s *Service) ModelName() string {
	return s.opts.Model
}

func (s *Service) AssistantName() string {
	return s.opts.AssistantName
}

// Generate answers prompt given the prior turns in history. Only the last
// HistoryLimit entries are sent. Endpoint failures are turned into reply
// text, so the returned error is always nil.
func (s *Service) Generate(ctx context.Context, prompt string, history []models.HistoryEntry) (string, error) {
	if !s.IsConfigured() {
		s.metrics.ObserveResponse(metrics.SourceFallback)
		return FallbackResponse(s.opts.AssistantName, prompt), nil
	}

	messages := s.buildMessages(prompt, history)

	start := time.Now()
	resp, err := s.llm.GenerateContent(ctx, messages,
		llms.WithMaxTokens(s.opts.MaxTokens),
		llms.WithTemperature(s.opts.Temperature),
		llms.WithPresencePenalty(s.opts.PresencePenalty),
		llms.WithFrequencyPenalty(s.opts.FrequencyPenalty),
	)
	s.metrics.ObserveGenerateLatency(time.Since(start).Seconds())

	if err != nil {
		return s.handleError(prompt, err), nil
	}

	// Whitespace-only content counts as no completion.
	if resp == nil || len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Content) == "" {
		s.logger.Warn("model returned no usable completion")
		s.metrics.ObserveResponse(metrics.SourceEmpty)
		return NoResponseMessage, nil
	}

	s.metrics.ObserveResponse(metrics.SourceModel)
	return resp.Choices[0].Content, nil
}

func (s *Service) handleError(prompt string, err error) string {
	if errors.Is(err, openai.ErrEmptyResponse) {
		s.logger.Warn("model returned no choices", zap.Error(err))
		s.metrics.ObserveResponse(metrics.SourceEmpty)
		return NoResponseMessage
	}

	err = asAPIError(err)
	kind := ClassifyError(err)
	fields := []zap.Field{zap.Error(err), zap.Stringer("kind", kind)}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		fields = append(fields, zap.Int("status", apiErr.Status))
	}
	s.logger.Error("model endpoint call failed", fields...)

	switch kind {
	case KindCredential:
		s.metrics.ObserveResponse(metrics.SourceCredential)
	case KindQuota:
		s.metrics.ObserveResponse(metrics.SourceQuota)
	case KindRateLimit:
		s.metrics.ObserveResponse(metrics.SourceRateLimited)
	default:
		s.metrics.ObserveResponse(metrics.SourceFallback)
		return FallbackResponse(s.opts.AssistantName, prompt)
	}
	return kind.Guidance()
}

func (s *Service) buildMessages(prompt string, history []models.HistoryEntry) []llms.MessageContent {
	if len(history) > s.opts.HistoryLimit {
		history = history[len(history)-s.opts.HistoryLimit:]
	}

	messages := make([]llms.MessageContent, 0, len(history)+2)
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt(s.opts.AssistantName)))
	for _, h := range history {
		messages = append(messages, llms.TextParts(messageType(h.Role), h.Content))
	}
	messages = append(messages, llms.TextParts(schema.ChatMessageTypeHuman, prompt))
	return messages
}

func messageType(role models.Role) schema.ChatMessageType {
	switch role {
	case models.RoleAssistant:
		return schema.ChatMessageTypeAI
	case models.RoleSystem:
		return schema.ChatMessageTypeSystem
	default:
		return schema.ChatMessageTypeHuman
	}
}

func systemPrompt(assistant string) string {
	return fmt.Sprintf(`You are %s, an advanced AI assistant created to help users with a wide variety of tasks. You are intelligent, helpful, creative, and engaging. You can assist with:

- Programming and software development
- Creative writing and content creation
- Data analysis and research
- Problem-solving and critical thinking
- Educational explanations
- Technical documentation
- And much more

Always be professional, accurate, and helpful. Provide detailed explanations when appropriate, and ask clarifying questions if needed. Your responses should be well-structured and easy to understand.`, assistant)
}
