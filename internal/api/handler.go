package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/RichardoC/Pad-i/internal/chat"
	"github.com/RichardoC/Pad-i/internal/db"
	"github.com/RichardoC/Pad-i/internal/models"
)

// Status reports whether replies come from the model endpoint.
type Status interface {
	IsConfigured() bool
	ModelName() string
}

type Handler struct {
	store  *chat.Store
	status Status
	logger *zap.Logger

	// submitMu makes the busy check and the submission one step.
	submitMu sync.Mutex
}

func NewHandler(store *chat.Store, status Status, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		store:  store,
		status: status,
		logger: logger.Named("api"),
	}
}

type MessageRequest struct {
	Content string `json:"content"`
}

type MessageResponse struct {
	Message      models.Message       `json:"message"`
	Conversation *models.Conversation `json:"conversation"`
}

type StatusResponse struct {
	Configured bool   `json:"configured"`
	Mode       string `json:"mode"`
	Model      string `json:"model,omitempty"`
}

// Routes mounts the JSON API on r.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/healthz", h.Health)
	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoCache)
		r.Get("/state", h.GetState)
		r.Get("/status", h.GetStatus)
		r.Get("/conversations/active", h.GetActiveConversation)
		r.Post("/conversations", h.CreateConversation)
		r.Put("/conversations/{conversationID}/active", h.SelectConversation)
		r.Delete("/conversations/{conversationID}", h.DeleteConversation)
		r.Post("/messages", h.HandleMessage)
	})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) GetState(w http.ResponseWriter, r *http.Request) {
	state, err := h.store.State(r.Context())
	if err != nil {
		h.logger.Error("Failed to read state", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	resp := StatusResponse{Mode: "demo"}
	if h.status != nil && h.status.IsConfigured() {
		resp.Configured = true
		resp.Mode = "connected"
		resp.Model = h.status.ModelName()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) GetActiveConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.store.ActiveConversation(r.Context())
	if err != nil {
		h.logger.Error("Failed to get active conversation", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, conv)
}

func (h *Handler) CreateConversation(w http.ResponseWriter, r *http.Request) {
	conv, err := h.store.CreateConversation(r.Context())
	if err != nil {
		h.logger.Error("Failed to create conversation", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, conv)
}

func (h *Handler) SelectConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	if err := h.store.SelectConversation(r.Context(), id); err != nil {
		h.logger.Error("Failed to select conversation", zap.Error(err), zap.String("conversation_id", id))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.GetState(w, r)
}

func (h *Handler) DeleteConversation(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "conversationID"))
	if err := h.store.DeleteConversation(r.Context(), id); err != nil {
		h.logger.Error("Failed to delete conversation", zap.Error(err), zap.String("conversation_id", id))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	h.GetState(w, r)
}

// HandleMessage submits a message to the active conversation and answers
// once the assistant reply has been stored.
func (h *Handler) HandleMessage(w http.ResponseWriter, r *http.Request) {
	var req MessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	content := strings.TrimSpace(req.Content)
	if content == "" {
		http.Error(w, "Message content is required", http.StatusBadRequest)
		return
	}

	h.submitMu.Lock()
	if h.store.IsLoading() {
		h.submitMu.Unlock()
		http.Error(w, "A reply is already being generated", http.StatusConflict)
		return
	}
	pending, err := h.store.Submit(r.Context(), content)
	h.submitMu.Unlock()
	if err != nil {
		h.logger.Error("Failed to submit message", zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	reply, err := pending.Wait(r.Context())
	switch {
	case errors.Is(err, db.ErrNotFound):
		http.Error(w, "Conversation was deleted before the reply arrived", http.StatusGone)
		return
	case err != nil:
		// Client went away; the reply still lands in the conversation.
		h.logger.Debug("Stopped waiting for reply",
			zap.Error(err),
			zap.String("conversation_id", pending.ConversationID))
		return
	}

	conv, err := h.store.Conversation(r.Context(), pending.ConversationID)
	if err != nil {
		h.logger.Error("Failed to load conversation", zap.Error(err), zap.String("conversation_id", pending.ConversationID))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.logger.Debug("Reply delivered",
		zap.String("conversation_id", pending.ConversationID),
		zap.String("message_id", reply.ID))
	writeJSON(w, http.StatusOK, MessageResponse{Message: reply, Conversation: conv})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
