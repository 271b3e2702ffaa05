// Package handler serves the direct-message HTTP endpoints.
package handler

import (
	"net/http"

	"freelancehub/internal/chat/ratelimit"
	"freelancehub/internal/chat/service"
	"freelancehub/internal/common"
	"freelancehub/internal/config"
	"freelancehub/internal/httpx"
	"freelancehub/internal/metrics"

	"github.com/gorilla/mux"
)

type ChatHandler struct {
	chatService service.ChatService
	limiter     ratelimit.Allower
	metrics     *metrics.Metrics
	cfg         config.NotificationConfig
}

// NewChatHandler builds the handler. A nil limiter leaves sends unlimited.
func NewChatHandler(chatService service.ChatService, limiter ratelimit.Allower, m *metrics.Metrics, cfg *config.Config) *ChatHandler {
	return &ChatHandler{
		chatService: chatService,
		limiter:     limiter,
		metrics:     m,
		cfg:         cfg.Notification,
	}
}

// Register mounts the routes on api, which must already carry common.AuthMiddleware.
func (h *ChatHandler) Register(api *mux.Router) {
	var send http.Handler = http.HandlerFunc(h.SendMessage)
	if h.limiter != nil {
		send = ratelimit.Middleware(h.limiter, h.metrics)(send)
	}
	api.Handle("/messages", send).Methods(http.MethodPost)
	api.HandleFunc("/messages/conversations", h.GetConversations).Methods(http.MethodGet)
	api.HandleFunc("/messages/conversations/{id}", h.GetConversation).Methods(http.MethodGet)
	api.HandleFunc("/messages/{id}/read", h.MarkRead).Methods(http.MethodPut, http.MethodPatch)
	api.HandleFunc("/messages/{id}", h.DeleteMessage).Methods(http.MethodDelete)
}

func caller(w http.ResponseWriter, r *http.Request) (*common.Identity, bool) {
	identity, ok := common.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteDomainError(w, r, common.Authf("authorization required"))
	}
	return identity, ok
}

type sendRequest struct {
	RecipientID    string `json:"recipient_id"`
	Content        string `json:"content"`
	ConversationID string `json:"conversation_id,omitempty"`
}

func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	var req sendRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}

	msg, err := h.chatService.Send(r.Context(), identity.UserID, req.RecipientID, req.Content, req.ConversationID)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, msg, http.StatusCreated)
}

func (h *ChatHandler) GetConversation(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	page := httpx.PageFromQuery(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	msgs, total, err := h.chatService.FetchConversation(r.Context(), identity.UserID, mux.Vars(r)["id"], page)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, httpx.NewPaged(msgs, total, page), http.StatusOK)
}

func (h *ChatHandler) GetConversations(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	page := httpx.PageFromQuery(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	convs, total, err := h.chatService.ListConversations(r.Context(), identity.UserID, page)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, httpx.NewPaged(convs, total, page), http.StatusOK)
}

func (h *ChatHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	msg, err := h.chatService.MarkMessageRead(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, msg, http.StatusOK)
}

func (h *ChatHandler) DeleteMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(r.Context(), identity.UserID, mux.Vars(r)["id"]); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
