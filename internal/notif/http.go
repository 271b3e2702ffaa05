package notif

import (
	"net/http"

	"freelancehub/internal/common"
	"freelancehub/internal/config"
	"freelancehub/internal/httpx"
	"freelancehub/internal/readstate"

	"github.com/gorilla/mux"
)

// HTTPHandler serves the notification endpoints. Every route expects an identity
// injected by common.AuthMiddleware.
type HTTPHandler struct {
	emitter *Emitter
	tracker *readstate.Tracker
	cfg     config.NotificationConfig
}

func NewHTTPHandler(emitter *Emitter, tracker *readstate.Tracker, cfg *config.Config) *HTTPHandler {
	return &HTTPHandler{emitter: emitter, tracker: tracker, cfg: cfg.Notification}
}

func (h *HTTPHandler) Register(api *mux.Router) {
	api.HandleFunc("/notifications", h.List).Methods(http.MethodGet)
	api.HandleFunc("/notifications", h.DeleteAll).Methods(http.MethodDelete)
	api.HandleFunc("/notifications/unread-count", h.UnreadCount).Methods(http.MethodGet)
	api.HandleFunc("/notifications/read-all", h.MarkAllRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{id}/read", h.MarkRead).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{id}/unread", h.MarkUnread).Methods(http.MethodPut)
	api.HandleFunc("/notifications/{id}", h.Delete).Methods(http.MethodDelete)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(common.RequireRole(common.RoleAdmin))
	admin.HandleFunc("/notifications", h.Create).Methods(http.MethodPost)
	admin.HandleFunc("/announcements", h.Announce).Methods(http.MethodPost)
}

func caller(w http.ResponseWriter, r *http.Request) (*common.Identity, bool) {
	identity, ok := common.IdentityFrom(r.Context())
	if !ok {
		httpx.WriteDomainError(w, r, common.Authf("authorization required"))
	}
	return identity, ok
}

func (h *HTTPHandler) List(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	page := httpx.PageFromQuery(r, h.cfg.DefaultPageSize, h.cfg.MaxPageSize)
	filter := common.NotificationFilter{ReadState: common.ReadState(r.URL.Query().Get("status"))}

	items, total, err := h.emitter.List(r.Context(), identity.UserID, filter, page)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, httpx.NewPaged(items, total, page), http.StatusOK)
}

func (h *HTTPHandler) UnreadCount(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	count, err := h.emitter.UnreadCount(r.Context(), identity.UserID)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, map[string]int64{"count": count}, http.StatusOK)
}

func (h *HTTPHandler) MarkRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	notification, err := h.tracker.MarkNotificationRead(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, notification, http.StatusOK)
}

func (h *HTTPHandler) MarkUnread(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	notification, err := h.tracker.MarkNotificationUnread(r.Context(), identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, notification, http.StatusOK)
}

func (h *HTTPHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.tracker.MarkAllNotificationsRead(r.Context(), identity.UserID); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) Delete(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	if err := h.emitter.Delete(r.Context(), identity.UserID, mux.Vars(r)["id"]); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *HTTPHandler) DeleteAll(w http.ResponseWriter, r *http.Request) {
	identity, ok := caller(w, r)
	if !ok {
		return
	}

	deleted, err := h.emitter.DeleteAll(r.Context(), identity.UserID)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, map[string]int64{"deleted": deleted}, http.StatusOK)
}

type createRequest struct {
	Recipient string                  `json:"recipient"`
	Kind      common.NotificationKind `json:"kind"`
	Message   string                  `json:"message"`
	Refs      common.SubjectRefs      `json:"refs"`
}

func (h *HTTPHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}

	notification, err := h.emitter.Notify(r.Context(), req.Recipient, req.Kind, req.Message, req.Refs)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, notification, http.StatusCreated)
}

type announceRequest struct {
	Message string `json:"message"`
}

func (h *HTTPHandler) Announce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if err := httpx.Decode(r, &req); err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}

	count, err := h.emitter.Announce(r.Context(), req.Message)
	if err != nil {
		httpx.WriteDomainError(w, r, err)
		return
	}
	httpx.WriteJSON(w, map[string]int{"count": count}, http.StatusCreated)
}
