package notify

import (
	"errors"
	"net/http"
	"strconv"

	"controlcenter/internal/server"
	logx "controlcenter/pkg/logx"
)

type Handler struct {
	store *Store
	log   logx.Logger
}

func NewHandler(store *Store, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{store: store, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/notifications", h.list)
	mux.HandleFunc("GET /api/notifications/unread-count", h.unreadCount)
	mux.HandleFunc("POST /api/notifications/mark-all-read", h.markAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", h.markRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", h.delete)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "notification not found")
		return
	}
	h.log.Error("notification handler error", logx.Err(err))
	server.Internal(w)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	unread := q.Get("unread") == "true"
	limit := 100
	if v, err := strconv.Atoi(q.Get("limit")); err == nil && v > 0 {
		limit = v
	}
	notifications, err := h.store.List(r.Context(), unread, limit)
	if err != nil {
		h.fail(w, err)
		return
	}
	if notifications == nil {
		notifications = []*Notification{}
	}
	server.JSON(w, http.StatusOK, notifications)
}

func (h *Handler) unreadCount(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.UnreadCount(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]int{"count": n})
}

func (h *Handler) markRead(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.MarkRead(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"read": true})
}

func (h *Handler) markAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := h.store.MarkAllRead(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]int64{"marked": n})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
