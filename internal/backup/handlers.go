package backup

import (
	"errors"
	"net/http"

	"controlcenter/internal/server"
	logx "controlcenter/pkg/logx"
)

type Handler struct {
	svc *Service
	log logx.Logger
}

func NewHandler(svc *Service, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{svc: svc, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/backups", h.list)
	mux.HandleFunc("POST /api/backups", h.create)
	mux.HandleFunc("POST /api/backups/prune", h.prune)
	mux.HandleFunc("POST /api/backups/restore", h.restore)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "backup archive not found")
		return
	}
	h.log.Error("backup handler error", logx.Err(err))
	server.Internal(w)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	archives, err := h.svc.List()
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, archives)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	a, err := h.svc.Create(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusCreated, a)
}

// restore extracts an archive's database next to the live one; swapping it
// in is a manual step with the application stopped.
func (h *Handler) restore(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
		Dest string `json:"dest"`
	}
	if err := server.Decode(r, &req); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Name == "" || req.Dest == "" {
		server.Error(w, http.StatusBadRequest, "name and dest are required")
		return
	}
	if err := h.svc.Restore(req.Name, req.Dest); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, map[string]string{"restored_to": req.Dest})
}

func (h *Handler) prune(w http.ResponseWriter, r *http.Request) {
	removed, err := h.svc.Prune()
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]int{"removed": removed})
}
