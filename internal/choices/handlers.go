package choices

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
	mux.HandleFunc("GET /api/choices", h.all)
	mux.HandleFunc("GET /api/choices/{category}", h.byCategory)
	mux.HandleFunc("POST /api/choices/{category}", h.add)
	mux.HandleFunc("PUT /api/choices/options/{id}", h.rename)
	mux.HandleFunc("DELETE /api/choices/options/{id}", h.deactivate)
	mux.HandleFunc("POST /api/choices/options/{id}/restore", h.reactivate)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "choice option not found")
		return
	}
	h.log.Error("choices handler error", logx.Err(err))
	server.Internal(w)
}

func (h *Handler) all(w http.ResponseWriter, r *http.Request) {
	opts, err := h.svc.All(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, opts)
}

func (h *Handler) byCategory(w http.ResponseWriter, r *http.Request) {
	cat := r.PathValue("category")
	if !ValidCategory(cat) {
		server.Error(w, http.StatusNotFound, "unknown category")
		return
	}
	opts, err := h.svc.Options(r.Context(), cat)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, opts)
}

func (h *Handler) add(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Value string `json:"value"`
		Label string `json:"label"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	opt, err := h.svc.Add(r.Context(), r.PathValue("category"), body.Value, body.Label)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, opt)
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Label string `json:"label"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Rename(r.Context(), id, body.Label); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Deactivate(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) reactivate(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Reactivate(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"restored": true})
}
