package legal

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"controlcenter/internal/choices"
	"controlcenter/internal/server"
	logx "controlcenter/pkg/logx"
)

type Handler struct {
	store   *Store
	choices *choices.Service
	log     logx.Logger
}

func NewHandler(store *Store, ch *choices.Service, log logx.Logger) *Handler {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Handler{store: store, choices: ch, log: log}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/legal-matters", h.list)
	mux.HandleFunc("POST /api/legal-matters", h.create)
	mux.HandleFunc("GET /api/legal-matters/{id}", h.get)
	mux.HandleFunc("PUT /api/legal-matters/{id}", h.update)
	mux.HandleFunc("DELETE /api/legal-matters/{id}", h.delete)
	mux.HandleFunc("GET /api/legal-matters/{id}/parties", h.parties)
	mux.HandleFunc("PUT /api/legal-matters/{id}/parties", h.setParty)
	mux.HandleFunc("DELETE /api/legal-matters/{id}/parties/{sid}", h.removeParty)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "legal matter not found")
		return
	}
	h.log.Error("legal handler error", logx.Err(err))
	server.Internal(w)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Query: q.Get("q"), MatterType: q.Get("matter_type")}
	for _, st := range strings.Split(q.Get("status"), ",") {
		if st = strings.TrimSpace(st); st != "" {
			f.Statuses = append(f.Statuses, Status(st))
		}
	}
	matters, err := h.store.List(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	if matters == nil {
		matters = []*Matter{}
	}
	server.JSON(w, http.StatusOK, matters)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Matter, bool) {
	var m Matter
	if err := server.Decode(r, &m); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if m.MatterType != "" && !h.choices.ValidValue(r.Context(), choices.CategoryMatterType, m.MatterType) {
		server.Error(w, http.StatusBadRequest, "unknown matter_type")
		return nil, false
	}
	return &m, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	m, ok := h.decode(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Create(r.Context(), m); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, m)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	m, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, m)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	m, ok := h.decode(w, r)
	if !ok {
		return
	}
	m.ID = id
	if err := h.store.Update(r.Context(), m); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, m)
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

func (h *Handler) parties(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	parties, err := h.store.Parties(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if parties == nil {
		parties = []*Party{}
	}
	server.JSON(w, http.StatusOK, parties)
}

func (h *Handler) setParty(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p Party
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if p.StakeholderID == 0 {
		server.Error(w, http.StatusBadRequest, "stakeholder_id is required")
		return
	}
	p.MatterID = id
	if err := h.store.SetParty(r.Context(), &p); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, p)
}

func (h *Handler) removeParty(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sid, err := strconv.ParseInt(r.PathValue("sid"), 10, 64)
	if err != nil || sid <= 0 {
		server.Error(w, http.StatusBadRequest, "invalid stakeholder id")
		return
	}
	if err := h.store.RemoveParty(r.Context(), id, sid); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
