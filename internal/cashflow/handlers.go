package cashflow

import (
	"errors"
	"net/http"
	"strconv"

	"controlcenter/internal/choices"
	"controlcenter/internal/export"
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
	mux.HandleFunc("GET /api/cashflow", h.list)
	mux.HandleFunc("POST /api/cashflow", h.create)
	mux.HandleFunc("GET /api/cashflow/summary", h.summary)
	mux.HandleFunc("GET /api/cashflow/export.csv", h.exportCSV)
	mux.HandleFunc("GET /api/cashflow/{id}", h.get)
	mux.HandleFunc("PUT /api/cashflow/{id}", h.update)
	mux.HandleFunc("DELETE /api/cashflow/{id}", h.delete)
	mux.HandleFunc("POST /api/cashflow/{id}/confirm", h.confirm)
	mux.HandleFunc("POST /api/cashflow/{id}/recur", h.recur)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "cashflow entry not found")
		return
	}
	h.log.Error("cashflow handler error", logx.Err(err))
	server.Internal(w)
}

func (h *Handler) filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{
		Type:     EntryType(q.Get("entry_type")),
		Category: q.Get("category"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	}
	switch q.Get("projected") {
	case "true":
		t := true
		f.Projected = &t
	case "false":
		fa := false
		f.Projected = &fa
	}
	return f
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context(), h.filterFromQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if entries == nil {
		entries = []*Entry{}
	}
	server.JSON(w, http.StatusOK, entries)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Entry, bool) {
	var e Entry
	if err := server.Decode(r, &e); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if e.Category != "" && !h.choices.ValidValue(r.Context(), choices.CategoryCashflowCategory, e.Category) {
		server.Error(w, http.StatusBadRequest, "unknown category")
		return nil, false
	}
	return &e, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Create(r.Context(), e); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, e)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, e)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, ok := h.decode(w, r)
	if !ok {
		return
	}
	e.ID = id
	if err := h.store.Update(r.Context(), e); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, e)
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

func (h *Handler) confirm(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.store.Confirm(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, e)
}

func (h *Handler) recur(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	e, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	next, err := h.store.Recur(r.Context(), e)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, next)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sum, err := h.store.Summarize(r.Context(), q.Get("date_from"), q.Get("date_to"))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, sum)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	entries, err := h.store.List(r.Context(), h.filterFromQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	header := []string{"id", "date", "description", "entry_type", "category", "amount", "projected", "recurring"}
	records := make([][]string, 0, len(entries))
	for _, e := range entries {
		records = append(records, []string{
			strconv.FormatInt(e.ID, 10), e.Date, e.Description, string(e.Type),
			e.Category, e.Amount.String(),
			strconv.FormatBool(e.IsProjected), strconv.FormatBool(e.IsRecurring),
		})
	}
	if err := export.CSV(w, "cashflow.csv", header, records); err != nil {
		h.log.Error("cashflow export failed", logx.Err(err))
	}
}
