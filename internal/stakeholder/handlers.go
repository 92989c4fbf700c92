package stakeholder

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

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
	mux.HandleFunc("GET /api/stakeholders", h.list)
	mux.HandleFunc("POST /api/stakeholders", h.create)
	mux.HandleFunc("GET /api/stakeholders/tabs", h.tabs)
	mux.HandleFunc("POST /api/stakeholders/tabs", h.saveTab)
	mux.HandleFunc("DELETE /api/stakeholders/tabs/{id}", h.deleteTab)
	mux.HandleFunc("GET /api/stakeholders/{id}", h.get)
	mux.HandleFunc("PUT /api/stakeholders/{id}", h.update)
	mux.HandleFunc("DELETE /api/stakeholders/{id}", h.delete)
	mux.HandleFunc("GET /api/stakeholders/{id}/relationships", h.relationships)
	mux.HandleFunc("POST /api/stakeholders/{id}/relationships", h.addRelationship)
	mux.HandleFunc("DELETE /api/relationships/{id}", h.deleteRelationship)
	mux.HandleFunc("GET /api/stakeholders/{id}/contact-logs", h.contactLogs)
	mux.HandleFunc("POST /api/stakeholders/{id}/contact-logs", h.addContactLog)
	mux.HandleFunc("DELETE /api/contact-logs/{id}", h.deleteContactLog)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "not found")
		return
	}
	h.log.Error("stakeholder handler error", logx.Err(err))
	server.Internal(w)
}

type payload struct {
	Name         string `json:"name"`
	EntityType   string `json:"entity_type"`
	Email        string `json:"email"`
	Phone        string `json:"phone"`
	Organization string `json:"organization"`
	TrustRating  *int   `json:"trust_rating"`
	RiskRating   *int   `json:"risk_rating"`
	ParentID     *int64 `json:"parent_id"`
	NotesText    string `json:"notes_text"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Stakeholder, bool) {
	var p payload
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if p.EntityType != "" && !h.choices.ValidValue(r.Context(), choices.CategoryEntityType, p.EntityType) {
		server.Error(w, http.StatusBadRequest, "unknown entity_type")
		return nil, false
	}
	return &Stakeholder{
		Name:         strings.TrimSpace(p.Name),
		EntityType:   p.EntityType,
		Email:        p.Email,
		Phone:        p.Phone,
		Organization: p.Organization,
		TrustRating:  p.TrustRating,
		RiskRating:   p.RiskRating,
		ParentID:     p.ParentID,
		NotesText:    p.NotesText,
	}, true
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{Query: q.Get("q")}
	for _, et := range strings.Split(q.Get("entity_type"), ",") {
		if et = strings.TrimSpace(et); et != "" {
			f.EntityTypes = append(f.EntityTypes, et)
		}
	}
	if v, err := strconv.Atoi(q.Get("min_trust")); err == nil {
		f.MinTrust = v
	}
	if v, err := strconv.Atoi(q.Get("max_risk")); err == nil {
		f.MaxRisk = v
	}
	out, err := h.store.List(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	if out == nil {
		out = []*Stakeholder{}
	}
	server.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	sh, ok := h.decode(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Create(r.Context(), sh); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	created, err := h.store.Get(r.Context(), sh.ID)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusCreated, created)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sh, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, sh)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	sh, ok := h.decode(w, r)
	if !ok {
		return
	}
	sh.ID = id
	if err := h.store.Update(r.Context(), sh); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	updated, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, updated)
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

func (h *Handler) relationships(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	rels, err := h.store.Relationships(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if rels == nil {
		rels = []*Relationship{}
	}
	server.JSON(w, http.StatusOK, rels)
}

func (h *Handler) addRelationship(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		ToID        int64  `json:"to_id"`
		Type        string `json:"relationship_type"`
		Description string `json:"description"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	rel := &Relationship{FromID: &id, ToID: &body.ToID, Type: body.Type, Description: body.Description}
	if _, err := h.store.AddRelationship(r.Context(), rel); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, rel)
}

func (h *Handler) deleteRelationship(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteRelationship(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) contactLogs(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	logs, err := h.store.ContactLogs(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if logs == nil {
		logs = []*ContactLog{}
	}
	server.JSON(w, http.StatusOK, logs)
}

func (h *Handler) addContactLog(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		At             *time.Time `json:"at"`
		Method         string     `json:"method"`
		Summary        string     `json:"summary"`
		FollowUpNeeded bool       `json:"follow_up_needed"`
		FollowUpDate   string     `json:"follow_up_date"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if body.Method != "" && !h.choices.ValidValue(r.Context(), choices.CategoryContactMethod, body.Method) {
		server.Error(w, http.StatusBadRequest, "unknown contact method")
		return
	}
	cl := &ContactLog{
		StakeholderID:  &id,
		Method:         body.Method,
		Summary:        body.Summary,
		FollowUpNeeded: body.FollowUpNeeded,
		FollowUpDate:   body.FollowUpDate,
	}
	if body.At != nil {
		cl.At = *body.At
	}
	if _, err := h.store.AddContactLog(r.Context(), cl); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, cl)
}

func (h *Handler) deleteContactLog(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteContactLog(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) tabs(w http.ResponseWriter, r *http.Request) {
	tabs, err := h.store.Tabs(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if tabs == nil {
		tabs = []*Tab{}
	}
	server.JSON(w, http.StatusOK, tabs)
}

func (h *Handler) saveTab(w http.ResponseWriter, r *http.Request) {
	var tab Tab
	if err := server.Decode(r, &tab); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.store.SaveTab(r.Context(), &tab); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"saved": true})
}

func (h *Handler) deleteTab(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteTab(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
