package task

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"controlcenter/internal/export"
	"controlcenter/internal/server"
	logx "controlcenter/pkg/logx"
)

// Handler mounts the task API.
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
	mux.HandleFunc("GET /api/tasks", h.list)
	mux.HandleFunc("POST /api/tasks", h.create)
	mux.HandleFunc("GET /api/tasks/export.csv", h.exportCSV)
	mux.HandleFunc("POST /api/tasks/bulk-complete", h.bulkComplete)
	mux.HandleFunc("POST /api/tasks/bulk-delete", h.bulkDelete)
	mux.HandleFunc("GET /api/tasks/{id}", h.get)
	mux.HandleFunc("PUT /api/tasks/{id}", h.update)
	mux.HandleFunc("DELETE /api/tasks/{id}", h.delete)
	mux.HandleFunc("POST /api/tasks/{id}/toggle-complete", h.toggleComplete)
	mux.HandleFunc("POST /api/tasks/{id}/status", h.moveStatus)
	mux.HandleFunc("PATCH /api/tasks/{id}/inline", h.inlineUpdate)

	mux.HandleFunc("GET /api/tasks/{id}/subtasks", h.listSubtasks)
	mux.HandleFunc("POST /api/tasks/{id}/subtasks", h.addSubtask)
	mux.HandleFunc("POST /api/subtasks/{id}/toggle", h.toggleSubtask)
	mux.HandleFunc("PUT /api/subtasks/{id}", h.renameSubtask)
	mux.HandleFunc("DELETE /api/subtasks/{id}", h.deleteSubtask)

	mux.HandleFunc("GET /api/tasks/{id}/follow-ups", h.listFollowUps)
	mux.HandleFunc("POST /api/tasks/{id}/follow-ups", h.addFollowUp)
	mux.HandleFunc("PUT /api/follow-ups/{id}", h.updateFollowUp)
	mux.HandleFunc("POST /api/follow-ups/{id}/response", h.recordResponse)
	mux.HandleFunc("DELETE /api/follow-ups/{id}", h.deleteFollowUp)
}

// fail maps task package errors onto HTTP statuses.
func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.Error(w, http.StatusNotFound, "task not found")
	case errors.Is(err, ErrInvalidRule), errors.Is(err, ErrNotRecurring), errors.Is(err, ErrNoDueDate):
		server.Error(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.log.Error("task handler error", logx.Err(err))
		server.Internal(w)
	}
}

func filterFromQuery(r *http.Request) Filter {
	q := r.URL.Query()
	f := Filter{
		Query:    q.Get("q"),
		Priority: Priority(q.Get("priority")),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
		Sort:     q.Get("sort"),
		Dir:      q.Get("dir"),
	}
	for _, s := range splitCSV(q.Get("status")) {
		f.Statuses = append(f.Statuses, Status(s))
	}
	for _, d := range splitCSV(q.Get("direction")) {
		f.Directions = append(f.Directions, Direction(d))
	}
	for _, t := range splitCSV(q.Get("type")) {
		f.Types = append(f.Types, Type(t))
	}
	if v, err := strconv.ParseInt(q.Get("stakeholder_id"), 10, 64); err == nil {
		f.StakeholderID = v
	}
	if v, err := strconv.Atoi(q.Get("limit")); err == nil {
		f.Limit = v
	}
	if v, err := strconv.Atoi(q.Get("offset")); err == nil {
		f.Offset = v
	}
	return f
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Store().List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	if tasks == nil {
		tasks = []*Task{}
	}
	server.JSON(w, http.StatusOK, tasks)
}

// taskPayload is the create/update body. Dates are plain YYYY-MM-DD strings;
// the reminder is a full timestamp.
type taskPayload struct {
	Title          string     `json:"title"`
	Description    string     `json:"description"`
	DueDate        string     `json:"due_date"`
	DueTime        string     `json:"due_time"`
	ReminderDate   *time.Time `json:"reminder_date"`
	Status         string     `json:"status"`
	Priority       string     `json:"priority"`
	Type           string     `json:"task_type"`
	Direction      string     `json:"direction"`
	LegalMatterID  *int64     `json:"legal_matter_id"`
	PropertyID     *int64     `json:"property_id"`
	IsRecurring    bool       `json:"is_recurring"`
	RecurrenceRule string     `json:"recurrence_rule"`
	StakeholderIDs []int64    `json:"stakeholder_ids"`
}

func (p *taskPayload) toTask() (*Task, error) {
	t := &Task{
		Title:          strings.TrimSpace(p.Title),
		Description:    p.Description,
		DueDate:        p.DueDate,
		DueTime:        p.DueTime,
		ReminderDate:   p.ReminderDate,
		Status:         Status(p.Status),
		Priority:       Priority(p.Priority),
		Type:           Type(p.Type),
		Direction:      Direction(p.Direction),
		LegalMatterID:  p.LegalMatterID,
		PropertyID:     p.PropertyID,
		IsRecurring:    p.IsRecurring,
		RecurrenceRule: Rule(p.RecurrenceRule),
		StakeholderIDs: p.StakeholderIDs,
	}
	if t.Title == "" {
		return nil, errors.New("title is required")
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Priority == "" {
		t.Priority = PriorityMedium
	}
	if !t.Status.Valid() {
		return nil, errors.New("invalid status")
	}
	if !t.Priority.Valid() {
		return nil, errors.New("invalid priority")
	}
	if t.DueDate != "" {
		if _, err := time.Parse(DateFormat, t.DueDate); err != nil {
			return nil, errors.New("due_date must be YYYY-MM-DD")
		}
	}
	if t.IsRecurring && !t.RecurrenceRule.Valid() {
		return nil, errors.New("recurring task needs a valid recurrence_rule")
	}
	return t, nil
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var p taskPayload
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := p.toTask()
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	id, err := h.svc.Store().Create(r.Context(), t)
	if err != nil {
		h.fail(w, err)
		return
	}
	created, err := h.svc.Store().Get(r.Context(), id)
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
	t, err := h.svc.Store().Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, t)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p taskPayload
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := p.toTask()
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	prev, err := h.svc.Store().Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	t.ID = id
	t.CompletedAt = prev.CompletedAt
	if prev.Status == StatusComplete && t.Status != StatusComplete {
		t.CompletedAt = nil
	}
	// A full edit that flips status to complete is a completion trigger,
	// same as the checkbox. Write the row with its old status first so the
	// guarded transition still observes the flip.
	completing := t.Status == StatusComplete && prev.Status != StatusComplete
	if completing {
		t.Status = prev.Status
	}
	if err := h.svc.Store().Update(r.Context(), t); err != nil {
		h.fail(w, err)
		return
	}
	if completing {
		if _, err := h.svc.MoveStatus(r.Context(), id, StatusComplete); err != nil {
			h.fail(w, err)
			return
		}
	}
	updated, err := h.svc.Store().Get(r.Context(), id)
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
	if err := h.svc.Store().Delete(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) toggleComplete(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	t, err := h.svc.ToggleComplete(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, t)
}

func (h *Handler) moveStatus(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Status string `json:"status"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !Status(body.Status).Valid() {
		server.Error(w, http.StatusBadRequest, "invalid status")
		return
	}
	t, err := h.svc.MoveStatus(r.Context(), id, Status(body.Status))
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, t)
}

func (h *Handler) inlineUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Field string `json:"field"`
		Value string `json:"value"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	t, err := h.svc.InlineUpdate(r.Context(), id, body.Field, body.Value)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, t)
}

type bulkRequest struct {
	IDs []int64 `json:"ids"`
}

func (h *Handler) bulkComplete(w http.ResponseWriter, r *http.Request) {
	var body bulkRequest
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.IDs) == 0 {
		server.Error(w, http.StatusBadRequest, "ids is required")
		return
	}
	server.JSON(w, http.StatusOK, h.svc.BulkComplete(r.Context(), body.IDs))
}

func (h *Handler) bulkDelete(w http.ResponseWriter, r *http.Request) {
	var body bulkRequest
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if len(body.IDs) == 0 {
		server.Error(w, http.StatusBadRequest, "ids is required")
		return
	}
	server.JSON(w, http.StatusOK, h.svc.BulkDelete(r.Context(), body.IDs))
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.svc.Store().List(r.Context(), filterFromQuery(r))
	if err != nil {
		h.fail(w, err)
		return
	}
	header := []string{"id", "title", "status", "priority", "task_type", "direction",
		"due_date", "due_time", "is_recurring", "recurrence_rule", "completed_at"}
	records := make([][]string, 0, len(tasks))
	for _, t := range tasks {
		completed := ""
		if t.CompletedAt != nil {
			completed = t.CompletedAt.Format(time.RFC3339)
		}
		records = append(records, []string{
			strconv.FormatInt(t.ID, 10), t.Title, string(t.Status), string(t.Priority),
			string(t.Type), string(t.Direction), t.DueDate, t.DueTime,
			strconv.FormatBool(t.IsRecurring), string(t.RecurrenceRule), completed,
		})
	}
	if err := export.CSV(w, "tasks.csv", header, records); err != nil {
		h.log.Error("csv export failed", logx.Err(err))
	}
}

func (h *Handler) listSubtasks(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	subs, err := h.svc.Store().ListSubtasks(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if subs == nil {
		subs = []*SubTask{}
	}
	server.JSON(w, http.StatusOK, subs)
}

func (h *Handler) addSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	st, err := h.svc.Store().AddSubtask(r.Context(), id, body.Title)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, st)
}

func (h *Handler) toggleSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	done, err := h.svc.Store().ToggleSubtask(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"is_completed": done})
}

func (h *Handler) renameSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		Title string `json:"title"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.svc.Store().RenameSubtask(r.Context(), id, body.Title); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) deleteSubtask(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Store().DeleteSubtask(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

type followUpPayload struct {
	StakeholderID   *int64 `json:"stakeholder_id"`
	OutreachDate    string `json:"outreach_date"`
	Method          string `json:"method"`
	ReminderEnabled bool   `json:"reminder_enabled"`
	FollowUpDays    int    `json:"follow_up_days"`
	NotesText       string `json:"notes_text"`
}

func (h *Handler) listFollowUps(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	fus, err := h.svc.Store().ListFollowUps(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if fus == nil {
		fus = []*FollowUp{}
	}
	server.JSON(w, http.StatusOK, fus)
}

func (h *Handler) addFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p followUpPayload
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outreach, err := time.Parse(DateFormat, p.OutreachDate)
	if err != nil {
		server.Error(w, http.StatusBadRequest, "outreach_date must be YYYY-MM-DD")
		return
	}
	f := &FollowUp{
		TaskID:          id,
		StakeholderID:   p.StakeholderID,
		OutreachDate:    outreach,
		Method:          p.Method,
		ReminderEnabled: p.ReminderEnabled,
		FollowUpDays:    p.FollowUpDays,
		NotesText:       p.NotesText,
	}
	if _, err := h.svc.Store().AddFollowUp(r.Context(), f); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusCreated, f)
}

func (h *Handler) updateFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p followUpPayload
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	outreach, err := time.Parse(DateFormat, p.OutreachDate)
	if err != nil {
		server.Error(w, http.StatusBadRequest, "outreach_date must be YYYY-MM-DD")
		return
	}
	f := &FollowUp{
		ID:              id,
		StakeholderID:   p.StakeholderID,
		OutreachDate:    outreach,
		Method:          p.Method,
		ReminderEnabled: p.ReminderEnabled,
		FollowUpDays:    p.FollowUpDays,
		NotesText:       p.NotesText,
	}
	if err := h.svc.Store().UpdateFollowUp(r.Context(), f); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) recordResponse(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var body struct {
		ResponseDate  string `json:"response_date"`
		ResponseNotes string `json:"response_notes"`
	}
	if err := server.Decode(r, &body); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	date := time.Now()
	if body.ResponseDate != "" {
		if date, err = time.Parse(DateFormat, body.ResponseDate); err != nil {
			server.Error(w, http.StatusBadRequest, "response_date must be YYYY-MM-DD")
			return
		}
	}
	if err := h.svc.Store().RecordResponse(r.Context(), id, date, body.ResponseNotes); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"updated": true})
}

func (h *Handler) deleteFollowUp(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.svc.Store().DeleteFollowUp(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
