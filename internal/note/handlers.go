package note

import (
	"errors"
	"net/http"
	"strconv"

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
	mux.HandleFunc("GET /api/notes", h.list)
	mux.HandleFunc("POST /api/notes", h.create)
	mux.HandleFunc("GET /api/notes/{id}", h.get)
	mux.HandleFunc("PUT /api/notes/{id}", h.update)
	mux.HandleFunc("DELETE /api/notes/{id}", h.delete)
	mux.HandleFunc("POST /api/notes/{id}/toggle-pin", h.togglePin)

	mux.HandleFunc("GET /api/folders", h.folders)
	mux.HandleFunc("POST /api/folders", h.createFolder)
	mux.HandleFunc("PUT /api/folders/{id}", h.updateFolder)
	mux.HandleFunc("DELETE /api/folders/{id}", h.deleteFolder)

	mux.HandleFunc("GET /api/tags", h.tags)
	mux.HandleFunc("POST /api/tags", h.createTag)
	mux.HandleFunc("DELETE /api/tags/{id}", h.deleteTag)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		server.Error(w, http.StatusNotFound, "note not found")
	case errors.Is(err, ErrFolderNotFound):
		server.Error(w, http.StatusNotFound, "folder not found")
	case errors.Is(err, ErrTagNotFound):
		server.Error(w, http.StatusNotFound, "tag not found")
	default:
		h.log.Error("note handler error", logx.Err(err))
		server.Internal(w)
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := Filter{
		Query:    q.Get("q"),
		NoteType: q.Get("note_type"),
		DateFrom: q.Get("date_from"),
		DateTo:   q.Get("date_to"),
	}
	if v, err := strconv.ParseInt(q.Get("folder_id"), 10, 64); err == nil {
		f.FolderID = &v
	}
	if v, err := strconv.ParseInt(q.Get("tag_id"), 10, 64); err == nil {
		f.TagID = &v
	}
	if v, err := strconv.ParseBool(q.Get("pinned")); err == nil && q.Get("pinned") != "" {
		f.Pinned = &v
	}
	notes, err := h.store.List(r.Context(), f)
	if err != nil {
		h.fail(w, err)
		return
	}
	if notes == nil {
		notes = []*Note{}
	}
	server.JSON(w, http.StatusOK, notes)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (*Note, bool) {
	var n Note
	if err := server.Decode(r, &n); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return nil, false
	}
	if n.NoteType != "" && !h.choices.ValidValue(r.Context(), choices.CategoryNoteType, n.NoteType) {
		server.Error(w, http.StatusBadRequest, "unknown note_type")
		return nil, false
	}
	return &n, true
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	n, ok := h.decode(w, r)
	if !ok {
		return
	}
	if _, err := h.store.Create(r.Context(), n); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, n)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	n, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, n)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	n, ok := h.decode(w, r)
	if !ok {
		return
	}
	n.ID = id
	if err := h.store.Update(r.Context(), n); err != nil {
		if errors.Is(err, ErrNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, n)
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

func (h *Handler) togglePin(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	pinned, err := h.store.TogglePin(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"is_pinned": pinned})
}

func (h *Handler) folders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.store.Folders(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if folders == nil {
		folders = []*Folder{}
	}
	server.JSON(w, http.StatusOK, folders)
}

func (h *Handler) createFolder(w http.ResponseWriter, r *http.Request) {
	var f Folder
	if err := server.Decode(r, &f); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.CreateFolder(r.Context(), &f); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, f)
}

func (h *Handler) updateFolder(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var f Folder
	if err := server.Decode(r, &f); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	f.ID = id
	if err := h.store.UpdateFolder(r.Context(), &f); err != nil {
		if errors.Is(err, ErrFolderNotFound) {
			h.fail(w, err)
			return
		}
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, f)
}

func (h *Handler) deleteFolder(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteFolder(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) tags(w http.ResponseWriter, r *http.Request) {
	tags, err := h.store.Tags(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if tags == nil {
		tags = []*Tag{}
	}
	server.JSON(w, http.StatusOK, tags)
}

func (h *Handler) createTag(w http.ResponseWriter, r *http.Request) {
	var t Tag
	if err := server.Decode(r, &t); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.CreateTag(r.Context(), &t); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, t)
}

func (h *Handler) deleteTag(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.store.DeleteTag(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
