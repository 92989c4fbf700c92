package asset

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"controlcenter/internal/server"
)

// The six asset classes share identical list/get/delete and ownership-link
// shapes; these helpers keep the per-class handlers down to decode and
// validation.

func listJSON[T any](h *Handler, w http.ResponseWriter, r *http.Request, list func(context.Context) ([]T, error)) {
	out, err := list(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	if out == nil {
		out = []T{}
	}
	server.JSON(w, http.StatusOK, out)
}

func getJSON[T any](h *Handler, w http.ResponseWriter, r *http.Request, get func(context.Context, int64) (T, error)) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	out, err := get(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, out)
}

func deleteJSON(h *Handler, w http.ResponseWriter, r *http.Request, del func(context.Context, int64) error) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := del(r.Context(), id); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}

func (h *Handler) finishUpdate(w http.ResponseWriter, _ *http.Request, err error, body any) {
	switch {
	case err == nil:
		server.JSON(w, http.StatusOK, body)
	case errors.Is(err, ErrNotFound):
		h.fail(w, err)
	default:
		server.Error(w, http.StatusBadRequest, err.Error())
	}
}

func (h *Handler) listLinks(w http.ResponseWriter, r *http.Request, list func(context.Context, int64) ([]*Ownership, error)) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	links, err := list(r.Context(), id)
	if err != nil {
		h.fail(w, err)
		return
	}
	if links == nil {
		links = []*Ownership{}
	}
	server.JSON(w, http.StatusOK, links)
}

func (h *Handler) setLink(w http.ResponseWriter, r *http.Request, set func(context.Context, *Ownership) error) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var o Ownership
	if err := server.Decode(r, &o); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if o.StakeholderID == 0 {
		server.Error(w, http.StatusBadRequest, "stakeholder_id is required")
		return
	}
	o.AssetID = id
	if err := set(r.Context(), &o); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusOK, o)
}

func (h *Handler) removeLink(w http.ResponseWriter, r *http.Request, remove func(context.Context, int64, int64) error) {
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
	if err := remove(r.Context(), id, sid); err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, map[string]bool{"deleted": true})
}
