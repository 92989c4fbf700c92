package asset

import (
	"errors"
	"net/http"

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
	mux.HandleFunc("GET /api/assets/summary", h.summary)
	mux.HandleFunc("GET /api/assets/tabs", h.tabs)
	mux.HandleFunc("POST /api/assets/tabs", h.saveTab)
	mux.HandleFunc("DELETE /api/assets/tabs/{id}", h.deleteTab)

	mux.HandleFunc("GET /api/properties", h.listProperties)
	mux.HandleFunc("POST /api/properties", h.createProperty)
	mux.HandleFunc("GET /api/properties/{id}", h.getProperty)
	mux.HandleFunc("PUT /api/properties/{id}", h.updateProperty)
	mux.HandleFunc("DELETE /api/properties/{id}", h.deleteProperty)
	mux.HandleFunc("GET /api/properties/{id}/ownerships", h.propertyOwnerships)
	mux.HandleFunc("PUT /api/properties/{id}/ownerships", h.setPropertyOwnership)
	mux.HandleFunc("DELETE /api/properties/{id}/ownerships/{sid}", h.removePropertyOwnership)

	mux.HandleFunc("GET /api/investments", h.listInvestments)
	mux.HandleFunc("POST /api/investments", h.createInvestment)
	mux.HandleFunc("GET /api/investments/{id}", h.getInvestment)
	mux.HandleFunc("PUT /api/investments/{id}", h.updateInvestment)
	mux.HandleFunc("DELETE /api/investments/{id}", h.deleteInvestment)
	mux.HandleFunc("GET /api/investments/{id}/participants", h.investmentParticipants)
	mux.HandleFunc("PUT /api/investments/{id}/participants", h.setInvestmentParticipant)
	mux.HandleFunc("DELETE /api/investments/{id}/participants/{sid}", h.removeInvestmentParticipant)

	mux.HandleFunc("GET /api/vehicles", h.listVehicles)
	mux.HandleFunc("POST /api/vehicles", h.createVehicle)
	mux.HandleFunc("GET /api/vehicles/{id}", h.getVehicle)
	mux.HandleFunc("PUT /api/vehicles/{id}", h.updateVehicle)
	mux.HandleFunc("DELETE /api/vehicles/{id}", h.deleteVehicle)

	mux.HandleFunc("GET /api/aircraft", h.listAircraft)
	mux.HandleFunc("POST /api/aircraft", h.createAircraft)
	mux.HandleFunc("GET /api/aircraft/{id}", h.getAircraft)
	mux.HandleFunc("PUT /api/aircraft/{id}", h.updateAircraft)
	mux.HandleFunc("DELETE /api/aircraft/{id}", h.deleteAircraft)

	mux.HandleFunc("GET /api/loans", h.listLoans)
	mux.HandleFunc("POST /api/loans", h.createLoan)
	mux.HandleFunc("GET /api/loans/{id}", h.getLoan)
	mux.HandleFunc("PUT /api/loans/{id}", h.updateLoan)
	mux.HandleFunc("DELETE /api/loans/{id}", h.deleteLoan)
	mux.HandleFunc("GET /api/loans/{id}/parties", h.loanParties)
	mux.HandleFunc("PUT /api/loans/{id}/parties", h.setLoanParty)
	mux.HandleFunc("DELETE /api/loans/{id}/parties/{sid}", h.removeLoanParty)

	mux.HandleFunc("GET /api/policies", h.listPolicies)
	mux.HandleFunc("POST /api/policies", h.createPolicy)
	mux.HandleFunc("GET /api/policies/{id}", h.getPolicy)
	mux.HandleFunc("PUT /api/policies/{id}", h.updatePolicy)
	mux.HandleFunc("DELETE /api/policies/{id}", h.deletePolicy)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		server.Error(w, http.StatusNotFound, "not found")
		return
	}
	h.log.Error("asset handler error", logx.Err(err))
	server.Internal(w)
}

// validChoice rejects values outside the category's vocabulary; blank passes
// so defaults can apply.
func (h *Handler) validChoice(w http.ResponseWriter, r *http.Request, category, value string) bool {
	if value == "" || h.choices.ValidValue(r.Context(), category, value) {
		return true
	}
	server.Error(w, http.StatusBadRequest, "unknown "+category)
	return false
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.store.Summarize(r.Context())
	if err != nil {
		h.fail(w, err)
		return
	}
	server.JSON(w, http.StatusOK, sum)
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

// --- properties ---

func (h *Handler) listProperties(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListProperties)
}

func (h *Handler) createProperty(w http.ResponseWriter, r *http.Request) {
	var p Property
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.CreateProperty(r.Context(), &p); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getProperty(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetProperty)
}

func (h *Handler) updateProperty(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p Property
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	p.ID = id
	h.finishUpdate(w, r, h.store.UpdateProperty(r.Context(), &p), &p)
}

func (h *Handler) deleteProperty(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeleteProperty)
}

func (h *Handler) propertyOwnerships(w http.ResponseWriter, r *http.Request) {
	h.listLinks(w, r, h.store.PropertyOwnerships)
}

func (h *Handler) setPropertyOwnership(w http.ResponseWriter, r *http.Request) {
	h.setLink(w, r, h.store.SetPropertyOwnership)
}

func (h *Handler) removePropertyOwnership(w http.ResponseWriter, r *http.Request) {
	h.removeLink(w, r, h.store.RemovePropertyOwnership)
}

// --- investments ---

func (h *Handler) listInvestments(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListInvestments)
}

func (h *Handler) createInvestment(w http.ResponseWriter, r *http.Request) {
	var inv Investment
	if err := server.Decode(r, &inv); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.CreateInvestment(r.Context(), &inv); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) getInvestment(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetInvestment)
}

func (h *Handler) updateInvestment(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var inv Investment
	if err := server.Decode(r, &inv); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	inv.ID = id
	h.finishUpdate(w, r, h.store.UpdateInvestment(r.Context(), &inv), &inv)
}

func (h *Handler) deleteInvestment(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeleteInvestment)
}

func (h *Handler) investmentParticipants(w http.ResponseWriter, r *http.Request) {
	h.listLinks(w, r, h.store.InvestmentParticipants)
}

func (h *Handler) setInvestmentParticipant(w http.ResponseWriter, r *http.Request) {
	h.setLink(w, r, h.store.SetInvestmentParticipant)
}

func (h *Handler) removeInvestmentParticipant(w http.ResponseWriter, r *http.Request) {
	h.removeLink(w, r, h.store.RemoveInvestmentParticipant)
}

// --- vehicles ---

func (h *Handler) listVehicles(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListVehicles)
}

func (h *Handler) createVehicle(w http.ResponseWriter, r *http.Request) {
	var v Vehicle
	if err := server.Decode(r, &v); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryVehicleType, v.VehicleType) {
		return
	}
	if _, err := h.store.CreateVehicle(r.Context(), &v); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, v)
}

func (h *Handler) getVehicle(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetVehicle)
}

func (h *Handler) updateVehicle(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var v Vehicle
	if err := server.Decode(r, &v); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryVehicleType, v.VehicleType) {
		return
	}
	v.ID = id
	h.finishUpdate(w, r, h.store.UpdateVehicle(r.Context(), &v), &v)
}

func (h *Handler) deleteVehicle(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeleteVehicle)
}

// --- aircraft ---

func (h *Handler) listAircraft(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListAircraft)
}

func (h *Handler) createAircraft(w http.ResponseWriter, r *http.Request) {
	var a Aircraft
	if err := server.Decode(r, &a); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryAircraftType, a.AircraftType) {
		return
	}
	if _, err := h.store.CreateAircraft(r.Context(), &a); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, a)
}

func (h *Handler) getAircraft(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetAircraft)
}

func (h *Handler) updateAircraft(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var a Aircraft
	if err := server.Decode(r, &a); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryAircraftType, a.AircraftType) {
		return
	}
	a.ID = id
	h.finishUpdate(w, r, h.store.UpdateAircraft(r.Context(), &a), &a)
}

func (h *Handler) deleteAircraft(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeleteAircraft)
}

// --- loans ---

func (h *Handler) listLoans(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListLoans)
}

func (h *Handler) createLoan(w http.ResponseWriter, r *http.Request) {
	var l Loan
	if err := server.Decode(r, &l); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if _, err := h.store.CreateLoan(r.Context(), &l); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, l)
}

func (h *Handler) getLoan(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetLoan)
}

func (h *Handler) updateLoan(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var l Loan
	if err := server.Decode(r, &l); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	l.ID = id
	h.finishUpdate(w, r, h.store.UpdateLoan(r.Context(), &l), &l)
}

func (h *Handler) deleteLoan(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeleteLoan)
}

func (h *Handler) loanParties(w http.ResponseWriter, r *http.Request) {
	h.listLinks(w, r, h.store.LoanParties)
}

func (h *Handler) setLoanParty(w http.ResponseWriter, r *http.Request) {
	h.setLink(w, r, h.store.SetLoanParty)
}

func (h *Handler) removeLoanParty(w http.ResponseWriter, r *http.Request) {
	h.removeLink(w, r, h.store.RemoveLoanParty)
}

// --- insurance policies ---

func (h *Handler) listPolicies(w http.ResponseWriter, r *http.Request) {
	listJSON(h, w, r, h.store.ListPolicies)
}

func (h *Handler) createPolicy(w http.ResponseWriter, r *http.Request) {
	var p InsurancePolicy
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryPolicyType, p.PolicyType) {
		return
	}
	if _, err := h.store.CreatePolicy(r.Context(), &p); err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	server.JSON(w, http.StatusCreated, p)
}

func (h *Handler) getPolicy(w http.ResponseWriter, r *http.Request) {
	getJSON(h, w, r, h.store.GetPolicy)
}

func (h *Handler) updatePolicy(w http.ResponseWriter, r *http.Request) {
	id, err := server.PathID(r)
	if err != nil {
		server.Error(w, http.StatusBadRequest, err.Error())
		return
	}
	var p InsurancePolicy
	if err := server.Decode(r, &p); err != nil {
		server.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !h.validChoice(w, r, choices.CategoryPolicyType, p.PolicyType) {
		return
	}
	p.ID = id
	h.finishUpdate(w, r, h.store.UpdatePolicy(r.Context(), &p), &p)
}

func (h *Handler) deletePolicy(w http.ResponseWriter, r *http.Request) {
	deleteJSON(h, w, r, h.store.DeletePolicy)
}
