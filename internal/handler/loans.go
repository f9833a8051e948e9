package handler

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/models"
)

// ListClients returns the caller's clients
func (h *Handler) ListClients(w http.ResponseWriter, r *http.Request) {
	clients, err := h.svc.ListClients(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, clients)
}

// CreateClient records a client
func (h *Handler) CreateClient(w http.ResponseWriter, r *http.Request) {
	var req models.NewClient
	if _, err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	client, err := h.svc.CreateClient(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, client)
}

// DeleteClient removes a client without loans
func (h *Handler) DeleteClient(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteClient(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type createLoanRequest struct {
	ClientID             looseString `json:"client_id"`
	PrincipalAmount      looseString `json:"principal_amount"`
	InterestRate         looseString `json:"interest_rate"`
	StartDate            looseString `json:"start_date"`
	PaymentFrequencyDays looseString `json:"payment_frequency_days"`
}

// ListLoans returns the caller's loans
func (h *Handler) ListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := h.svc.ListLoans(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loans)
}

// CreateLoan issues a loan and seeds its first payment
func (h *Handler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	var req createLoanRequest
	if _, err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	loan, err := h.svc.CreateLoan(r.Context(), models.NewLoan{
		ClientID:             string(req.ClientID),
		PrincipalAmount:      string(req.PrincipalAmount),
		InterestRate:         string(req.InterestRate),
		StartDate:            string(req.StartDate),
		PaymentFrequencyDays: string(req.PaymentFrequencyDays),
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, loan)
}

// UpdateLoan sets the status of a loan
func (h *Handler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status string `json:"status"`
	}
	ok, err := decodeJSON(r, &req)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if !ok {
		h.writeError(w, apperr.New(apperr.Validation, "status is required"))
		return
	}
	loan, err := h.svc.SetLoanStatus(r.Context(), mux.Vars(r)["id"], req.Status)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, loan)
}

// DeleteLoan removes a loan with its payments
func (h *Handler) DeleteLoan(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteLoan(r.Context(), mux.Vars(r)["id"]); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListLoanPayments returns the payments of a loan
func (h *Handler) ListLoanPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListLoanPayments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// ListPayments returns all of the caller's payments
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := h.svc.ListPayments(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// UpdatePayment toggles a payment, or sets it when the body carries was_paid
func (h *Handler) UpdatePayment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		WasPaid *bool `json:"was_paid"`
	}
	if _, err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	payment, err := h.svc.SetPaymentStatus(r.Context(), mux.Vars(r)["id"], req.WasPaid)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payment)
}

// GetCapital returns the caller's capital
func (h *Handler) GetCapital(w http.ResponseWriter, r *http.Request) {
	capital, err := h.svc.GetCapital(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capital)
}

// UpdateCapital sets the caller's initial capital
func (h *Handler) UpdateCapital(w http.ResponseWriter, r *http.Request) {
	var req struct {
		InitialCapital looseString `json:"initial_capital"`
	}
	if _, err := decodeJSON(r, &req); err != nil {
		h.writeError(w, err)
		return
	}
	capital, err := h.svc.UpdateInitialCapital(r.Context(), string(req.InitialCapital))
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, capital)
}

// Dashboard returns the capital and earnings summary
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
