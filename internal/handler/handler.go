package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/middleware"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/service"
	"github.com/Dan9191/loan-tracker/internal/upload"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// ReferenceRates supplies the central bank rate
type ReferenceRates interface {
	GetReferenceRate(ctx context.Context) (*models.ReferenceRate, error)
}

type Handler struct {
	svc     *service.Service
	uploads *upload.Store
	rates   ReferenceRates
	log     *logrus.Logger
}

func NewHandler(svc *service.Service, uploads *upload.Store, rates ReferenceRates, log *logrus.Logger) *Handler {
	return &Handler{svc: svc, uploads: uploads, rates: rates, log: log}
}

// Router wires every route. Routes registered on the subrouter require a
// bearer token.
func (h *Handler) Router(tokens *auth.Tokens) *mux.Router {
	r := mux.NewRouter()
	r.Use(middleware.Instrument(h.log))

	// Public routes
	r.HandleFunc("/register", h.Register).Methods("POST")
	r.HandleFunc("/login", h.Login).Methods("POST")
	r.HandleFunc("/health", h.Health).Methods("GET")
	r.HandleFunc("/reference-rate", h.ReferenceRate).Methods("GET")
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.PathPrefix("/uploads/").Handler(http.StripPrefix("/uploads/", http.FileServer(http.Dir(h.uploads.Dir())))).Methods("GET")

	// Protected routes
	authRouter := r.PathPrefix("/").Subrouter()
	authRouter.Use(middleware.AuthMiddleware(tokens))
	authRouter.HandleFunc("/clients", h.ListClients).Methods("GET")
	authRouter.HandleFunc("/clients", h.CreateClient).Methods("POST")
	authRouter.HandleFunc("/clients/{id}", h.DeleteClient).Methods("DELETE")
	authRouter.HandleFunc("/loans", h.ListLoans).Methods("GET")
	authRouter.HandleFunc("/loans", h.CreateLoan).Methods("POST")
	authRouter.HandleFunc("/loans/{id}", h.UpdateLoan).Methods("PUT")
	authRouter.HandleFunc("/loans/{id}", h.DeleteLoan).Methods("DELETE")
	authRouter.HandleFunc("/loans/{id}/payments", h.ListLoanPayments).Methods("GET")
	authRouter.HandleFunc("/payments", h.ListPayments).Methods("GET")
	authRouter.HandleFunc("/payments/{id}", h.UpdatePayment).Methods("PUT")
	authRouter.HandleFunc("/capital", h.GetCapital).Methods("GET")
	authRouter.HandleFunc("/capital", h.UpdateCapital).Methods("PUT")
	authRouter.HandleFunc("/dashboard", h.Dashboard).Methods("GET")
	authRouter.HandleFunc("/upload", h.Upload).Methods("POST")

	return r
}

// Health reports liveness
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ReferenceRate returns the central bank key rate
func (h *Handler) ReferenceRate(w http.ResponseWriter, r *http.Request) {
	rate, err := h.rates.GetReferenceRate(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rate)
}

// Upload stores a collateral image sent as multipart field "file"
func (h *Handler) Upload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.uploads.MaxBytes()+maxBodyBytes)
	file, _, err := r.FormFile("file")
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		h.writeError(w, apperr.Newf(apperr.Validation, "file exceeds %d bytes", h.uploads.MaxBytes()))
		return
	}
	if err != nil {
		h.writeError(w, apperr.Wrap(apperr.Validation, err, "multipart field \"file\" is required"))
		return
	}
	defer file.Close()

	up, err := h.uploads.Save(file)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, up)
}

// looseString accepts a JSON string or number and keeps its text, so that
// amounts reach decimal parsing without a float round trip.
type looseString string

func (s *looseString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	switch {
	case bytes.Equal(b, []byte("null")):
		*s = ""
		return nil
	case len(b) > 0 && b[0] == '"':
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		*s = looseString(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected a string or number, got %s", b)
	}
	*s = looseString(n)
	return nil
}

// decodeJSON reads a JSON body. An empty body leaves v untouched and reports
// false.
func decodeJSON(r *http.Request, v any) (bool, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return false, apperr.Wrap(apperr.Validation, err, "failed to read request body")
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return false, apperr.Wrap(apperr.Validation, err, "invalid request body")
	}
	return true, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

var statusByKind = map[apperr.Kind]int{
	apperr.Unauthenticated:   http.StatusUnauthorized,
	apperr.NotFound:          http.StatusNotFound,
	apperr.Validation:        http.StatusBadRequest,
	apperr.Conflict:          http.StatusConflict,
	apperr.DependencyFailure: http.StatusServiceUnavailable,
}

type errorBody struct {
	Error struct {
		Kind    apperr.Kind `json:"kind"`
		Message string      `json:"message"`
	} `json:"error"`
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	var body errorBody
	body.Error.Kind = apperr.KindOf(err)
	body.Error.Message = apperr.MessageOf(err)

	status, ok := statusByKind[body.Error.Kind]
	if !ok {
		status = http.StatusInternalServerError
	}
	if status >= http.StatusInternalServerError {
		h.log.WithError(err).Error("Request failed")
	} else {
		h.log.WithError(err).Debug("Request rejected")
	}
	writeJSON(w, status, body)
}
