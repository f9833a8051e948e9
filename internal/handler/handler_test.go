package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"image/color"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/disintegration/imaging"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Dan9191/loan-tracker/internal/apperr"
	"github.com/Dan9191/loan-tracker/internal/auth"
	"github.com/Dan9191/loan-tracker/internal/config"
	"github.com/Dan9191/loan-tracker/internal/models"
	"github.com/Dan9191/loan-tracker/internal/repository"
	"github.com/Dan9191/loan-tracker/internal/service"
	"github.com/Dan9191/loan-tracker/internal/upload"
	"github.com/Dan9191/loan-tracker/internal/utils"
)

type stubRates struct {
	rate *models.ReferenceRate
	err  error
}

func (s stubRates) GetReferenceRate(context.Context) (*models.ReferenceRate, error) {
	return s.rate, s.err
}

func setupRouter(t *testing.T, rates ReferenceRates) http.Handler {
	t.Helper()
	dir := t.TempDir()
	db, err := repository.Open(config.DriverSQLite, filepath.Join(dir, "loans.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	repo := repository.NewRepository(db, config.DriverSQLite)
	require.NoError(t, repo.Migrate(context.Background()))

	log := logrus.New()
	log.SetOutput(io.Discard)
	tokens := auth.NewTokens("test-secret", time.Hour)
	sealer, err := utils.NewSealer(bytes.Repeat([]byte{3}, 32))
	require.NoError(t, err)

	svc := service.NewService(repo, log, tokens, sealer, 12)
	store := upload.NewStore(config.UploadConfig{
		Dir:      filepath.Join(dir, "uploads"),
		BaseURL:  "/uploads",
		MaxBytes: 1 << 20,
		MaxWidth: 200,
	})
	return NewHandler(svc, store, rates, log).Router(tokens)
}

type client struct {
	t      *testing.T
	router http.Handler
	token  string
}

func (c *client) do(method, path string, body any) *httptest.ResponseRecorder {
	c.t.Helper()
	var r io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		r = strings.NewReader(b)
	default:
		raw, err := json.Marshal(b)
		require.NoError(c.t, err)
		r = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rec := httptest.NewRecorder()
	c.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func signup(t *testing.T, router http.Handler, email string) *client {
	t.Helper()
	c := &client{t: t, router: router}
	rec := c.do(http.MethodPost, "/register", map[string]string{"email": email, "password": "password"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/login", map[string]string{"email": email, "password": "password"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	c.token = decode[map[string]string](t, rec)["token"]
	require.NotEmpty(t, c.token)
	return c
}

func TestLoanFlow(t *testing.T) {
	router := setupRouter(t, stubRates{})
	c := signup(t, router, "lender@example.com")

	rec := c.do(http.MethodPut, "/capital", `{"initial_capital": 1000000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodPost, "/clients", map[string]string{"name": "Ana", "phone_number": "555-0101"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	cl := decode[models.Client](t, rec)

	rec = c.do(http.MethodPost, "/loans", map[string]any{
		"client_id":              cl.ID,
		"principal_amount":       500000,
		"interest_rate":          "5",
		"start_date":             "2025-03-15",
		"payment_frequency_days": 30,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	loan := decode[map[string]any](t, rec)
	assert.Equal(t, "500000", loan["principal_amount"])
	assert.Equal(t, "2025-03-15", loan["start_date"])
	assert.Equal(t, "Ana", loan["client_name"])
	assert.Equal(t, "active", loan["status"])
	loanID := loan["id"].(string)

	rec = c.do(http.MethodGet, "/loans/"+loanID+"/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	payments := decode[[]map[string]any](t, rec)
	require.Len(t, payments, 1)
	assert.Equal(t, "2025-04-01", payments[0]["payment_month"])
	assert.Equal(t, "25000", payments[0]["interest_earned"])
	assert.Equal(t, false, payments[0]["was_paid"])
	assert.Nil(t, payments[0]["payment_date"])

	// Toggle with an empty body, then set explicitly on the successor.
	rec = c.do(http.MethodPut, "/payments/"+payments[0]["id"].(string), nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, true, decode[map[string]any](t, rec)["was_paid"])

	rec = c.do(http.MethodGet, "/payments", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	all := decode[[]map[string]any](t, rec)
	require.Len(t, all, 2)
	assert.Equal(t, "2025-05-01", all[0]["payment_month"], "newest month first")

	rec = c.do(http.MethodPut, "/payments/"+all[0]["id"].(string), `{"was_paid": true}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = c.do(http.MethodGet, "/dashboard", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var d models.Dashboard
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.True(t, d.CurrentCapital.Equal(decimal.NewFromInt(1_050_000)), "current %s", d.CurrentCapital)
	assert.True(t, d.TotalLent.Equal(decimal.NewFromInt(500_000)))
	assert.True(t, d.TotalInterestEarned.Equal(decimal.NewFromInt(50_000)))
	require.Len(t, d.MonthlyEarnings, 2)

	rec = c.do(http.MethodGet, "/capital", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	capital := decode[map[string]string](t, rec)
	assert.Equal(t, "1050000", capital["current_capital"])
	assert.Equal(t, "1000000", capital["initial_capital"])

	rec = c.do(http.MethodPut, "/loans/"+loanID, map[string]string{"status": "completed"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "completed", decode[map[string]any](t, rec)["status"])

	rec = c.do(http.MethodDelete, "/clients/"+cl.ID.String(), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = c.do(http.MethodDelete, "/loans/"+loanID, nil)
	require.Equal(t, http.StatusNoContent, rec.Code)
	rec = c.do(http.MethodGet, "/payments", nil)
	assert.Equal(t, "[]\n", rec.Body.String())

	rec = c.do(http.MethodDelete, "/clients/"+cl.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestErrors(t *testing.T) {
	router := setupRouter(t, stubRates{})
	owner := signup(t, router, "owner@example.com")
	intruder := signup(t, router, "intruder@example.com")

	rec := owner.do(http.MethodPost, "/clients", map[string]string{"name": "Ana"})
	require.Equal(t, http.StatusCreated, rec.Code)
	cl := decode[models.Client](t, rec)

	tests := []struct {
		name   string
		c      *client
		method string
		path   string
		body   any
		status int
		kind   apperr.Kind
	}{
		{"no token", &client{t: t, router: router}, http.MethodGet, "/loans", nil, http.StatusUnauthorized, apperr.Unauthenticated},
		{"bad token", &client{t: t, router: router, token: "nope"}, http.MethodGet, "/dashboard", nil, http.StatusUnauthorized, apperr.Unauthenticated},
		{"wrong password", &client{t: t, router: router}, http.MethodPost, "/login", map[string]string{"email": "owner@example.com", "password": "nope"}, http.StatusUnauthorized, apperr.Unauthenticated},
		{"duplicate email", &client{t: t, router: router}, http.MethodPost, "/register", map[string]string{"email": "owner@example.com", "password": "password"}, http.StatusConflict, apperr.Conflict},
		{"malformed json", owner, http.MethodPost, "/loans", `{"principal_amount":`, http.StatusBadRequest, apperr.Validation},
		{"negative principal", owner, http.MethodPost, "/loans", map[string]any{
			"client_id": cl.ID, "principal_amount": -5, "interest_rate": 1, "start_date": "2025-01-01", "payment_frequency_days": 30,
		}, http.StatusBadRequest, apperr.Validation},
		{"other tenant's client", intruder, http.MethodPost, "/loans", map[string]any{
			"client_id": cl.ID, "principal_amount": 5, "interest_rate": 1, "start_date": "2025-01-01", "payment_frequency_days": 30,
		}, http.StatusNotFound, apperr.NotFound},
		{"other tenant's delete", intruder, http.MethodDelete, "/clients/" + cl.ID.String(), nil, http.StatusNotFound, apperr.NotFound},
		{"unknown payment", owner, http.MethodPut, "/payments/123", nil, http.StatusNotFound, apperr.NotFound},
		{"bad status", owner, http.MethodPut, "/loans/" + cl.ID.String(), map[string]string{"status": "archived"}, http.StatusBadRequest, apperr.Validation},
		{"negative capital", owner, http.MethodPut, "/capital", `{"initial_capital": "-1"}`, http.StatusBadRequest, apperr.Validation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := tt.c.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.kind, body.Error.Kind)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestPublicEndpoints(t *testing.T) {
	rate := &models.ReferenceRate{AnnualRate: decimal.NewFromInt(18), MonthlyRate: decimal.RequireFromString("1.5")}
	router := setupRouter(t, stubRates{rate: rate})
	c := &client{t: t, router: router}

	rec := c.do(http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = c.do(http.MethodGet, "/reference-rate", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decode[map[string]string](t, rec)
	assert.Equal(t, "18", got["annual_rate"])
	assert.Equal(t, "1.5", got["monthly_rate"])

	rec = c.do(http.MethodGet, "/metrics", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "loantracker_http_request_duration_seconds")

	down := setupRouter(t, stubRates{err: apperr.New(apperr.DependencyFailure, "reference rate unavailable")})
	rec = (&client{t: t, router: down}).do(http.MethodGet, "/reference-rate", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestUpload(t *testing.T) {
	router := setupRouter(t, stubRates{})
	c := signup(t, router, "lender@example.com")

	var png bytes.Buffer
	require.NoError(t, imaging.Encode(&png, imaging.New(400, 100, color.NRGBA{A: 255}), imaging.PNG))

	post := func(content []byte) *httptest.ResponseRecorder {
		var body bytes.Buffer
		mw := multipart.NewWriter(&body)
		fw, err := mw.CreateFormFile("file", "collateral.png")
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
		require.NoError(t, mw.Close())

		req := httptest.NewRequest(http.MethodPost, "/upload", &body)
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+c.token)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec
	}

	rec := post(png.Bytes())
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	up := decode[models.Upload](t, rec)
	assert.True(t, strings.HasPrefix(up.URL, "/uploads/"))
	assert.Equal(t, "image/jpeg", up.Type)

	rec = c.do(http.MethodGet, up.URL, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	img, err := imaging.Decode(rec.Body)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	rec = post([]byte("not an image"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = c.do(http.MethodPost, "/upload", `{}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestLooseString(t *testing.T) {
	var v struct {
		A looseString `json:"a"`
		B looseString `json:"b"`
		C looseString `json:"c"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"a": 1500.25, "b": "2.5", "c": null}`), &v))
	assert.Equal(t, looseString("1500.25"), v.A)
	assert.Equal(t, looseString("2.5"), v.B)
	assert.Equal(t, looseString(""), v.C)

	assert.Error(t, json.Unmarshal([]byte(`{"a": true}`), &v))
}
