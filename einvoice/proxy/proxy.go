// Package proxy exposes the tax service operations over a small JSON API so
// browser clients never talk to the tax service directly.
package proxy

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/alapierre/go-einvoice-client/einvoice"
	"github.com/alapierre/go-einvoice-client/einvoice/invoice"
	"github.com/alapierre/go-einvoice-client/einvoice/partner"
	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

var logger = logrus.WithField("component", "einvoice.proxy")

// maxBody requests are small, anything bigger is rejected
const maxBody = 1 << 20

type Authenticator interface {
	Authenticate(ctx context.Context, creds einvoice.Credentials) (string, error)
}

type InvoiceSource interface {
	ListInvoices(ctx context.Context, token, tin string, since time.Time) (*invoice.ListResult, error)
	GetInvoiceItems(ctx context.Context, token, invoiceID string, t einvoice.InvoiceType) (*invoice.ItemsResult, error)
}

type PartnerReconciler interface {
	EnsurePartner(ctx context.Context, d einvoice.InvoicePartnerData, ourTin string) (*partner.Result, bool)
}

type Handler struct {
	auth     Authenticator
	invoices InvoiceSource
	partners PartnerReconciler
	mux      *http.ServeMux
	root     http.Handler
}

func NewHandler(auth Authenticator, invoices InvoiceSource, partners PartnerReconciler) *Handler {
	h := &Handler{auth: auth, invoices: invoices, partners: partners, mux: http.NewServeMux()}
	h.mux.HandleFunc("POST /api/tax/auth", h.handleAuth)
	h.mux.HandleFunc("POST /api/tax/invoices", h.handleInvoices)
	h.mux.HandleFunc("POST /api/tax/invoice-items", h.handleInvoiceItems)
	h.mux.HandleFunc("POST /api/tax/partners", h.handlePartners)
	h.root = Tracing(http.HandlerFunc(h.serve))
	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.root.ServeHTTP(w, r)
}

func (h *Handler) serve(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	rw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
	h.mux.ServeHTTP(rw, r)
	logger.WithFields(logrus.Fields{
		"method":   r.Method,
		"path":     r.URL.Path,
		"status":   rw.status,
		"duration": time.Since(start),
	}).Debug("request served")
}

type authRequest struct {
	Tin      string `json:"tin"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type authResponse struct {
	Token string `json:"token"`
}

func (h *Handler) handleAuth(w http.ResponseWriter, r *http.Request) {
	var req authRequest
	if !decode(w, r, &req) {
		return
	}
	creds := einvoice.Credentials{Tin: req.Tin, Username: req.Username, Password: req.Password}
	token, err := h.auth.Authenticate(einvoice.Context(r.Context(), req.Tin), creds)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, authResponse{Token: token})
}

type invoicesRequest struct {
	Token string    `json:"token"`
	Tin   string    `json:"tin"`
	Since time.Time `json:"since"`
}

func (h *Handler) handleInvoices(w http.ResponseWriter, r *http.Request) {
	var req invoicesRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := h.invoices.ListInvoices(einvoice.Context(r.Context(), req.Tin), req.Token, req.Tin, req.Since)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type itemsRequest struct {
	Token       string               `json:"token"`
	InvoiceID   string               `json:"invoiceId"`
	InvoiceType einvoice.InvoiceType `json:"invoiceType"`
}

func (h *Handler) handleInvoiceItems(w http.ResponseWriter, r *http.Request) {
	var req itemsRequest
	if !decode(w, r, &req) {
		return
	}
	if req.InvoiceID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invoiceId is required"})
		return
	}
	res, err := h.invoices.GetInvoiceItems(r.Context(), req.Token, req.InvoiceID, req.InvoiceType)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type partnerRequest struct {
	Detail einvoice.InvoicePartnerData `json:"detail"`
	OurTin string                      `json:"ourTin"`
}

type partnerResponse struct {
	PartnerID   *uuid.UUID `json:"partnerId"`
	WarehouseID *uuid.UUID `json:"warehouseId"`
}

func (h *Handler) handlePartners(w http.ResponseWriter, r *http.Request) {
	var req partnerRequest
	if !decode(w, r, &req) {
		return
	}
	if req.OurTin == "" {
		writeError(w, errors.Wrap(einvoice.ErrMissingCredentials, "ourTin"))
		return
	}
	res, ok := h.partners.EnsurePartner(einvoice.Context(r.Context(), req.OurTin), req.Detail, req.OurTin)
	if !ok {
		writeJSON(w, http.StatusOK, partnerResponse{})
		return
	}
	writeJSON(w, http.StatusOK, partnerResponse{PartnerID: &res.PartnerID, WarehouseID: res.WarehouseID})
}

type errorResponse struct {
	Error       string `json:"error"`
	NeedsReauth bool   `json:"needsReauth,omitempty"`
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, einvoice.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.Is(err, einvoice.ErrAuthExpired), errors.Is(err, einvoice.ErrAuthRejected):
		return http.StatusUnauthorized
	case errors.Is(err, einvoice.ErrTokenExtractionFailed),
		errors.Is(err, einvoice.ErrUpstreamTransport),
		errors.Is(err, einvoice.ErrUpstreamStatus):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		logger.WithError(err).WithField("status", status).Error("request failed")
	} else {
		logger.WithError(err).WithField("status", status).Debug("request rejected")
	}
	writeJSON(w, status, errorResponse{Error: err.Error(), NeedsReauth: einvoice.NeedsReauth(err)})
}

func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBody)).Decode(v); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Warn("could not write response")
	}
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
