package http

import (
	"context"
	"encoding/json"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/robertarktes/ticket-checkout/internal/checkout"
	"github.com/robertarktes/ticket-checkout/internal/config"
	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

const maxBodyBytes = 1 << 20

type CheckoutService interface {
	Checkout(ctx context.Context, req domain.BookingRequest) (checkout.Result, error)
	Ticket(ctx context.Context, reference string) (domain.TicketArtifact, error)
}

type MailVerifier interface {
	Verify(ctx context.Context) error
}

// Probe reports whether one dependency is ready to serve traffic.
type Probe func(ctx context.Context) error

type Handlers struct {
	cfg      *config.Config
	checkout CheckoutService
	mail     MailVerifier
	probes   map[string]Probe
	logger   observability.Logger
}

func NewHandlers(cfg *config.Config, checkout CheckoutService, mail MailVerifier, probes map[string]Probe, logger observability.Logger) *Handlers {
	return &Handlers{
		cfg:      cfg,
		checkout: checkout,
		mail:     mail,
		probes:   probes,
		logger:   logger,
	}
}

type checkoutResponse struct {
	Success         bool   `json:"success"`
	PaymentIntentID string `json:"paymentIntentId,omitempty"`
	Message         string `json:"message,omitempty"`
	Error           string `json:"error,omitempty"`
	Details         string `json:"details,omitempty"`
}

func (h *Handlers) Checkout(w http.ResponseWriter, r *http.Request) {
	logger := observability.LoggerFromContext(r.Context(), h.logger)

	var req domain.BookingRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, checkoutResponse{Error: "Invalid request", Details: err.Error()})
		return
	}

	res, err := h.checkout.Checkout(r.Context(), req)
	if err != nil {
		status, public := checkoutError(err)
		entry := logger.WithError(err).WithField("status", status)
		if status >= http.StatusInternalServerError {
			entry.Error("checkout failed")
		} else {
			entry.Warn("checkout rejected")
		}
		writeJSON(w, status, checkoutResponse{Error: public, Details: err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, checkoutResponse{
		Success:         true,
		PaymentIntentID: res.PaymentReference,
		Message:         "Payment successful",
	})
}

func checkoutError(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrConfiguration):
		return http.StatusInternalServerError, "Stripe configuration missing"
	case errors.Is(err, domain.ErrPaymentNotCompleted):
		return http.StatusBadRequest, "Payment failed"
	case errors.Is(err, domain.ErrPaymentDeclined):
		return http.StatusBadRequest, "Card error"
	case errors.Is(err, domain.ErrInvalidRequest):
		return http.StatusBadRequest, "Invalid request"
	default:
		return http.StatusInternalServerError, "Payment processing failed"
	}
}

func (h *Handlers) DownloadTicket(w http.ResponseWriter, r *http.Request) {
	reference := strings.TrimSpace(r.URL.Query().Get("paymentIntent"))
	if reference == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "Payment Intent ID is required"})
		return
	}

	artifact, err := h.checkout.Ticket(r.Context(), reference)
	if errors.Is(err, domain.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "Ticket not found"})
		return
	}
	if err != nil {
		observability.LoggerFromContext(r.Context(), h.logger).
			WithField("payment_reference", reference).
			WithError(err).
			Error("ticket download failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to generate ticket"})
		return
	}

	w.Header().Set("Content-Type", artifact.ContentType())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Content)))
	w.WriteHeader(http.StatusOK)
	w.Write(artifact.Content)
}

type smtpEnvironment struct {
	Host    string `json:"SMTP_HOST"`
	Port    int    `json:"SMTP_PORT"`
	Secure  bool   `json:"SMTP_SECURE"`
	User    string `json:"SMTP_USER"`
	From    string `json:"SMTP_FROM"`
	PassSet bool   `json:"SMTP_PASS_SET"`
}

// SmtpCheck verifies the mail transport without sending anything.
func (h *Handlers) SmtpCheck(w http.ResponseWriter, r *http.Request) {
	mc := h.cfg.Mail
	env := smtpEnvironment{
		Host:    mc.Host,
		Port:    mc.Port,
		Secure:  mc.Secure,
		User:    mc.User,
		From:    mc.From,
		PassSet: mc.Password != "",
	}

	if missing := mc.Missing(); len(missing) > 0 || h.mail == nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success":     false,
			"error":       "SMTP not configured",
			"details":     "missing: " + strings.Join(missing, ", "),
			"environment": env,
		})
		return
	}

	if err := h.mail.Verify(r.Context()); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"success":     false,
			"error":       "SMTP connection failed",
			"details":     err.Error(),
			"environment": env,
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":     true,
		"message":     "SMTP connection verified",
		"environment": env,
	})
}

func (h *Handlers) Healthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}

func (h *Handlers) Readyz(w http.ResponseWriter, r *http.Request) {
	checks := make(map[string]string, len(h.probes))
	status := http.StatusOK
	for name, probe := range h.probes {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		err := probe(ctx)
		cancel()
		if err != nil {
			checks[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		checks[name] = "ok"
	}
	writeJSON(w, status, map[string]interface{}{"ready": status == http.StatusOK, "checks": checks})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}
