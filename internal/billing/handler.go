package billing

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/stripe/stripe-go/v79"
	portalsession "github.com/stripe/stripe-go/v79/billingportal/session"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/customer"

	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/internal/tenancy"
	"github.com/agendai/agendai-platform/pkg/logging"
)

// Plan tiers.
const (
	TierBasic = "basic"
	TierPro   = "pro"
)

// Config carries the Stripe keys and plan prices.
type Config struct {
	SecretKey               string
	WebhookSecret           string
	WebhookToleranceSeconds int
	PriceBasic              string
	PricePro                string
	CheckoutSuccessURL      string
	CheckoutCancelURL       string
	PortalReturnURL         string
}

// Handler handles checkout, portal, and webhook requests against Stripe.
type Handler struct {
	cfg    Config
	pros   professionals.Repository
	events EventRepository
	logger *logging.Logger

	// Stripe API seams, replaced in tests.
	newCheckoutSession func(params *stripe.CheckoutSessionParams) (*stripe.CheckoutSession, error)
	newPortalSession   func(params *stripe.BillingPortalSessionParams) (*stripe.BillingPortalSession, error)
	newCustomer        func(params *stripe.CustomerParams) (*stripe.Customer, error)
}

// NewHandler creates the billing handler.
func NewHandler(cfg Config, pros professionals.Repository, events EventRepository, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	stripe.Key = cfg.SecretKey
	return &Handler{
		cfg:                cfg,
		pros:               pros,
		events:             events,
		logger:             logger,
		newCheckoutSession: checkoutsession.New,
		newPortalSession:   portalsession.New,
		newCustomer:        customer.New,
	}
}

func (h *Handler) tolerance() time.Duration {
	secs := h.cfg.WebhookToleranceSeconds
	if secs <= 0 {
		secs = 300
	}
	return time.Duration(secs) * time.Second
}

type checkoutRequest struct {
	Plan string `json:"plan"`
}

// CreateCheckoutSession handles POST /stripe/create-checkout-session. It
// lazily creates the Stripe customer and returns the hosted checkout URL.
func (h *Handler) CreateCheckoutSession(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	if h.cfg.SecretKey == "" {
		http.Error(w, "billing not configured", http.StatusNotImplemented)
		return
	}

	var req checkoutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	plan := strings.ToLower(strings.TrimSpace(req.Plan))

	var priceID string
	switch plan {
	case TierBasic:
		priceID = h.cfg.PriceBasic
	case TierPro:
		priceID = h.cfg.PricePro
	default:
		http.Error(w, "unsupported plan", http.StatusBadRequest)
		return
	}
	if priceID == "" {
		http.Error(w, "price not configured for plan", http.StatusNotImplemented)
		return
	}

	pro, err := h.pros.GetByID(r.Context(), professionalID)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load professional", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create checkout session", http.StatusInternalServerError)
		return
	}

	customerID, err := h.ensureCustomer(r, pro)
	if err != nil {
		h.logger.Error("failed to ensure stripe customer", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create checkout session", http.StatusBadGateway)
		return
	}

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		SuccessURL:        stripe.String(h.cfg.CheckoutSuccessURL),
		CancelURL:         stripe.String(h.cfg.CheckoutCancelURL),
		ClientReferenceID: stripe.String(pro.ID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{Price: stripe.String(priceID), Quantity: stripe.Int64(1)},
		},
		Metadata: map[string]string{
			"professional_id": pro.ID,
			"tier":            plan,
		},
		SubscriptionData: &stripe.CheckoutSessionSubscriptionDataParams{
			Metadata: map[string]string{
				"professional_id": pro.ID,
				"tier":            plan,
			},
		},
	}
	if idem := strings.TrimSpace(r.Header.Get("Idempotency-Key")); idem != "" {
		params.IdempotencyKey = stripe.String(idem)
	}

	sess, err := h.newCheckoutSession(params)
	if err != nil {
		h.logger.Error("stripe checkout session create failed", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create checkout session", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"session_id": sess.ID, "url": sess.URL})
}

// CreatePortalSession handles POST /stripe/create-portal-session.
func (h *Handler) CreatePortalSession(w http.ResponseWriter, r *http.Request) {
	professionalID, ok := tenancy.ProfessionalIDFromContext(r.Context())
	if !ok {
		http.Error(w, "missing identity", http.StatusUnauthorized)
		return
	}
	if h.cfg.SecretKey == "" {
		http.Error(w, "billing not configured", http.StatusNotImplemented)
		return
	}

	pro, err := h.pros.GetByID(r.Context(), professionalID)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			http.Error(w, "professional not found", http.StatusNotFound)
			return
		}
		h.logger.Error("failed to load professional", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create portal session", http.StatusInternalServerError)
		return
	}
	if pro.StripeCustomerID == "" {
		http.Error(w, "no billing customer on record", http.StatusConflict)
		return
	}

	sess, err := h.newPortalSession(&stripe.BillingPortalSessionParams{
		Customer:  stripe.String(pro.StripeCustomerID),
		ReturnURL: stripe.String(h.cfg.PortalReturnURL),
	})
	if err != nil {
		h.logger.Error("stripe portal session create failed", "error", err, "professional_id", professionalID)
		http.Error(w, "failed to create portal session", http.StatusBadGateway)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"url": sess.URL})
}

// ensureCustomer returns the professional's Stripe customer id, creating and
// persisting one if absent.
func (h *Handler) ensureCustomer(r *http.Request, pro *professionals.Professional) (string, error) {
	if pro.StripeCustomerID != "" {
		return pro.StripeCustomerID, nil
	}

	cust, err := h.newCustomer(&stripe.CustomerParams{
		Name:  stripe.String(pro.Name),
		Email: stripe.String(pro.Email),
		Metadata: map[string]string{
			"professional_id": pro.ID,
		},
	})
	if err != nil {
		return "", err
	}
	if err := h.pros.SetStripeCustomer(r.Context(), pro.ID, cust.ID); err != nil {
		return "", err
	}
	return cust.ID, nil
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
