package billing

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/agendai/agendai-platform/internal/professionals"
)

// Webhook handles POST /stripe/webhook. Signature verification is the auth;
// processed event ids are recorded so Stripe replays become no-ops.
func (h *Handler) Webhook(w http.ResponseWriter, r *http.Request) {
	if h.cfg.WebhookSecret == "" {
		http.Error(w, "stripe webhook not configured", http.StatusServiceUnavailable)
		return
	}

	sigHeader := r.Header.Get("Stripe-Signature")
	if strings.TrimSpace(sigHeader) == "" {
		http.Error(w, "missing Stripe-Signature header", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		http.Error(w, "failed to read request body", http.StatusBadRequest)
		return
	}

	evt, err := webhook.ConstructEventWithTolerance(body, sigHeader, h.cfg.WebhookSecret, h.tolerance())
	if err != nil {
		http.Error(w, "invalid signature", http.StatusBadRequest)
		return
	}
	evtType := string(evt.Type)

	if err := h.events.Insert(r.Context(), &Event{
		ProviderEventID: evt.ID,
		EventType:       evtType,
		Payload:         body,
	}); err != nil {
		if errors.Is(err, ErrDuplicateEvent) {
			h.logger.Info("stripe event duplicate ignored", "event_id", evt.ID, "event_type", evtType)
			writeJSON(w, http.StatusOK, map[string]any{"status": "duplicate"})
			return
		}
		h.logger.Error("failed to record stripe event", "error", err, "event_id", evt.ID)
		http.Error(w, "failed to record event", http.StatusInternalServerError)
		return
	}

	h.logger.Info("stripe event received", "event_id", evt.ID, "event_type", evtType)

	switch evtType {
	case "checkout.session.completed":
		err = h.applyCheckoutCompleted(r, evt.Data.Raw)
	case "customer.subscription.updated":
		err = h.applySubscriptionUpdated(r, evt.Data.Raw)
	case "customer.subscription.deleted":
		err = h.applySubscriptionDeleted(r, evt.Data.Raw)
	default:
		// Unhandled types are acked so Stripe stops retrying them.
	}
	if err != nil {
		h.logger.Error("failed to apply stripe event", "error", err, "event_id", evt.ID, "event_type", evtType)
		// Drop the record so Stripe's retry gets applied rather than
		// treated as a duplicate of a delivery that changed nothing.
		if delErr := h.events.Delete(r.Context(), evt.ID); delErr != nil {
			h.logger.Error("failed to release event record", "error", delErr, "event_id", evt.ID)
		}
		http.Error(w, "failed to apply event", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"status": "ok"})
}

func (h *Handler) applyCheckoutCompleted(r *http.Request, raw json.RawMessage) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(raw, &session); err != nil {
		return err
	}

	professionalID := strings.TrimSpace(session.Metadata["professional_id"])
	tier := strings.ToLower(strings.TrimSpace(session.Metadata["tier"]))
	if professionalID == "" || tier == "" {
		h.logger.Warn("stripe checkout session missing metadata", "session_id", session.ID)
		return nil
	}

	if session.Customer != nil {
		if err := h.pros.SetStripeCustomer(r.Context(), professionalID, session.Customer.ID); err != nil {
			return err
		}
	}

	subscriptionID := ""
	if session.Subscription != nil {
		subscriptionID = session.Subscription.ID
	}
	return h.pros.SetSubscription(r.Context(), professionalID, subscriptionID, tier, professionals.SubscriptionActive)
}

func (h *Handler) applySubscriptionUpdated(r *http.Request, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}

	pro, err := h.professionalForSubscription(r, &sub)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			h.logger.Warn("stripe subscription for unknown professional", "subscription_id", sub.ID)
			return nil
		}
		return err
	}

	tier := strings.ToLower(strings.TrimSpace(sub.Metadata["tier"]))
	if tier == "" {
		tier = pro.SubscriptionTier
	}
	return h.pros.SetSubscription(r.Context(), pro.ID, sub.ID, tier, mirrorStatus(sub.Status))
}

func (h *Handler) applySubscriptionDeleted(r *http.Request, raw json.RawMessage) error {
	var sub stripe.Subscription
	if err := json.Unmarshal(raw, &sub); err != nil {
		return err
	}

	pro, err := h.professionalForSubscription(r, &sub)
	if err != nil {
		if errors.Is(err, professionals.ErrNotFound) {
			h.logger.Warn("stripe subscription for unknown professional", "subscription_id", sub.ID)
			return nil
		}
		return err
	}
	// Cleared tier: the professional drops back to the unsubscribed state.
	return h.pros.SetSubscription(r.Context(), pro.ID, "", "", professionals.SubscriptionInactive)
}

func (h *Handler) professionalForSubscription(r *http.Request, sub *stripe.Subscription) (*professionals.Professional, error) {
	if id := strings.TrimSpace(sub.Metadata["professional_id"]); id != "" {
		return h.pros.GetByID(r.Context(), id)
	}
	if sub.Customer != nil {
		return h.pros.GetByStripeCustomer(r.Context(), sub.Customer.ID)
	}
	return nil, professionals.ErrNotFound
}

// mirrorStatus maps Stripe subscription statuses onto the three states the
// dashboard shows.
func mirrorStatus(s stripe.SubscriptionStatus) string {
	switch s {
	case stripe.SubscriptionStatusActive, stripe.SubscriptionStatusTrialing:
		return professionals.SubscriptionActive
	case stripe.SubscriptionStatusPastDue, stripe.SubscriptionStatusUnpaid:
		return professionals.SubscriptionPastDue
	default:
		return professionals.SubscriptionInactive
	}
}
