package billing

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stripe/stripe-go/v79"

	"github.com/agendai/agendai-platform/internal/professionals"
	"github.com/agendai/agendai-platform/pkg/logging"
)

func signPayload(secret string, payload []byte) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func postEvent(t *testing.T, h *Handler, payload []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload(h.cfg.WebhookSecret, payload))
	w := httptest.NewRecorder()
	h.Webhook(w, req)
	return w
}

func checkoutCompletedPayload(eventID string) []byte {
	return []byte(fmt.Sprintf(`{
		"id": %q,
		"api_version": %q,
		"type": "checkout.session.completed",
		"data": {
			"object": {
				"id": "cs_1",
				"customer": {"id": "cus_hook"},
				"subscription": {"id": "sub_1"},
				"metadata": {"professional_id": "pro-1", "tier": "pro"}
			}
		}
	}`, eventID, stripe.APIVersion))
}

func TestWebhook_CheckoutCompletedActivatesSubscription(t *testing.T) {
	pros := professionals.NewInMemoryRepository()
	pros.Seed(&professionals.Professional{ID: "pro-1", Name: "Ana"})
	h := newTestHandler(pros)

	w := postEvent(t, h, checkoutCompletedPayload("evt_1"))
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}

	pro, _ := pros.GetByID(context.Background(), "pro-1")
	if pro.SubscriptionStatus != professionals.SubscriptionActive {
		t.Errorf("expected active subscription, got %q", pro.SubscriptionStatus)
	}
	if pro.SubscriptionTier != TierPro {
		t.Errorf("expected pro tier, got %q", pro.SubscriptionTier)
	}
	if pro.StripeCustomerID != "cus_hook" {
		t.Errorf("expected customer id mirrored, got %q", pro.StripeCustomerID)
	}
	if pro.StripeSubscriptionID != "sub_1" {
		t.Errorf("expected subscription id mirrored, got %q", pro.StripeSubscriptionID)
	}
}

func TestWebhook_DuplicateEventAppliedOnce(t *testing.T) {
	pros := professionals.NewInMemoryRepository()
	pros.Seed(&professionals.Professional{ID: "pro-1", Name: "Ana"})
	h := newTestHandler(pros)

	if w := postEvent(t, h, checkoutCompletedPayload("evt_dup")); w.Code != http.StatusOK {
		t.Fatalf("first delivery: expected 200, got %d", w.Code)
	}

	// Downgrade by hand, then replay. The replay must not reactivate.
	if err := pros.SetSubscription(context.Background(), "pro-1", "", "", professionals.SubscriptionInactive); err != nil {
		t.Fatal(err)
	}
	if w := postEvent(t, h, checkoutCompletedPayload("evt_dup")); w.Code != http.StatusOK {
		t.Fatalf("replay: expected 200, got %d", w.Code)
	}

	pro, _ := pros.GetByID(context.Background(), "pro-1")
	if pro.SubscriptionStatus != professionals.SubscriptionInactive {
		t.Errorf("replay reapplied the event, status %q", pro.SubscriptionStatus)
	}
}

type flakyProfessionals struct {
	*professionals.InMemoryRepository
	failures int
}

func (f *flakyProfessionals) SetSubscription(ctx context.Context, id, subscriptionID, tier, status string) error {
	if f.failures > 0 {
		f.failures--
		return context.DeadlineExceeded
	}
	return f.InMemoryRepository.SetSubscription(ctx, id, subscriptionID, tier, status)
}

func TestWebhook_FailedApplyIsRetriable(t *testing.T) {
	inner := professionals.NewInMemoryRepository()
	inner.Seed(&professionals.Professional{ID: "pro-1", Name: "Ana"})
	pros := &flakyProfessionals{InMemoryRepository: inner, failures: 1}
	h := NewHandler(testConfig(), pros, NewInMemoryEventRepository(), logging.Default())

	payload := checkoutCompletedPayload("evt_flaky")
	if w := postEvent(t, h, payload); w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 while the apply fails, got %d: %s", w.Code, w.Body.String())
	}

	// Stripe retries the same event id after the outage; it must be applied,
	// not acked as a duplicate of the failed delivery.
	if w := postEvent(t, h, payload); w.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d: %s", w.Code, w.Body.String())
	}

	pro, _ := inner.GetByID(context.Background(), "pro-1")
	if pro.SubscriptionStatus != professionals.SubscriptionActive {
		t.Errorf("expected retry to activate the subscription, got %q", pro.SubscriptionStatus)
	}
}

func TestWebhook_SubscriptionUpdatedMirrorsPastDue(t *testing.T) {
	pros := professionals.NewInMemoryRepository()
	pros.Seed(&professionals.Professional{
		ID:                 "pro-1",
		Name:               "Ana",
		StripeCustomerID:   "cus_hook",
		SubscriptionTier:   TierBasic,
		SubscriptionStatus: professionals.SubscriptionActive,
	})
	h := newTestHandler(pros)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_2",
		"api_version": %q,
		"type": "customer.subscription.updated",
		"data": {
			"object": {
				"id": "sub_1",
				"status": "past_due",
				"customer": {"id": "cus_hook"},
				"metadata": {}
			}
		}
	}`, stripe.APIVersion))
	if w := postEvent(t, h, payload); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	pro, _ := pros.GetByID(context.Background(), "pro-1")
	if pro.SubscriptionStatus != professionals.SubscriptionPastDue {
		t.Errorf("expected past_due, got %q", pro.SubscriptionStatus)
	}
	if pro.SubscriptionTier != TierBasic {
		t.Errorf("tier should be kept when metadata omits it, got %q", pro.SubscriptionTier)
	}
}

func TestWebhook_SubscriptionDeletedDeactivates(t *testing.T) {
	pros := professionals.NewInMemoryRepository()
	pros.Seed(&professionals.Professional{
		ID:                   "pro-1",
		Name:                 "Ana",
		StripeCustomerID:     "cus_hook",
		StripeSubscriptionID: "sub_1",
		SubscriptionTier:     TierPro,
		SubscriptionStatus:   professionals.SubscriptionActive,
	})
	h := newTestHandler(pros)

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_3",
		"api_version": %q,
		"type": "customer.subscription.deleted",
		"data": {
			"object": {
				"id": "sub_1",
				"status": "canceled",
				"customer": {"id": "cus_hook"},
				"metadata": {"professional_id": "pro-1"}
			}
		}
	}`, stripe.APIVersion))
	if w := postEvent(t, h, payload); w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	pro, _ := pros.GetByID(context.Background(), "pro-1")
	if pro.SubscriptionStatus != professionals.SubscriptionInactive {
		t.Errorf("expected inactive, got %q", pro.SubscriptionStatus)
	}
	if pro.SubscriptionTier != "" || pro.StripeSubscriptionID != "" {
		t.Errorf("expected tier and subscription cleared, got %q / %q", pro.SubscriptionTier, pro.StripeSubscriptionID)
	}
}

func TestWebhook_UnknownProfessionalIsAcked(t *testing.T) {
	h := newTestHandler(professionals.NewInMemoryRepository())

	payload := []byte(fmt.Sprintf(`{
		"id": "evt_4",
		"api_version": %q,
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_x", "customer": {"id": "cus_missing"}, "metadata": {}}}
	}`, stripe.APIVersion))
	if w := postEvent(t, h, payload); w.Code != http.StatusOK {
		t.Fatalf("unknown professional must be acked, got %d", w.Code)
	}
}

func TestWebhook_BadSignatureRejected(t *testing.T) {
	h := newTestHandler(professionals.NewInMemoryRepository())

	payload := checkoutCompletedPayload("evt_5")
	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader(payload))
	req.Header.Set("Stripe-Signature", signPayload("whsec_wrong", payload))
	w := httptest.NewRecorder()
	h.Webhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 on bad signature, got %d", w.Code)
	}
}

func TestWebhook_MissingSignatureRejected(t *testing.T) {
	h := newTestHandler(professionals.NewInMemoryRepository())

	req := httptest.NewRequest(http.MethodPost, "/stripe/webhook", bytes.NewReader([]byte(`{}`)))
	w := httptest.NewRecorder()
	h.Webhook(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", w.Code)
	}
}
