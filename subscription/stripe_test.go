package subscription

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// Webhook tests run without a signing secret, which skips signature
// verification the same way the development flow does.
func postWebhook(t *testing.T, s *StripeService, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest("POST", "/stripe/webhook", strings.NewReader(body))
	w := httptest.NewRecorder()
	if err := s.HandleWebhook(w, req); err != nil {
		t.Fatalf("HandleWebhook: %v", err)
	}
	return w
}

func TestWebhookCheckoutCompleted(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeCounter{}, time.Date(2024, 7, 10, 12, 0, 0, 0, time.Local))
	s := &StripeService{svc: svc}

	postWebhook(t, s, `{
		"type": "checkout.session.completed",
		"data": {"object": {
			"id": "cs_test_1",
			"metadata": {"user_id": "u1"},
			"customer": "cus_1",
			"subscription": "sub_1"
		}}
	}`)

	rec := st.records["u1"]
	if rec.Plan != PlanPremium || !rec.IsActive {
		t.Fatalf("record = %+v, want active premium", rec)
	}
	if rec.EndDate != nil {
		t.Errorf("webhook-activated premium must be open-ended, got endDate=%v", rec.EndDate)
	}
	if rec.StripeCustomerID != "cus_1" || rec.StripeSubscriptionID != "sub_1" {
		t.Errorf("billing refs = %+v", rec)
	}
}

func TestWebhookFallsBackToClientReferenceID(t *testing.T) {
	st := newFakeStore()
	svc := newTestService(st, &fakeCounter{}, time.Now())
	s := &StripeService{svc: svc}

	postWebhook(t, s, `{
		"type": "checkout.session.completed",
		"data": {"object": {"client_reference_id": "u2", "customer": "cus_2"}}
	}`)

	if rec := st.records["u2"]; rec.Plan != PlanPremium {
		t.Fatalf("record = %+v", rec)
	}
}

func TestWebhookMissingUserIsAnError(t *testing.T) {
	s := &StripeService{svc: newTestService(newFakeStore(), &fakeCounter{}, time.Now())}
	req := httptest.NewRequest("POST", "/stripe/webhook", strings.NewReader(`{
		"type": "checkout.session.completed",
		"data": {"object": {"customer": "cus_3"}}
	}`))
	if err := s.HandleWebhook(httptest.NewRecorder(), req); err == nil {
		t.Fatal("expected error for session without user reference")
	}
}

func TestWebhookSubscriptionDeleted(t *testing.T) {
	now := time.Date(2024, 7, 10, 12, 0, 0, 0, time.Local)
	st := newFakeStore()
	st.records["u1"] = Record{UserID: "u1", Plan: PlanPremium, IsActive: true, StripeCustomerID: "cus_1"}
	svc := newTestService(st, &fakeCounter{}, now)
	s := &StripeService{svc: svc}

	postWebhook(t, s, `{
		"type": "customer.subscription.deleted",
		"data": {"object": {"id": "sub_1", "customer": "cus_1"}}
	}`)

	rec := st.records["u1"]
	if rec.Plan != PlanFree || rec.IsActive {
		t.Fatalf("record = %+v, want inactive free", rec)
	}
	if rec.EndDate == nil || *rec.EndDate != now.UnixMilli() {
		t.Errorf("endDate = %v, want cancellation time", rec.EndDate)
	}
}

func TestWebhookIgnoresOtherEvents(t *testing.T) {
	st := newFakeStore()
	s := &StripeService{svc: newTestService(st, &fakeCounter{}, time.Now())}
	w := postWebhook(t, s, `{"type": "invoice.paid", "data": {"object": {}}}`)
	if w.Body.String() != "ignored" {
		t.Errorf("body = %q, want ignored", w.Body.String())
	}
	if len(st.records) != 0 {
		t.Errorf("unexpected record mutation: %+v", st.records)
	}
}
