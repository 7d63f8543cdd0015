package subscription

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	stripe "github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/client"
	"github.com/stripe/stripe-go/v78/webhook"
)

// StripeService creates checkout sessions and consumes billing webhooks.
// When STRIPE_SECRET_KEY is not set the service is disabled (nil).
type StripeService struct {
	svc           *Service
	secretKey     string
	webhookSecret string
	successURL    string
	cancelURL     string
	priceID       string
	sc            *client.API
	invalidKey    bool // once detected, short-circuit further remote calls
}

var ErrStripeInvalidAPIKey = errors.New("stripe_invalid_api_key")

func maskKey(k string) string {
	if len(k) < 12 {
		return "****"
	}
	return k[:7] + "..." + k[len(k)-4:]
}

// NewStripeFromEnv returns a configured service or nil when STRIPE_SECRET_KEY is missing.
func NewStripeFromEnv(svc *Service) *StripeService {
	key := os.Getenv("STRIPE_SECRET_KEY")
	if key == "" {
		return nil
	}
	success := os.Getenv("STRIPE_SUCCESS_URL")
	if success == "" {
		success = "https://example.com/checkout/success"
	}
	cancel := os.Getenv("STRIPE_CANCEL_URL")
	if cancel == "" {
		cancel = "https://example.com/checkout/cancel"
	}
	sc := &client.API{}
	sc.Init(key, nil)
	return &StripeService{
		svc:           svc,
		secretKey:     key,
		webhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		successURL:    success,
		cancelURL:     cancel,
		priceID:       os.Getenv("STRIPE_PREMIUM_PRICE_ID"),
		sc:            sc,
	}
}

func (s *StripeService) isInvalidKey(err error) bool {
	var se *stripe.Error
	if errors.As(err, &se) && (se.HTTPStatusCode == 401 || strings.Contains(strings.ToLower(se.Msg), "invalid api key")) {
		return true
	}
	return false
}

// CreateCheckoutSession opens a subscription-mode checkout for the user.
// The user id travels in client_reference_id and metadata so the webhook
// can attribute the completed session.
func (s *StripeService) CreateCheckoutSession(ctx context.Context, userID, priceID string) (string, string, error) {
	if s == nil {
		return "", "", errors.New("stripe not configured")
	}
	if s.invalidKey {
		return "", "", ErrStripeInvalidAPIKey
	}
	if priceID == "" {
		priceID = s.priceID
	}
	if priceID == "" {
		return "", "", errors.New("価格IDが正しく設定されていません。")
	}
	params := &stripe.CheckoutSessionParams{
		SuccessURL: stripe.String(s.successURL),
		CancelURL:  stripe.String(s.cancelURL),
		Mode:       stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		LineItems: []*stripe.CheckoutSessionLineItemParams{{
			Price:    stripe.String(priceID),
			Quantity: stripe.Int64(1),
		}},
		ClientReferenceID: stripe.String(userID),
		Metadata: map[string]string{
			"user_id": userID,
		},
	}
	sess, err := s.sc.CheckoutSessions.New(params)
	if err != nil {
		if s.isInvalidKey(err) {
			log.Printf("[stripe][checkout] invalid api key (%s): %v", maskKey(s.secretKey), err)
			s.invalidKey = true
			return "", "", ErrStripeInvalidAPIKey
		}
		log.Printf("[stripe][checkout] error: %v", err)
		return "", "", err
	}
	return sess.ID, sess.URL, nil
}

// webhookEvent is the minimal payload shape we consume. For
// checkout.session.completed the object is a session; for
// customer.subscription.deleted it is a subscription whose customer
// field carries the reference we key on.
type webhookEvent struct {
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string            `json:"id"`
			Metadata          map[string]string `json:"metadata"`
			ClientReferenceID string            `json:"client_reference_id"`
			Customer          string            `json:"customer"`
			Subscription      string            `json:"subscription"`
		} `json:"object"`
	} `json:"data"`
}

// HandleWebhook consumes billing events. Delivery is at-least-once, so
// both handled events are idempotent record mutations.
func (s *StripeService) HandleWebhook(w http.ResponseWriter, r *http.Request) error {
	if s == nil {
		return errors.New("stripe not configured")
	}
	payload, err := io.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if s.webhookSecret != "" {
		sig := r.Header.Get("Stripe-Signature")
		if _, err := webhook.ConstructEvent(payload, sig, s.webhookSecret); err != nil {
			return errors.New("invalid webhook signature: " + err.Error())
		}
	}

	var event webhookEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return err
	}

	switch event.Type {
	case "checkout.session.completed":
		userID := event.Data.Object.Metadata["user_id"]
		if userID == "" {
			userID = event.Data.Object.ClientReferenceID
		}
		if userID == "" {
			return errors.New("missing user id in session")
		}
		if err := s.svc.ActivateFromCheckout(r.Context(), userID, event.Data.Object.Customer, event.Data.Object.Subscription); err != nil {
			return err
		}
	case "customer.subscription.deleted":
		if event.Data.Object.Customer == "" {
			return errors.New("missing customer id")
		}
		if err := s.svc.CancelByCustomer(r.Context(), event.Data.Object.Customer); err != nil {
			return err
		}
	default:
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ignored"))
		return nil
	}

	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
	return nil
}
