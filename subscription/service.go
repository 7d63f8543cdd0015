package subscription

import (
	"context"
	"errors"
	"log"
	"time"

	"mushimap-backend/store"
)

// ErrStoreMisconfigured is surfaced when a user-initiated write is
// rejected for missing database privileges, so the client can show a
// setup problem instead of a generic failure.
var ErrStoreMisconfigured = errors.New("データベースの書き込み権限が正しく設定されていません。READMEを参照して設定を更新してください。")

// Store is the persistence surface the entitlement engine needs.
type Store interface {
	Get(ctx context.Context, userID string) (*Record, error)
	Put(ctx context.Context, rec Record) error
	SetPlan(ctx context.Context, userID string, plan Plan, isActive bool) error
	Cancel(ctx context.Context, userID string, atMs int64) error
	FindByCustomerID(ctx context.Context, customerID string) (*Record, error)
}

// EntryCounter exposes the semantic timestamps of a user's entries.
// Month filtering happens in process; per-user volume is small enough
// that pushing the range into the store is not worth the coupling.
type EntryCounter interface {
	TimestampsByUser(ctx context.Context, userID string) ([]int64, error)
}

// Service is the single source of truth for "may this user post one
// more entry" and for plan display state.
type Service struct {
	store   Store
	entries EntryCounter
	now     func() time.Time
}

func NewService(store Store, entries EntryCounter) *Service {
	return &Service{store: store, entries: entries, now: time.Now}
}

// GetSubscription is total: it always yields a usable record. A missing
// row is lazily materialized as the free default; when even that write
// is rejected the in-memory default is returned instead. A permission
// denial on the read is an expected condition and stays silent.
func (s *Service) GetSubscription(ctx context.Context, userID string) Record {
	nowMs := s.now().UnixMilli()
	rec, err := s.store.Get(ctx, userID)
	if err != nil {
		if !store.IsPermissionDenied(err) {
			log.Printf("[subscription][warn] read failed, using free default user=%s err=%v", userID, err)
		}
		return DefaultRecord(userID, nowMs)
	}
	if rec == nil {
		def := DefaultRecord(userID, nowMs)
		if err := s.store.Put(ctx, def); err != nil {
			log.Printf("[subscription][warn] cannot materialize default record user=%s err=%v", userID, err)
		}
		return def
	}
	return *rec
}

// IsPremiumActive reports premium display state. Expiry is derived from
// the end date, so a stale IsActive flag cannot keep premium alive.
// Anything ambiguous resolves to false.
func (s *Service) IsPremiumActive(ctx context.Context, userID string) bool {
	rec := s.GetSubscription(ctx, userID)
	if rec.Plan != PlanPremium {
		return false
	}
	if rec.EndDate != nil && *rec.EndDate < s.now().UnixMilli() {
		return false
	}
	return rec.IsActive
}

// monthlyEntryCount counts the user's entries in [first-of-month, now).
func (s *Service) monthlyEntryCount(ctx context.Context, userID string) (int, error) {
	timestamps, err := s.entries.TimestampsByUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := s.now()
	start := MonthStart(now)
	nowMs := now.UnixMilli()
	count := 0
	for _, ts := range timestamps {
		if ts >= start && ts < nowMs {
			count++
		}
	}
	return count, nil
}

// GetMonthlyEntryCount returns this month's usage, 0 when the count
// cannot be obtained.
func (s *Service) GetMonthlyEntryCount(ctx context.Context, userID string) int {
	count, err := s.monthlyEntryCount(ctx, userID)
	if err != nil {
		log.Printf("[subscription][warn] monthly count failed user=%s err=%v", userID, err)
		return 0
	}
	return count
}

// CanPostEntry decides whether the user may create one more entry. It
// never fails: denial requires a confirmed over-quota free-plan state,
// and every other path, including count failures, allows the post.
//
// There is deliberately no lock between the count and the subsequent
// save, so near-simultaneous submissions can overshoot the monthly
// limit. The quota is a soft limit.
func (s *Service) CanPostEntry(ctx context.Context, userID string) Decision {
	rec := s.GetSubscription(ctx, userID)
	nowMs := s.now().UnixMilli()

	reconciled, expired := Reconcile(rec, nowMs)
	if expired {
		// Lazy downgrade of the stale premium row; the decision below
		// stands on the reconciled in-memory record either way.
		if err := s.store.SetPlan(ctx, userID, PlanFree, true); err != nil {
			log.Printf("[subscription][warn] lazy downgrade failed user=%s err=%v", userID, err)
		} else {
			log.Printf("[subscription][reconcile] premium expired, downgraded user=%s", userID)
		}
	}
	if reconciled.Plan == PlanPremium {
		return Decision{CanPost: true}
	}
	count, err := s.monthlyEntryCount(ctx, userID)
	if err != nil {
		log.Printf("[subscription][warn] count failed, allowing post user=%s err=%v", userID, err)
	}
	return Decide(reconciled, expired, count, err)
}

// UpgradeToPremium activates a premium grant of months fixed 30-day
// blocks starting now. Write failures propagate; a permission denial is
// translated into the configuration error.
func (s *Service) UpgradeToPremium(ctx context.Context, userID string, months int) error {
	if months <= 0 {
		months = 1
	}
	nowMs := s.now().UnixMilli()
	end := nowMs + int64(months)*premiumMonthMs
	rec := Record{
		UserID:    userID,
		Plan:      PlanPremium,
		StartDate: nowMs,
		EndDate:   &end,
		IsActive:  true,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		log.Printf("[subscription][error] upgrade failed user=%s err=%v", userID, err)
		if store.IsPermissionDenied(err) {
			return ErrStoreMisconfigured
		}
		return err
	}
	log.Printf("[subscription][upgrade] user=%s months=%d end=%d", userID, months, end)
	return nil
}

// CancelPremium ends the current grant: free plan, inactive, end date
// now. The record and its history are kept.
func (s *Service) CancelPremium(ctx context.Context, userID string) error {
	if err := s.store.Cancel(ctx, userID, s.now().UnixMilli()); err != nil {
		log.Printf("[subscription][error] cancel failed user=%s err=%v", userID, err)
		if store.IsPermissionDenied(err) {
			return ErrStoreMisconfigured
		}
		return err
	}
	log.Printf("[subscription][cancel] user=%s", userID)
	return nil
}

// ActivateFromCheckout applies a completed checkout event: premium with
// no end date (the provider renews it) plus the billing references.
// Upserting keeps delivery of the event idempotent.
func (s *Service) ActivateFromCheckout(ctx context.Context, userID, customerID, subscriptionID string) error {
	rec := Record{
		UserID:               userID,
		Plan:                 PlanPremium,
		StartDate:            s.now().UnixMilli(),
		IsActive:             true,
		StripeCustomerID:     customerID,
		StripeSubscriptionID: subscriptionID,
	}
	if err := s.store.Put(ctx, rec); err != nil {
		return err
	}
	log.Printf("[subscription][webhook] premium activated user=%s customer=%s", userID, customerID)
	return nil
}

// CancelByCustomer applies a provider-side subscription deletion. An
// unknown customer is not an error; the event may race a local cancel.
func (s *Service) CancelByCustomer(ctx context.Context, customerID string) error {
	rec, err := s.store.FindByCustomerID(ctx, customerID)
	if err != nil {
		return err
	}
	if rec == nil {
		log.Printf("[subscription][webhook] no record for customer=%s, ignoring", customerID)
		return nil
	}
	if err := s.store.Cancel(ctx, rec.UserID, s.now().UnixMilli()); err != nil {
		return err
	}
	log.Printf("[subscription][webhook] premium cancelled user=%s customer=%s", rec.UserID, customerID)
	return nil
}
