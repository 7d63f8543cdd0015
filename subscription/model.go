package subscription

import (
	"fmt"
	"time"
)

type Plan string

const (
	PlanFree    Plan = "free"
	PlanPremium Plan = "premium"
)

// FreePlanMonthlyLimit is the number of entries a free-plan user may
// post per calendar month.
const FreePlanMonthlyLimit = 10

// Premium grants are sold in fixed 30-day blocks, not calendar months.
const premiumMonthMs = 30 * 24 * 60 * 60 * 1000

// Record is the single per-user subscription document. Stripe reference
// fields are written only by the billing webhook.
type Record struct {
	UserID               string `json:"userId"`
	Plan                 Plan   `json:"plan"`
	StartDate            int64  `json:"startDate"`
	EndDate              *int64 `json:"endDate,omitempty"`
	IsActive             bool   `json:"isActive"`
	StripeCustomerID     string `json:"stripeCustomerId,omitempty"`
	StripeSubscriptionID string `json:"stripeSubscriptionId,omitempty"`
}

// Decision is the outcome of a post-entitlement check. Count and limit
// are only present when a quota was actually evaluated.
type Decision struct {
	CanPost      bool   `json:"canPost"`
	Reason       string `json:"reason,omitempty"`
	CurrentCount *int   `json:"currentCount,omitempty"`
	Limit        *int   `json:"limit,omitempty"`
}

// DefaultRecord is the implicit subscription of a user with no persisted
// row: free plan, active, started now.
func DefaultRecord(userID string, nowMs int64) Record {
	return Record{UserID: userID, Plan: PlanFree, StartDate: nowMs, IsActive: true}
}

// ResolveEffective turns a possibly-absent stored record into the
// subscription the user effectively holds.
func ResolveEffective(rec *Record, userID string, nowMs int64) Record {
	if rec == nil {
		return DefaultRecord(userID, nowMs)
	}
	return *rec
}

// PremiumExpired reports whether the record is a premium grant whose end
// date has passed. Expiry is time-derived; the stored IsActive flag has
// no say here.
func (r Record) PremiumExpired(nowMs int64) bool {
	return r.Plan == PlanPremium && r.EndDate != nil && *r.EndDate < nowMs
}

// Reconcile downgrades an expired premium record to an active free one.
// It is pure; persisting the change is the caller's (best-effort) job.
func Reconcile(rec Record, nowMs int64) (Record, bool) {
	if !rec.PremiumExpired(nowMs) {
		return rec, false
	}
	rec.Plan = PlanFree
	rec.IsActive = true
	return rec, true
}

// Decide maps an already-reconciled record plus the monthly usage count
// to an entitlement decision. Denial needs a positive over-quota signal
// on the free plan; every ambiguous state (including a failed count)
// resolves to allow.
func Decide(rec Record, expired bool, count int, countErr error) Decision {
	if rec.Plan == PlanPremium {
		return Decision{CanPost: true}
	}
	if countErr != nil {
		return Decision{CanPost: true}
	}
	limit := FreePlanMonthlyLimit
	if count >= limit {
		reason := fmt.Sprintf("無料プランでは月間%d件まで投稿できます。今月の投稿数: %d/%d", limit, count, limit)
		if expired {
			reason = fmt.Sprintf("プレミアムプランの有効期限が切れました。無料プランでは月間%d件まで投稿できます。", limit)
		}
		return Decision{CanPost: false, Reason: reason, CurrentCount: &count, Limit: &limit}
	}
	return Decision{CanPost: true, CurrentCount: &count, Limit: &limit}
}

// MonthStart returns the quota epoch boundary: local midnight on the
// first day of t's month, in epoch milliseconds.
func MonthStart(t time.Time) int64 {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).UnixMilli()
}
