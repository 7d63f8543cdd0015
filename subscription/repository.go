package subscription

import (
	"context"
	"database/sql"

	"mushimap-backend/store"
)

type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

const recordColumns = `user_id, plan, start_date, end_date, is_active, stripe_customer_id, stripe_subscription_id`

func scanRecord(row interface{ Scan(...any) error }) (*Record, error) {
	var r Record
	var endDate sql.NullInt64
	if err := row.Scan(&r.UserID, &r.Plan, &r.StartDate, &endDate, &r.IsActive, &r.StripeCustomerID, &r.StripeSubscriptionID); err != nil {
		return nil, err
	}
	if endDate.Valid {
		v := endDate.Int64
		r.EndDate = &v
	}
	return &r, nil
}

// Get returns the record for userID, or nil when none exists.
func (r *Repository) Get(ctx context.Context, userID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM user_subscriptions WHERE user_id=? LIMIT 1`, userID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.MapError(err)
	}
	return rec, nil
}

// Put upserts rec merge-style: empty Stripe references never overwrite
// stored ones, so a UI-initiated upgrade cannot clobber what the billing
// webhook wrote.
func (r *Repository) Put(ctx context.Context, rec Record) error {
	var endDate any
	if rec.EndDate != nil {
		endDate = *rec.EndDate
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO user_subscriptions (`+recordColumns+`) VALUES (?,?,?,?,?,?,?)
		ON DUPLICATE KEY UPDATE
			plan=VALUES(plan),
			start_date=VALUES(start_date),
			end_date=VALUES(end_date),
			is_active=VALUES(is_active),
			stripe_customer_id=IF(VALUES(stripe_customer_id)='', stripe_customer_id, VALUES(stripe_customer_id)),
			stripe_subscription_id=IF(VALUES(stripe_subscription_id)='', stripe_subscription_id, VALUES(stripe_subscription_id))`,
		rec.UserID, rec.Plan, rec.StartDate, endDate, rec.IsActive, rec.StripeCustomerID, rec.StripeSubscriptionID)
	return store.MapError(err)
}

// SetPlan mutates only the plan and active flag; used by the lazy
// expiry downgrade, which must leave all other fields untouched.
func (r *Repository) SetPlan(ctx context.Context, userID string, plan Plan, isActive bool) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_subscriptions SET plan=?, is_active=? WHERE user_id=?`,
		plan, isActive, userID)
	return store.MapError(err)
}

// Cancel marks the record free and inactive with the given end time.
// Rows are never deleted; cancellation is a field mutation.
func (r *Repository) Cancel(ctx context.Context, userID string, atMs int64) error {
	_, err := r.db.ExecContext(ctx, `UPDATE user_subscriptions SET plan=?, is_active=0, end_date=? WHERE user_id=?`,
		PlanFree, atMs, userID)
	return store.MapError(err)
}

// FindByCustomerID resolves a record from a Stripe customer reference,
// as delivered by cancellation webhooks.
func (r *Repository) FindByCustomerID(ctx context.Context, customerID string) (*Record, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM user_subscriptions WHERE stripe_customer_id=? LIMIT 1`, customerID)
	rec, err := scanRecord(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, store.MapError(err)
	}
	return rec, nil
}
