package subscription

import (
	"strings"
	"testing"
	"time"
)

func TestResolveEffective(t *testing.T) {
	now := int64(1700000000000)
	got := ResolveEffective(nil, "u1", now)
	if got.Plan != PlanFree || !got.IsActive || got.StartDate != now {
		t.Errorf("absent record resolved to %+v", got)
	}

	end := now + 1000
	stored := Record{UserID: "u1", Plan: PlanPremium, EndDate: &end, IsActive: true}
	if got := ResolveEffective(&stored, "u1", now); got != stored {
		t.Errorf("stored record changed during resolve: %+v", got)
	}
}

func TestReconcile(t *testing.T) {
	now := int64(1700000000000)
	past := now - 1
	future := now + 1

	expired := Record{UserID: "u1", Plan: PlanPremium, EndDate: &past, IsActive: true}
	rec, changed := Reconcile(expired, now)
	if !changed {
		t.Fatal("expired premium must reconcile")
	}
	if rec.Plan != PlanFree || !rec.IsActive {
		t.Errorf("reconciled = %+v, want active free", rec)
	}
	if rec.EndDate == nil || *rec.EndDate != past {
		t.Errorf("reconcile must not rewrite the end date, got %v", rec.EndDate)
	}

	for _, r := range []Record{
		{Plan: PlanPremium, EndDate: &future, IsActive: true},
		{Plan: PlanPremium, IsActive: true},
		{Plan: PlanFree, EndDate: &past, IsActive: true},
	} {
		if _, changed := Reconcile(r, now); changed {
			t.Errorf("record %+v should not reconcile", r)
		}
	}
}

func TestDecideQuotaMessageNamesLimit(t *testing.T) {
	rec := Record{UserID: "u1", Plan: PlanFree, IsActive: true}
	d := Decide(rec, false, 10, nil)
	if d.CanPost {
		t.Fatal("count=10 must deny")
	}
	if !strings.Contains(d.Reason, "10") {
		t.Errorf("reason %q should name the limit", d.Reason)
	}
}

func TestMonthStart(t *testing.T) {
	at := time.Date(2024, 7, 23, 18, 45, 12, 0, time.Local)
	want := time.Date(2024, 7, 1, 0, 0, 0, 0, time.Local).UnixMilli()
	if got := MonthStart(at); got != want {
		t.Errorf("MonthStart = %d, want %d", got, want)
	}
}
