package quota_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"mushimap-backend/quota"
	"mushimap-backend/subscription"
)

type memStore struct {
	records map[string]subscription.Record
}

func (m *memStore) Get(_ context.Context, userID string) (*subscription.Record, error) {
	rec, ok := m.records[userID]
	if !ok {
		return nil, nil
	}
	return &rec, nil
}
func (m *memStore) Put(_ context.Context, rec subscription.Record) error {
	m.records[rec.UserID] = rec
	return nil
}
func (m *memStore) SetPlan(_ context.Context, userID string, plan subscription.Plan, isActive bool) error {
	rec := m.records[userID]
	rec.Plan = plan
	rec.IsActive = isActive
	m.records[userID] = rec
	return nil
}
func (m *memStore) Cancel(_ context.Context, userID string, atMs int64) error {
	rec := m.records[userID]
	rec.Plan = subscription.PlanFree
	rec.IsActive = false
	rec.EndDate = &atMs
	m.records[userID] = rec
	return nil
}
func (m *memStore) FindByCustomerID(context.Context, string) (*subscription.Record, error) {
	return nil, nil
}

type memCounter struct{ timestamps []int64 }

func (m *memCounter) TimestampsByUser(context.Context, string) ([]int64, error) {
	return m.timestamps, nil
}

func router(svc *subscription.Service) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	asUser := func(c *gin.Context) { c.Set("user_id", "u1"); c.Next() }
	guard := quota.NewValidator(svc).Middleware("entry_create")
	r.POST("/entries", asUser, guard, func(c *gin.Context) {
		c.JSON(http.StatusCreated, gin.H{"status": "created"})
	})
	r.POST("/other", asUser, quota.NewValidator(svc).Middleware("entry_read"), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	return r
}

func currentMonthTimestamps(n int) []int64 {
	start := subscription.MonthStart(time.Now())
	out := make([]int64, n)
	for i := range out {
		out[i] = start + int64(i)
	}
	return out
}

func TestMiddlewareAllowsUnderQuota(t *testing.T) {
	svc := subscription.NewService(
		&memStore{records: map[string]subscription.Record{}},
		&memCounter{timestamps: currentMonthTimestamps(9)},
	)
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest("POST", "/entries", nil))
	if w.Code != http.StatusCreated {
		t.Errorf("code = %d, want 201 at count=9", w.Code)
	}
}

func TestMiddlewareDeniesOverQuota(t *testing.T) {
	svc := subscription.NewService(
		&memStore{records: map[string]subscription.Record{}},
		&memCounter{timestamps: currentMonthTimestamps(10)},
	)
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest("POST", "/entries", nil))
	if w.Code != http.StatusForbidden {
		t.Fatalf("code = %d, want 403 at count=10", w.Code)
	}
	if !strings.Contains(w.Body.String(), "10") {
		t.Errorf("denial body %q should name the limit", w.Body.String())
	}
}

func TestMiddlewareIgnoresUnmeteredFlows(t *testing.T) {
	svc := subscription.NewService(
		&memStore{records: map[string]subscription.Record{}},
		&memCounter{timestamps: currentMonthTimestamps(50)},
	)
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest("POST", "/other", nil))
	if w.Code != http.StatusOK {
		t.Errorf("code = %d, unmetered flow must pass", w.Code)
	}
}

func TestMiddlewareBypassEnv(t *testing.T) {
	t.Setenv("QUOTA_DISABLE", "1")
	svc := subscription.NewService(
		&memStore{records: map[string]subscription.Record{}},
		&memCounter{timestamps: currentMonthTimestamps(50)},
	)
	w := httptest.NewRecorder()
	router(svc).ServeHTTP(w, httptest.NewRequest("POST", "/entries", nil))
	if w.Code != http.StatusCreated {
		t.Errorf("code = %d, bypass must allow", w.Code)
	}
}
