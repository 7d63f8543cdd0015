package quota

import (
	"log"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"

	"mushimap-backend/subscription"
)

// Flows that consume monthly quota. Reads and deletes are not metered.
var meteredFlows = map[string]bool{
	"entry_create": true,
}

// Validator wires the entitlement engine into handlers.
type Validator struct {
	subs *subscription.Service
}

func NewValidator(subs *subscription.Service) *Validator {
	return &Validator{subs: subs}
}

// Middleware denies metered flows for users over their monthly limit.
// The check only ever blocks on a confirmed over-quota decision; the
// engine itself fails open on every internal fault.
func (v *Validator) Middleware(flow string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !meteredFlows[flow] {
			log.Printf("[quota][skip] flow=%s reason=unmetered_flow", flow)
			c.Next()
			return
		}
		if os.Getenv("QUOTA_DISABLE") == "1" {
			log.Printf("[quota][bypass] flow=%s QUOTA_DISABLE=1", flow)
			c.Next()
			return
		}
		userID := c.GetString("user_id")
		if userID == "" {
			log.Printf("[quota][deny] flow=%s reason=missing_user", flow)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ログインが必要です。"})
			c.Abort()
			return
		}
		d := v.subs.CanPostEntry(c.Request.Context(), userID)
		if !d.CanPost {
			log.Printf("[quota][deny] flow=%s user=%s count=%v limit=%v", flow, userID, d.CurrentCount, d.Limit)
			c.JSON(http.StatusForbidden, gin.H{
				"error":        d.Reason,
				"currentCount": d.CurrentCount,
				"limit":        d.Limit,
			})
			c.Abort()
			return
		}
		if d.CurrentCount != nil {
			log.Printf("[quota][ok] flow=%s user=%s count=%d limit=%d", flow, userID, *d.CurrentCount, *d.Limit)
		} else {
			log.Printf("[quota][ok] flow=%s user=%s unlimited", flow, userID)
		}
		c.Next()
	}
}
