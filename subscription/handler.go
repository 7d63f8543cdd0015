package subscription

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	svc    *Service
	stripe *StripeService
}

func NewHandler(svc *Service, stripe *StripeService) *Handler {
	return &Handler{svc: svc, stripe: stripe}
}

// RegisterRoutes mounts the subscription API. The webhook stays outside
// the auth middleware; Stripe authenticates with its signature instead.
func (h *Handler) RegisterRoutes(r *gin.Engine, authRequired gin.HandlerFunc) {
	g := r.Group("/", authRequired)
	g.GET("/subscription", h.getSubscription)
	g.GET("/subscription/can-post", h.canPost)
	g.POST("/subscription/upgrade", h.upgrade)
	g.POST("/cancel-subscription", h.cancel)
	g.POST("/checkout", h.checkout)

	r.POST("/stripe/webhook", h.webhook)
}

func (h *Handler) getSubscription(c *gin.Context) {
	userID := c.GetString("user_id")
	rec := h.svc.GetSubscription(c.Request.Context(), userID)
	c.JSON(http.StatusOK, gin.H{
		"data":           rec,
		"premiumActive":  h.svc.IsPremiumActive(c.Request.Context(), userID),
		"monthlyEntries": h.svc.GetMonthlyEntryCount(c.Request.Context(), userID),
	})
}

func (h *Handler) canPost(c *gin.Context) {
	userID := c.GetString("user_id")
	c.JSON(http.StatusOK, h.svc.CanPostEntry(c.Request.Context(), userID))
}

func (h *Handler) upgrade(c *gin.Context) {
	userID := c.GetString("user_id")
	var body struct {
		Months int `json:"months"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です。"})
		return
	}
	if err := h.svc.UpgradeToPremium(c.Request.Context(), userID, body.Months); err != nil {
		if errors.Is(err, ErrStoreMisconfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "アップグレードに失敗しました。"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) cancel(c *gin.Context) {
	userID := c.GetString("user_id")
	if err := h.svc.CancelPremium(c.Request.Context(), userID); err != nil {
		if errors.Is(err, ErrStoreMisconfigured) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "解約に失敗しました。"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *Handler) checkout(c *gin.Context) {
	userID := c.GetString("user_id")
	var body struct {
		PriceID string `json:"price_id"`
	}
	_ = c.ShouldBindJSON(&body)
	if h.stripe == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "決済機能が設定されていません。"})
		return
	}
	sessionID, url, err := h.stripe.CreateCheckoutSession(c.Request.Context(), userID, body.PriceID)
	if err != nil {
		if errors.Is(err, ErrStripeInvalidAPIKey) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "決済機能の設定が正しくありません。"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessionId": sessionID, "url": url})
}

func (h *Handler) webhook(c *gin.Context) {
	if h.stripe == nil {
		c.String(http.StatusServiceUnavailable, "stripe not configured")
		return
	}
	if err := h.stripe.HandleWebhook(c.Writer, c.Request); err != nil {
		c.String(http.StatusBadRequest, err.Error())
	}
}
