package entry

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"mushimap-backend/geo"
	"mushimap-backend/vision"
)

// Classifier is the save-time species identification surface.
type Classifier interface {
	AnalyzeImage(ctx context.Context, imageDataURL string) (*vision.Classification, error)
	AnalyzeImageDetailed(ctx context.Context, imageDataURL string) (*vision.Classification, error)
}

// PremiumChecker decides whether the user gets the detailed analysis.
type PremiumChecker interface {
	IsPremiumActive(ctx context.Context, userID string) bool
}

type Handler struct {
	svc        *Service
	classifier Classifier
	premium    PremiumChecker
}

func NewHandler(svc *Service, classifier Classifier, premium PremiumChecker) *Handler {
	return &Handler{svc: svc, classifier: classifier, premium: premium}
}

// RegisterRoutes mounts the entry API. quotaGuard enforces the monthly
// post limit on creation only; reads and deletes are not metered.
func (h *Handler) RegisterRoutes(r *gin.Engine, authRequired, quotaGuard gin.HandlerFunc) {
	g := r.Group("/", authRequired)
	g.POST("/entries", quotaGuard, h.create)
	g.POST("/entries/analyze", h.analyze)
	g.GET("/entries", h.listAll)
	g.GET("/entries/mine", h.listMine)
	g.DELETE("/entries/:id", h.remove)
}

// entryView annotates an entry with the derived region and season used
// by the map and list screens.
type entryView struct {
	Entry
	Prefecture string `json:"prefecture"`
	Season     string `json:"season"`
}

func toViews(entries []Entry) []entryView {
	views := make([]entryView, len(entries))
	for i, e := range entries {
		views[i] = entryView{
			Entry:      e,
			Prefecture: geo.Prefecture(e.Latitude, e.Longitude),
			Season:     geo.Season(e.Timestamp),
		}
	}
	return views
}

func (h *Handler) create(c *gin.Context) {
	userID := c.GetString("user_id")
	var req SaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です。"})
		return
	}
	e, err := h.svc.Save(c.Request.Context(), userID, req)
	if err != nil {
		if errors.Is(err, ErrImageRequired) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		if errors.Is(err, ErrUploadDisabled) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の保存に失敗しました。"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": entryView{
		Entry:      *e,
		Prefecture: geo.Prefecture(e.Latitude, e.Longitude),
		Season:     geo.Season(e.Timestamp),
	}})
}

func (h *Handler) analyze(c *gin.Context) {
	userID := c.GetString("user_id")
	var body struct {
		Image string `json:"image"`
	}
	if err := c.ShouldBindJSON(&body); err != nil || body.Image == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": ErrImageRequired.Error()})
		return
	}
	var result *vision.Classification
	var err error
	if h.premium != nil && h.premium.IsPremiumActive(c.Request.Context(), userID) {
		result, err = h.classifier.AnalyzeImageDetailed(c.Request.Context(), body.Image)
	} else {
		result, err = h.classifier.AnalyzeImage(c.Request.Context(), body.Image)
	}
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (h *Handler) listAll(c *gin.Context) {
	entries, err := h.svc.All(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の取得に失敗しました。"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toViews(entries)})
}

func (h *Handler) listMine(c *gin.Context) {
	userID := c.GetString("user_id")
	entries, err := h.svc.ByUser(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の取得に失敗しました。"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": toViews(entries)})
}

func (h *Handler) remove(c *gin.Context) {
	userID := c.GetString("user_id")
	err := h.svc.Delete(c.Request.Context(), userID, c.Param("id"))
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "投稿が見つかりません。"})
	case errors.Is(err, ErrNotOwner):
		c.JSON(http.StatusForbidden, gin.H{"error": "この投稿を削除する権限がありません。"})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "投稿の削除に失敗しました。"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}
