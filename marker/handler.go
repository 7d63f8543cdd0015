package marker

import (
	"context"
	"log"
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"mushimap-backend/store"
)

// Store is the persistence surface for marker settings.
type Store interface {
	Get(ctx context.Context, userID string) (*Settings, error)
	Save(ctx context.Context, s Settings) error
}

type Handler struct {
	store Store
}

func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

func (h *Handler) RegisterRoutes(r *gin.Engine, authRequired gin.HandlerFunc) {
	g := r.Group("/", authRequired)
	g.GET("/markers/settings", h.get)
	g.PUT("/markers/settings", h.save)
}

var hexColor = regexp.MustCompile(`^#[0-9a-fA-F]{6}$`)

// get returns saved settings, falling back to defaults when nothing is
// saved or the read fails.
func (h *Handler) get(c *gin.Context) {
	userID := c.GetString("user_id")
	s, err := h.store.Get(c.Request.Context(), userID)
	if err != nil {
		log.Printf("[marker][warn] fetch failed user=%s err=%v", userID, err)
		c.JSON(http.StatusOK, gin.H{"data": Defaults(userID)})
		return
	}
	if s == nil {
		c.JSON(http.StatusOK, gin.H{"data": Defaults(userID)})
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": s})
}

func (h *Handler) save(c *gin.Context) {
	userID := c.GetString("user_id")
	var body struct {
		Color    string `json:"color"`
		IconType string `json:"iconType"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "リクエストが不正です。"})
		return
	}
	if body.Color == "" {
		body.Color = DefaultColor
	}
	if !hexColor.MatchString(body.Color) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "カラーコードが不正です。"})
		return
	}
	if body.IconType == "" {
		body.IconType = DefaultIconType
	}
	s := Settings{UserID: userID, Color: body.Color, IconType: body.IconType}
	if err := h.store.Save(c.Request.Context(), s); err != nil {
		if store.IsPermissionDenied(err) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "データベースの書き込み権限が正しく設定されていません。"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "設定の保存に失敗しました。"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
