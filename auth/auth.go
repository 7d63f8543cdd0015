// Package auth verifies the HMAC-signed bearer tokens that identify
// users. Issuing credentials (sign-up, password flow) lives outside
// this service; only token verification happens here.
package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type tokenPayload struct {
	Sub string `json:"sub"` // user id
	Exp int64  `json:"exp"`
	Jti string `json:"jti"`
}

func sessionSecret() []byte {
	s := os.Getenv("SESSION_SECRET")
	if s == "" {
		s = "dev-insecure-secret"
	}
	return []byte(s)
}

func sign(data string) string {
	mac := hmac.New(sha256.New, sessionSecret())
	mac.Write([]byte(data))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

// SignToken issues a token for userID valid for dur.
func SignToken(userID string, dur time.Duration) (string, error) {
	header := base64.RawURLEncoding.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payloadBytes, err := json.Marshal(tokenPayload{
		Sub: userID,
		Exp: time.Now().Add(dur).Unix(),
		Jti: uuid.NewString(),
	})
	if err != nil {
		return "", err
	}
	payload := base64.RawURLEncoding.EncodeToString(payloadBytes)
	return header + "." + payload + "." + sign(header+"."+payload), nil
}

// UserIDFromToken verifies signature and expiry and returns the user id.
func UserIDFromToken(token string) (string, bool) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return "", false
	}
	if !hmac.Equal([]byte(sign(parts[0]+"."+parts[1])), []byte(parts[2])) {
		return "", false
	}
	raw, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return "", false
	}
	var p tokenPayload
	if err := json.Unmarshal(raw, &p); err != nil {
		return "", false
	}
	if p.Sub == "" || p.Exp < time.Now().Unix() {
		return "", false
	}
	return p.Sub, true
}

// Middleware extracts the bearer token and puts the verified user id in
// the gin context under "user_id".
func Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if token == "" {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ログインが必要です。"})
			c.Abort()
			return
		}
		userID, ok := UserIDFromToken(token)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "セッションが無効です。再度ログインしてください。"})
			c.Abort()
			return
		}
		c.Set("user_id", userID)
		c.Next()
	}
}
