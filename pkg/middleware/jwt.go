package middleware

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims はJWTトークンのクレーム（ペイロード）を表す。
// セッションの発行は認証サービスの責務で、ここでは検証のみを行う。
type JWTClaims struct {
	jwt.RegisteredClaims
	// UserID は認証済みユーザーの一意識別子。
	UserID int64 `json:"user_id"`
	// Nickname は通知メッセージに表示するユーザーのニックネーム。
	Nickname string `json:"nickname"`
}

const (
	// contextKeyUserID はGinコンテキストにユーザーIDを格納するキー。
	contextKeyUserID = "user_id"
	// contextKeyNickname はGinコンテキストにニックネームを格納するキー。
	contextKeyNickname = "nickname"
	// queryKeyToken はWebSocket接続でトークンを渡すクエリパラメータ名。
	// ブラウザのWebSocket APIは任意のヘッダーを付与できないため用意している。
	queryKeyToken = "token"
)

// GenerateJWT はユーザー情報からJWTトークンを生成する。
// テストや開発用のトークン発行に使う。
func GenerateJWT(secret string, userID int64, nickname string) (string, error) {
	claims := JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "market-auth",
		},
		UserID:   userID,
		Nickname: nickname,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		return "", fmt.Errorf("JWTトークンの署名に失敗: %w", err)
	}
	return signed, nil
}

// JWTAuth はJWTトークンを検証するGinミドルウェアを返す。
// トークンはAuthorizationヘッダー、無ければtokenクエリパラメータから取得する。
// 検証に成功した場合、コンテキストに "user_id" と "nickname" を設定する。
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, ok := extractToken(c)
		if !ok {
			return
		}

		claims := &JWTClaims{}
		token, err := jwt.ParseWithClaims(tokenString, claims, func(_ *jwt.Token) (any, error) {
			return []byte(secret), nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
		if err != nil || !token.Valid || claims.UserID <= 0 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"error": "トークンが無効です",
			})
			return
		}

		c.Set(contextKeyUserID, claims.UserID)
		c.Set(contextKeyNickname, claims.Nickname)
		c.Next()
	}
}

// extractToken はリクエストからトークン文字列を取り出す。
// 取り出せなかった場合は401で中断し、falseを返す。
func extractToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		if q := c.Query(queryKeyToken); q != "" {
			return q, true
		}
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Authorizationヘッダーが必要です",
		})
		return "", false
	}

	tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
	if !found {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error": "Bearer トークン形式が不正です",
		})
		return "", false
	}
	return tokenString, true
}

// GetUserID はGinコンテキストからユーザーIDを取得する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func GetUserID(c *gin.Context) (int64, bool) {
	userID, _ := c.Get(contextKeyUserID)
	id, ok := userID.(int64)
	return id, ok && id > 0
}

// GetNickname はGinコンテキストからニックネームを取得する。
func GetNickname(c *gin.Context) string {
	return c.GetString(contextKeyNickname)
}

// SetUser はコンテキストにユーザー情報を設定する。
// JWTを発行せずにハンドラをテストする場合に使う。
func SetUser(c *gin.Context, userID int64, nickname string) {
	c.Set(contextKeyUserID, userID)
	c.Set(contextKeyNickname, nickname)
}
