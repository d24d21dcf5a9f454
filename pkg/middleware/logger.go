package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nao1215/market/pkg/httpclient"
)

// RequestLogger はリクエストごとにアクセスログを出力するGinミドルウェアを返す。
// リクエストIDが無い場合は生成し、レスポンスヘッダーとリクエストのコンテキストに設定する。
func RequestLogger(logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(httpclient.HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(httpclient.HeaderRequestID, requestID)
		c.Request = c.Request.WithContext(httpclient.WithRequestID(c.Request.Context(), requestID))

		c.Next()

		fields := []zap.Field{
			zap.String("request_id", requestID),
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
		}
		if userID, ok := GetUserID(c); ok {
			fields = append(fields, zap.Int64("user_id", userID))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.String("errors", c.Errors.String()))
		}

		switch {
		case c.Writer.Status() >= 500:
			logger.Error("リクエストを処理しました", fields...)
		case c.Writer.Status() >= 400:
			logger.Warn("リクエストを処理しました", fields...)
		default:
			logger.Info("リクエストを処理しました", fields...)
		}
	}
}
