package notification

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/pkg/middleware"
)

// Handler は通知の参照・既読管理のHTTPハンドラ。
type Handler struct {
	// service は通知サービス。
	service *Service
	// logger はエラーログの出力先。
	logger *zap.Logger
}

// NewHandler は新しい通知ハンドラを生成する。
func NewHandler(service *Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes は認証済みのルーターグループに通知APIのルーティングを設定する。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	notifications := api.Group("/notifications")
	{
		// 通知一覧取得
		notifications.GET("", h.handleList())
		// 未読通知一覧取得
		notifications.GET("/unread", h.handleListUnread())
		// 通知を既読にする
		notifications.PUT("/:id/read", h.handleMarkAsRead())
		// 全通知を既読にする
		notifications.PUT("/read-all", h.handleMarkAllAsRead())
	}
}

// notificationResponse は通知のJSONレスポンス構造。
type notificationResponse struct {
	Notification
	// IsRead は通知の既読状態。
	IsRead bool `json:"isRead"`
}

// toResponses は通知のスライスをJSONレスポンスのスライスに変換する。
func toResponses(notifications []Notification) []notificationResponse {
	responses := make([]notificationResponse, 0, len(notifications))
	for _, n := range notifications {
		responses = append(responses, notificationResponse{Notification: n, IsRead: n.Status == StatusRead})
	}
	return responses
}

// handleList は認証済みユーザーの通知一覧を返すハンドラ。
func (h *Handler) handleList() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.service.List(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "通知一覧の取得に失敗しました"})
			h.logger.Error("通知一覧取得エラー", zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, toResponses(notifications))
	}
}

// handleListUnread は認証済みユーザーの未読通知一覧を返すハンドラ。
func (h *Handler) handleListUnread() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notifications, err := h.service.ListUnread(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "未読通知一覧の取得に失敗しました"})
			h.logger.Error("未読通知一覧取得エラー", zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, toResponses(notifications))
	}
}

// handleMarkAsRead は指定された通知を既読にするハンドラ。
// 既読済みの通知に対しても成功を返す。
func (h *Handler) handleMarkAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		notificationID, err := strconv.ParseInt(c.Param("id"), 10, 64)
		if err != nil || notificationID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "通知IDが不正です"})
			return
		}

		// 通知の存在確認と所有者チェック
		n, err := h.service.Get(c.Request.Context(), notificationID)
		if err != nil {
			h.respondError(c, err, "通知の取得に失敗しました")
			return
		}
		if n.ReceiverID != userID {
			c.JSON(http.StatusForbidden, gin.H{"error": "この通知を操作する権限がありません"})
			return
		}

		updated, err := h.service.MarkRead(c.Request.Context(), notificationID)
		if err != nil {
			h.respondError(c, err, "通知の既読処理に失敗しました")
			return
		}

		c.JSON(http.StatusOK, notificationResponse{Notification: *updated, IsRead: true})
	}
}

// handleMarkAllAsRead は認証済みユーザーの全通知を既読にするハンドラ。
func (h *Handler) handleMarkAllAsRead() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		updated, err := h.service.MarkAllRead(c.Request.Context(), userID)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "全通知の既読処理に失敗しました"})
			h.logger.Error("全通知既読処理エラー", zap.Error(err))
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "全通知を既読にしました", "updated": updated})
	}
}

// respondError はエラー分類に応じたステータスコードでエラーレスポンスを返す。
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	status := domain.HTTPStatus(err)
	if errors.Is(err, domain.ErrNotFound) {
		msg = "通知が見つかりません"
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
