package market

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/producer"
	"github.com/nao1215/market/pkg/middleware"
)

// Handler はマーケットのHTTPハンドラ。
type Handler struct {
	// store は商品・記事・いいねの永続化先。
	store *Store
	// comments はコメント作成と通知を行うプロデューサー。
	comments *producer.CommentProducer
	// prices は商品更新と価格変更通知を行うプロデューサー。
	prices *producer.PriceProducer
	// logger はエラーログの出力先。
	logger *zap.Logger
}

// NewHandler は新しいマーケットハンドラを生成する。
func NewHandler(store *Store, comments *producer.CommentProducer, prices *producer.PriceProducer, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, comments: comments, prices: prices, logger: logger}
}

// RegisterRoutes は認証済みのルーターグループにマーケットAPIのルーティングを設定する。
func (h *Handler) RegisterRoutes(api *gin.RouterGroup) {
	products := api.Group("/products")
	{
		// 商品の出品
		products.POST("", h.handleCreateProduct())
		// 商品の更新（価格変更時はいいねしたユーザーに通知）
		products.PATCH("/:id", h.handleUpdateProduct())
		// いいね
		products.POST("/:id/likes", h.handleAddLike())
		// いいねの取り消し
		products.DELETE("/:id/likes", h.handleRemoveLike())
	}

	// 記事の投稿
	api.POST("/articles", h.handleCreateArticle())
	// コメントの投稿（対象の所有者に通知）
	api.POST("/comments", h.handleCreateComment())
}

// RegisterInternalRoutes はサービス間通信用の内部APIのルーティングを設定する。
func (h *Handler) RegisterInternalRoutes(r gin.IRouter) {
	internal := r.Group("/internal")
	{
		internal.GET("/products/:id/owner", h.handleProductOwner())
		internal.GET("/articles/:id/owner", h.handleArticleOwner())
	}
}

// createProductRequest は商品出品リクエストのJSON構造。
type createProductRequest struct {
	// Name は商品名。
	Name string `json:"name" binding:"required"`
	// Description は商品の説明。
	Description string `json:"description"`
	// Price は価格。
	Price *int64 `json:"price" binding:"required,gte=0"`
}

// updateProductRequest は商品更新リクエストのJSON構造。省略したフィールドは変更しない。
type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" binding:"omitempty,gte=0"`
}

// updateProductResponse は商品更新のJSONレスポンス構造。
type updateProductResponse struct {
	domain.Product
	// OldPrice は更新前の価格。
	OldPrice int64 `json:"oldPrice"`
	// PriceChanged は価格が変更されたかどうか。
	PriceChanged bool `json:"priceChanged"`
	// Notified は通知を生成できた件数。
	Notified int `json:"notified"`
	// Delivered はリアルタイム配信できた件数。
	Delivered int `json:"delivered"`
	// Failed は通知の生成に失敗した件数。
	Failed int `json:"failed"`
	// NotificationError は通知が完了しなかった理由。全件通知できた場合は空。
	NotificationError string `json:"notificationError,omitempty"`
}

// fanOutError はファンアウト結果をクライアント向けの説明に変換する。
func fanOutError(f producer.FanOut) string {
	switch {
	case f.Err == nil:
		return ""
	case errors.Is(f.Err, producer.ErrListLikers):
		return "いいねしたユーザーを取得できなかったため通知していません"
	default:
		return "一部のユーザーへの通知に失敗しました"
	}
}

// createArticleRequest は記事投稿リクエストのJSON構造。
type createArticleRequest struct {
	Title   string `json:"title" binding:"required"`
	Content string `json:"content" binding:"required"`
}

// createCommentRequest はコメント投稿リクエストのJSON構造。
type createCommentRequest struct {
	// Content はコメント本文。
	Content string `json:"content" binding:"required"`
	// Type はコメント対象の種類（MARKET / ARTICLE）。
	Type domain.CommentType `json:"type" binding:"required"`
	// ProductID はTypeがMARKETの場合のコメント対象。
	ProductID *int64 `json:"productId"`
	// ArticleID はTypeがARTICLEの場合のコメント対象。
	ArticleID *int64 `json:"articleId"`
}

// ownerResponse は内部APIの所有者レスポンス。
type ownerResponse struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"ownerId"`
}

// handleCreateProduct は商品の出品を処理するハンドラを返す。
func (h *Handler) handleCreateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		p := domain.Product{Name: req.Name, Description: req.Description, Price: *req.Price, OwnerID: userID}
		if err := h.store.CreateProduct(c.Request.Context(), &p); err != nil {
			h.respondError(c, err, "商品の出品に失敗しました")
			return
		}
		c.JSON(http.StatusCreated, p)
	}
}

// handleUpdateProduct は商品の更新を処理するハンドラを返す。
// 価格の変更に伴う通知の一部が失敗しても、商品の更新自体は成功として返す。
func (h *Handler) handleUpdateProduct() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}
		productID, ok := parseID(c)
		if !ok {
			return
		}

		var req updateProductRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		result, err := h.prices.Update(c.Request.Context(), userID, domain.ProductUpdate{
			ID:          productID,
			Name:        req.Name,
			Description: req.Description,
			Price:       req.Price,
		})
		if err != nil {
			h.respondError(c, err, "商品の更新に失敗しました")
			return
		}

		c.JSON(http.StatusOK, updateProductResponse{
			Product:      result.Product,
			OldPrice:     result.OldPrice,
			PriceChanged: result.PriceChanged(),
			Notified:     result.FanOut.Notified,
			Delivered:    result.FanOut.Delivered,
			Failed:       result.FanOut.Recipients - result.FanOut.Notified,

			NotificationError: fanOutError(result.FanOut),
		})
	}
}

// handleCreateArticle は記事の投稿を処理するハンドラを返す。
func (h *Handler) handleCreateArticle() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createArticleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		a := domain.Article{Title: req.Title, Content: req.Content, OwnerID: userID}
		if err := h.store.CreateArticle(c.Request.Context(), &a); err != nil {
			h.respondError(c, err, "記事の投稿に失敗しました")
			return
		}
		c.JSON(http.StatusCreated, a)
	}
}

// handleCreateComment はコメントの投稿を処理するハンドラを返す。
// 通知の生成だけが失敗した場合は、作成済みのコメントを返す。
func (h *Handler) handleCreateComment() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}

		var req createCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("リクエストが不正です: %v", err)})
			return
		}

		created, err := h.comments.Create(c.Request.Context(), middleware.GetNickname(c), domain.Comment{
			Content:   req.Content,
			Type:      req.Type,
			ProductID: req.ProductID,
			ArticleID: req.ArticleID,
			AuthorID:  userID,
		})
		if err != nil && created == nil {
			h.respondError(c, err, "コメントの投稿に失敗しました")
			return
		}
		c.JSON(http.StatusCreated, created)
	}
}

// handleAddLike は商品へのいいねを処理するハンドラを返す。
func (h *Handler) handleAddLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}
		productID, ok := parseID(c)
		if !ok {
			return
		}

		if err := h.store.AddLike(c.Request.Context(), userID, productID); err != nil {
			h.respondError(c, err, "いいねに失敗しました")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleRemoveLike は商品のいいねの取り消しを処理するハンドラを返す。
func (h *Handler) handleRemoveLike() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := middleware.GetUserID(c)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
			return
		}
		productID, ok := parseID(c)
		if !ok {
			return
		}

		if err := h.store.RemoveLike(c.Request.Context(), userID, productID); err != nil {
			h.respondError(c, err, "いいねの取り消しに失敗しました")
			return
		}
		c.Status(http.StatusNoContent)
	}
}

// handleProductOwner は商品の所有者を返す内部APIのハンドラ。
func (h *Handler) handleProductOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		owner, err := h.store.ProductOwner(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err, "商品の所有者の取得に失敗しました")
			return
		}
		c.JSON(http.StatusOK, ownerResponse{ID: id, OwnerID: owner})
	}
}

// handleArticleOwner は記事の所有者を返す内部APIのハンドラ。
func (h *Handler) handleArticleOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := parseID(c)
		if !ok {
			return
		}
		owner, err := h.store.ArticleOwner(c.Request.Context(), id)
		if err != nil {
			h.respondError(c, err, "記事の所有者の取得に失敗しました")
			return
		}
		c.JSON(http.StatusOK, ownerResponse{ID: id, OwnerID: owner})
	}
}

// parseID はパスパラメータのIDを解析する。不正な場合は400を返してfalseを返す。
func parseID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "IDが不正です"})
		return 0, false
	}
	return id, true
}

// respondError はエラー分類に応じたステータスコードでエラーレスポンスを返す。
func (h *Handler) respondError(c *gin.Context, err error, msg string) {
	status := domain.HTTPStatus(err)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		msg = "対象が見つかりません"
	case errors.Is(err, domain.ErrForbidden):
		msg = "この操作を行う権限がありません"
	case errors.Is(err, domain.ErrValidation):
		msg = fmt.Sprintf("リクエストが不正です: %v", err)
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(msg, zap.Error(err))
	}
	c.JSON(status, gin.H{"error": msg})
}
