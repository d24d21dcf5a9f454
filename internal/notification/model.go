package notification

import (
	"time"
)

// Status は通知の既読状態を表す。
type Status string

const (
	// StatusUnread は未読。
	StatusUnread Status = "UNREAD"
	// StatusRead は既読。READからの遷移はない。
	StatusRead Status = "READ"
)

// Category は通知の種類を表す。
type Category string

const (
	// CategoryNewComment は自分の商品・記事にコメントが付いたことを表す。
	CategoryNewComment Category = "NEW_COMMENT"
	// CategoryChangedPrice はいいねした商品の価格が変わったことを表す。
	CategoryChangedPrice Category = "CHANGED_PRICE"
)

// Notification は1人の受信者に向けた永続化済みの通知レコード。
type Notification struct {
	// ID は通知の一意識別子。
	ID int64 `db:"id" json:"id"`
	// SenderID は通知を発生させたユーザーのID。
	SenderID int64 `db:"sender_id" json:"senderId"`
	// ReceiverID は通知先のユーザーのID。
	ReceiverID int64 `db:"receiver_id" json:"receiverId"`
	// Title は通知メッセージ。
	Title string `db:"title" json:"title"`
	// Status は既読状態。
	Status Status `db:"status" json:"status"`
	// Category は通知の種類。
	Category Category `db:"category" json:"category"`
	// ProductID は関連する商品のID。
	ProductID *int64 `db:"product_id" json:"productId,omitempty"`
	// ArticleID は関連する記事のID。
	ArticleID *int64 `db:"article_id" json:"articleId,omitempty"`
	// OldPrice は変更前の価格。
	OldPrice *int64 `db:"old_price" json:"oldPrice,omitempty"`
	// NewPrice は変更後の価格。
	NewPrice *int64 `db:"new_price" json:"newPrice,omitempty"`
	// CreatedAt は通知の作成日時。
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Payload は接続中の受信者へ送る通知の内容。送信時に通知レコードから生成する。
type Payload struct {
	SenderID   int64    `json:"senderId"`
	ReceiverID int64    `json:"receiverId"`
	Title      string   `json:"title"`
	Message    string   `json:"message"`
	Status     Status   `json:"status"`
	Category   Category `json:"category"`
	ProductID  *int64   `json:"productId,omitempty"`
	ArticleID  *int64   `json:"articleId,omitempty"`
	OldPrice   *int64   `json:"oldPrice,omitempty"`
	NewPrice   *int64   `json:"newPrice,omitempty"`
	CreatedAt  string   `json:"createdAt"`
}

// NewPayload は通知レコードから配信用のペイロードを生成する。
func NewPayload(n Notification) Payload {
	return Payload{
		SenderID:   n.SenderID,
		ReceiverID: n.ReceiverID,
		Title:      n.Title,
		Message:    n.Title,
		Status:     n.Status,
		Category:   n.Category,
		ProductID:  n.ProductID,
		ArticleID:  n.ArticleID,
		OldPrice:   n.OldPrice,
		NewPrice:   n.NewPrice,
		CreatedAt:  n.CreatedAt.UTC().Format(time.RFC3339),
	}
}
