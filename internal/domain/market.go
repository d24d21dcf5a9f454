package domain

import "time"

// CommentType はコメントが付けられた対象の種類を表す。
type CommentType string

const (
	// CommentTypeMarket は商品へのコメント。
	CommentTypeMarket CommentType = "MARKET"
	// CommentTypeArticle は記事へのコメント。
	CommentTypeArticle CommentType = "ARTICLE"
)

// Valid は既知のコメント種別かどうかを返す。
func (t CommentType) Valid() bool {
	return t == CommentTypeMarket || t == CommentTypeArticle
}

// Product は出品された商品。
type Product struct {
	ID          int64     `db:"id" json:"id"`
	Name        string    `db:"name" json:"name"`
	Description string    `db:"description" json:"description"`
	Price       int64     `db:"price" json:"price"`
	OwnerID     int64     `db:"owner_id" json:"ownerId"`
	CreatedAt   time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt   time.Time `db:"updated_at" json:"updatedAt"`
}

// ProductUpdate は商品更新の入力。nilのフィールドは変更しない。
type ProductUpdate struct {
	ID          int64
	Name        *string
	Description *string
	Price       *int64
}

// Apply は更新内容を商品に反映したコピーを返す。
func (u ProductUpdate) Apply(p Product) Product {
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	return p
}

// Article は掲示板の記事。
type Article struct {
	ID        int64     `db:"id" json:"id"`
	Title     string    `db:"title" json:"title"`
	Content   string    `db:"content" json:"content"`
	OwnerID   int64     `db:"owner_id" json:"ownerId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

// Comment は商品または記事へのコメント。
// Type に応じて ProductID と ArticleID のどちらか一方が設定される。
type Comment struct {
	ID        int64       `db:"id" json:"id"`
	Content   string      `db:"content" json:"content"`
	Type      CommentType `db:"type" json:"type"`
	ProductID *int64      `db:"product_id" json:"productId,omitempty"`
	ArticleID *int64      `db:"article_id" json:"articleId,omitempty"`
	AuthorID  int64       `db:"author_id" json:"authorId"`
	CreatedAt time.Time   `db:"created_at" json:"createdAt"`
}

// TargetID はコメント対象のIDを返す。対象IDが未設定の場合はfalseを返す。
func (c Comment) TargetID() (int64, bool) {
	switch c.Type {
	case CommentTypeMarket:
		if c.ProductID != nil {
			return *c.ProductID, true
		}
	case CommentTypeArticle:
		if c.ArticleID != nil {
			return *c.ArticleID, true
		}
	}
	return 0, false
}
