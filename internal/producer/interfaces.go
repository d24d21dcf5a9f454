package producer

import (
	"context"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/notification"
)

// EntityLookup は通知先となるエンティティの所有者を解決する。
// 対象が存在しない場合はdomain.ErrNotFoundを返す。
type EntityLookup interface {
	ProductOwner(ctx context.Context, productID int64) (int64, error)
	ArticleOwner(ctx context.Context, articleID int64) (int64, error)
}

// CommentStore はコメントを永続化する。
type CommentStore interface {
	// CreateComment はコメントを保存し、採番されたIDと作成日時をcに設定する。
	CreateComment(ctx context.Context, c *domain.Comment) error
}

// ProductStore は商品を参照・更新する。
type ProductStore interface {
	// GetProduct は商品を取得する。存在しない場合はdomain.ErrNotFoundを返す。
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	// UpdateProduct はpの内容で商品を更新する。
	UpdateProduct(ctx context.Context, p *domain.Product) error
}

// LikeStore は商品のいいねを参照する。
type LikeStore interface {
	// ListLikers は商品にいいねしたユーザーのIDを返す。
	ListLikers(ctx context.Context, productID int64) ([]int64, error)
}

// Notifier は通知の生成を行う。notification.Serviceが実装する。
type Notifier interface {
	CreateAndGenerate(ctx context.Context, p notification.CreateParams) (*notification.Result, error)
}
