package market

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/producer"
	"github.com/nao1215/market/pkg/sqlitedb"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store はSQLiteを使ったマーケットのデータストア。
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

var (
	_ producer.EntityLookup = (*Store)(nil)
	_ producer.CommentStore = (*Store)(nil)
	_ producer.ProductStore = (*Store)(nil)
	_ producer.LikeStore    = (*Store)(nil)
)

// NewStore はdsnのSQLiteデータベースを開き、スキーマを適用する。
func NewStore(dsn string, logger *zap.Logger) (*Store, error) {
	db, err := sqlitedb.Open(dsn, migrations, "migrations", logger)
	if err != nil {
		return nil, err
	}
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Close はデータベース接続を閉じる。
func (s *Store) Close() error {
	return s.db.Close()
}

// CreateProduct は商品を保存する。
func (s *Store) CreateProduct(ctx context.Context, p *domain.Product) error {
	now := s.now()
	p.CreatedAt, p.UpdatedAt = now, now
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO products (name, description, price, owner_id, created_at, updated_at)
		VALUES (:name, :description, :price, :owner_id, :created_at, :updated_at)`, p)
	if err != nil {
		return fmt.Errorf("商品の保存に失敗: %w", err)
	}
	p.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("商品IDの取得に失敗: %w", err)
	}
	return nil
}

// GetProduct は商品を取得する。
func (s *Store) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	var p domain.Product
	err := s.db.GetContext(ctx, &p, `
		SELECT id, name, description, price, owner_id, created_at, updated_at
		FROM products WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("商品 %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗: %w", err)
	}
	return &p, nil
}

// UpdateProduct は商品の名前・説明・価格を更新する。
func (s *Store) UpdateProduct(ctx context.Context, p *domain.Product) error {
	p.UpdatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `
		UPDATE products
		SET name = :name, description = :description, price = :price, updated_at = :updated_at
		WHERE id = :id`, p)
	if err != nil {
		return fmt.Errorf("商品の更新に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("商品 %d: %w", p.ID, domain.ErrNotFound)
	}
	return nil
}

// ProductOwner は商品の出品者のユーザーIDを返す。
func (s *Store) ProductOwner(ctx context.Context, productID int64) (int64, error) {
	return s.owner(ctx, `SELECT owner_id FROM products WHERE id = ?`, "商品", productID)
}

// CreateArticle は記事を保存する。
func (s *Store) CreateArticle(ctx context.Context, a *domain.Article) error {
	a.CreatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO articles (title, content, owner_id, created_at)
		VALUES (:title, :content, :owner_id, :created_at)`, a)
	if err != nil {
		return fmt.Errorf("記事の保存に失敗: %w", err)
	}
	a.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("記事IDの取得に失敗: %w", err)
	}
	return nil
}

// ArticleOwner は記事の投稿者のユーザーIDを返す。
func (s *Store) ArticleOwner(ctx context.Context, articleID int64) (int64, error) {
	return s.owner(ctx, `SELECT owner_id FROM articles WHERE id = ?`, "記事", articleID)
}

func (s *Store) owner(ctx context.Context, query, kind string, id int64) (int64, error) {
	var owner int64
	err := s.db.GetContext(ctx, &owner, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("%sの所有者の取得に失敗: %w", kind, err)
	}
	return owner, nil
}

// CreateComment はコメントを保存する。
func (s *Store) CreateComment(ctx context.Context, c *domain.Comment) error {
	c.CreatedAt = s.now()
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO comments (content, type, product_id, article_id, author_id, created_at)
		VALUES (:content, :type, :product_id, :article_id, :author_id, :created_at)`, c)
	if err != nil {
		return fmt.Errorf("コメントの保存に失敗: %w", err)
	}
	c.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("コメントIDの取得に失敗: %w", err)
	}
	return nil
}

// AddLike は商品にいいねを付ける。既にいいね済みの場合は何もしない。
func (s *Store) AddLike(ctx context.Context, userID, productID int64) error {
	if _, err := s.ProductOwner(ctx, productID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO likes (user_id, product_id) VALUES (?, ?)`, userID, productID)
	if err != nil {
		return fmt.Errorf("いいねの保存に失敗: %w", err)
	}
	return nil
}

// RemoveLike は商品のいいねを取り消す。いいねしていない場合は何もしない。
func (s *Store) RemoveLike(ctx context.Context, userID, productID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM likes WHERE user_id = ? AND product_id = ?`, userID, productID)
	if err != nil {
		return fmt.Errorf("いいねの削除に失敗: %w", err)
	}
	return nil
}

// ListLikers は商品にいいねしたユーザーのIDを返す。
func (s *Store) ListLikers(ctx context.Context, productID int64) ([]int64, error) {
	likers := []int64{}
	err := s.db.SelectContext(ctx, &likers,
		`SELECT user_id FROM likes WHERE product_id = ? ORDER BY user_id`, productID)
	if err != nil {
		return nil, fmt.Errorf("いいねしたユーザーの取得に失敗: %w", err)
	}
	return likers, nil
}
