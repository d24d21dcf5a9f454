package notification

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/pkg/sqlitedb"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store は通知レコードの永続化を担う。
type Store interface {
	// Insert は通知を保存し、採番されたIDをnに設定する。
	Insert(ctx context.Context, n *Notification) error
	// Get はIDで通知を取得する。存在しない場合はdomain.ErrNotFoundを返す。
	Get(ctx context.Context, id int64) (*Notification, error)
	// UpdateStatus は通知の既読状態を更新し、更新後の通知を返す。
	// 存在しない場合はdomain.ErrNotFoundを返す。
	UpdateStatus(ctx context.Context, id int64, status Status) (*Notification, error)
	// ListByReceiver は受信者の通知を新しい順に返す。
	ListByReceiver(ctx context.Context, receiverID int64) ([]Notification, error)
	// ListUnread は受信者の未読通知を新しい順に返す。
	ListUnread(ctx context.Context, receiverID int64) ([]Notification, error)
	// MarkAllRead は受信者の未読通知をすべて既読にし、更新件数を返す。
	MarkAllRead(ctx context.Context, receiverID int64) (int64, error)
}

// SQLiteStore はSQLiteを使ったStoreの実装。
type SQLiteStore struct {
	db *sqlx.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLiteStore はdsnのSQLiteデータベースを開き、スキーマを適用する。
func NewSQLiteStore(dsn string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sqlitedb.Open(dsn, migrations, "migrations", logger)
	if err != nil {
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

// Close はデータベース接続を閉じる。
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const selectColumns = `id, sender_id, receiver_id, title, status, category,
	product_id, article_id, old_price, new_price, created_at`

// Insert は通知を保存する。
func (s *SQLiteStore) Insert(ctx context.Context, n *Notification) error {
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO notifications
			(sender_id, receiver_id, title, status, category,
			 product_id, article_id, old_price, new_price, created_at)
		VALUES
			(:sender_id, :receiver_id, :title, :status, :category,
			 :product_id, :article_id, :old_price, :new_price, :created_at)`, n)
	if err != nil {
		return fmt.Errorf("通知の保存に失敗: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("通知IDの取得に失敗: %w", err)
	}
	n.ID = id
	return nil
}

// Get はIDで通知を取得する。
func (s *SQLiteStore) Get(ctx context.Context, id int64) (*Notification, error) {
	var n Notification
	err := s.db.GetContext(ctx, &n, `SELECT `+selectColumns+` FROM notifications WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("通知 %d: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("通知の取得に失敗: %w", err)
	}
	return &n, nil
}

// UpdateStatus は通知の既読状態を更新する。
// 同じ状態への更新も一致した行として数えるため、存在する通知であれば成功する。
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id int64, status Status) (*Notification, error) {
	res, err := s.db.ExecContext(ctx, `UPDATE notifications SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return nil, fmt.Errorf("通知の既読状態の更新に失敗: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("更新件数の取得に失敗: %w", err)
	}
	if affected == 0 {
		return nil, fmt.Errorf("通知 %d: %w", id, domain.ErrNotFound)
	}
	return s.Get(ctx, id)
}

// ListByReceiver は受信者の通知を新しい順に返す。
func (s *SQLiteStore) ListByReceiver(ctx context.Context, receiverID int64) ([]Notification, error) {
	notifications := []Notification{}
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT `+selectColumns+` FROM notifications
		WHERE receiver_id = ?
		ORDER BY created_at DESC, id DESC`, receiverID)
	if err != nil {
		return nil, fmt.Errorf("通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// ListUnread は受信者の未読通知を新しい順に返す。
func (s *SQLiteStore) ListUnread(ctx context.Context, receiverID int64) ([]Notification, error) {
	notifications := []Notification{}
	err := s.db.SelectContext(ctx, &notifications, `
		SELECT `+selectColumns+` FROM notifications
		WHERE receiver_id = ? AND status = ?
		ORDER BY created_at DESC, id DESC`, receiverID, StatusUnread)
	if err != nil {
		return nil, fmt.Errorf("未読通知一覧の取得に失敗: %w", err)
	}
	return notifications, nil
}

// MarkAllRead は受信者の未読通知をすべて既読にする。
func (s *SQLiteStore) MarkAllRead(ctx context.Context, receiverID int64) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET status = ? WHERE receiver_id = ? AND status = ?`,
		StatusRead, receiverID, StatusUnread)
	if err != nil {
		return 0, fmt.Errorf("全通知の既読処理に失敗: %w", err)
	}
	return res.RowsAffected()
}
