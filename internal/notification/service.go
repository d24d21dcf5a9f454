package notification

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/pkg/event"
)

// Sender は受信者へのリアルタイム配信を行う。registry.Registryが実装する。
type Sender interface {
	Send(userID int64, event string, payload any) bool
}

// CreateParams は通知生成の入力。
type CreateParams struct {
	SenderID   int64
	ReceiverID int64
	Title      string
	// Status が空の場合はStatusUnreadになる。
	Status    Status
	Category  Category
	ProductID *int64
	ArticleID *int64
	OldPrice  *int64
	NewPrice  *int64
}

// Result は通知生成の結果。
type Result struct {
	// Notification は永続化された通知。
	Notification Notification
	// Payload は配信を試みたペイロード。
	Payload Payload
	// Delivered はリアルタイム配信できたかどうか。
	Delivered bool
}

// Service は通知の永続化と配信を行う。
// プロセスで1つだけ生成し、すべてのプロデューサーで共有する。
type Service struct {
	store  Store
	sender Sender
	logger *zap.Logger
	now    func() time.Time
}

// NewService は新しい通知サービスを生成する。
func NewService(store Store, sender Sender, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		sender: sender,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateAndGenerate は通知を永続化し、受信者が接続中であれば配信する。
//
// 送信者と受信者が同じ場合は何もせず (nil, nil) を返す。自分自身への通知の
// 抑止はここでのみ行う。永続化に失敗した場合はdomain.ErrPersistenceを返し、
// 配信は試みない。配信の成否は戻り値のエラーに影響しない。
func (s *Service) CreateAndGenerate(ctx context.Context, p CreateParams) (*Result, error) {
	if p.SenderID == p.ReceiverID {
		return nil, nil
	}

	status := p.Status
	if status == "" {
		status = StatusUnread
	}

	n := Notification{
		SenderID:   p.SenderID,
		ReceiverID: p.ReceiverID,
		Title:      p.Title,
		Status:     status,
		Category:   p.Category,
		ProductID:  p.ProductID,
		ArticleID:  p.ArticleID,
		OldPrice:   p.OldPrice,
		NewPrice:   p.NewPrice,
		CreatedAt:  s.now(),
	}
	if err := s.store.Insert(ctx, &n); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, err)
	}

	payload := NewPayload(n)
	msg, err := event.New(string(n.Category), payload)
	if err != nil {
		// 通知レコードは保存済みのため、配信のみ諦める
		s.logger.Error("配信メッセージの生成に失敗しました", zap.Int64("notification_id", n.ID), zap.Error(err))
		return &Result{Notification: n, Payload: payload}, nil
	}

	delivered := s.sender.Send(n.ReceiverID, string(event.NameNotification), msg)
	s.logger.Debug("通知を生成しました",
		zap.Int64("notification_id", n.ID),
		zap.Int64("receiver_id", n.ReceiverID),
		zap.String("category", string(n.Category)),
		zap.Bool("delivered", delivered))

	return &Result{Notification: n, Payload: payload, Delivered: delivered}, nil
}

// MarkRead は通知を既読にする。既読の通知に対しては何も変えずに成功する。
// 存在しない場合はdomain.ErrNotFoundを返す。
func (s *Service) MarkRead(ctx context.Context, id int64) (*Notification, error) {
	n, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if n.Status == StatusRead {
		return n, nil
	}
	return s.store.UpdateStatus(ctx, id, StatusRead)
}

// Get はIDで通知を取得する。
func (s *Service) Get(ctx context.Context, id int64) (*Notification, error) {
	return s.store.Get(ctx, id)
}

// List は受信者の通知一覧を返す。
func (s *Service) List(ctx context.Context, receiverID int64) ([]Notification, error) {
	return s.store.ListByReceiver(ctx, receiverID)
}

// ListUnread は受信者の未読通知一覧を返す。
func (s *Service) ListUnread(ctx context.Context, receiverID int64) ([]Notification, error) {
	return s.store.ListUnread(ctx, receiverID)
}

// MarkAllRead は受信者の未読通知をすべて既読にする。
func (s *Service) MarkAllRead(ctx context.Context, receiverID int64) (int64, error) {
	return s.store.MarkAllRead(ctx, receiverID)
}
