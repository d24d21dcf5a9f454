package producer

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/notification"
)

// CommentProducer はコメント作成時にコメント対象の所有者へ通知する。
type CommentProducer struct {
	lookup   EntityLookup
	comments CommentStore
	notifier Notifier
	logger   *zap.Logger
}

// NewCommentProducer は新しいCommentProducerを生成する。
func NewCommentProducer(lookup EntityLookup, comments CommentStore, notifier Notifier, logger *zap.Logger) *CommentProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CommentProducer{lookup: lookup, comments: comments, notifier: notifier, logger: logger}
}

// commentTitle はコメント通知のメッセージを返す。
func commentTitle(nickname string) string {
	return nickname + "さんがコメントを残しました。"
}

// Create はコメントを作成し、コメント対象の所有者へNEW_COMMENT通知を生成する。
//
// コメント種別が不正、対象IDが無い、または商品IDと記事IDが両方ある場合はdomain.ErrValidationを返す。
// 対象が存在しない場合はコメントを作成せずにdomain.ErrNotFoundを返す。
// 通知の生成に失敗した場合は、作成済みのコメントとエラーを両方返す。
func (p *CommentProducer) Create(ctx context.Context, nickname string, c domain.Comment) (*domain.Comment, error) {
	if !c.Type.Valid() {
		return nil, fmt.Errorf("コメント種別 %q: %w", c.Type, domain.ErrValidation)
	}
	if c.ProductID != nil && c.ArticleID != nil {
		return nil, fmt.Errorf("商品IDと記事IDは同時に指定できません: %w", domain.ErrValidation)
	}
	targetID, ok := c.TargetID()
	if !ok {
		return nil, fmt.Errorf("コメント対象のIDがありません: %w", domain.ErrValidation)
	}

	params := notification.CreateParams{
		SenderID: c.AuthorID,
		Title:    commentTitle(nickname),
		Category: notification.CategoryNewComment,
	}
	var (
		ownerID int64
		err     error
	)
	switch c.Type {
	case domain.CommentTypeMarket:
		ownerID, err = p.lookup.ProductOwner(ctx, targetID)
		params.ProductID = &targetID
	case domain.CommentTypeArticle:
		ownerID, err = p.lookup.ArticleOwner(ctx, targetID)
		params.ArticleID = &targetID
	}
	if err != nil {
		return nil, fmt.Errorf("コメント対象の所有者の取得に失敗: %w", err)
	}
	params.ReceiverID = ownerID

	if err := p.comments.CreateComment(ctx, &c); err != nil {
		return nil, fmt.Errorf("コメントの作成に失敗: %w", err)
	}

	if _, err := p.notifier.CreateAndGenerate(ctx, params); err != nil {
		p.logger.Error("コメント通知の生成に失敗しました",
			zap.Int64("comment_id", c.ID),
			zap.Int64("receiver_id", ownerID),
			zap.Error(err))
		return &c, fmt.Errorf("コメント通知の生成に失敗: %w", err)
	}
	return &c, nil
}
