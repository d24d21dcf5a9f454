package producer

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/notification"
)

// priceChangedTitle は価格変更通知のメッセージ。
const priceChangedTitle = "価格変更のお知らせ"

// ErrListLikers はいいねしたユーザーを取得できず、通知対象を決められなかったことを表す。
// FanOut.Errに含まれる。
var ErrListLikers = errors.New("いいねしたユーザーの取得に失敗")

// defaultConcurrency は通知のファンアウトの既定の並列数。
const defaultConcurrency = 8

// PriceProducer は商品の価格変更時にいいねしたユーザーへ通知する。
type PriceProducer struct {
	products    ProductStore
	likes       LikeStore
	notifier    Notifier
	logger      *zap.Logger
	concurrency int
}

// PriceOption はPriceProducerの設定を変更する。
type PriceOption func(*PriceProducer)

// WithConcurrency はファンアウトの並列数を設定する。1未満の値は無視する。
func WithConcurrency(n int) PriceOption {
	return func(p *PriceProducer) {
		if n > 0 {
			p.concurrency = n
		}
	}
}

// NewPriceProducer は新しいPriceProducerを生成する。
func NewPriceProducer(products ProductStore, likes LikeStore, notifier Notifier, logger *zap.Logger, opts ...PriceOption) *PriceProducer {
	if logger == nil {
		logger = zap.NewNop()
	}
	p := &PriceProducer{
		products:    products,
		likes:       likes,
		notifier:    notifier,
		logger:      logger,
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// FanOut は価格変更通知のファンアウト結果。
type FanOut struct {
	// Recipients は通知対象のユーザー数。更新者自身は含まない。
	Recipients int
	// Notified は通知を生成できた件数。
	Notified int
	// Delivered はリアルタイム配信できた件数。
	Delivered int
	// Err は失敗した受信者ごとのエラーをまとめたもの。全件成功した場合はnil。
	Err error
}

// PriceUpdate は商品更新の結果。
type PriceUpdate struct {
	// Product は更新後の商品。
	Product domain.Product
	// OldPrice は更新前の価格。
	OldPrice int64
	// FanOut は価格変更通知の結果。価格が変わらなかった場合はゼロ値。
	FanOut FanOut
}

// PriceChanged は価格が変更されたかどうかを返す。
func (u PriceUpdate) PriceChanged() bool {
	return u.Product.Price != u.OldPrice
}

// Update は商品を更新し、価格が変わった場合はいいねしたユーザーへCHANGED_PRICE通知を生成する。
//
// 商品が存在しない場合はdomain.ErrNotFound、更新者が所有者でない場合は
// domain.ErrForbiddenを返す。受信者ごとの通知の失敗は互いに影響せず、
// FanOut.Errにまとめて返す。この場合もUpdate自体は成功する。
func (p *PriceProducer) Update(ctx context.Context, updaterID int64, u domain.ProductUpdate) (*PriceUpdate, error) {
	if u.Price != nil && *u.Price < 0 {
		return nil, fmt.Errorf("価格は0以上である必要があります: %w", domain.ErrValidation)
	}

	current, err := p.products.GetProduct(ctx, u.ID)
	if err != nil {
		return nil, fmt.Errorf("商品の取得に失敗: %w", err)
	}
	if current.OwnerID != updaterID {
		return nil, fmt.Errorf("商品 %d の更新: %w", u.ID, domain.ErrForbidden)
	}

	updated := u.Apply(*current)
	if err := p.products.UpdateProduct(ctx, &updated); err != nil {
		return nil, fmt.Errorf("商品の更新に失敗: %w", err)
	}

	result := &PriceUpdate{Product: updated, OldPrice: current.Price}
	if !result.PriceChanged() {
		return result, nil
	}

	likers, err := p.likes.ListLikers(ctx, updated.ID)
	if err != nil {
		// 商品の更新は完了しているため、通知できなかったことのみを返す
		p.logger.Error("いいねしたユーザーの取得に失敗しました", zap.Int64("product_id", updated.ID), zap.Error(err))
		result.FanOut.Err = fmt.Errorf("%w: %w", ErrListLikers, err)
		return result, nil
	}

	recipients := make([]int64, 0, len(likers))
	for _, id := range likers {
		if id != updaterID {
			recipients = append(recipients, id)
		}
	}
	result.FanOut = p.fanOut(ctx, updaterID, result, recipients)
	return result, nil
}

// fanOut は受信者ごとに独立して通知を生成する。
func (p *PriceProducer) fanOut(ctx context.Context, senderID int64, u *PriceUpdate, recipients []int64) FanOut {
	out := FanOut{Recipients: len(recipients)}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)
	productID := u.Product.ID
	oldPrice := u.OldPrice
	newPrice := u.Product.Price

	var g errgroup.Group
	g.SetLimit(p.concurrency)
	for _, receiverID := range recipients {
		g.Go(func() error {
			res, err := p.notifier.CreateAndGenerate(ctx, notification.CreateParams{
				SenderID:   senderID,
				ReceiverID: receiverID,
				Title:      priceChangedTitle,
				Category:   notification.CategoryChangedPrice,
				ProductID:  &productID,
				OldPrice:   &oldPrice,
				NewPrice:   &newPrice,
			})

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				p.logger.Warn("価格変更通知の生成に失敗しました",
					zap.Int64("product_id", productID),
					zap.Int64("receiver_id", receiverID),
					zap.Error(err))
				errs = multierror.Append(errs, fmt.Errorf("ユーザー %d: %w", receiverID, err))
				return nil
			}
			if res != nil {
				out.Notified++
				if res.Delivered {
					out.Delivered++
				}
			}
			return nil
		})
	}
	// 各goroutineはエラーを返さない
	_ = g.Wait()

	out.Err = errs.ErrorOrNil()
	return out
}
