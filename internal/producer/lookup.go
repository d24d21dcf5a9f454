package producer

import (
	"context"
	"fmt"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/pkg/httpclient"
)

// CachedLookup は所有者の解決結果をローカルキャッシュに保持するEntityLookup。
// 見つからなかった結果はキャッシュしない。
type CachedLookup struct {
	next  EntityLookup
	cache *cache.Cache
}

var _ EntityLookup = (*CachedLookup)(nil)

// NewCachedLookup はnextをttlの間キャッシュするCachedLookupを生成する。
func NewCachedLookup(next EntityLookup, ttl time.Duration) *CachedLookup {
	return &CachedLookup{next: next, cache: cache.New(ttl, 2*ttl)}
}

func productKey(id int64) string { return fmt.Sprintf("product:%d", id) }
func articleKey(id int64) string { return fmt.Sprintf("article:%d", id) }

// ProductOwner は商品の所有者を返す。
func (l *CachedLookup) ProductOwner(ctx context.Context, productID int64) (int64, error) {
	return l.get(productKey(productID), func() (int64, error) {
		return l.next.ProductOwner(ctx, productID)
	})
}

// ArticleOwner は記事の所有者を返す。
func (l *CachedLookup) ArticleOwner(ctx context.Context, articleID int64) (int64, error) {
	return l.get(articleKey(articleID), func() (int64, error) {
		return l.next.ArticleOwner(ctx, articleID)
	})
}

func (l *CachedLookup) get(key string, load func() (int64, error)) (int64, error) {
	if v, ok := l.cache.Get(key); ok {
		if owner, ok := v.(int64); ok {
			return owner, nil
		}
	}
	owner, err := load()
	if err != nil {
		return 0, err
	}
	l.cache.SetDefault(key, owner)
	return owner, nil
}

// RemoteLookup はマーケットサービスの内部APIから所有者を解決するEntityLookup。
type RemoteLookup struct {
	client *httpclient.Client
}

var _ EntityLookup = (*RemoteLookup)(nil)

// NewRemoteLookup は新しいRemoteLookupを生成する。
func NewRemoteLookup(client *httpclient.Client) *RemoteLookup {
	return &RemoteLookup{client: client}
}

// ownerResponse は内部APIの所有者レスポンス。
type ownerResponse struct {
	ID      int64 `json:"id"`
	OwnerID int64 `json:"ownerId"`
}

// ProductOwner は商品の所有者を返す。
func (l *RemoteLookup) ProductOwner(ctx context.Context, productID int64) (int64, error) {
	return l.owner(ctx, fmt.Sprintf("/internal/products/%d/owner", productID), "商品", productID)
}

// ArticleOwner は記事の所有者を返す。
func (l *RemoteLookup) ArticleOwner(ctx context.Context, articleID int64) (int64, error) {
	return l.owner(ctx, fmt.Sprintf("/internal/articles/%d/owner", articleID), "記事", articleID)
}

func (l *RemoteLookup) owner(ctx context.Context, path, kind string, id int64) (int64, error) {
	var resp ownerResponse
	if err := l.client.GetJSON(ctx, path, &resp); err != nil {
		if httpclient.IsNotFound(err) {
			return 0, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
		}
		return 0, fmt.Errorf("%sの所有者の取得に失敗: %w", kind, err)
	}
	return resp.OwnerID, nil
}
