package market

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/market/internal/domain"
)

func ptr[T any](v T) *T { return &v }

// newTestStore はインメモリSQLiteのStoreを生成する。
func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(":memory:", nil)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStoreProducts(t *testing.T) {
	t.Parallel()

	t.Run("商品を作成・取得・更新できること", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		p := &domain.Product{Name: "カメラ", Description: "中古", Price: 1000, OwnerID: 2}
		require.NoError(t, store.CreateProduct(t.Context(), p))
		require.NotZero(t, p.ID)

		got, err := store.GetProduct(t.Context(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, "カメラ", got.Name)
		assert.Equal(t, int64(1000), got.Price)

		got.Price = 800
		require.NoError(t, store.UpdateProduct(t.Context(), got))

		updated, err := store.GetProduct(t.Context(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(800), updated.Price)

		owner, err := store.ProductOwner(t.Context(), p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(2), owner)
	})

	t.Run("存在しない商品はErrNotFoundを返すこと", func(t *testing.T) {
		t.Parallel()
		store := newTestStore(t)

		_, err := store.GetProduct(t.Context(), 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		_, err = store.ProductOwner(t.Context(), 1)
		assert.ErrorIs(t, err, domain.ErrNotFound)
		err = store.UpdateProduct(t.Context(), &domain.Product{ID: 1, Name: "x"})
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})
}

func TestStoreArticlesAndComments(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)

	a := &domain.Article{Title: "はじめまして", Content: "よろしく", OwnerID: 5}
	require.NoError(t, store.CreateArticle(t.Context(), a))

	owner, err := store.ArticleOwner(t.Context(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), owner)

	_, err = store.ArticleOwner(t.Context(), a.ID+1)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	c := &domain.Comment{Content: "こんにちは", Type: domain.CommentTypeArticle, ArticleID: &a.ID, AuthorID: 7}
	require.NoError(t, store.CreateComment(t.Context(), c))
	assert.NotZero(t, c.ID)
	assert.False(t, c.CreatedAt.IsZero())

	dangling := &domain.Comment{Content: "x", Type: domain.CommentTypeArticle, ArticleID: ptr[int64](999), AuthorID: 7}
	assert.Error(t, store.CreateComment(t.Context(), dangling), "存在しない記事へのコメントは保存できないこと")
}

func TestStoreLikes(t *testing.T) {
	t.Parallel()

	store := newTestStore(t)
	p := &domain.Product{Name: "カメラ", Price: 1000, OwnerID: 2}
	require.NoError(t, store.CreateProduct(t.Context(), p))

	for _, user := range []int64{4, 3, 2, 3} {
		require.NoError(t, store.AddLike(t.Context(), user, p.ID))
	}

	likers, err := store.ListLikers(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 3, 4}, likers, "重複したいいねは1件として扱うこと")

	require.NoError(t, store.RemoveLike(t.Context(), 3, p.ID))
	require.NoError(t, store.RemoveLike(t.Context(), 3, p.ID))

	likers, err = store.ListLikers(t.Context(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, []int64{2, 4}, likers)

	assert.ErrorIs(t, store.AddLike(t.Context(), 1, p.ID+1), domain.ErrNotFound)

	empty, err := store.ListLikers(t.Context(), p.ID+1)
	require.NoError(t, err)
	assert.Empty(t, empty)
}
