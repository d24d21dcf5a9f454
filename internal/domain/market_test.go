package domain

import "testing"

func ptr[T any](v T) *T { return &v }

func TestProductUpdateApply(t *testing.T) {
	t.Parallel()

	base := Product{ID: 1, Name: "机", Description: "木製", Price: 1000, OwnerID: 2}

	t.Run("nilのフィールドは変更されないこと", func(t *testing.T) {
		t.Parallel()
		got := ProductUpdate{ID: 1}.Apply(base)
		if got != base {
			t.Errorf("Apply() = %+v, want %+v", got, base)
		}
	})

	t.Run("指定したフィールドのみ更新されること", func(t *testing.T) {
		t.Parallel()
		got := ProductUpdate{ID: 1, Price: ptr[int64](800)}.Apply(base)
		if got.Price != 800 {
			t.Errorf("Price = %d, want 800", got.Price)
		}
		if got.Name != base.Name || got.Description != base.Description {
			t.Errorf("価格以外のフィールドが変更された: %+v", got)
		}
	})
}

func TestCommentTargetID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		comment Comment
		wantID  int64
		wantOK  bool
	}{
		{"MARKETは商品IDを返す", Comment{Type: CommentTypeMarket, ProductID: ptr[int64](3), ArticleID: ptr[int64](9)}, 3, true},
		{"ARTICLEは記事IDを返す", Comment{Type: CommentTypeArticle, ProductID: ptr[int64](3), ArticleID: ptr[int64](9)}, 9, true},
		{"MARKETで商品IDが無い場合はfalse", Comment{Type: CommentTypeMarket, ArticleID: ptr[int64](9)}, 0, false},
		{"未知の種別はfalse", Comment{Type: "OTHER", ProductID: ptr[int64](3)}, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			id, ok := tt.comment.TargetID()
			if id != tt.wantID || ok != tt.wantOK {
				t.Errorf("TargetID() = (%d, %v), want (%d, %v)", id, ok, tt.wantID, tt.wantOK)
			}
		})
	}
}
