package producer

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/nao1215/market/internal/domain"
	"github.com/nao1215/market/internal/notification"
)

// fakeLookup はテスト用のEntityLookup。
type fakeLookup struct {
	mu       sync.Mutex
	products map[int64]int64
	articles map[int64]int64
	err      error
	calls    int
}

func (l *fakeLookup) ProductOwner(_ context.Context, id int64) (int64, error) {
	return l.find(l.products, "商品", id)
}

func (l *fakeLookup) ArticleOwner(_ context.Context, id int64) (int64, error) {
	return l.find(l.articles, "記事", id)
}

func (l *fakeLookup) find(m map[int64]int64, kind string, id int64) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.calls++
	if l.err != nil {
		return 0, l.err
	}
	owner, ok := m[id]
	if !ok {
		return 0, fmt.Errorf("%s %d: %w", kind, id, domain.ErrNotFound)
	}
	return owner, nil
}

// fakeCommentStore はテスト用のCommentStore。
type fakeCommentStore struct {
	created []domain.Comment
	err     error
}

func (s *fakeCommentStore) CreateComment(_ context.Context, c *domain.Comment) error {
	if s.err != nil {
		return s.err
	}
	c.ID = int64(len(s.created) + 1)
	s.created = append(s.created, *c)
	return nil
}

// fakeProductStore はテスト用のProductStoreとLikeStore。
type fakeProductStore struct {
	mu        sync.Mutex
	products  map[int64]domain.Product
	likers    map[int64][]int64
	likersErr error
	updates   int
}

func (s *fakeProductStore) GetProduct(_ context.Context, id int64) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.products[id]
	if !ok {
		return nil, fmt.Errorf("商品 %d: %w", id, domain.ErrNotFound)
	}
	return &p, nil
}

func (s *fakeProductStore) UpdateProduct(_ context.Context, p *domain.Product) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.updates++
	s.products[p.ID] = *p
	return nil
}

func (s *fakeProductStore) ListLikers(_ context.Context, productID int64) ([]int64, error) {
	if s.likersErr != nil {
		return nil, s.likersErr
	}
	return slices.Clone(s.likers[productID]), nil
}

// fakeNotifier はテスト用のNotifier。failFor に含まれる受信者への通知は失敗する。
type fakeNotifier struct {
	mu      sync.Mutex
	calls   []notification.CreateParams
	failFor map[int64]bool
	err     error
}

func (n *fakeNotifier) CreateAndGenerate(_ context.Context, p notification.CreateParams) (*notification.Result, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, p)
	if n.err != nil {
		return nil, n.err
	}
	if n.failFor[p.ReceiverID] {
		return nil, fmt.Errorf("%w: %w", domain.ErrPersistence, errors.New("insert failed"))
	}
	return &notification.Result{Delivered: true}, nil
}

func (n *fakeNotifier) receivers() []int64 {
	n.mu.Lock()
	defer n.mu.Unlock()
	ids := make([]int64, 0, len(n.calls))
	for _, c := range n.calls {
		ids = append(ids, c.ReceiverID)
	}
	slices.Sort(ids)
	return ids
}
