package registry

import (
	"sync"

	"go.uber.org/zap"
)

// Conn はレジストリに登録するリアルタイム接続。
type Conn interface {
	// ID は接続を一意に識別する文字列を返す。
	ID() string
	// Push はメッセージを接続に送信する。
	// 呼び出し元をブロックしてはならない。送信できない場合はすぐにエラーを返す。
	Push(event string, payload any) error
}

// Registry はユーザーIDごとに1つの接続を保持する。
// すべての操作は1つのミューテックスで直列化される。
type Registry struct {
	mu sync.Mutex
	// conns はユーザーIDから現在の接続への対応。
	conns map[int64]Conn
	// users は接続IDからその接続に束縛されているユーザーIDの集合への逆引き。
	users   map[string]map[int64]struct{}
	logger  *zap.Logger
	metrics *Metrics
}

// Option はRegistryの生成オプション。
type Option func(*Registry)

// WithMetrics はメトリクスの記録先を設定する。
func WithMetrics(m *Metrics) Option {
	return func(r *Registry) {
		r.metrics = m
	}
}

// New は空のレジストリを生成する。
func New(logger *zap.Logger, opts ...Option) *Registry {
	if logger == nil {
		logger = zap.NewNop()
	}
	r := &Registry{
		conns:  make(map[int64]Conn),
		users:  make(map[string]map[int64]struct{}),
		logger: logger,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register はuserIDにconnを束縛する。既存の束縛は無条件に上書きする。
func (r *Registry) Register(userID int64, conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if old, ok := r.conns[userID]; ok {
		if old.ID() == conn.ID() {
			return
		}
		r.unbindLocked(userID, old.ID())
	}

	r.conns[userID] = conn
	bound, ok := r.users[conn.ID()]
	if !ok {
		bound = make(map[int64]struct{})
		r.users[conn.ID()] = bound
	}
	bound[userID] = struct{}{}

	r.metrics.setConnections(len(r.conns))
	r.logger.Debug("接続を登録しました", zap.Int64("user_id", userID), zap.String("conn_id", conn.ID()))
}

// Unregister はconnに束縛されているユーザーの束縛を削除する。
// ユーザーが既に別の接続で再登録されている場合は何もしない。
func (r *Registry) Unregister(conn Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bound, ok := r.users[conn.ID()]
	if !ok {
		return
	}
	for userID := range bound {
		if current, ok := r.conns[userID]; ok && current.ID() == conn.ID() {
			delete(r.conns, userID)
			r.logger.Debug("接続を解除しました", zap.Int64("user_id", userID), zap.String("conn_id", conn.ID()))
		}
	}
	delete(r.users, conn.ID())

	r.metrics.setConnections(len(r.conns))
}

// unbindLocked はconnIDの逆引きからuserIDを取り除く。r.muを保持して呼ぶこと。
func (r *Registry) unbindLocked(userID int64, connID string) {
	bound, ok := r.users[connID]
	if !ok {
		return
	}
	delete(bound, userID)
	if len(bound) == 0 {
		delete(r.users, connID)
	}
}

// Lookup はuserIDに束縛されている接続を返す。
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	return conn, ok
}

// Len は接続中のユーザー数を返す。
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.conns)
}

// Send はuserIDの接続にメッセージを送信し、送信できたかどうかを返す。
// 未接続や送信失敗はエラーとして扱わず、ログに記録してfalseを返す。
func (r *Registry) Send(userID int64, event string, payload any) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.conns[userID]
	if !ok {
		r.metrics.observePush(event, resultOffline)
		r.logger.Debug("未接続のためリアルタイム配信をスキップしました",
			zap.Int64("user_id", userID), zap.String("event", event))
		return false
	}

	if err := r.push(conn, event, payload); err != nil {
		r.metrics.observePush(event, resultFailed)
		r.logger.Warn("リアルタイム配信に失敗しました",
			zap.Int64("user_id", userID),
			zap.String("conn_id", conn.ID()),
			zap.String("event", event),
			zap.Error(err))
		return false
	}

	r.metrics.observePush(event, resultDelivered)
	return true
}

// push はconn.Pushを呼び出す。Conn実装のパニックも配信失敗として扱う。
func (r *Registry) push(conn Conn, event string, payload any) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = &pushPanicError{value: rec}
		}
	}()
	return conn.Push(event, payload)
}
