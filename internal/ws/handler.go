package ws

import (
	"net/http"
	"slices"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/nao1215/market/internal/registry"
	"github.com/nao1215/market/pkg/middleware"
)

// Config はWebSocket接続の設定。
type Config struct {
	// WriteWait は1回の書き込みの期限。
	WriteWait time.Duration
	// PongWait はPongを待つ期限。これを過ぎると切断する。
	PongWait time.Duration
	// PingPeriod はPingの送信間隔。PongWaitより短くする。
	PingPeriod time.Duration
	// SendBuffer は接続ごとの送信キューの長さ。
	SendBuffer int
	// MaxMessageSize はクライアントから受信するメッセージの最大サイズ。
	MaxMessageSize int64
	// AllowedOrigins は接続を許可するOrigin。"*" で全て許可する。
	AllowedOrigins []string
}

// DefaultConfig は既定の接続設定を返す。
func DefaultConfig() Config {
	return Config{
		WriteWait:      10 * time.Second,
		PongWait:       60 * time.Second,
		PingPeriod:     54 * time.Second,
		SendBuffer:     16,
		MaxMessageSize: 4096,
		AllowedOrigins: []string{"*"},
	}
}

// Binder は接続の登録先。registry.Registryが実装する。
type Binder interface {
	Register(userID int64, conn registry.Conn)
	Unregister(conn registry.Conn)
}

// Handler はWebSocket接続を受け付けるHTTPハンドラ。
type Handler struct {
	binder   Binder
	cfg      Config
	upgrader websocket.Upgrader
	logger   *zap.Logger
}

// NewHandler は新しいWebSocketハンドラを生成する。
func NewHandler(binder Binder, cfg Config, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{binder: binder, cfg: cfg, logger: logger}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

// checkOrigin はOriginヘッダーが許可されているかを判定する。
// Originの無いリクエストはブラウザ以外のクライアントとして許可する。
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	return slices.Contains(h.cfg.AllowedOrigins, "*") || slices.Contains(h.cfg.AllowedOrigins, origin)
}

// Serve は接続をアップグレードし、切断されるまで認証済みユーザーに束縛する。
// JWTAuthミドルウェアが事前に適用されている必要がある。
func (h *Handler) Serve(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "ユーザーIDが取得できません"})
		return
	}

	socket, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgradeがエラーレスポンスを書き込み済み
		h.logger.Debug("WebSocketへのアップグレードに失敗しました", zap.Error(err))
		return
	}

	conn := newConn(userID, socket, h.cfg, h.logger)
	h.binder.Register(userID, conn)
	h.logger.Info("WebSocket接続を開始しました", zap.Int64("user_id", userID), zap.String("conn_id", conn.ID()))

	go conn.writePump()
	conn.readPump()

	h.binder.Unregister(conn)
	conn.close()
	h.logger.Info("WebSocket接続を終了しました", zap.Int64("user_id", userID), zap.String("conn_id", conn.ID()))
}
