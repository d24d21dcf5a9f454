package ws

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var (
	// ErrClosed は切断済みの接続への送信を表す。
	ErrClosed = errors.New("接続は切断されています")
	// ErrQueueFull は送信キューが埋まっていることを表す。
	ErrQueueFull = errors.New("送信キューがいっぱいです")
)

// Conn はレジストリに登録する1本のWebSocket接続。
type Conn struct {
	id     string
	userID int64
	ws     *websocket.Conn
	cfg    Config
	logger *zap.Logger

	// send は書き込みループへ渡すメッセージのキュー。
	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once
}

func newConn(userID int64, ws *websocket.Conn, cfg Config, logger *zap.Logger) *Conn {
	return &Conn{
		id:     uuid.NewString(),
		userID: userID,
		ws:     ws,
		cfg:    cfg,
		logger: logger,
		send:   make(chan []byte, cfg.SendBuffer),
		done:   make(chan struct{}),
	}
}

// ID は接続IDを返す。
func (c *Conn) ID() string {
	return c.id
}

// Push はpayloadをJSONにして送信キューに積む。
// キューが埋まっている場合や切断済みの場合は待たずにエラーを返す。
// eventはログ用で、フレームには含めない。
func (c *Conn) Push(event string, payload any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%s のシリアライズに失敗: %w", event, err)
	}

	select {
	case c.send <- data:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrQueueFull
	}
}

// close は接続を切断済みにする。複数回呼んでもよい。
func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}

// writePump は送信キューのメッセージとPingを書き込む。
// 接続ごとに1つのgoroutineで実行し、WebSocketへの書き込みはここでのみ行う。
func (c *Conn) writePump() {
	ticker := time.NewTicker(c.cfg.PingPeriod)
	defer func() {
		ticker.Stop()
		c.ws.Close()
	}()

	for {
		select {
		case data := <-c.send:
			if err := c.write(websocket.TextMessage, data); err != nil {
				c.logger.Debug("メッセージの書き込みに失敗しました", zap.String("conn_id", c.id), zap.Error(err))
				c.close()
				return
			}
		case <-ticker.C:
			if err := c.write(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.write(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Conn) write(messageType int, data []byte) error {
	if err := c.ws.SetWriteDeadline(time.Now().Add(c.cfg.WriteWait)); err != nil {
		return err
	}
	return c.ws.WriteMessage(messageType, data)
}

// readPump は切断を検知するまで受信を続ける。クライアントからのメッセージは読み捨てる。
func (c *Conn) readPump() {
	defer c.close()

	c.ws.SetReadLimit(c.cfg.MaxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(c.cfg.PongWait))
	})

	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug("接続が異常終了しました", zap.String("conn_id", c.id), zap.Error(err))
			}
			return
		}
	}
}
