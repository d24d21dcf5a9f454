// Package event はリアルタイム配信でクライアントへ送るメッセージの形式を定義する。
//
// 1イベント・1受信者につき1メッセージを送信する。バッチ送信は行わない。
package event

import (
	"encoding/json"
)

// Name はレジストリ経由で配信するイベントの名前を表す。
type Name string

const (
	// NameNotification は通知の配信イベント。
	NameNotification Name = "notification"
)

// Message は接続中のクライアントへ送信する1件のメッセージ。
// ワイヤ形式は {"type": ..., "payload": {...}}。
type Message struct {
	// Type はメッセージの種類。通知の場合は通知カテゴリ。
	Type string `json:"type"`
	// Payload はメッセージ固有のデータ（JSON形式）。
	Payload json.RawMessage `json:"payload"`
}
