package event

import (
	"encoding/json"
	"fmt"
)

// New は新しいメッセージを生成する。
// payloadにはメッセージ固有のデータ構造体を渡す。JSON形式にシリアライズされる。
func New(msgType string, payload any) (*Message, error) {
	jsonData, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("メッセージデータのシリアライズに失敗: %w", err)
	}

	return &Message{
		Type:    msgType,
		Payload: jsonData,
	}, nil
}

// Decode はメッセージのPayloadフィールドを指定された型にデシリアライズする。
func Decode[T any](m *Message) (*T, error) {
	var data T
	if err := json.Unmarshal(m.Payload, &data); err != nil {
		return nil, fmt.Errorf("メッセージデータのデシリアライズに失敗: %w", err)
	}
	return &data, nil
}
