// Package ws はWebSocket接続をレジストリに登録するトランスポートを提供する。
//
// 認証済みユーザーの接続ごとに書き込み用と読み込み用のループを持ち、
// レジストリからの配信は送信キューを経由して書き込む。
package ws
