// Package notification は通知サービスの内部実装を提供する。
//
// ドメインイベントから通知レコードを生成して永続化し、受信者が接続中であれば
// レジストリ経由でリアルタイムに配信する。永続化が成功の基準であり、
// リアルタイム配信はベストエフォートで1度だけ試行する。
// 通知の一覧取得や既読管理のHTTP APIも提供する。
package notification
