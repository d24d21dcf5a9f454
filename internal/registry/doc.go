// Package registry はユーザーIDと接続中のリアルタイム接続を対応付けるレジストリを提供する。
//
// 1ユーザーにつき同時に保持する接続は最大1つ。新しい接続の登録は古い接続を
// 暗黙的に置き換える。再接続より後に届いた古い接続の切断通知は、新しい接続を
// 削除しない。
//
// レジストリはプロセス起動時に1度だけ生成し、トランスポート層と通知サービスに
// 注入して使う。
package registry
