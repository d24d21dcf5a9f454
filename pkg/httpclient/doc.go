// Package httpclient はサービス間のHTTP通信を行うクライアントを提供する。
//
// 通知サービスがマーケットサービスの内部APIから商品・記事の所有者を
// 取得する際に使用する。2xx以外のレスポンスは*StatusErrorとして返す。
package httpclient
