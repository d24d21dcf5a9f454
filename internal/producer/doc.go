// Package producer はドメインイベントを検知して通知生成を要求するプロデューサーを提供する。
//
// コメント作成時の通知（NEW_COMMENT）と、いいねされた商品の価格変更時の通知
// （CHANGED_PRICE）を扱う。自分自身への通知の抑止は通知サービス側で行うため、
// プロデューサーでは判定しない。
package producer
