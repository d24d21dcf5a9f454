// Package market は商品・記事・コメント・いいねを管理するマーケット機能を提供する。
//
// コメントの作成と商品の更新はproducerパッケージのプロデューサーを経由し、
// 通知の生成を伴う。内部APIとして商品・記事の所有者を返すエンドポイントも持つ。
package market
