// Package domain はマーケットと通知で共有するエンティティとエラー分類を定義する。
package domain
