package domain

import (
	"errors"
	"net/http"
)

var (
	// ErrValidation は入力が不正であることを表す。
	// 例: 未知のコメント種別、親エンティティIDの欠落。
	ErrValidation = errors.New("入力が不正です")
	// ErrNotFound は参照先のエンティティが存在しないことを表す。
	ErrNotFound = errors.New("対象が見つかりません")
	// ErrPersistence は通知の永続化に失敗したことを表す。
	ErrPersistence = errors.New("通知の永続化に失敗しました")
	// ErrForbidden は操作する権限がないことを表す。
	ErrForbidden = errors.New("操作する権限がありません")
)

// HTTPStatus はエラー分類に対応するHTTPステータスコードを返す。
func HTTPStatus(err error) int {
	switch {
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
