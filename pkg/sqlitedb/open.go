// Package sqlitedb はSQLiteデータベースへの接続を共通の設定で開く。
package sqlitedb

import (
	"context"
	"fmt"
	"io/fs"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/nao1215/market/pkg/migration"
)

// Open はdsnのSQLiteデータベースを開き、migrationsのdirにあるマイグレーションを適用する。
//
// PRAGMAは接続ごとに適用されるようDSNの_pragmaパラメータで指定する。
// ":memory:" の場合は接続ごとに別DBにならないよう接続数を1に固定する。
func Open(dsn string, migrations fs.FS, dir string, logger *zap.Logger) (*sqlx.DB, error) {
	inMemory := strings.Contains(dsn, ":memory:")

	db, err := sqlx.Open("sqlite", withPragmas(dsn, inMemory))
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}
	if inMemory {
		db.SetMaxOpenConns(1)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if _, err := migration.Run(context.Background(), db, migrations, dir, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("スキーマ初期化に失敗: %w", err)
	}
	return db, nil
}

// withPragmas はdsnに接続ごとのPRAGMA指定を付与する。
func withPragmas(dsn string, inMemory bool) string {
	pragmas := []string{"_pragma=busy_timeout(5000)", "_pragma=foreign_keys(1)"}
	if !inMemory {
		pragmas = append(pragmas, "_pragma=journal_mode(WAL)")
	}
	sep := "?"
	if strings.Contains(dsn, "?") {
		sep = "&"
	}
	return dsn + sep + strings.Join(pragmas, "&")
}
