// Package migration はSQLiteデータベースのマイグレーションを管理する。
// embed.FSからSQLファイルを読み込み、DBごとの管理テーブルで適用状態を追跡する。
package migration

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"slices"
	"strconv"
	"strings"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

var (
	// ErrInvalidName はup.sqlファイル名がバージョン形式になっていないことを表す。
	ErrInvalidName = errors.New("マイグレーションのファイル名が不正です")
	// ErrDuplicateVersion は同じバージョンのファイルが複数あることを表す。
	ErrDuplicateVersion = errors.New("マイグレーションのバージョンが重複しています")
	// ErrUnknownVersion はDBにファイルの無いバージョンが適用済みであることを表す。
	// より新しいバイナリで作られたDBを古いバイナリで開いた場合に起きる。
	ErrUnknownVersion = errors.New("未知のマイグレーションが適用済みです")
)

// Migration は1つのマイグレーションファイル。
type Migration struct {
	// Version はファイル名先頭の連番。
	Version int
	// Name はバージョンより後ろの説明部分。
	Name string

	path string
}

// Run はdirにあるマイグレーションファイルを順序通りに適用し、今回適用したものを返す。
// ファイル名形式: 000001_description.up.sql
//
// 通知DBとマーケットDBは別ファイルのため、管理テーブルもDBごとに作られる。
func Run(ctx context.Context, db *sqlx.DB, fsys fs.FS, dir string, logger *zap.Logger) ([]Migration, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	migrations, err := Collect(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("マイグレーションファイルの収集に失敗: %w", err)
	}

	if err := ensureMigrationsTable(ctx, db); err != nil {
		return nil, fmt.Errorf("マイグレーション管理テーブルの作成に失敗: %w", err)
	}

	applied, err := appliedVersions(ctx, db)
	if err != nil {
		return nil, fmt.Errorf("適用済みバージョンの取得に失敗: %w", err)
	}
	if err := checkKnown(applied, migrations); err != nil {
		return nil, err
	}

	var done []Migration
	for _, m := range migrations {
		if _, ok := applied[m.Version]; ok {
			continue
		}
		if err := apply(ctx, db, fsys, m); err != nil {
			return done, fmt.Errorf("マイグレーション %06d_%s の適用に失敗: %w", m.Version, m.Name, err)
		}
		logger.Info("マイグレーションを適用しました",
			zap.String("dir", dir), zap.Int("version", m.Version), zap.String("name", m.Name))
		done = append(done, m)
	}

	if len(done) == 0 {
		logger.Debug("スキーマは最新です", zap.String("dir", dir), zap.Int("versions", len(migrations)))
	}
	return done, nil
}

// Collect はdirからup.sqlファイルを収集してバージョン順に並べる。
// down.sqlなどup.sql以外のファイルは無視する。
func Collect(fsys fs.FS, dir string) ([]Migration, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, err
	}

	var migrations []Migration
	seen := make(map[int]string)
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".up.sql") {
			continue
		}

		prefix, rest, ok := strings.Cut(strings.TrimSuffix(entry.Name(), ".up.sql"), "_")
		version, err := strconv.Atoi(prefix)
		if !ok || err != nil || version <= 0 || rest == "" {
			return nil, fmt.Errorf("%s: %w", entry.Name(), ErrInvalidName)
		}
		if other, dup := seen[version]; dup {
			return nil, fmt.Errorf("%s と %s: %w", other, entry.Name(), ErrDuplicateVersion)
		}
		seen[version] = entry.Name()

		migrations = append(migrations, Migration{
			Version: version,
			Name:    rest,
			path:    path.Join(dir, entry.Name()),
		})
	}

	slices.SortFunc(migrations, func(a, b Migration) int {
		return a.Version - b.Version
	})
	return migrations, nil
}

// ensureMigrationsTable はバージョン管理テーブルを作成する。
func ensureMigrationsTable(ctx context.Context, db *sqlx.DB) error {
	_, err := db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL DEFAULT '',
			applied_at DATETIME NOT NULL DEFAULT (datetime('now'))
		)
	`)
	return err
}

// appliedVersions は適用済みのバージョンと名前を取得する。
func appliedVersions(ctx context.Context, db *sqlx.DB) (map[int]string, error) {
	var rows []struct {
		Version int    `db:"version"`
		Name    string `db:"name"`
	}
	if err := db.SelectContext(ctx, &rows, "SELECT version, name FROM schema_migrations ORDER BY version"); err != nil {
		return nil, err
	}
	applied := make(map[int]string, len(rows))
	for _, r := range rows {
		applied[r.Version] = r.Name
	}
	return applied, nil
}

func checkKnown(applied map[int]string, migrations []Migration) error {
	known := make(map[int]struct{}, len(migrations))
	for _, m := range migrations {
		known[m.Version] = struct{}{}
	}
	for v, name := range applied {
		if _, ok := known[v]; !ok {
			return fmt.Errorf("バージョン %06d (%s): %w", v, name, ErrUnknownVersion)
		}
	}
	return nil
}

// apply は1つのマイグレーションをトランザクション内で適用する。
func apply(ctx context.Context, db *sqlx.DB, fsys fs.FS, m Migration) error {
	content, err := fs.ReadFile(fsys, m.path)
	if err != nil {
		return fmt.Errorf("ファイル読み込みに失敗: %w", err)
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	if _, err := tx.ExecContext(ctx, string(content)); err != nil {
		return fmt.Errorf("SQL実行に失敗: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT INTO schema_migrations (version, name) VALUES (?, ?)", m.Version, m.Name); err != nil {
		return fmt.Errorf("バージョン記録に失敗: %w", err)
	}
	return tx.Commit()
}
