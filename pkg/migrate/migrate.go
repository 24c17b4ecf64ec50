// Package migrate применяет SQL-миграции при старте сервиса.
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"slices"

	"github.com/jmoiron/sqlx"
)

// FromFS выполняет все *.sql файлы из fsys в лексикографическом порядке.
// Миграции должны быть идемпотентными: они выполняются при каждом запуске.
func FromFS(ctx context.Context, db *sqlx.DB, fsys fs.FS) error {
	fileNames, err := fs.Glob(fsys, "*.sql")
	if err != nil {
		return fmt.Errorf("fs.Glob: %w", err)
	}

	slices.Sort(fileNames)

	for _, fileName := range fileNames {
		fileBytes, err := fs.ReadFile(fsys, fileName)
		if err != nil {
			return fmt.Errorf("fs.ReadFile: %w", err)
		}

		if _, err = db.ExecContext(ctx, string(fileBytes)); err != nil {
			return fmt.Errorf("db.Exec %s: %w", fileName, err)
		}

		logger(ctx).Info("migration applied", slog.String("file", fileName))
	}

	return nil
}
