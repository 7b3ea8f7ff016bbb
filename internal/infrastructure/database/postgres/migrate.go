package postgres

import (
	"context"
	"credit-application-system/internal/pkg/apperrors"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
)

//go:embed migrations/*.sql
var migrationFiles embed.FS

// Migrate applies every embedded migration in file name order. Statements are
// idempotent so the whole set runs on each start.
func Migrate(ctx context.Context, db DBPool, logger *slog.Logger) error {
	names, err := fs.Glob(migrationFiles, "migrations/*.sql")
	if err != nil {
		return fmt.Errorf("failed to list migrations: %w", err)
	}
	sort.Strings(names)

	for _, name := range names {
		script, err := migrationFiles.ReadFile(name)
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", name, err)
		}
		if _, err := db.Exec(ctx, string(script)); err != nil {
			logger.ErrorContext(ctx, "Migration failed", "file", name, "error", err)
			return fmt.Errorf("%w: migration %s: %w", apperrors.ErrDatabase, name, err)
		}
		logger.InfoContext(ctx, "Migration applied", "file", name)
	}
	return nil
}
