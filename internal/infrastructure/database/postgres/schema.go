package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"

	"loan-engine/internal/pkg/apperrors"

	"github.com/jackc/pgx/v5"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the tables and indexes if they are missing.
func EnsureSchema(ctx context.Context, db DBPool, logger *slog.Logger) (err error) {
	tx, err := db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("%w: failed to begin schema transaction: %w", apperrors.ErrDatabase, err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				logger.ErrorContext(ctx, "Failed to roll back schema transaction", slog.Any("error", rbErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("%w: failed to apply schema: %w", apperrors.ErrDatabase, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("%w: failed to commit schema: %w", apperrors.ErrDatabase, err)
	}

	logger.InfoContext(ctx, "Database schema is up to date")
	return nil
}
