package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/osse101/BrandishDuels_Go/internal/domain"
	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

// SafeRollback rolls back a transaction and logs any error other than "already finished"
func SafeRollback(ctx context.Context, tx Tx) {
	if err := tx.Rollback(ctx); err != nil {
		if errors.Is(err, sql.ErrTxDone) || err.Error() == domain.ErrMsgTxClosed {
			return
		}
		logger.FromContext(ctx).Error("Failed to rollback transaction", "error", err)
	}
}
