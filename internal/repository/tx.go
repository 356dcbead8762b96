package repository

import "context"

// Tx is the commit/rollback half shared by every transactional repository handle
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}
