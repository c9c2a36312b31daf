package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"earnapp/database"
	"earnapp/events"
	"earnapp/service"
)

// unitOfWork bundles repositories bound to one transaction with a
// transactional event bus that flushes only after commit
type unitOfWork struct {
	db  *database.DB
	bus *events.Bus

	tx       pgx.Tx
	ctx      context.Context
	eventBus *events.TransactionalBus

	userRepo       service.UserRepository
	withdrawalRepo service.WithdrawalRepository
	historyRepo    service.BalanceHistoryRepository
}

type unitOfWorkFactory struct {
	db  *database.DB
	bus *events.Bus
}

// NewUnitOfWorkFactory creates a factory producing units of work over the
// given pool and event bus
func NewUnitOfWorkFactory(db *database.DB, bus *events.Bus) service.UnitOfWorkFactory {
	return &unitOfWorkFactory{db: db, bus: bus}
}

func (f *unitOfWorkFactory) Create() service.UnitOfWork {
	return &unitOfWork{db: f.db, bus: f.bus}
}

func (u *unitOfWork) Begin(ctx context.Context) error {
	if u.tx != nil {
		return fmt.Errorf("transaction already started")
	}

	tx, err := u.db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	u.tx = tx
	u.ctx = ctx
	u.eventBus = events.NewTransactionalBus(u.bus)
	u.userRepo = newUserRepositoryWithTx(tx)
	u.withdrawalRepo = newWithdrawalRepositoryWithTx(tx)
	u.historyRepo = newBalanceHistoryRepositoryWithTx(tx)
	return nil
}

func (u *unitOfWork) Commit() error {
	if u.tx == nil {
		return fmt.Errorf("no transaction to commit")
	}

	if err := u.tx.Commit(u.ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	u.tx = nil

	// Publish queued events only after the data is durable
	return u.eventBus.Flush(u.ctx)
}

func (u *unitOfWork) Rollback() error {
	if u.tx == nil {
		// Rollback after commit is a no-op so callers can defer it
		return nil
	}

	err := u.tx.Rollback(u.ctx)
	u.tx = nil
	u.eventBus.Discard()
	if err != nil && err != pgx.ErrTxClosed {
		return fmt.Errorf("failed to rollback transaction: %w", err)
	}
	return nil
}

func (u *unitOfWork) UserRepository() service.UserRepository {
	if u.userRepo == nil {
		panic("unit of work not started")
	}
	return u.userRepo
}

func (u *unitOfWork) WithdrawalRepository() service.WithdrawalRepository {
	if u.withdrawalRepo == nil {
		panic("unit of work not started")
	}
	return u.withdrawalRepo
}

func (u *unitOfWork) BalanceHistoryRepository() service.BalanceHistoryRepository {
	if u.historyRepo == nil {
		panic("unit of work not started")
	}
	return u.historyRepo
}

func (u *unitOfWork) EventBus() service.EventPublisher {
	if u.eventBus == nil {
		panic("unit of work not started")
	}
	return u.eventBus
}
