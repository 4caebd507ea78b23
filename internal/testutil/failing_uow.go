package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	"github.com/alexanderramin/estibot/internal/db"
)

// FailOnNthExecUoW is a UnitOfWork that returns Err from the Nth write
// statement run inside a transaction, so tests can check that multi-write
// operations (insert plus totals refresh) roll back as a whole.
//
// Writes are counted from 1 per transaction. When Match is set only
// statements containing it are counted, which keeps tests stable if an
// operation grows an extra write. Reads are never counted.
type FailOnNthExecUoW struct {
	DB     *sql.DB
	FailOn int32
	Match  string
	Err    error

	mu       sync.Mutex
	executed []string
}

func (u *FailOnNthExecUoW) WithinTx(ctx context.Context, fn func(ctx context.Context, tx db.DBTX) error) error {
	tx, err := u.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}

	wrapped := &failOnNthExec{DBTX: tx, uow: u}
	if fnErr := fn(ctx, wrapped); fnErr != nil {
		_ = tx.Rollback()
		return fnErr
	}
	return tx.Commit()
}

// Executed returns the write statements seen so far, the failing one included.
func (u *FailOnNthExecUoW) Executed() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]string(nil), u.executed...)
}

func (u *FailOnNthExecUoW) record(query string) {
	u.mu.Lock()
	u.executed = append(u.executed, strings.Join(strings.Fields(query), " "))
	u.mu.Unlock()
}

type failOnNthExec struct {
	db.DBTX
	uow   *FailOnNthExecUoW
	count int32
}

func (f *failOnNthExec) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	f.uow.record(query)
	if f.uow.Match == "" || strings.Contains(query, f.uow.Match) {
		f.count++
		if f.count == f.uow.FailOn {
			return nil, f.uow.Err
		}
	}
	return f.DBTX.ExecContext(ctx, query, args...)
}
