package main

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
)

const schedLockKey int64 = 424242

// leader — лидерство через pg_try_advisory_lock.
//
// Session-level lock живёт, пока жива сессия, поэтому под него берётся
// отдельное соединение из пула. При ошибке соединение освобождается,
// и на следующем вызове лидерство запрашивается заново.
type leader struct {
	pool   *pgxpool.Pool
	logger *slog.Logger

	conn    *pgxpool.Conn
	hasLock bool
}

// IsLeader пытается стать лидером (или подтвердить лидерство).
func (l *leader) IsLeader(ctx context.Context) bool {
	if l.conn == nil {
		conn, err := l.pool.Acquire(ctx)
		if err != nil {
			l.logger.Warn("acquire leader connection failed", "error", err)
			return false
		}
		l.conn = conn
		l.hasLock = false
	}

	if l.hasLock {
		if err := l.conn.Ping(ctx); err != nil {
			l.logger.Warn("leader connection lost", "error", err)
			l.drop()
			return false
		}
		return true
	}

	var ok bool
	if err := l.conn.QueryRow(ctx, "select pg_try_advisory_lock($1)", schedLockKey).Scan(&ok); err != nil {
		l.logger.Warn("advisory lock failed", "error", err)
		l.drop()
		return false
	}
	if ok {
		l.logger.Info("became sweep leader")
	}
	l.hasLock = ok
	return ok
}

// Release снимает lock и возвращает соединение в пул.
func (l *leader) Release(ctx context.Context) {
	if l.conn == nil {
		return
	}
	if l.hasLock {
		_, _ = l.conn.Exec(ctx, "select pg_advisory_unlock($1)", schedLockKey)
	}
	l.conn.Release()
	l.conn = nil
	l.hasLock = false
}

func (l *leader) drop() {
	// Соединение в неизвестном состоянии: закрываем, чтобы lock не остался в пуле
	_ = l.conn.Conn().Close(context.Background())
	l.conn.Release()
	l.conn = nil
	l.hasLock = false
}
