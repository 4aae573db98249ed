package repo

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/pressly/goose/v3"

	// pgx stdlib нужен goose для database/sql.
	_ "github.com/jackc/pgx/v5/stdlib"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var gooseMu sync.Mutex

// Migrate применяет встроенные миграции под advisory lock,
// чтобы несколько процессов не накатывали их одновременно.
func Migrate(ctx context.Context, dsn string, logger *slog.Logger) error {
	if dsn == "" {
		dsn = DefaultDSN
	}
	if logger == nil {
		logger = slog.Default()
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return fmt.Errorf("open db for migrations: %w", err)
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("acquire migration connection: %w", err)
	}
	defer conn.Close()

	lockCtx, cancel := context.WithTimeout(ctx, 45*time.Second)
	defer cancel()
	if _, err := conn.ExecContext(lockCtx, "select pg_advisory_lock(hashtext('qcsched'), hashtext('migrations'))"); err != nil {
		return fmt.Errorf("acquire migration lock: %w", err)
	}
	defer func() {
		if _, err := conn.ExecContext(context.WithoutCancel(ctx),
			"select pg_advisory_unlock(hashtext('qcsched'), hashtext('migrations'))"); err != nil {
			logger.Warn("failed to release migration lock", "error", err)
		}
	}()

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrationsFS)
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("migrate up: %w", err)
	}

	logger.Info("migrations applied")
	return nil
}
