package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5/pgxpool"
)

// statementExecutor runs one DDL statement against a target database.
type statementExecutor interface {
	Exec(ctx context.Context, query string) error
}

type pgxPoolExecutor struct{ pool *pgxpool.Pool }

func (e pgxPoolExecutor) Exec(ctx context.Context, query string) error {
	_, err := e.pool.Exec(ctx, query)
	return err
}

type sqlDBExecutor struct{ db *sql.DB }

func (e sqlDBExecutor) Exec(ctx context.Context, query string) error {
	_, err := e.db.ExecContext(ctx, query)
	return err
}

// openTarget connects to target.dsn with the driver matching the dialect.
// The returned close function is always safe to call.
func openTarget(ctx context.Context, target TargetConfig) (statementExecutor, func(), error) {
	noop := func() {}
	if target.DSN == "" {
		return nil, noop, fmt.Errorf("--apply requires target.dsn")
	}

	switch target.Dialect {
	case "postgres":
		pool, err := pgxpool.New(ctx, target.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return nil, noop, fmt.Errorf("ping postgres: %w", err)
		}
		return pgxPoolExecutor{pool}, pool.Close, nil

	case "mysql", "sqlite":
		driver := target.Dialect
		db, err := sql.Open(driver, target.DSN)
		if err != nil {
			return nil, noop, fmt.Errorf("open %s: %w", driver, err)
		}
		// One connection keeps session settings such as FOREIGN_KEY_CHECKS
		// in force across statements.
		db.SetMaxOpenConns(1)
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("ping %s: %w", driver, err)
		}
		return sqlDBExecutor{db}, func() { db.Close() }, nil
	}
	return nil, noop, fmt.Errorf("--apply is not supported for %s targets (supported: mysql, postgres, sqlite)", target.Dialect)
}

// applyScript executes stmts in order on the configured target.
func applyScript(ctx context.Context, target TargetConfig, stmts []string) error {
	exec, closeTarget, err := openTarget(ctx, target)
	if err != nil {
		return err
	}
	defer closeTarget()

	log.Printf("applying %d statements to %s target...", len(stmts), target.Dialect)
	return execStatements(ctx, exec, stmts)
}

func execStatements(ctx context.Context, exec statementExecutor, stmts []string) error {
	for i, s := range stmts {
		if err := exec.Exec(ctx, s); err != nil {
			return fmt.Errorf("statement %d: %w\nSQL: %s", i+1, err, s)
		}
	}
	return nil
}
