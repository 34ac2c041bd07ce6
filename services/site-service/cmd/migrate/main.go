// Command migrate applies the site-service schema. It accepts a goose
// command (up, down, status, version, redo, reset) and defaults to up.
package main

import (
	"context"
	"embed"
	"os"

	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/seiflawfirm/site/libs/config"
	"github.com/seiflawfirm/site/libs/db"
	"github.com/seiflawfirm/site/libs/runtime"
)

//go:embed migrations/*.sql
var migrations embed.FS

func main() {
	if err := config.LoadDotEnv(); err != nil {
		panic(err)
	}
	logger := runtime.NewLogger("site-migrate")

	ctx, stop := runtime.SignalContext()
	defer stop()

	dbURL, err := config.RequiredString("DATABASE_URL")
	if err != nil {
		panic(err)
	}
	pool, err := db.Open(ctx, dbURL, db.Options{MaxConns: 2})
	if err != nil {
		logger.Error("db connection failed", "err", err)
		os.Exit(1)
	}
	defer pool.Close()

	command, args := "up", []string(nil)
	if len(os.Args) > 1 {
		command, args = os.Args[1], os.Args[2:]
	}
	if err := run(ctx, pool, command, args...); err != nil {
		logger.Error("migration failed", "command", command, "err", err)
		os.Exit(1)
	}
	logger.Info("migration complete", "command", command)
}

func run(ctx context.Context, pool *db.Pool, command string, args ...string) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	sqlDB := stdlib.OpenDBFromPool(pool.Pool)
	defer sqlDB.Close()
	return goose.RunContext(ctx, command, sqlDB, "migrations", args...)
}
