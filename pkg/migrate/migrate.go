// Package migrate applies the goose SQL migrations. The migrations are
// embedded so every binary can migrate without the source tree; an on-disk
// directory can still be used while authoring new files.
package migrate

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strconv"
	"sync"

	"github.com/pressly/goose/v3"
)

// DefaultDir is where new migrations are written.
const DefaultDir = "pkg/migrate/migrations"

//go:embed migrations/*.sql
var embedded embed.FS

// goose keeps its dialect and base FS in package state.
var gooseMu sync.Mutex

// Embedded returns the migrations compiled into the binary.
func Embedded() fs.FS {
	sub, err := fs.Sub(embedded, "migrations")
	if err != nil {
		panic(err)
	}
	return sub
}

// Run executes a goose command (up, down, status, redo, reset) against db.
// An empty dir selects the embedded migrations.
func Run(ctx context.Context, db *sql.DB, dir string, command string, args ...string) error {
	if db == nil {
		return errors.New("db is required")
	}
	return withGoose(dir, func(path string) error {
		if err := goose.RunContext(ctx, command, db, path, args...); err != nil {
			return fmt.Errorf("goose %s: %w", command, err)
		}
		return nil
	})
}

// MigrateToVersion moves the schema up or down to target (YYYYMMDDHHMMSS).
func MigrateToVersion(ctx context.Context, db *sql.DB, dir string, target string) error {
	if db == nil {
		return errors.New("db is required")
	}
	version, err := strconv.ParseInt(target, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid version %q (expected YYYYMMDDHHMMSS): %w", target, err)
	}
	return withGoose(dir, func(path string) error {
		current, err := goose.GetDBVersionContext(ctx, db)
		if err != nil {
			return fmt.Errorf("get db version: %w", err)
		}
		switch {
		case current < version:
			err = goose.UpToContext(ctx, db, path, version)
		case current > version:
			err = goose.DownToContext(ctx, db, path, version)
		}
		if err != nil {
			return fmt.Errorf("goose migrate %d -> %d: %w", current, version, err)
		}
		return nil
	})
}

func withGoose(dir string, fn func(path string) error) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	path := dir
	if dir == "" {
		goose.SetBaseFS(Embedded())
		path = "."
	} else {
		goose.SetBaseFS(nil)
	}
	defer goose.SetBaseFS(nil)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	return fn(path)
}
