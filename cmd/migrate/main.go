// Command migrate manages the schema:
//
//	migrate [-dir path] up|down|status|redo
//	migrate [-dir path] to <YYYYMMDDHHMMSS>
//	migrate [-dir path] create <name>
//	migrate [-dir path] validate
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/wallcraft/storefront-backend/pkg/config"
	"github.com/wallcraft/storefront-backend/pkg/db"
	"github.com/wallcraft/storefront-backend/pkg/logger"
	"github.com/wallcraft/storefront-backend/pkg/migrate"
)

var errUsage = errors.New("usage: migrate [-dir path] up|down|status|redo|to <version>|create <name>|validate")

// invocation is a parsed command line.
type invocation struct {
	dir  string
	verb string
	arg  string
}

func parseArgs(args []string) (invocation, error) {
	fs := flag.NewFlagSet("migrate", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	dir := fs.String("dir", "", "migrations directory; empty uses the embedded set")
	if err := fs.Parse(args); err != nil {
		return invocation{}, fmt.Errorf("%w: %v", errUsage, err)
	}

	rest := fs.Args()
	if len(rest) == 0 {
		return invocation{}, errUsage
	}
	inv := invocation{dir: *dir, verb: rest[0]}
	switch inv.verb {
	case "up", "down", "status", "redo", "validate":
		if len(rest) != 1 {
			return invocation{}, errUsage
		}
	case "to", "create":
		if len(rest) != 2 || rest[1] == "" {
			return invocation{}, fmt.Errorf("%w: %s needs one argument", errUsage, inv.verb)
		}
		inv.arg = rest[1]
	default:
		return invocation{}, fmt.Errorf("%w: unknown command %q", errUsage, inv.verb)
	}
	return inv, nil
}

// offline runs the verbs that only touch the filesystem. It reports false
// when inv needs a database.
func offline(inv invocation, out io.Writer) (bool, error) {
	dir := inv.dir
	if dir == "" {
		dir = migrate.DefaultDir
	}
	switch inv.verb {
	case "create":
		path, err := migrate.CreateSQLMigration(dir, inv.arg)
		if err != nil {
			return true, err
		}
		fmt.Fprintln(out, "created", path)
		return true, nil
	case "validate":
		if err := migrate.ValidateDir(dir); err != nil {
			return true, err
		}
		fmt.Fprintln(out, "migrations ok:", dir)
		return true, nil
	}
	return false, nil
}

func main() {
	inv, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if done, err := offline(inv, os.Stdout); done {
		if err != nil {
			fmt.Fprintln(os.Stderr, err)
			os.Exit(1)
		}
		return
	}

	_ = godotenv.Load()
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "load config:", err)
		os.Exit(1)
	}
	logg := logger.New(logger.Options{
		ServiceName: "migrate",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "cmd": inv.verb, "dir": inv.dir})

	if err := online(ctx, cfg, logg, inv); err != nil {
		logg.Error(ctx, "migrate.failed", err)
		stop()
		os.Exit(1)
	}
	logg.Info(ctx, "migrate.done")
}

func online(ctx context.Context, cfg *config.Config, logg *logger.Logger, inv invocation) error {
	client, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer client.Close()

	sqlDB, err := client.DB().DB()
	if err != nil {
		return err
	}
	if inv.verb == "to" {
		return migrate.MigrateToVersion(ctx, sqlDB, inv.dir, inv.arg)
	}
	return migrate.Run(ctx, sqlDB, inv.dir, inv.verb)
}
