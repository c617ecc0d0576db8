// Package main provides the stockctl command line for the buvette stock engine.
// Usage: stockctl [--config file] [--env-file file] <command> [options]
//
//	stockctl migrate up
//	stockctl movement record --article <id> --type exit --qty 3
//	stockctl inventory apply <inventory-id>
//	stockctl recompute
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/DarkSario/2025-Interactifs-Gestion/internal/app"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/core/apperror"
	appctx "github.com/DarkSario/2025-Interactifs-Gestion/internal/core/context"
	"github.com/DarkSario/2025-Interactifs-Gestion/internal/infrastructure/config"
	"github.com/DarkSario/2025-Interactifs-Gestion/pkg/logger"
)

// Exit codes.
const (
	exitOK      = 0
	exitFailure = 1
	exitUsage   = 2
	exitBusy    = 3
)

var errUsage = errors.New("usage")

type command func(ctx context.Context, a *app.App, args []string) (any, error)

var commands = map[string]command{
	"migrate":   runMigrate,
	"article":   runArticle,
	"movement":  runMovement,
	"recompute": runRecompute,
	"audit":     runAudit,
	"inventory": runInventory,
	"purchase":  runPurchase,
	"fifo":      runFIFO,
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	global := flag.NewFlagSet("stockctl", flag.ContinueOnError)
	configFile := global.String("config", "", "path to stockctl.yaml")
	envFile := global.String("env-file", "", "path to a .env file")
	global.Usage = printUsage
	if err := global.Parse(args); err != nil {
		return exitUsage
	}
	if global.NArg() == 0 {
		printUsage()
		return exitUsage
	}

	name := global.Arg(0)
	if name == "help" {
		printUsage()
		return exitOK
	}
	cmd, ok := commands[name]
	if !ok {
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", name)
		printUsage()
		return exitUsage
	}

	cfg, err := config.Load(config.Options{ConfigFile: *configFile, EnvFile: *envFile})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		return exitFailure
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.Log.Level,
		Development: cfg.Log.Development,
		File:        cfg.Log.File,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logger: %v\n", err)
		return exitFailure
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logger.WithLogger(ctx, log.WithComponent("stockctl"))
	ctx = appctx.StartOperation(ctx, actor(name))

	a, err := app.New(ctx, cfg)
	if err != nil {
		return fail(err)
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warnw("close store", "error", err)
		}
	}()

	out, err := cmd(ctx, a, global.Args()[1:])
	if errors.Is(err, errUsage) {
		printUsage()
		return exitUsage
	}
	if err != nil {
		return fail(err)
	}
	if out != nil {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			fmt.Fprintf(os.Stderr, "Error writing output: %v\n", err)
			return exitFailure
		}
	}
	return exitOK
}

// actor names the operator in log lines: the OS user and the command.
func actor(command string) string {
	if u := os.Getenv("USER"); u != "" {
		return u + "/" + command
	}
	return command
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	if appErr, ok := apperror.AsAppError(err); ok {
		if len(appErr.Details) > 0 {
			details, _ := json.Marshal(appErr.Details)
			fmt.Fprintf(os.Stderr, "  %s %s\n", appErr.Code, details)
		}
		if appErr.Code == apperror.CodeLockTimeout {
			return exitBusy
		}
	}
	return exitFailure
}

func printUsage() {
	fmt.Fprintln(os.Stderr, `Buvette stock engine CLI

Usage:
  stockctl [--config file] [--env-file file] <command> [options]

Commands:
  migrate   up | down | version | step <n> | force <version>
  article   create --name <name> [--category c] [--unit u] | list [--search s] | show <id>
  movement  record --article <id> --type entry|exit|purchase --qty <n> [--price p] [--link-kind event|purchase --link-id <id>] [--note text]
            list --article <id>
  recompute [--article <id>]   Rebuild cached stock from movements
  audit                        Report cached stocks that disagree with movements
  inventory create --date YYYY-MM-DD --kind before|after|standalone [--event id] [--comment text]
            update <inventory-id> --date YYYY-MM-DD --kind k [--event id] [--comment text]
            line <inventory-id> --article <id> --counted <n>
            apply | revert | delete | show | journal <inventory-id>
            list [--kind k] [--event id]
  purchase  create --article <id> --qty <n> --price <p> [--date YYYY-MM-DD] [--supplier s] [--invoice ref] [--fiscal-year y]
            update <purchase-id> --article <id> --qty <n> --price <p> --date YYYY-MM-DD [...]
            delete | show <purchase-id>
            avg-price --article <id> [--until YYYY-MM-DD]
            list [--article <id>] [--fiscal-year y]
  fifo      consume --article <id> --qty <n> | cost-basis --article <id> | batches --article <id> [--all]
  help      Show this help

Environment Variables:
  STOCK_STORAGE_DRIVER        sqlite (default) or postgres
  STOCK_STORAGE_PATH          SQLite database file (default data/association.db)
  APP_DB_PATH                 Legacy SQLite path, used when STOCK_STORAGE_PATH is unset
  STOCK_STORAGE_DSN           PostgreSQL connection string
  STOCK_STORAGE_BUSY_TIMEOUT  Store lock wait (default 5s)
  STOCK_LOCK_TIMEOUT          Maintenance lock wait (default 10s)
  STOCK_STOCK_STRICT_REVERT_ORDER  Reject out-of-order inventory reverts
  STOCK_LOG_LEVEL             debug, info, warn, error
  STOCK_LOG_FILE              also write logs to this file

Exit codes:
  0 success, 1 failure, 2 usage, 3 store or lock busy`)
}
