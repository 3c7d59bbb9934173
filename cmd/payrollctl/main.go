package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/payrolladmin/payroll/backend/internal/client/api"
	"github.com/payrolladmin/payroll/backend/internal/client/cli"
	"github.com/payrolladmin/payroll/backend/internal/client/tokenstore"
	"github.com/payrolladmin/payroll/backend/internal/common/config"
	"github.com/payrolladmin/payroll/backend/internal/common/logger"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log := logger.NewWithWriter(os.Stderr, "payrollctl", os.Getenv("LOG_LEVEL"))

	cfg, err := config.LoadClientConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "payrollctl: %v\n", err)
		return 1
	}

	storage, err := tokenstore.OpenSQLite(ctx, cfg.TokenDBPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "payrollctl: open token store: %v\n", err)
		return 1
	}
	defer storage.Close()

	store := tokenstore.New(storage, nil)
	client := api.NewClient(cfg, store, func() {
		fmt.Fprintln(os.Stderr, "session expired, please login again")
	}, log)

	app := cli.NewApp(client, os.Stdin, os.Stdout, os.Stderr)
	if err := app.Run(ctx, os.Args[1:]); err != nil {
		if !errors.Is(err, cli.ErrUsage) {
			fmt.Fprintf(os.Stderr, "payrollctl: %v\n", err)
		}
		return 1
	}
	return 0
}
