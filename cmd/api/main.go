package main

import (
	"context"
	"fmt"
	"os"

	"github.com/payrolladmin/payroll/backend/internal/auth/cleanup"
	"github.com/payrolladmin/payroll/backend/internal/common/bootstrap"
	"github.com/payrolladmin/payroll/backend/internal/common/constants"
	"github.com/payrolladmin/payroll/backend/internal/common/db"
	"github.com/payrolladmin/payroll/backend/internal/common/server"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	app, err := bootstrap.NewAPIApp(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "payroll-api: %v\n", err)
		os.Exit(1)
	}
	defer app.Pool.Close()

	db.StartPoolMetrics(ctx, app.Pool, constants.DBPoolMetricsInterval)
	go cleanup.Start(ctx, app.Users, app.Clock, app.Config.CleanupInterval, app.Log)

	handler, limiter := app.Handler()

	cfg := server.DefaultConfig(app.Config.HTTPPort)
	srv := server.New(cfg, handler)

	server.Run(srv, cfg, app.Log, "payroll-api",
		func(ctx context.Context) error {
			app.Log.Info("stopping background jobs")
			cancel()
			limiter.Close()
			return nil
		},
	)
}
