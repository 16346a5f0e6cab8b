package main

import (
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"lukamath/internal/config"
	server "lukamath/internal/http"
	applog "lukamath/internal/log"
	"lukamath/internal/metrics"
	"lukamath/internal/repos"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// logger not built yet
		zap.NewExample().Fatal("config.invalid", zap.Error(err))
	}

	logger, err := applog.New(cfg.LogLevel, cfg.LogFile)
	if err != nil {
		zap.NewExample().Fatal("log.open.fail", zap.String("file", cfg.LogFile), zap.Error(err))
	}
	defer func() { _ = logger.Sync() }()
	applog.SetLogger(logger)

	db, err := repos.OpenDB(cfg.DBDSN)
	if err != nil {
		logger.Fatal("db.open.fail", zap.String("dsn", cfg.DBDSN), zap.Error(err))
	}
	defer db.Close()
	if err := repos.Seed(db, cfg.BcryptCost); err != nil {
		logger.Fatal("seed.fail", zap.Error(err))
	}

	app := server.NewApp(db, cfg, metrics.New())

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit
		logger.Info("server.shutdown")
		_ = app.Shutdown()
	}()

	logger.Info("server.start",
		zap.String("env", cfg.Env),
		zap.String("port", cfg.Port),
		zap.String("db", cfg.DBDSN),
		zap.String("uploads", cfg.UploadDir),
		zap.Duration("token_ttl", cfg.TokenTTL),
	)
	if err := app.Listen(":" + cfg.Port); err != nil {
		logger.Fatal("server.listen.fail", zap.Error(err))
	}
}
