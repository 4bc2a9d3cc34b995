package main

import (
	"context"
	"log"
	"net/http"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/olveryu/werewolf-judge-backend/internal/config"
	"github.com/olveryu/werewolf-judge-backend/internal/httpapi"
	"github.com/olveryu/werewolf-judge-backend/internal/hub"
	"github.com/olveryu/werewolf-judge-backend/internal/journal"
	"github.com/olveryu/werewolf-judge-backend/internal/room"
)

func main() {
	if err := config.LoadDotEnv(".env"); err != nil {
		log.Fatalf("load .env: %v", err)
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, err := buildLogger(cfg.LogLevel)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer logger.Sync()

	var store journal.Store
	if cfg.PostgresDSN != "" {
		gs, err := journal.OpenPostgres(cfg.PostgresDSN)
		if err != nil {
			logger.Fatal("open journal", zap.Error(err))
		}
		store = gs
		logger.Info("journal backed by postgres")
	} else {
		store = journal.NewMemStore()
		logger.Warn("journal in memory, rooms will not survive a restart")
	}

	roomCfg := room.Config{
		WolfVoteCountdown: cfg.WolfVoteCountdown(),
		RevealAckTimeout:  cfg.RevealAckTimeout(),
		CatchupWindow:     cfg.CatchupWindow(),
	}

	ctx := context.Background()
	h := hub.New(ctx, store, logger, roomCfg)

	handler := httpapi.SetupRoutes(h, logger)

	logger.Info("listening", zap.String("addr", cfg.Addr))
	if err := http.ListenAndServe(cfg.Addr, handler); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, err
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}
