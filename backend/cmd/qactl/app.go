package main

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"qatrack/backend/config"
	"qatrack/backend/internal/repository"
	"qatrack/backend/internal/service"
	"qatrack/backend/pkg/clock"
	"qatrack/backend/pkg/database"
	applogger "qatrack/backend/pkg/logger"
	"qatrack/backend/pkg/redis"
)

// app 命令执行所需的依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	svc    *service.Service
}

// newApp 加载配置并连接数据库；Redis 不可用时仅告警，写操作后的缓存失效由版本号 TTL 兜底
func newApp() (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := applogger.NewLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("初始化日志失败: %w", err)
	}
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, logger: logger, db: db}

	var (
		cache     service.ScheduleCache
		blacklist service.TokenBlacklist
	)
	if rdb, err := redis.NewClient(&cfg.Redis, logger); err != nil {
		logger.Warn("Redis 连接失败，跳过可用时间缓存与 Token 黑名单", zap.Error(err))
	} else {
		a.rdb = rdb
		cache = rdb
		blacklist = rdb
	}

	clk := clock.NewReal(cfg.Schedule.Location())
	a.svc = service.NewService(cfg, repository.NewRepository(db), cache, blacklist, clk, logger)
	return a, nil
}

func (a *app) close() {
	if sqlDB, err := a.db.DB(); err == nil {
		sqlDB.Close()
	}
	if a.rdb != nil {
		a.rdb.Close()
	}
	a.logger.Sync()
}
