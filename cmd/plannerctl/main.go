package main

import (
	"fmt"
	"os"
	_ "time/tzdata"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"dom-study/backend/config"
	"dom-study/backend/internal/repository"
	"dom-study/backend/internal/service"
	"dom-study/backend/pkg/database"
	"dom-study/backend/pkg/jwt"
	applogger "dom-study/backend/pkg/logger"
	"dom-study/backend/pkg/redis"
)

func newRootCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:           "plannerctl",
		Short:         "学习计划排期运维工具",
		Long:          "plannerctl 用于执行数据库迁移、手动触发重新分配以及从 Excel 批量导入目标。",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	cmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "配置文件路径（默认 ./config/config.yaml）")

	cmd.AddCommand(newMigrateCmd(&configPath))
	cmd.AddCommand(newRedistributeCmd(&configPath))
	cmd.AddCommand(newImportCmd(&configPath))
	return cmd
}

// app 命令共享的运行时依赖
type app struct {
	cfg    *config.Config
	logger *zap.Logger
	db     *gorm.DB
	rdb    *redis.Client
	repo   *repository.Repository
	svc    *service.Service
}

// bootstrap 加载配置并连接数据库；Redis 不可用时降级运行
func bootstrap(configPath string) (*app, error) {
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
		return nil, fmt.Errorf("数据库连接失败: %w", err)
	}

	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 连接失败，计划锁退化为进程内互斥", zap.Error(err))
		rdb = nil
	}

	repo := repository.NewRepository(db)
	svc := service.NewService(cfg, repo, jwt.NewManager(&cfg.Auth), rdb, logger)
	return &app{cfg: cfg, logger: logger, db: db, rdb: rdb, repo: repo, svc: svc}, nil
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

func execute(cmd *cobra.Command) int {
	if err := cmd.Execute(); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
