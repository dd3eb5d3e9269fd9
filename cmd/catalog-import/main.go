package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/danishayman/Timetable-Webapp-sub001/config"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/repository"
	"github.com/danishayman/Timetable-Webapp-sub001/internal/service"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/database"
	applogger "github.com/danishayman/Timetable-Webapp-sub001/pkg/logger"
	"github.com/danishayman/Timetable-Webapp-sub001/pkg/redis"
)

// catalog-import 从 Excel 批量导入科目、课次与辅导组
//
//	go run ./cmd/catalog-import -file catalog.xlsx [-dry-run] [-config path]
func main() {
	configPath := flag.String("config", "", "配置文件路径（默认查找 ./config/config.yaml）")
	file := flag.String("file", "", "待导入的 Excel 文件（.xlsx）")
	dryRun := flag.Bool("dry-run", false, "只校验不写库")
	flag.Parse()

	if *file == "" {
		fmt.Fprintln(os.Stderr, "缺少 -file 参数")
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}

	logger, err := applogger.NewLogger(&cfg.App, &cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "初始化日志失败: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := run(cfg, logger, *file, *dryRun); err != nil {
		logger.Error("科目目录导入失败", zap.String("file", *file), zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *zap.Logger, path string, dryRun bool) error {
	db, err := database.NewDB(&cfg.Database, cfg.Log.Level, logger)
	if err != nil {
		return fmt.Errorf("数据库连接失败: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("获取底层 sql.DB 失败: %w", err)
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(sqlDB, logger); err != nil {
		return fmt.Errorf("数据库迁移失败: %w", err)
	}

	// Redis 仅用于清理科目缓存，不可用时跳过
	rdb, err := redis.NewClient(&cfg.Redis, logger)
	if err != nil {
		logger.Warn("Redis 不可用，导入后不清理缓存，旧数据将在过期后失效", zap.Error(err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	svc := service.NewService(cfg, repository.NewRepository(db), rdb, logger).Catalog

	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("打开文件失败: %w", err)
	}
	defer f.Close()

	rows, err := svc.ParseCatalogFile(f)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	resp, err := svc.ImportCatalog(ctx, rows, dryRun)
	if err != nil {
		return err
	}

	for _, e := range resp.Errors {
		logger.Warn("行校验失败", zap.Int("row", e.Row), zap.String("code", e.Code), zap.String("reason", e.Reason))
	}
	logger.Info("导入结束",
		zap.Bool("dry_run", resp.DryRun),
		zap.Int("total_rows", resp.TotalRows),
		zap.Int("failed", resp.Failed),
		zap.Int("subjects_created", resp.SubjectsCreated),
		zap.Int("subjects_updated", resp.SubjectsUpdated),
		zap.Int("sessions", resp.Sessions),
		zap.Int("tutorials", resp.Tutorials),
	)
	if resp.Failed > 0 {
		return fmt.Errorf("%d 行校验失败，对应科目未导入", resp.Failed)
	}
	return nil
}
