package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"LA28Sync/internal/adapter/nominatim"
	_ "LA28Sync/internal/adapter/schedule"
	"LA28Sync/internal/api"
	"LA28Sync/internal/config"
	"LA28Sync/internal/database"
	"LA28Sync/internal/export"
	"LA28Sync/internal/repository"
	"LA28Sync/internal/service"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// app 子命令共享的配置、日志与数据库连接
type app struct {
	configDir string
	verbose   bool

	cfg    *config.Config
	logger *logrus.Logger
	db     *gorm.DB
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a := &app{}
	if err := a.rootCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          "la28sync",
		Short:        "LA28 赛程导入、地理编码、查询与导出",
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&a.configDir, "config", "./config", "config.yaml 所在目录")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "输出调试日志")

	root.PersistentPreRunE = func(cmd *cobra.Command, _ []string) error {
		return a.setup()
	}
	root.PersistentPostRun = func(cmd *cobra.Command, _ []string) {
		a.close()
	}

	root.AddCommand(
		a.loadCommand(),
		a.geocodeCommand(),
		a.exportCommand(),
		a.queryCommand(),
		a.statsCommand(),
		a.serveCommand(),
	)
	return root
}

// setup 1. 加载配置 2. 初始化日志 3. 连接数据库并迁移
func (a *app) setup() error {
	cfg, err := config.LoadConfig(a.configDir)
	switch {
	case errors.Is(err, config.ErrConfigNotFound):
		logrus.WithError(err).Warn("未找到配置文件，使用默认配置")
		cfg = config.Default()
		config.ApplyEnv(cfg)
	case err != nil:
		return err
	}
	a.cfg = cfg

	a.logger = logrus.New()
	a.logger.SetLevel(logrus.InfoLevel)
	if a.verbose {
		a.logger.SetLevel(logrus.DebugLevel)
	}

	db, err := database.Open(&cfg.Database, a.logger)
	if err != nil {
		a.logger.WithError(err).Error("连接数据库失败")
		return err
	}
	if err := database.Init(db); err != nil {
		a.logger.WithError(err).Error("初始化数据库失败")
		return err
	}
	a.db = db
	a.logger.Info("数据库表结构检查完成（不存在则已创建）")
	return nil
}

func (a *app) close() {
	if a.db == nil {
		return
	}
	if sqlDB, err := a.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func (a *app) repo() repository.ScheduleRepository {
	return repository.NewScheduleRepository(a.db)
}

func (a *app) loadCommand() *cobra.Command {
	var (
		reset  bool
		source string
		path   string
		strict bool
	)
	cmd := &cobra.Command{
		Use:   "load",
		Short: "导入赛程 JSON 并重算编号",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if source != "" {
				a.cfg.Schedule.Source = source
			}
			if path != "" {
				a.cfg.Schedule.Path = path
			}
			if cmd.Flags().Changed("strict") {
				a.cfg.Schedule.Strict = strict
			}
			if reset {
				a.logger.Warn("重置数据库")
				if err := database.Reset(a.db); err != nil {
					return err
				}
			}

			svc, err := service.NewIngestService(&a.cfg.Schedule, a.repo(), a.logger)
			if err != nil {
				return err
			}
			stats, err := svc.Ingest(cmd.Context())
			if err != nil {
				a.logger.WithError(err).Error("导入失败")
				return err
			}
			for _, p := range stats.Problems {
				a.logger.Warn(p)
			}
			return printJSON(stats)
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "导入前删除并重建全部表")
	cmd.Flags().StringVar(&source, "source", "", "数据源类型：file/http")
	cmd.Flags().StringVar(&path, "path", "", "本地赛程 JSON 路径")
	cmd.Flags().BoolVar(&strict, "strict", false, "遇到坏行立即中止")
	return cmd
}

func (a *app) geocodeCommand() *cobra.Command {
	var (
		enrich   bool
		fromFile string
	)
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "通过 Nominatim 为场馆做地理编码",
		RunE: func(cmd *cobra.Command, _ []string) error {
			enricher := service.NewEnrichmentService(a.repo(), a.logger)
			if fromFile != "" {
				stats, err := enricher.LoadFile(cmd.Context(), fromFile)
				if err != nil {
					return err
				}
				return printJSON(stats)
			}

			client := nominatim.NewClient(&a.cfg.Geocode, a.logger)
			report, err := service.NewGeocodeService(&a.cfg.Geocode, client, enricher, a.logger).Run(cmd.Context(), enrich)
			if err != nil {
				a.logger.WithError(err).Error("地理编码失败")
				return err
			}
			return printJSON(report.ByStatus)
		},
	}
	cmd.Flags().BoolVar(&enrich, "enrich", true, "把结果回填到场馆表")
	cmd.Flags().StringVar(&fromFile, "from-file", "", "跳过网络请求，直接用已有结果文件回填")
	return cmd
}

func (a *app) exportCommand() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "导出 JSON、CSV 和 XLSX",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if dir == "" {
				dir = a.cfg.Export.Dir
			}
			counts, err := export.NewExporter(a.repo(), &a.cfg.Export, a.logger).ExportAll(cmd.Context(), dir)
			if err != nil {
				a.logger.WithError(err).Error("导出失败")
				return err
			}
			return printJSON(counts)
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "", "输出目录（默认 export.dir）")
	return cmd
}

func (a *app) queryCommand() *cobra.Command {
	var (
		f      service.ScheduleFilter
		date   string
		output string
	)
	cmd := &cobra.Command{
		Use:   "query",
		Short: "按条件查询扁平赛程",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if date != "" {
				d, err := time.Parse("2006-01-02", date)
				if err != nil {
					return fmt.Errorf("日期格式应为 YYYY-MM-DD: %w", err)
				}
				f.Date = &d
			}
			svc := service.NewScheduleService(a.repo(), a.logger)
			if output != "" {
				n, err := export.NewExporter(a.repo(), &a.cfg.Export, a.logger).
					ExportSchedule(cmd.Context(), svc.BuildQuery(f), filepath.Clean(output))
				if err != nil {
					return err
				}
				a.logger.WithFields(logrus.Fields{"rows": n, "output": output}).Info("查询结果已写出")
				return nil
			}
			rows, total, err := svc.List(cmd.Context(), f)
			if err != nil {
				return err
			}
			a.logger.WithField("total", total).Debug("查询完成")
			return printJSON(rows)
		},
	}
	cmd.Flags().StringSliceVar(&f.Sports, "sport", nil, "运动（可重复）")
	cmd.Flags().StringSliceVar(&f.Venues, "venue", nil, "场馆（可重复）")
	cmd.Flags().StringSliceVar(&f.Zones, "zone", nil, "赛区（可重复）")
	cmd.Flags().IntSliceVar(&f.Days, "day", nil, "比赛日（可重复）")
	cmd.Flags().StringSliceVar(&f.Types, "type", nil, "轮次（可重复）")
	cmd.Flags().StringVar(&f.Sex, "sex", "", "性别分类")
	cmd.Flags().StringVar(&f.Search, "q", "", "赛事描述关键字")
	cmd.Flags().StringVar(&date, "date", "", "赛程日期 YYYY-MM-DD")
	cmd.Flags().BoolVar(&f.Ticketed, "ticketed", false, "只看售票时段")
	cmd.Flags().BoolVar(&f.InOKC, "in-okc", false, "只看 OKC 场馆")
	cmd.Flags().BoolVar(&f.Finals, "finals", false, "只看决赛")
	cmd.Flags().BoolVar(&f.Medals, "medals", false, "只看奖牌赛")
	cmd.Flags().StringVar(&f.Order, "order", service.OrderStart, "排序：start/start_desc/type")
	cmd.Flags().IntVar(&f.PageSize, "limit", 50, "最多返回条数")
	cmd.Flags().StringVarP(&output, "output", "o", "", "写出全部结果到 JSON 文件")
	return cmd
}

func (a *app) statsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "各表记录数",
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.repo().Stats(cmd.Context())
			if err != nil {
				return err
			}
			return printJSON(stats)
		},
	}
}

func (a *app) serveCommand() *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "启动 HTTP 查询服务",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port > 0 {
				a.cfg.Server.Port = port
			}
			r, err := api.NewRouter(a.db, a.logger, a.cfg)
			if err != nil {
				return err
			}
			a.logger.Infof("Gin运行模式: %s", a.cfg.Server.Mode)
			a.logger.Infof("服务启动成功，端口：%d", a.cfg.Server.Port)
			srv := &http.Server{Addr: fmt.Sprintf(":%d", a.cfg.Server.Port), Handler: r}
			go func() {
				<-cmd.Context().Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if err := srv.Shutdown(shutdownCtx); err != nil {
					a.logger.WithError(err).Warn("关闭服务失败")
				}
			}()
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.WithError(err).Error("启动服务失败")
				return err
			}
			a.logger.Info("服务已停止")
			return nil
		},
	}
	cmd.Flags().IntVar(&port, "port", 0, "服务端口（默认 server.port）")
	return cmd
}

func printJSON(v interface{}) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
