package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"LA28Sync/internal/adapter"
	"LA28Sync/internal/config"
	"LA28Sync/internal/model"
	"LA28Sync/internal/parsing"
	"LA28Sync/internal/repository"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// IngestStats 一次导入的统计
type IngestStats struct {
	RunID    string        `json:"run_id"`
	Source   string        `json:"source"`
	Rows     int           `json:"rows"`
	Days     int           `json:"days"`
	Zones    int           `json:"zones"`
	Venues   int           `json:"venues"`
	Sports   int           `json:"sports"`
	Sessions int           `json:"sessions"`
	Events   int           `json:"events"`
	Skipped  int           `json:"skipped"`
	Problems []string      `json:"problems,omitempty"`
	Duration time.Duration `json:"duration"`
}

// IngestService 读取赛程来源、逐行规范化入库，最后重算编号
type IngestService struct {
	cfg        *config.ScheduleConfig
	repo       repository.ScheduleRepository
	normalizer *parsing.Normalizer
	numbering  *NumberingService
	logger     *logrus.Logger
}

func NewIngestService(cfg *config.ScheduleConfig, repo repository.ScheduleRepository, logger *logrus.Logger) (*IngestService, error) {
	normalizer, err := parsing.NewNormalizer(cfg)
	if err != nil {
		return nil, fmt.Errorf("初始化规范化器失败: %w", err)
	}
	return &IngestService{
		cfg:        cfg,
		repo:       repo,
		normalizer: normalizer,
		numbering:  NewNumberingService(repo, logger),
		logger:     logger,
	}, nil
}

// Ingest 从配置的来源导入
func (s *IngestService) Ingest(ctx context.Context) (*IngestStats, error) {
	src, err := adapter.NewSource(s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	rows, err := src.FetchRows(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s读取赛程失败: %w", src.Name(), err)
	}
	return s.IngestRows(ctx, src.Name(), rows)
}

// IngestRows 导入已读取的原始行。
// 坏行在 strict 模式下中止导入（之前的行已提交），否则记录后跳过；入库错误总是中止。
func (s *IngestService) IngestRows(ctx context.Context, source string, rows []model.RawScheduleRow) (*IngestStats, error) {
	started := time.Now()
	stats := &IngestStats{RunID: uuid.NewString(), Source: source, Rows: len(rows)}
	log := s.logger.WithFields(logrus.Fields{"run_id": stats.RunID, "source": source})
	log.WithField("rows", len(rows)).Info("开始导入赛程")

	days := make(map[int]struct{})
	zones := make(map[string]struct{})
	venues := make(map[string]struct{})
	sports := make(map[string]struct{})

	for i, raw := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row, err := s.normalizer.Normalize(i, raw)
		if err != nil {
			if !errors.Is(err, parsing.ErrMalformedRow) || s.cfg.Strict {
				return nil, fmt.Errorf("导入中止: %w", err)
			}
			stats.Skipped++
			stats.Problems = append(stats.Problems, err.Error())
			log.WithError(err).Warn("跳过坏行")
			continue
		}
		if err := s.repo.SaveRow(ctx, row); err != nil {
			return nil, fmt.Errorf("第%d行（%s）入库失败: %w", i, row.Session.Code, err)
		}

		days[row.Day.Day] = struct{}{}
		zones[row.Zone.Name] = struct{}{}
		venues[row.Venue.Name] = struct{}{}
		sports[row.Sport.Name] = struct{}{}
		stats.Sessions++
		stats.Events += len(row.Events)
	}
	stats.Days, stats.Zones, stats.Venues, stats.Sports = len(days), len(zones), len(venues), len(sports)

	if err := s.numbering.Run(ctx); err != nil {
		return nil, fmt.Errorf("重算编号失败: %w", err)
	}
	stats.Duration = time.Since(started)

	log.WithFields(logrus.Fields{
		"sessions": stats.Sessions,
		"events":   stats.Events,
		"skipped":  stats.Skipped,
		"duration": stats.Duration.String(),
	}).Info("赛程导入完成")
	return stats, nil
}
