package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"LA28Sync/internal/config"
	"LA28Sync/internal/interfaces"
	"LA28Sync/internal/model"

	"github.com/sirupsen/logrus"
)

// GeocodeReport 一次地理编码的结果与状态分布
type GeocodeReport struct {
	Results  []model.GeocodeResult `json:"results"`
	ByStatus map[string]int        `json:"by_status"`
	Output   string                `json:"output,omitempty"`
	Enriched *EnrichStats          `json:"enriched,omitempty"`
}

// GeocodeService 对配置中的全部场馆提示做地理编码，写出结果文件并可选回填场馆
type GeocodeService struct {
	cfg      *config.GeocodeConfig
	geocoder interfaces.Geocoder
	enricher *EnrichmentService
	logger   *logrus.Logger
}

func NewGeocodeService(cfg *config.GeocodeConfig, geocoder interfaces.Geocoder, enricher *EnrichmentService, logger *logrus.Logger) *GeocodeService {
	return &GeocodeService{cfg: cfg, geocoder: geocoder, enricher: enricher, logger: logger}
}

// Run 依次检索（Nominatim 要求串行），任一请求重试耗尽即中止。
// enrich 为 true 时把结果合并到场馆表。
func (s *GeocodeService) Run(ctx context.Context, enrich bool) (*GeocodeReport, error) {
	report := &GeocodeReport{ByStatus: make(map[string]int)}
	total := len(s.cfg.Hints)
	for i, hint := range s.cfg.Hints {
		res, err := s.geocoder.Geocode(ctx, hint)
		if err != nil {
			return nil, err
		}
		report.Results = append(report.Results, *res)
		report.ByStatus[res.Status]++
		s.logger.WithFields(logrus.Fields{
			"progress": fmt.Sprintf("%d/%d", i+1, total),
			"venue":    hint.Name,
			"status":   res.Status,
		}).Info("场馆地理编码")
	}

	if s.cfg.Output != "" {
		if err := writeResults(s.cfg.Output, report.Results); err != nil {
			return nil, err
		}
		report.Output = s.cfg.Output
	}

	if enrich && s.enricher != nil {
		stats, err := s.enricher.Enrich(ctx, report.Results)
		if err != nil {
			return nil, err
		}
		report.Enriched = stats
	}
	return report, nil
}

func writeResults(path string, results []model.GeocodeResult) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("创建目录失败: %w", err)
	}
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化地理编码结果失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入%s失败: %w", path, err)
	}
	return nil
}
