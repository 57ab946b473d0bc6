package service

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"

	geohash "github.com/TomiHiltunen/geohash-golang"
	"github.com/sirupsen/logrus"
)

// EnrichStats 场馆回填统计
type EnrichStats struct {
	Updated  int `json:"updated"`
	Skipped  int `json:"skipped"`
	NotFound int `json:"not_found"`
}

// EnrichmentService 把地理编码结果合并到场馆
type EnrichmentService struct {
	repo   repository.ScheduleRepository
	logger *logrus.Logger
}

func NewEnrichmentService(repo repository.ScheduleRepository, logger *logrus.Logger) *EnrichmentService {
	return &EnrichmentService{repo: repo, logger: logger}
}

// Enrich 在一个事务内合并结果：
// unlocatable/not_found 或名称为空 → skipped；赛程中没有该场馆 → not_found；
// 其余直接覆盖地址与经纬度。不会新建场馆。
func (s *EnrichmentService) Enrich(ctx context.Context, results []model.GeocodeResult) (*EnrichStats, error) {
	stats := &EnrichStats{}
	err := s.repo.Transaction(ctx, func(tx repository.ScheduleRepository) error {
		*stats = EnrichStats{}
		for _, r := range results {
			if r.Name == "" || r.Status == model.GeoStatusUnlocatable || r.Status == model.GeoStatusNotFound {
				stats.Skipped++
				continue
			}
			venue, err := tx.GetVenue(ctx, r.Name)
			if err != nil {
				return fmt.Errorf("查询场馆%s失败: %w", r.Name, err)
			}
			if venue == nil {
				stats.NotFound++
				s.logger.WithField("venue", r.Name).Debug("地理编码结果对应的场馆不在赛程中")
				continue
			}

			venue.Address = r.Address
			venue.Latitude = r.LatLng.Lat
			venue.Longitude = r.LatLng.Lng
			venue.Geohash = nil
			if r.LatLng.Lat != nil && r.LatLng.Lng != nil {
				h := geohash.Encode(*r.LatLng.Lat, *r.LatLng.Lng)
				venue.Geohash = &h
			}
			if err := tx.UpdateVenueGeo(ctx, venue); err != nil {
				return fmt.Errorf("更新场馆%s失败: %w", r.Name, err)
			}
			stats.Updated++
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{
		"updated":   stats.Updated,
		"skipped":   stats.Skipped,
		"not_found": stats.NotFound,
	}).Info("场馆地理信息回填完成")
	return stats, nil
}

// LoadFile 读取地理编码结果文件并合并
func (s *EnrichmentService) LoadFile(ctx context.Context, path string) (*EnrichStats, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取地理编码文件失败: %w", err)
	}
	var results []model.GeocodeResult
	if err := json.Unmarshal(data, &results); err != nil {
		return nil, fmt.Errorf("解析地理编码文件%s失败: %w", path, err)
	}
	return s.Enrich(ctx, results)
}
