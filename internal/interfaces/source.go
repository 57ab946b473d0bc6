package interfaces

import (
	"context"

	"LA28Sync/internal/config"
	"LA28Sync/internal/model"

	"github.com/sirupsen/logrus"
)

// ScheduleSource 赛程原始行来源（本地JSON / 远程JSON）
type ScheduleSource interface {
	// Name 来源名称，用于日志
	Name() string
	// FetchRows 读取全部原始行
	FetchRows(ctx context.Context) ([]model.RawScheduleRow, error)
}

// SourceFactory 赛程来源工厂函数
type SourceFactory func(cfg *config.ScheduleConfig, logger *logrus.Logger) ScheduleSource

// Geocoder 场馆地理编码
type Geocoder interface {
	// Geocode 检索一个场馆；查不到时返回 status=not_found 的结果而不是错误
	Geocode(ctx context.Context, hint config.VenueHint) (*model.GeocodeResult, error)
}
