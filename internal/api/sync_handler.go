package api

import (
	"errors"
	"net/http"
	"strconv"

	"LA28Sync/internal/adapter/nominatim"
	_ "LA28Sync/internal/adapter/schedule"
	"LA28Sync/internal/config"
	"LA28Sync/internal/database"
	"LA28Sync/internal/repository"
	"LA28Sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// SyncHandler 触发赛程导入与场馆地理编码
type SyncHandler struct {
	db             *gorm.DB
	ingestService  *service.IngestService
	geocodeService *service.GeocodeService
	logger         *logrus.Logger
}

func NewSyncHandler(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) (*SyncHandler, error) {
	repo := repository.NewScheduleRepository(db)
	ingest, err := service.NewIngestService(&cfg.Schedule, repo, logger)
	if err != nil {
		return nil, err
	}
	geocoder := nominatim.NewClient(&cfg.Geocode, logger)
	return &SyncHandler{
		db:             db,
		ingestService:  ingest,
		geocodeService: service.NewGeocodeService(&cfg.Geocode, geocoder, service.NewEnrichmentService(repo, logger), logger),
		logger:         logger,
	}, nil
}

// SyncScheduleHandler 从配置的赛程源导入并重算编号
// @Summary 导入赛程
// @Param reset query bool false "导入前清空并重建全部表"
// @Success 200 {object} service.IngestStats
// @Failure 409 {object} map[string]string "时段已存在"
// @Failure 500 {object} map[string]string
// @Router /sync/schedule [post]
func (h *SyncHandler) SyncScheduleHandler(c *gin.Context) {
	reset, _ := strconv.ParseBool(c.DefaultQuery("reset", "false"))
	if reset {
		if err := database.Reset(h.db.WithContext(c.Request.Context())); err != nil {
			h.logger.Errorf("重置数据库失败: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
	}

	stats, err := h.ingestService.Ingest(c.Request.Context())
	if err != nil {
		h.logger.Errorf("导入赛程失败: %v", err)
		status := http.StatusInternalServerError
		if errors.Is(err, repository.ErrDuplicateSession) {
			status = http.StatusConflict
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, stats)
}

// SyncGeocodeHandler 对场馆做地理编码并（默认）回填场馆表
// @Summary 场馆地理编码
// @Param enrich query bool false "是否回填场馆（默认true）"
// @Success 200 {object} service.GeocodeReport
// @Failure 500 {object} map[string]string
// @Router /sync/geocode [post]
func (h *SyncHandler) SyncGeocodeHandler(c *gin.Context) {
	enrich, err := strconv.ParseBool(c.DefaultQuery("enrich", "true"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid enrich"})
		return
	}

	report, err := h.geocodeService.Run(c.Request.Context(), enrich)
	if err != nil {
		h.logger.Errorf("场馆地理编码失败: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, report)
}
