package api

import (
	"LA28Sync/internal/config"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// NewRouter 注册全部路由
func NewRouter(db *gorm.DB, logger *logrus.Logger, cfg *config.Config) (*gin.Engine, error) {
	gin.SetMode(cfg.Server.Mode)
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(logger))

	// 注册pprof 方便调试和监测性能问题
	pprof.Register(r)

	syncHandler, err := NewSyncHandler(db, logger, cfg)
	if err != nil {
		return nil, err
	}
	r.POST("/sync/schedule", syncHandler.SyncScheduleHandler)
	r.POST("/sync/geocode", syncHandler.SyncGeocodeHandler)

	scheduleHandler := NewScheduleHandler(db, logger)
	r.GET("/api/schedule", scheduleHandler.ListSchedule)
	r.GET("/api/sessions/:code", scheduleHandler.GetSession)
	r.GET("/api/stats", scheduleHandler.Stats)
	return r, nil
}

// requestLogger 用 logrus 记录访问日志
func requestLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		entry := logger.WithFields(logrus.Fields{
			"method": c.Request.Method,
			"path":   c.Request.URL.Path,
			"status": c.Writer.Status(),
		})
		if c.Writer.Status() >= 500 {
			entry.Warn("请求失败")
			return
		}
		entry.Debug("请求完成")
	}
}
