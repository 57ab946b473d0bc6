package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"LA28Sync/internal/repository"
	"LA28Sync/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ScheduleHandler 赛程只读查询接口
type ScheduleHandler struct {
	scheduleService *service.ScheduleService
	logger          *logrus.Logger
}

// NewScheduleHandler 创建 ScheduleHandler
func NewScheduleHandler(db *gorm.DB, logger *logrus.Logger) *ScheduleHandler {
	repo := repository.NewScheduleRepository(db)
	return &ScheduleHandler{
		scheduleService: service.NewScheduleService(repo, logger),
		logger:          logger,
	}
}

// ListSchedule 扁平赛程列表
// GET /api/schedule?sport=Athletics,Swimming&date=2028-07-15&finals=true&order=type&page=1&page_size=50
func (h *ScheduleHandler) ListSchedule(c *gin.Context) {
	filter, err := parseScheduleFilter(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	rows, total, err := h.scheduleService.List(c.Request.Context(), filter)
	if err != nil {
		h.logger.WithError(err).Error("ListSchedule failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	page, size := filter.Paging()

	c.JSON(http.StatusOK, gin.H{
		"items":     rows,
		"total":     total,
		"page":      page,
		"page_size": size,
	})
}

// GetSession 时段详情（含赛事、场馆、运动）
// GET /api/sessions/:code
func (h *ScheduleHandler) GetSession(c *gin.Context) {
	code := strings.TrimSpace(c.Param("code"))
	if code == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "code is required"})
		return
	}

	session, err := h.scheduleService.GetSession(c.Request.Context(), code)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("session %s not found", code)})
		return
	}
	if err != nil {
		h.logger.WithError(err).WithField("code", code).Error("GetSession failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, session)
}

// Stats 各表记录数
// GET /api/stats
func (h *ScheduleHandler) Stats(c *gin.Context) {
	stats, err := h.scheduleService.Stats(c.Request.Context())
	if err != nil {
		h.logger.WithError(err).Error("Stats failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, stats)
}

func parseScheduleFilter(c *gin.Context) (service.ScheduleFilter, error) {
	f := service.ScheduleFilter{
		Sports:  splitList(c.Query("sport")),
		Venues:  splitList(c.Query("venue")),
		Zones:   splitList(c.Query("zone")),
		Types:   splitList(c.Query("type")),
		Sex:     c.Query("sex"),
		Session: c.Query("session"),
		Search:  strings.TrimSpace(c.Query("q")),
		Order:   c.DefaultQuery("order", service.OrderStart),
	}

	for _, d := range splitList(c.Query("day")) {
		n, err := strconv.Atoi(d)
		if err != nil {
			return f, fmt.Errorf("invalid day %q", d)
		}
		f.Days = append(f.Days, n)
	}

	dates := []struct {
		key string
		dst **time.Time
	}{
		{"date", &f.Date},
		{"from", &f.From},
		{"to", &f.To},
	}
	for _, d := range dates {
		raw := c.Query(d.key)
		if raw == "" {
			continue
		}
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s %q, want YYYY-MM-DD", d.key, raw)
		}
		*d.dst = &t
	}

	flags := []struct {
		key string
		dst *bool
	}{
		{"ticketed", &f.Ticketed},
		{"in_okc", &f.InOKC},
		{"finals", &f.Finals},
		{"medals", &f.Medals},
	}
	for _, fl := range flags {
		raw := c.Query(fl.key)
		if raw == "" {
			continue
		}
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return f, fmt.Errorf("invalid %s %q", fl.key, raw)
		}
		*fl.dst = v
	}

	switch f.Order {
	case service.OrderStart, service.OrderStartDesc, service.OrderType:
	default:
		return f, fmt.Errorf("invalid order %q", f.Order)
	}

	f.Page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	f.PageSize, _ = strconv.Atoi(c.DefaultQuery("page_size", "50"))
	return f, nil
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
