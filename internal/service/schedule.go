package service

import (
	"context"
	"time"

	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// 排序方式
const (
	OrderStart     = "start"
	OrderStartDesc = "start_desc"
	OrderType      = "type"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ScheduleFilter 赛程列表筛选条件；零值字段不参与过滤
type ScheduleFilter struct {
	Sports   []string
	Venues   []string
	Zones    []string
	Days     []int
	Types    []string
	Sex      string
	Session  string
	Search   string
	Date     *time.Time // 当地日期
	From     *time.Time // 日期范围起（含）
	To       *time.Time // 日期范围止（含）
	Ticketed bool
	InOKC    bool
	Finals   bool
	Medals   bool
	Order    string
	Page     int
	PageSize int
}

// ScheduleService 面向接口与导出的只读查询
type ScheduleService struct {
	repo   repository.ScheduleRepository
	logger *logrus.Logger
}

func NewScheduleService(repo repository.ScheduleRepository, logger *logrus.Logger) *ScheduleService {
	return &ScheduleService{repo: repo, logger: logger}
}

// BuildQuery 把筛选条件转换成查询（不执行）
func (s *ScheduleService) BuildQuery(f ScheduleFilter) repository.ScheduleQuery {
	q := s.repo.Query()
	if len(f.Sports) == 1 {
		q = q.BySport(f.Sports[0])
	} else if len(f.Sports) > 1 {
		q = q.BySports(f.Sports...)
	}
	if len(f.Venues) == 1 {
		q = q.ByVenue(f.Venues[0])
	} else if len(f.Venues) > 1 {
		q = q.ByVenues(f.Venues...)
	}
	if len(f.Zones) == 1 {
		q = q.ByZone(f.Zones[0])
	} else if len(f.Zones) > 1 {
		q = q.ByZones(f.Zones...)
	}
	if len(f.Days) == 1 {
		q = q.ByDay(f.Days[0])
	} else if len(f.Days) > 1 {
		q = q.ByDays(f.Days...)
	}
	if len(f.Types) == 1 {
		q = q.ByEventType(f.Types[0])
	} else if len(f.Types) > 1 {
		q = q.ByEventTypes(f.Types...)
	}
	if f.Sex != "" {
		q = q.BySex(f.Sex)
	}
	if f.Session != "" {
		q = q.BySession(f.Session)
	}
	if f.Search != "" {
		q = q.Search(f.Search)
	}
	if f.Date != nil {
		q = q.ByDate(*f.Date)
	}
	if f.From != nil || f.To != nil {
		from, to := time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC)
		if f.From != nil {
			from = *f.From
		}
		if f.To != nil {
			to = *f.To
		}
		q = q.DateRange(from, to)
	}
	if f.Ticketed {
		q = q.Ticketed()
	}
	if f.InOKC {
		q = q.InOKC()
	}
	if f.Finals {
		q = q.FinalsOnly()
	}
	if f.Medals {
		q = q.MedalEvents()
	}
	switch f.Order {
	case OrderStartDesc:
		q = q.OrderByStart(true)
	case OrderType:
		q = q.OrderByEventType()
	default:
		q = q.OrderByStart(false)
	}
	return q
}

// Paging 规范化后的页码与每页条数
func (f ScheduleFilter) Paging() (page, size int) {
	page, size = f.Page, f.PageSize
	if page <= 0 {
		page = 1
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}
	return page, size
}

// List 分页查询，返回当前页与总数
func (s *ScheduleService) List(ctx context.Context, f ScheduleFilter) ([]*model.ScheduleView, int64, error) {
	page, size := f.Paging()
	q := s.BuildQuery(f)
	total, err := q.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	rows, err := q.Offset((page - 1) * size).Limit(size).Fetch(ctx)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// GetSession 时段详情（含赛事）
func (s *ScheduleService) GetSession(ctx context.Context, code string) (*model.Session, error) {
	return s.repo.GetSession(ctx, code)
}

// Stats 各表记录数
func (s *ScheduleService) Stats(ctx context.Context) (*repository.ScheduleStats, error) {
	return s.repo.Stats(ctx)
}
