package service

import (
	"context"
	"fmt"
	"sort"

	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// Renumber 全量重算时段与赛事的四组编号（直接修改传入的结构体）。
// 时段按 (starts_at, code) 排序；赛事按 (所属时段 starts_at, code, order_in_session) 排序。
// 运动内编号按排序后首次出现的顺序累加，总数在遍历结束后回填。
// 所属时段不在 sessions 中的赛事只参与全局编号，运动内编号置 0。
func Renumber(sessions []*model.Session, events []*model.Event) {
	sort.SliceStable(sessions, func(i, j int) bool {
		a, b := sessions[i], sessions[j]
		if !a.StartsAt.Equal(b.StartsAt) {
			return a.StartsAt.Before(b.StartsAt)
		}
		return a.Code < b.Code
	})

	byCode := make(map[string]*model.Session, len(sessions))
	sportSessions := make(map[string]int)
	for i, s := range sessions {
		byCode[s.Code] = s
		s.SessionNumber = i + 1
		s.TotalSessions = len(sessions)
		sportSessions[s.SportName]++
		s.SportSessionNumber = sportSessions[s.SportName]
	}
	for _, s := range sessions {
		s.TotalSportSessions = sportSessions[s.SportName]
	}

	sort.SliceStable(events, func(i, j int) bool {
		a, b := events[i], events[j]
		sa, sb := byCode[a.SessionCode], byCode[b.SessionCode]
		if sa != nil && sb != nil && !sa.StartsAt.Equal(sb.StartsAt) {
			return sa.StartsAt.Before(sb.StartsAt)
		}
		if a.SessionCode != b.SessionCode {
			return a.SessionCode < b.SessionCode
		}
		return a.OrderInSession < b.OrderInSession
	})

	sportEvents := make(map[string]int)
	for i, e := range events {
		e.EventNumber = i + 1
		e.TotalEvents = len(events)
		e.SportEventNumber, e.TotalSportEvents = 0, 0
		if s, ok := byCode[e.SessionCode]; ok {
			sportEvents[s.SportName]++
			e.SportEventNumber = sportEvents[s.SportName]
		}
	}
	for _, e := range events {
		if s, ok := byCode[e.SessionCode]; ok {
			e.TotalSportEvents = sportEvents[s.SportName]
		}
	}
}

// NumberingService 读取全量快照、重算编号并在一个事务内写回
type NumberingService struct {
	repo   repository.ScheduleRepository
	logger *logrus.Logger
}

func NewNumberingService(repo repository.ScheduleRepository, logger *logrus.Logger) *NumberingService {
	return &NumberingService{repo: repo, logger: logger}
}

// Run 重算全部编号；可重复调用，结果相同
func (s *NumberingService) Run(ctx context.Context) error {
	return s.repo.Transaction(ctx, func(tx repository.ScheduleRepository) error {
		sessions, err := tx.ListSessions(ctx)
		if err != nil {
			return fmt.Errorf("读取时段失败: %w", err)
		}
		events, err := tx.ListEvents(ctx)
		if err != nil {
			return fmt.Errorf("读取赛事失败: %w", err)
		}

		Renumber(sessions, events)

		if err := tx.SaveNumbering(ctx, sessions, events); err != nil {
			return err
		}
		s.logger.WithFields(logrus.Fields{
			"sessions": len(sessions),
			"events":   len(events),
		}).Info("编号重算完成")
		return nil
	})
}
