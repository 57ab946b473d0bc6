package repository

import (
	"context"
	"errors"
	"fmt"

	"LA28Sync/internal/model"
	"LA28Sync/internal/parsing"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrDuplicateSession 时段代码已存在（重新导入前需要 reset）
var ErrDuplicateSession = errors.New("session code already stored")

// ScheduleStats 各表记录数
type ScheduleStats struct {
	Days     int64 `json:"days"`
	Zones    int64 `json:"zones"`
	Venues   int64 `json:"venues"`
	Sports   int64 `json:"sports"`
	Sessions int64 `json:"sessions"`
	Events   int64 `json:"events"`
	Geocoded int64 `json:"geocoded_venues"`
}

// ScheduleRepository 赛程仓储
type ScheduleRepository interface {
	// Transaction 在同一事务中执行 fn，fn 返回错误时回滚
	Transaction(ctx context.Context, fn func(repo ScheduleRepository) error) error
	// SaveRow 在一个事务内写入维度（已存在则跳过）+ 时段 + 赛事
	SaveRow(ctx context.Context, row *parsing.NormalizedRow) error
	// ListSessions 全部时段，按 (starts_at, code) 排序
	ListSessions(ctx context.Context) ([]*model.Session, error)
	// ListEvents 全部赛事，按 (code, order_in_session) 排序
	ListEvents(ctx context.Context) ([]*model.Event, error)
	// GetSession 按代码获取时段及其赛事、场馆、运动
	GetSession(ctx context.Context, code string) (*model.Session, error)
	// SaveNumbering 回写编号字段
	SaveNumbering(ctx context.Context, sessions []*model.Session, events []*model.Event) error
	ListDays(ctx context.Context) ([]*model.Day, error)
	ListZones(ctx context.Context) ([]*model.Zone, error)
	ListVenues(ctx context.Context) ([]*model.Venue, error)
	ListSports(ctx context.Context) ([]*model.Sport, error)
	ListSportVenueLinks(ctx context.Context) ([]*model.SportVenueLink, error)
	// GetVenue 不存在时返回 (nil, nil)
	GetVenue(ctx context.Context, name string) (*model.Venue, error)
	// UpdateVenueGeo 覆盖场馆地址/经纬度/geohash
	UpdateVenueGeo(ctx context.Context, venue *model.Venue) error
	Stats(ctx context.Context) (*ScheduleStats, error)
	// Query 新的赛程视图查询
	Query() ScheduleQuery
	// Sessions 新的时段查询
	Sessions() SessionQuery
}

type scheduleRepository struct {
	db *gorm.DB
}

// NewScheduleRepository 创建 ScheduleRepository 实例
func NewScheduleRepository(db *gorm.DB) ScheduleRepository {
	return &scheduleRepository{db: db}
}

func (r *scheduleRepository) Transaction(ctx context.Context, fn func(repo ScheduleRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&scheduleRepository{db: tx})
	})
}

func (r *scheduleRepository) SaveRow(ctx context.Context, row *parsing.NormalizedRow) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dims := []struct {
			name  string
			value interface{}
		}{
			{"day", &row.Day},
			{"zone", &row.Zone},
			{"venue", &row.Venue},
			{"sport", &row.Sport},
			{"sport_venue", &row.Link},
		}
		for _, d := range dims {
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Omit(clause.Associations).Create(d.value).Error; err != nil {
				return fmt.Errorf("写入%s失败: %w", d.name, err)
			}
		}

		var exists int64
		if err := tx.Model(&model.Session{}).Where("code = ?", row.Session.Code).Count(&exists).Error; err != nil {
			return err
		}
		if exists > 0 {
			return fmt.Errorf("%w: %s", ErrDuplicateSession, row.Session.Code)
		}

		session := row.Session
		if err := tx.Omit(clause.Associations).Create(&session).Error; err != nil {
			return fmt.Errorf("写入时段%s失败: %w", session.Code, err)
		}
		if len(row.Events) == 0 {
			return nil
		}
		if err := tx.Create(&row.Events).Error; err != nil {
			return fmt.Errorf("写入时段%s的赛事失败: %w", session.Code, err)
		}
		return nil
	})
}

func (r *scheduleRepository) ListSessions(ctx context.Context) ([]*model.Session, error) {
	var list []*model.Session
	if err := r.db.WithContext(ctx).Order("starts_at ASC").Order("code ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) ListEvents(ctx context.Context) ([]*model.Event, error) {
	var list []*model.Event
	if err := r.db.WithContext(ctx).Order("code ASC").Order("order_in_session ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) GetSession(ctx context.Context, code string) (*model.Session, error) {
	var s model.Session
	err := r.db.WithContext(ctx).
		Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_session ASC") }).
		Preload("Venue").
		Preload("Venue.Zone").
		Preload("Sport").
		Where("code = ?", code).
		First(&s).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *scheduleRepository) SaveNumbering(ctx context.Context, sessions []*model.Session, events []*model.Event) error {
	db := r.db.WithContext(ctx)
	for _, s := range sessions {
		if err := db.Model(&model.Session{}).Where("code = ?", s.Code).Updates(map[string]interface{}{
			"session_number":       s.SessionNumber,
			"total_sessions":       s.TotalSessions,
			"sport_session_number": s.SportSessionNumber,
			"total_sport_sessions": s.TotalSportSessions,
		}).Error; err != nil {
			return fmt.Errorf("更新时段%s编号失败: %w", s.Code, err)
		}
	}
	for _, e := range events {
		if err := db.Model(&model.Event{}).Where("id = ?", e.ID).Updates(map[string]interface{}{
			"event_number":       e.EventNumber,
			"total_events":       e.TotalEvents,
			"sport_event_number": e.SportEventNumber,
			"total_sport_events": e.TotalSportEvents,
		}).Error; err != nil {
			return fmt.Errorf("更新赛事%d编号失败: %w", e.ID, err)
		}
	}
	return nil
}

func (r *scheduleRepository) ListDays(ctx context.Context) ([]*model.Day, error) {
	var list []*model.Day
	if err := r.db.WithContext(ctx).Order("day ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) ListZones(ctx context.Context) ([]*model.Zone, error) {
	var list []*model.Zone
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) ListVenues(ctx context.Context) ([]*model.Venue, error) {
	var list []*model.Venue
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) ListSports(ctx context.Context) ([]*model.Sport, error) {
	var list []*model.Sport
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) ListSportVenueLinks(ctx context.Context) ([]*model.SportVenueLink, error) {
	var list []*model.SportVenueLink
	if err := r.db.WithContext(ctx).Order("sport ASC").Order("venue ASC").Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

func (r *scheduleRepository) GetVenue(ctx context.Context, name string) (*model.Venue, error) {
	var v model.Venue
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&v).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func (r *scheduleRepository) UpdateVenueGeo(ctx context.Context, venue *model.Venue) error {
	return r.db.WithContext(ctx).Model(&model.Venue{}).Where("name = ?", venue.Name).Updates(map[string]interface{}{
		"address":   venue.Address,
		"latitude":  venue.Latitude,
		"longitude": venue.Longitude,
		"geohash":   venue.Geohash,
	}).Error
}

func (r *scheduleRepository) Stats(ctx context.Context) (*ScheduleStats, error) {
	db := r.db.WithContext(ctx)
	st := &ScheduleStats{}
	counts := []struct {
		model interface{}
		dst   *int64
	}{
		{&model.Day{}, &st.Days},
		{&model.Zone{}, &st.Zones},
		{&model.Venue{}, &st.Venues},
		{&model.Sport{}, &st.Sports},
		{&model.Session{}, &st.Sessions},
		{&model.Event{}, &st.Events},
	}
	for _, c := range counts {
		if err := db.Model(c.model).Count(c.dst).Error; err != nil {
			return nil, err
		}
	}
	if err := db.Model(&model.Venue{}).Where("latitude IS NOT NULL AND longitude IS NOT NULL").Count(&st.Geocoded).Error; err != nil {
		return nil, err
	}
	return st, nil
}

func (r *scheduleRepository) Query() ScheduleQuery {
	return NewScheduleQuery(r.db)
}

func (r *scheduleRepository) Sessions() SessionQuery {
	return NewSessionQuery(r.db)
}
