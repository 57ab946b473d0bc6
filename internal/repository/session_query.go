package repository

import (
	"context"
	"time"

	"LA28Sync/internal/model"

	"gorm.io/gorm"
)

// SessionQuery 时段级查询（sessions 表），与 ScheduleQuery 一样是值类型
type SessionQuery struct {
	db        *gorm.DB
	conds     []condition
	orders    []string
	limit     int
	relations bool
}

// NewSessionQuery 创建时段查询
func NewSessionQuery(db *gorm.DB) SessionQuery {
	return SessionQuery{db: db}
}

func (q SessionQuery) where(expr string, args ...interface{}) SessionQuery {
	conds := make([]condition, len(q.conds), len(q.conds)+1)
	copy(conds, q.conds)
	q.conds = append(conds, condition{expr: expr, args: args})
	return q
}

// WithRelations 预加载场馆（含赛区）、运动和赛事
func (q SessionQuery) WithRelations() SessionQuery {
	q.relations = true
	return q
}

func (q SessionQuery) BySport(sport string) SessionQuery { return q.where("sport = ?", sport) }

func (q SessionQuery) ByVenue(venue string) SessionQuery { return q.where("venue = ?", venue) }

func (q SessionQuery) ByZone(zone string) SessionQuery {
	return q.where("venue IN (SELECT name FROM venues WHERE zone = ?)", zone)
}

func (q SessionQuery) ByDay(day int) SessionQuery { return q.where("day = ?", day) }

func (q SessionQuery) ByDays(days ...int) SessionQuery { return q.where("day IN ?", days) }

// ByDate 按赛程日期（当地日期）
func (q SessionQuery) ByDate(d time.Time) SessionQuery {
	return q.where("date = ?", d.Format(dateLayout))
}

// ByType 时段类型（原始表格中的 Session Type 列）
func (q SessionQuery) ByType(t string) SessionQuery { return q.where("type = ?", t) }

func (q SessionQuery) Ticketed() SessionQuery { return q.where("ticketed = ?", true) }

// Between 开始时刻在 [from, to] 之间（含两端）
func (q SessionQuery) Between(from, to time.Time) SessionQuery {
	return q.where("starts_at >= ? AND starts_at <= ?", from.UTC(), to.UTC())
}

// OrderByStart 按开始时间排序，同时刻按代码
func (q SessionQuery) OrderByStart(desc bool) SessionQuery {
	orders := make([]string, len(q.orders), len(q.orders)+2)
	copy(orders, q.orders)
	if desc {
		q.orders = append(orders, "starts_at DESC", "code ASC")
	} else {
		q.orders = append(orders, "starts_at ASC", "code ASC")
	}
	return q
}

func (q SessionQuery) Limit(n int) SessionQuery {
	q.limit = n
	return q
}

func (q SessionQuery) build(ctx context.Context) *gorm.DB {
	db := q.db.WithContext(ctx).Model(&model.Session{})
	for _, c := range q.conds {
		db = db.Where(c.expr, c.args...)
	}
	return db
}

func (q SessionQuery) Fetch(ctx context.Context) ([]*model.Session, error) {
	db := q.build(ctx)
	if q.relations {
		db = db.Preload("Events", func(db *gorm.DB) *gorm.DB { return db.Order("order_in_session ASC") }).
			Preload("Venue").
			Preload("Venue.Zone").
			Preload("Sport")
	}
	for _, o := range q.orders {
		db = db.Order(o)
	}
	if len(q.orders) == 0 {
		db = db.Order("starts_at ASC").Order("code ASC")
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	var list []*model.Session
	if err := db.Find(&list).Error; err != nil {
		return nil, err
	}
	return list, nil
}

// First 第一条，没有结果时返回 (nil, nil)
func (q SessionQuery) First(ctx context.Context) (*model.Session, error) {
	list, err := q.Limit(1).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// Count 满足条件的时段数（忽略 Limit）
func (q SessionQuery) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.build(ctx).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
