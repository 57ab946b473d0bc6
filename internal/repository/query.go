package repository

import (
	"context"
	"time"

	"LA28Sync/internal/database"
	"LA28Sync/internal/model"

	"gorm.io/gorm"
)

const dateLayout = "2006-01-02"

type condition struct {
	expr string
	args []interface{}
}

// ScheduleQuery 赛程视图查询。值类型，每个过滤方法返回新查询，互不影响；
// 只有 Fetch/First/Count 才会访问数据库。
type ScheduleQuery struct {
	db     *gorm.DB
	conds  []condition
	orders []string
	limit  int
	offset int
}

// NewScheduleQuery 基于 schedule_view 创建查询
func NewScheduleQuery(db *gorm.DB) ScheduleQuery {
	return ScheduleQuery{db: db}
}

func (q ScheduleQuery) where(expr string, args ...interface{}) ScheduleQuery {
	conds := make([]condition, len(q.conds), len(q.conds)+1)
	copy(conds, q.conds)
	q.conds = append(conds, condition{expr: expr, args: args})
	return q
}

func (q ScheduleQuery) orderBy(cols ...string) ScheduleQuery {
	orders := make([]string, len(q.orders), len(q.orders)+len(cols))
	copy(orders, q.orders)
	q.orders = append(orders, cols...)
	return q
}

func (q ScheduleQuery) BySport(sport string) ScheduleQuery { return q.where("sport = ?", sport) }

func (q ScheduleQuery) BySports(sports ...string) ScheduleQuery {
	return q.where("sport IN ?", sports)
}

func (q ScheduleQuery) ByVenue(venue string) ScheduleQuery { return q.where("venue = ?", venue) }

func (q ScheduleQuery) ByVenues(venues ...string) ScheduleQuery {
	return q.where("venue IN ?", venues)
}

func (q ScheduleQuery) ByZone(zone string) ScheduleQuery { return q.where("zone = ?", zone) }

func (q ScheduleQuery) ByZones(zones ...string) ScheduleQuery { return q.where("zone IN ?", zones) }

func (q ScheduleQuery) ByDay(day int) ScheduleQuery { return q.where("day = ?", day) }

func (q ScheduleQuery) ByDays(days ...int) ScheduleQuery { return q.where("day IN ?", days) }

func (q ScheduleQuery) ByEventType(t string) ScheduleQuery { return q.where("event_type = ?", t) }

func (q ScheduleQuery) ByEventTypes(types ...string) ScheduleQuery {
	return q.where("event_type IN ?", types)
}

func (q ScheduleQuery) BySex(sex string) ScheduleQuery { return q.where("event_sex = ?", sex) }

// BySession 只保留某个时段的赛事
func (q ScheduleQuery) BySession(code string) ScheduleQuery {
	return q.where("session_code = ?", code)
}

// ByDate 按赛程日期（当地日期）过滤
func (q ScheduleQuery) ByDate(d time.Time) ScheduleQuery {
	return q.where("date = ?", d.Format(dateLayout))
}

// DateRange 赛程日期在 [from, to] 之间（含两端）
func (q ScheduleQuery) DateRange(from, to time.Time) ScheduleQuery {
	return q.where("date >= ? AND date <= ?", from.Format(dateLayout), to.Format(dateLayout))
}

// Between 开始时刻在 [from, to] 之间（含两端）
func (q ScheduleQuery) Between(from, to time.Time) ScheduleQuery {
	return q.where("starts_at >= ? AND starts_at <= ?", from.UTC(), to.UTC())
}

func (q ScheduleQuery) Ticketed() ScheduleQuery { return q.where("ticketed = ?", true) }

func (q ScheduleQuery) InOKC() ScheduleQuery { return q.where("in_okc = ?", true) }

func (q ScheduleQuery) FinalsOnly() ScheduleQuery { return q.ByEventType(model.TypeFinal) }

// MedalEvents 决赛 + 铜牌赛
func (q ScheduleQuery) MedalEvents() ScheduleQuery {
	return q.ByEventTypes(model.TypeFinal, model.TypeBronze)
}

// Search 赛事描述包含 text
func (q ScheduleQuery) Search(text string) ScheduleQuery {
	return q.where("event_description LIKE ?", "%"+text+"%")
}

// OrderByStart 按开始时间排序，其次赛事顺序，最后按时段代码
func (q ScheduleQuery) OrderByStart(desc bool) ScheduleQuery {
	if desc {
		return q.orderBy("starts_at DESC", "order_in_session ASC", "session_code ASC")
	}
	return q.orderBy("starts_at ASC", "order_in_session ASC", "session_code ASC")
}

// OrderByEventType 决赛优先：按轮次 rank，再按开始时间与赛事顺序；未知轮次排在最后
func (q ScheduleQuery) OrderByEventType() ScheduleQuery {
	return q.orderBy("COALESCE(event_type_rank, 999) ASC", "starts_at ASC", "order_in_session ASC", "session_code ASC")
}

func (q ScheduleQuery) Limit(n int) ScheduleQuery {
	q.limit = n
	return q
}

func (q ScheduleQuery) Offset(n int) ScheduleQuery {
	q.offset = n
	return q
}

func (q ScheduleQuery) build(ctx context.Context) *gorm.DB {
	db := q.db.WithContext(ctx).Table(database.ViewName)
	for _, c := range q.conds {
		db = db.Where(c.expr, c.args...)
	}
	return db
}

// Fetch 执行查询，返回填充了地图链接、时间转换为当地时区的视图记录
func (q ScheduleQuery) Fetch(ctx context.Context) ([]*model.ScheduleView, error) {
	db := q.build(ctx)
	for _, o := range q.orders {
		db = db.Order(o)
	}
	if len(q.orders) == 0 {
		db = db.Order("starts_at ASC").Order("session_code ASC").Order("order_in_session ASC")
	}
	if q.limit > 0 {
		db = db.Limit(q.limit)
	}
	if q.offset > 0 {
		db = db.Offset(q.offset)
	}
	var rows []*model.ScheduleView
	if err := db.Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, row := range rows {
		row.Localize()
		row.FillMapLinks()
	}
	return rows, nil
}

// First 第一条记录，没有结果时返回 (nil, nil)
func (q ScheduleQuery) First(ctx context.Context) (*model.ScheduleView, error) {
	rows, err := q.Limit(1).Fetch(ctx)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return rows[0], nil
}

// Count 满足过滤条件的记录数（忽略 Limit/Offset）
func (q ScheduleQuery) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := q.build(ctx).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}
