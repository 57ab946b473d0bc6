package parsing

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"LA28Sync/internal/config"
	"LA28Sync/internal/model"

	"gorm.io/datatypes"
)

// NormalizedRow 一行赛程规范化后的全部实体：维度 + 时段 + 赛事
type NormalizedRow struct {
	Index   int
	Day     model.Day
	Zone    model.Zone
	Venue   model.Venue
	Sport   model.Sport
	Link    model.SportVenueLink
	Session model.Session
	Events  []model.Event
}

// Normalizer 把原始行转换成 NormalizedRow
type Normalizer struct {
	resolver    *TimeResolver
	notTicketed string
	fixups      []config.VenueFixup
}

// NewNormalizer 按赛程配置创建
func NewNormalizer(cfg *config.ScheduleConfig) (*Normalizer, error) {
	resolver, err := NewTimeResolver(cfg)
	if err != nil {
		return nil, err
	}
	return &Normalizer{
		resolver:    resolver,
		notTicketed: cfg.NotTicketedMarker,
		fixups:      cfg.Fixups,
	}, nil
}

// Normalize 规范化第 index 行。缺少必填字段或日期/时间无法解析时返回 *MalformedRowError。
func (n *Normalizer) Normalize(index int, row model.RawScheduleRow) (*NormalizedRow, error) {
	code := strings.TrimSpace(row.SessionCode)
	out, err := n.normalize(row, code)
	if err != nil {
		var mre *MalformedRowError
		if errors.As(err, &mre) {
			mre.Index = index
			mre.Code = code
			return nil, mre
		}
		return nil, fmt.Errorf("规范化第%d行失败: %w", index, err)
	}
	out.Index = index
	return out, nil
}

func (n *Normalizer) normalize(row model.RawScheduleRow, code string) (*NormalizedRow, error) {
	sport := CleanText(row.Sport)
	venue := n.applyFixups(sport, CleanText(row.Venue))
	zone := CleanText(row.Zone)
	sessionType := CleanText(row.SessionType)

	required := []struct{ field, value string }{
		{"Date", strings.TrimSpace(row.Date)},
		{"Games Day", strings.TrimSpace(row.GamesDay)},
		{"Zone", zone},
		{"Venue", venue},
		{"Sport", sport},
		{"Session Code", code},
		{"Start Time", strings.TrimSpace(row.StartTime)},
	}
	for _, r := range required {
		if r.value == "" {
			return nil, malformed(r.field, errors.New("必填字段为空"))
		}
	}

	day, err := strconv.Atoi(strings.TrimSpace(row.GamesDay))
	if err != nil {
		return nil, malformed("Games Day", fmt.Errorf("比赛日%q不是整数", row.GamesDay))
	}

	times, err := n.resolver.Resolve(row.Date, row.StartTime, row.EndTime)
	if err != nil {
		return nil, err
	}

	breakdown := ClassifyDescription(row.Description, sessionType, n.notTicketed)

	source, err := json.Marshal(row)
	if err != nil {
		return nil, fmt.Errorf("序列化原始行失败: %w", err)
	}

	out := &NormalizedRow{
		Day:   model.Day{Day: day},
		Zone:  model.Zone{Name: zone},
		Venue: model.Venue{Name: venue, ZoneName: zone, InOKC: times.Secondary},
		Sport: model.Sport{Name: sport},
		Link:  model.SportVenueLink{SportName: sport, VenueName: venue},
		Session: model.Session{
			Code:      code,
			Day:       day,
			SportName: sport,
			VenueName: venue,
			Type:      optional(sessionType),
			Date:      times.DateKey(),
			StartsAt:  times.Start.UTC(),
			EndsAt:    times.End.UTC(),
			Timezone:  times.Timezone,
			Ticketed:  breakdown.Ticketed,
			Source:    datatypes.JSON(source),
		},
	}

	total := len(breakdown.Entries)
	out.Events = make([]model.Event, 0, total)
	for _, e := range breakdown.Entries {
		out.Events = append(out.Events, model.Event{
			SessionCode:    code,
			Sex:            e.Sex,
			Description:    e.Text,
			Type:           optional(e.Type),
			OrderInSession: e.Order,
			TotalInSession: total,
		})
	}
	return out, nil
}

// applyFixups 按 (运动, 场馆) 替换已知的错误场馆名
func (n *Normalizer) applyFixups(sport, venue string) string {
	for _, f := range n.fixups {
		if f.Sport == sport && f.Venue == venue {
			return f.ReplaceVenue
		}
	}
	return venue
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
