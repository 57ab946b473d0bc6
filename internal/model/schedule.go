package model

import (
	"time"

	"gorm.io/datatypes"
)

// 赛事轮次（event_types 表的种子数据）
const (
	TypeFinal        = "Final"
	TypeBronze       = "Bronze"
	TypeSemifinal    = "Semifinal"
	TypeQuarterfinal = "Quarterfinal"
	TypeRepechage    = "Repechage"
	TypePreliminary  = "Preliminary"
	TypeNA           = "N/A"
)

// 性别分类
const (
	SexMen   = "Men"
	SexWomen = "Women"
	SexMixed = "Mixed"
	SexAndOr = "and/or"
	SexOr    = "or"
)

// Day 比赛日
type Day struct {
	Day int `gorm:"column:day;primaryKey;autoIncrement:false"`
}

// Zone 赛区（场馆的地理分组）
type Zone struct {
	Name        string  `gorm:"column:name;primaryKey;type:varchar(128)"`
	Description *string `gorm:"column:description;type:text"`
}

// Venue 场馆；经纬度由地理编码回填
type Venue struct {
	Name      string   `gorm:"column:name;primaryKey;type:varchar(128)"`
	ZoneName  string   `gorm:"column:zone;type:varchar(128);not null;index"`
	Address   *string  `gorm:"column:address;type:text"`
	Capacity  *int     `gorm:"column:capacity"`
	Latitude  *float64 `gorm:"column:latitude"`
	Longitude *float64 `gorm:"column:longitude"`
	Geohash   *string  `gorm:"column:geohash;type:varchar(16)"`
	InOKC     bool     `gorm:"column:in_okc;not null;default:false"`

	Zone *Zone `gorm:"foreignKey:ZoneName;references:Name"`
}

// Sport 运动大项
type Sport struct {
	Name        string  `gorm:"column:name;primaryKey;type:varchar(128)"`
	Description *string `gorm:"column:description;type:text"`
	Icon        *string `gorm:"column:icon;type:varchar(256)"`
}

// SportVenueLink 运动与场馆的多对多关联；is_primary 以首次写入为准
type SportVenueLink struct {
	SportName string `gorm:"column:sport;primaryKey;type:varchar(128)"`
	VenueName string `gorm:"column:venue;primaryKey;type:varchar(128)"`
	IsPrimary bool   `gorm:"column:is_primary;not null;default:false"`
}

// EventType 轮次类型，rank 仅用于排序
type EventType struct {
	Type string `gorm:"column:type;primaryKey;type:varchar(64)"`
	Rank int    `gorm:"column:rank;not null;default:0"`
}

// DefaultEventTypes 初始化时写入的轮次种子数据
func DefaultEventTypes() []EventType {
	return []EventType{
		{Type: TypeFinal, Rank: 1},
		{Type: TypeBronze, Rank: 2},
		{Type: TypeSemifinal, Rank: 3},
		{Type: TypeQuarterfinal, Rank: 4},
		{Type: TypeRepechage, Rank: 5},
		{Type: TypePreliminary, Rank: 6},
		{Type: TypeNA, Rank: 99},
	}
}

// Session 一个比赛时段（一个场馆的一段时间），包含若干 Event。
// starts_at/ends_at 以 UTC 存储，timezone 保留原始时区标签。
type Session struct {
	Code      string    `gorm:"column:code;primaryKey;type:varchar(32)"`
	Day       int       `gorm:"column:day;not null;index"`
	SportName string    `gorm:"column:sport;type:varchar(128);not null;index"`
	VenueName string    `gorm:"column:venue;type:varchar(128);not null;index"`
	Type      *string   `gorm:"column:type;type:varchar(128)"`
	Date      string    `gorm:"column:date;type:varchar(10);not null;index"` // 赛程日期 YYYY-MM-DD
	StartsAt  time.Time `gorm:"column:starts_at;not null;index"`
	EndsAt    time.Time `gorm:"column:ends_at;not null"`
	Timezone  string    `gorm:"column:timezone;type:varchar(64);not null"`
	Ticketed  bool      `gorm:"column:ticketed;not null"`

	// 编号字段由 NumberingService 全量重算，0 表示尚未编号
	SessionNumber      int `gorm:"column:session_number"`
	TotalSessions      int `gorm:"column:total_sessions"`
	SportSessionNumber int `gorm:"column:sport_session_number"`
	TotalSportSessions int `gorm:"column:total_sport_sessions"`

	Source datatypes.JSON `gorm:"column:source"` // 原始行

	Venue  *Venue  `gorm:"foreignKey:VenueName;references:Name"`
	Sport  *Sport  `gorm:"foreignKey:SportName;references:Name"`
	Events []Event `gorm:"foreignKey:SessionCode;references:Code"`
}

// Location 会话时区，无法加载时退回 UTC
func (s *Session) Location() *time.Location {
	loc, err := time.LoadLocation(s.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalStart 当地开始时间
func (s *Session) LocalStart() time.Time { return s.StartsAt.In(s.Location()) }

// LocalEnd 当地结束时间
func (s *Session) LocalEnd() time.Time { return s.EndsAt.In(s.Location()) }

// Duration 时段长度
func (s *Session) Duration() time.Duration { return s.EndsAt.Sub(s.StartsAt) }

// DurationMinutes 时段长度（分钟）
func (s *Session) DurationMinutes() int { return int(s.Duration() / time.Minute) }

// Event 时段描述中的一行（一个性别/轮次组合）
type Event struct {
	ID             uint64  `gorm:"column:id;primaryKey;autoIncrement"`
	SessionCode    string  `gorm:"column:code;type:varchar(32);not null;index"`
	Sex            string  `gorm:"column:sex;type:varchar(16);not null;index"`
	Description    string  `gorm:"column:description;type:text;not null"`
	Type           *string `gorm:"column:type;type:varchar(128);index"`
	OrderInSession int     `gorm:"column:order_in_session;not null;default:1"`
	TotalInSession int     `gorm:"column:total_in_session;not null;default:1"`

	EventNumber      int `gorm:"column:event_number"`
	TotalEvents      int `gorm:"column:total_events"`
	SportEventNumber int `gorm:"column:sport_event_number"`
	TotalSportEvents int `gorm:"column:total_sport_events"`
}

func (Day) TableName() string            { return "days" }
func (Zone) TableName() string           { return "zones" }
func (Venue) TableName() string          { return "venues" }
func (Sport) TableName() string          { return "sports" }
func (SportVenueLink) TableName() string { return "sport_venues" }
func (EventType) TableName() string      { return "event_types" }
func (Session) TableName() string        { return "sessions" }
func (Event) TableName() string          { return "events" }

// AllModels 按依赖顺序返回需要迁移的表
func AllModels() []interface{} {
	return []interface{}{
		&Day{},
		&Zone{},
		&Venue{},
		&Sport{},
		&SportVenueLink{},
		&EventType{},
		&Session{},
		&Event{},
	}
}
