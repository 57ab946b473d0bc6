package model

import (
	"net/url"
	"strconv"
	"time"
)

// ScheduleView 扁平化视图：Event + Session + Venue + Zone + Sport + EventType
// 只读投影，查询时生成，不落库（数据库中同名 SQL 视图供外部使用）。
type ScheduleView struct {
	EventID          uint64  `gorm:"column:event_id" json:"event_id"`
	EventSex         string  `gorm:"column:event_sex" json:"event_sex"`
	EventDescription string  `gorm:"column:event_description" json:"event_description"`
	EventType        *string `gorm:"column:event_type" json:"event_type"`
	OrderInSession   int     `gorm:"column:order_in_session" json:"order_in_session"`
	TotalInSession   int     `gorm:"column:total_in_session" json:"total_in_session"`
	EventNumber      int     `gorm:"column:event_number" json:"event_number"`
	TotalEvents      int     `gorm:"column:total_events" json:"total_events"`
	SportEventNumber int     `gorm:"column:sport_event_number" json:"sport_event_number"`
	TotalSportEvents int     `gorm:"column:total_sport_events" json:"total_sport_events"`

	SessionCode        string    `gorm:"column:session_code" json:"session_code"`
	Day                int       `gorm:"column:day" json:"day"`
	Date               string    `gorm:"column:date" json:"date"`
	StartsAt           time.Time `gorm:"column:starts_at" json:"starts_at"`
	EndsAt             time.Time `gorm:"column:ends_at" json:"ends_at"`
	Timezone           string    `gorm:"column:timezone" json:"timezone"`
	Ticketed           bool      `gorm:"column:ticketed" json:"ticketed"`
	SessionType        *string   `gorm:"column:session_type" json:"session_type"`
	SessionNumber      int       `gorm:"column:session_number" json:"session_number"`
	TotalSessions      int       `gorm:"column:total_sessions" json:"total_sessions"`
	SportSessionNumber int       `gorm:"column:sport_session_number" json:"sport_session_number"`
	TotalSportSessions int       `gorm:"column:total_sport_sessions" json:"total_sport_sessions"`

	Sport string `gorm:"column:sport" json:"sport"`

	Venue          string   `gorm:"column:venue" json:"venue"`
	VenueAddress   *string  `gorm:"column:venue_address" json:"venue_address"`
	VenueCapacity  *int     `gorm:"column:venue_capacity" json:"venue_capacity"`
	VenueLatitude  *float64 `gorm:"column:venue_latitude" json:"venue_latitude"`
	VenueLongitude *float64 `gorm:"column:venue_longitude" json:"venue_longitude"`
	InOKC          bool     `gorm:"column:in_okc" json:"in_okc"`

	Zone            string  `gorm:"column:zone" json:"zone"`
	ZoneDescription *string `gorm:"column:zone_description" json:"zone_description"`

	EventTypeRank *int `gorm:"column:event_type_rank" json:"event_type_rank"`

	GoogleMapsURL *string `gorm:"-" json:"google_maps_url"`
	WazeURL       *string `gorm:"-" json:"waze_url"`
	AppleMapsURL  *string `gorm:"-" json:"apple_maps_url"`
	OSMURL        *string `gorm:"-" json:"osm_url"`
}

// FillMapLinks 仅当经纬度都存在时生成四个地图链接，否则全部置空
func (v *ScheduleView) FillMapLinks() {
	v.GoogleMapsURL, v.WazeURL, v.AppleMapsURL, v.OSMURL = MapLinks(v.Venue, v.VenueLatitude, v.VenueLongitude)
}

// Localize 把 UTC 时间转换回会话所在时区
func (v *ScheduleView) Localize() {
	loc, err := time.LoadLocation(v.Timezone)
	if err != nil {
		return
	}
	v.StartsAt = v.StartsAt.In(loc)
	v.EndsAt = v.EndsAt.In(loc)
}

// DurationMinutes 时段长度（分钟）
func (v *ScheduleView) DurationMinutes() int {
	return int(v.EndsAt.Sub(v.StartsAt) / time.Minute)
}

// MapLinks 返回 Google / Waze / Apple / OSM 链接
func MapLinks(venue string, lat, lng *float64) (google, waze, apple, osm *string) {
	if lat == nil || lng == nil {
		return nil, nil, nil, nil
	}
	la := formatCoord(*lat)
	lo := formatCoord(*lng)
	g := "https://www.google.com/maps/search/?api=1&query=" + la + "," + lo
	w := "https://waze.com/ul?ll=" + la + "," + lo + "&navigate=yes"
	a := "https://maps.apple.com/?ll=" + la + "," + lo + "&q=" + url.QueryEscape(venue)
	o := "https://www.openstreetmap.org/?mlat=" + la + "&mlon=" + lo + "&zoom=17"
	return &g, &w, &a, &o
}

func formatCoord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
