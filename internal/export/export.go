// Package export 把赛程库导出为 JSON、CSV 和多工作表 XLSX。
package export

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"LA28Sync/internal/config"
	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"

	"github.com/sirupsen/logrus"
)

// WorkbookName 导出目录中的 XLSX 文件名
const WorkbookName = "la28.xlsx"

// Exporter 读取仓储快照并写出各种格式
type Exporter struct {
	repo   repository.ScheduleRepository
	indent int
	logger *logrus.Logger
}

func NewExporter(repo repository.ScheduleRepository, cfg *config.ExportConfig, logger *logrus.Logger) *Exporter {
	indent := 2
	if cfg != nil && cfg.Indent >= 0 {
		indent = cfg.Indent
	}
	return &Exporter{repo: repo, indent: indent, logger: logger}
}

// snapshot 一次导出使用的全量数据，附带内存索引
type snapshot struct {
	zones    []*model.Zone
	venues   []*model.Venue
	sports   []*model.Sport
	sessions []*model.Session // 按 (starts_at, code)
	events   []*model.Event   // 按 event_number
	schedule []*model.ScheduleView

	venueByName     map[string]*model.Venue
	sessionByCode   map[string]*model.Session
	eventsBySession map[string][]*model.Event
	venuesBySport   map[string][]string
	sportsByVenue   map[string][]string
	venuesByZone    map[string][]string
}

func (e *Exporter) load(ctx context.Context) (*snapshot, error) {
	s := &snapshot{}
	var err error
	if s.zones, err = e.repo.ListZones(ctx); err != nil {
		return nil, fmt.Errorf("读取赛区失败: %w", err)
	}
	if s.venues, err = e.repo.ListVenues(ctx); err != nil {
		return nil, fmt.Errorf("读取场馆失败: %w", err)
	}
	if s.sports, err = e.repo.ListSports(ctx); err != nil {
		return nil, fmt.Errorf("读取运动失败: %w", err)
	}
	if s.sessions, err = e.repo.ListSessions(ctx); err != nil {
		return nil, fmt.Errorf("读取时段失败: %w", err)
	}
	if s.events, err = e.repo.ListEvents(ctx); err != nil {
		return nil, fmt.Errorf("读取赛事失败: %w", err)
	}
	links, err := e.repo.ListSportVenueLinks(ctx)
	if err != nil {
		return nil, fmt.Errorf("读取运动-场馆关联失败: %w", err)
	}
	if s.schedule, err = e.repo.Query().Fetch(ctx); err != nil {
		return nil, fmt.Errorf("读取赛程视图失败: %w", err)
	}

	sort.SliceStable(s.events, func(i, j int) bool { return s.events[i].EventNumber < s.events[j].EventNumber })

	s.venueByName = make(map[string]*model.Venue, len(s.venues))
	s.venuesByZone = make(map[string][]string)
	for _, v := range s.venues {
		s.venueByName[v.Name] = v
		s.venuesByZone[v.ZoneName] = append(s.venuesByZone[v.ZoneName], v.Name)
	}
	s.sessionByCode = make(map[string]*model.Session, len(s.sessions))
	for _, sess := range s.sessions {
		s.sessionByCode[sess.Code] = sess
	}
	s.eventsBySession = make(map[string][]*model.Event, len(s.sessions))
	for _, ev := range s.events {
		s.eventsBySession[ev.SessionCode] = append(s.eventsBySession[ev.SessionCode], ev)
	}
	for _, list := range s.eventsBySession {
		sort.SliceStable(list, func(i, j int) bool { return list[i].OrderInSession < list[j].OrderInSession })
	}
	s.venuesBySport = make(map[string][]string)
	s.sportsByVenue = make(map[string][]string)
	for _, l := range links {
		s.venuesBySport[l.SportName] = append(s.venuesBySport[l.SportName], l.VenueName)
		s.sportsByVenue[l.VenueName] = append(s.sportsByVenue[l.VenueName], l.SportName)
	}
	return s, nil
}

func (s *snapshot) zoneOf(venue string) string {
	if v, ok := s.venueByName[venue]; ok {
		return v.ZoneName
	}
	return ""
}

func (s *snapshot) inOKC(venue string) bool {
	if v, ok := s.venueByName[venue]; ok {
		return v.InOKC
	}
	return false
}

// ExportAll 在 dir 下写出全部 JSON、CSV 与 XLSX，返回每个文件的记录数
func (e *Exporter) ExportAll(ctx context.Context, dir string) (map[string]int, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("创建导出目录失败: %w", err)
	}
	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}

	counts := make(map[string]int)
	jsonFiles := []struct {
		name string
		data interface{}
		n    int
	}{
		{"sessions.json", sessionsJSON(snap), len(snap.sessions)},
		{"events.json", eventsJSON(snap), len(snap.events)},
		{"sports.json", sportsJSON(snap), len(snap.sports)},
		{"venues.json", venuesJSON(snap), len(snap.venues)},
		{"zones.json", zonesJSON(snap), len(snap.zones)},
		{"schedule.json", snap.schedule, len(snap.schedule)},
	}
	for _, f := range jsonFiles {
		if err := e.writeJSON(filepath.Join(dir, f.name), f.data); err != nil {
			return nil, err
		}
		counts[f.name] = f.n
	}

	for _, t := range csvTables(snap) {
		if err := writeCSV(filepath.Join(dir, t.name), t.header, t.rows); err != nil {
			return nil, err
		}
		counts[t.name] = len(t.rows)
	}

	sheets, err := writeWorkbook(filepath.Join(dir, WorkbookName), snap)
	if err != nil {
		return nil, err
	}
	for sheet, n := range sheets {
		counts[WorkbookName+"/"+sheet] = n
	}

	e.logger.WithFields(logrus.Fields{
		"dir":      dir,
		"sessions": len(snap.sessions),
		"events":   len(snap.events),
	}).Info("导出完成")
	return counts, nil
}

// ExportSchedule 只导出筛选后的扁平赛程（JSON）
func (e *Exporter) ExportSchedule(ctx context.Context, q repository.ScheduleQuery, path string) (int, error) {
	rows, err := q.Fetch(ctx)
	if err != nil {
		return 0, err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("创建导出目录失败: %w", err)
	}
	if err := e.writeJSON(path, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func (e *Exporter) writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", strings.Repeat(" ", e.indent))
	if err != nil {
		return fmt.Errorf("序列化%s失败: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("写入%s失败: %w", path, err)
	}
	return nil
}

type sessionEventRecord struct {
	Sex         string  `json:"sex"`
	Description string  `json:"description"`
	Type        *string `json:"type"`
	Order       int     `json:"order"`
	Total       int     `json:"total"`
}

type sessionRecord struct {
	Code               string               `json:"code"`
	Day                int                  `json:"day"`
	Date               string               `json:"date"`
	Sport              string               `json:"sport"`
	Venue              string               `json:"venue"`
	Zone               string               `json:"zone"`
	Type               *string              `json:"type"`
	StartsAt           time.Time            `json:"startsAt"`
	EndsAt             time.Time            `json:"endsAt"`
	Timezone           string               `json:"timezone"`
	DurationMinutes    int                  `json:"durationMinutes"`
	Ticketed           bool                 `json:"ticketed"`
	InOKC              bool                 `json:"inOKC"`
	SessionNumber      int                  `json:"sessionNumber"`
	TotalSessions      int                  `json:"totalSessions"`
	SportSessionNumber int                  `json:"sportSessionNumber"`
	TotalSportSessions int                  `json:"totalSportSessions"`
	Events             []sessionEventRecord `json:"events"`
}

func sessionsJSON(s *snapshot) []sessionRecord {
	out := make([]sessionRecord, 0, len(s.sessions))
	for _, sess := range s.sessions {
		rec := sessionRecord{
			Code:               sess.Code,
			Day:                sess.Day,
			Date:               sess.Date,
			Sport:              sess.SportName,
			Venue:              sess.VenueName,
			Zone:               s.zoneOf(sess.VenueName),
			Type:               sess.Type,
			StartsAt:           sess.LocalStart(),
			EndsAt:             sess.LocalEnd(),
			Timezone:           sess.Timezone,
			DurationMinutes:    sess.DurationMinutes(),
			Ticketed:           sess.Ticketed,
			InOKC:              s.inOKC(sess.VenueName),
			SessionNumber:      sess.SessionNumber,
			TotalSessions:      sess.TotalSessions,
			SportSessionNumber: sess.SportSessionNumber,
			TotalSportSessions: sess.TotalSportSessions,
			Events:             []sessionEventRecord{},
		}
		for _, ev := range s.eventsBySession[sess.Code] {
			rec.Events = append(rec.Events, sessionEventRecord{
				Sex:         ev.Sex,
				Description: ev.Description,
				Type:        ev.Type,
				Order:       ev.OrderInSession,
				Total:       ev.TotalInSession,
			})
		}
		out = append(out, rec)
	}
	return out
}

type eventRecord struct {
	Code           string     `json:"code"`
	Sport          string     `json:"sport"`
	Venue          string     `json:"venue"`
	Zone           string     `json:"zone"`
	Day            int        `json:"day"`
	StartsAt       *time.Time `json:"startsAt"`
	Sex            string     `json:"sex"`
	Description    string     `json:"description"`
	Type           *string    `json:"type"`
	OrderInSession int        `json:"order_in_session"`
	EventNumber    int        `json:"event_number"`
}

func eventsJSON(s *snapshot) []eventRecord {
	out := make([]eventRecord, 0, len(s.events))
	for _, ev := range s.events {
		rec := eventRecord{
			Code:           ev.SessionCode,
			Sex:            ev.Sex,
			Description:    ev.Description,
			Type:           ev.Type,
			OrderInSession: ev.OrderInSession,
			EventNumber:    ev.EventNumber,
		}
		if sess, ok := s.sessionByCode[ev.SessionCode]; ok {
			start := sess.LocalStart()
			rec.Sport = sess.SportName
			rec.Venue = sess.VenueName
			rec.Zone = s.zoneOf(sess.VenueName)
			rec.Day = sess.Day
			rec.StartsAt = &start
		}
		out = append(out, rec)
	}
	return out
}

type sportRecord struct {
	Sport  string   `json:"sport"`
	Venues []string `json:"venues"`
}

func sportsJSON(s *snapshot) []sportRecord {
	out := make([]sportRecord, 0, len(s.sports))
	for _, sp := range s.sports {
		out = append(out, sportRecord{Sport: sp.Name, Venues: nonNil(s.venuesBySport[sp.Name])})
	}
	return out
}

type venueRecord struct {
	Venue     string   `json:"venue"`
	Zone      string   `json:"zone"`
	Address   *string  `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Geohash   *string  `json:"geohash,omitempty"`
	InOKC     bool     `json:"in_okc"`
	Sports    []string `json:"sports"`
}

func venuesJSON(s *snapshot) []venueRecord {
	out := make([]venueRecord, 0, len(s.venues))
	for _, v := range s.venues {
		out = append(out, venueRecord{
			Venue:     v.Name,
			Zone:      v.ZoneName,
			Address:   v.Address,
			Latitude:  v.Latitude,
			Longitude: v.Longitude,
			Geohash:   v.Geohash,
			InOKC:     v.InOKC,
			Sports:    nonNil(s.sportsByVenue[v.Name]),
		})
	}
	return out
}

type zoneRecord struct {
	Zone   string   `json:"zone"`
	Venues []string `json:"venues"`
}

func zonesJSON(s *snapshot) []zoneRecord {
	out := make([]zoneRecord, 0, len(s.zones))
	for _, z := range s.zones {
		out = append(out, zoneRecord{Zone: z.Name, Venues: nonNil(s.venuesByZone[z.Name])})
	}
	return out
}

func nonNil(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
