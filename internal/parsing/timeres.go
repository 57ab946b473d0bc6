package parsing

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"LA28Sync/internal/config"
)

const tbdMarker = "TBD"

// ResolvedTimes 一个时段的起止时间（当地时区）
type ResolvedTimes struct {
	Date      time.Time // 当地零点
	Start     time.Time
	End       time.Time
	Timezone  string // IANA 时区名
	Secondary bool   // 是否第二城市时区（OKC）
	TBD       bool   // 开始时间待定，使用全天占位
}

// DateKey 赛程日期 YYYY-MM-DD
func (r *ResolvedTimes) DateKey() string { return r.Date.Format("2006-01-02") }

// TimeResolver 把日期字符串 + 时间单元格解析成带时区的起止时间
type TimeResolver struct {
	year      int
	primary   *time.Location
	secondary *time.Location
	marker    string
}

// NewTimeResolver 按配置加载主/副时区
func NewTimeResolver(cfg *config.ScheduleConfig) (*TimeResolver, error) {
	primary, err := time.LoadLocation(cfg.PrimaryTimezone)
	if err != nil {
		return nil, fmt.Errorf("加载主时区%s失败: %w", cfg.PrimaryTimezone, err)
	}
	secondary, err := time.LoadLocation(cfg.SecondaryTimezone)
	if err != nil {
		return nil, fmt.Errorf("加载副时区%s失败: %w", cfg.SecondaryTimezone, err)
	}
	if cfg.Year <= 0 {
		return nil, errors.New("赛事年份未配置")
	}
	return &TimeResolver{
		year:      cfg.Year,
		primary:   primary,
		secondary: secondary,
		marker:    cfg.SecondaryMarker,
	}, nil
}

// timeCell 单元格首行为 HH:MM 或 TBD，后续行可能带时区标记
type timeCell struct {
	clock     string
	tbd       bool
	secondary bool
}

func (r *TimeResolver) parseCell(cell string) timeCell {
	lines := strings.Split(strings.ReplaceAll(cell, "\r\n", "\n"), "\n")
	tc := timeCell{clock: strings.TrimSpace(lines[0])}
	tc.tbd = tc.clock == tbdMarker
	if r.marker != "" {
		for _, line := range lines[1:] {
			if strings.Contains(line, r.marker) {
				tc.secondary = true
				break
			}
		}
	}
	return tc
}

// Resolve 解析日期与起止时间。
// 开始为 TBD 时忽略结束单元格，使用当天 00:00–23:59；结束早于开始视为跨午夜。
func (r *TimeResolver) Resolve(dateText, startCell, endCell string) (*ResolvedTimes, error) {
	start := r.parseCell(startCell)
	end := r.parseCell(endCell)

	loc, name := r.primary, r.primary.String()
	secondary := start.secondary || end.secondary
	if secondary {
		loc, name = r.secondary, r.secondary.String()
	}

	date, err := r.parseDate(dateText, loc)
	if err != nil {
		return nil, malformed("Date", err)
	}

	out := &ResolvedTimes{Date: date, Timezone: name, Secondary: secondary}
	if start.tbd {
		out.TBD = true
		out.Start = at(date, 0, 0)
		out.End = at(date, 23, 59)
		return out, nil
	}

	sh, sm, err := parseClock(start.clock)
	if err != nil {
		return nil, malformed("Start Time", err)
	}
	out.Start = at(date, sh, sm)

	if end.tbd {
		out.End = at(date, 23, 59)
		return out, nil
	}
	eh, em, err := parseClock(end.clock)
	if err != nil {
		return nil, malformed("End Time", err)
	}
	out.End = at(date, eh, em)
	switch {
	case out.End.Before(out.Start):
		out.End = at(date.AddDate(0, 0, 1), eh, em)
	case out.End.Equal(out.Start):
		return nil, malformed("End Time", fmt.Errorf("结束时间%s不晚于开始时间%s", end.clock, start.clock))
	}
	return out, nil
}

// parseDate "Saturday, July 15" + 年份 → 当地零点
func (r *TimeResolver) parseDate(text string, loc *time.Location) (time.Time, error) {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return time.Time{}, errors.New("日期为空")
	}
	t, err := time.ParseInLocation("Monday, January 2 2006", text+" "+strconv.Itoa(r.year), loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("解析日期%q失败: %w", text, err)
	}
	return t, nil
}

func parseClock(s string) (int, int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, 0, fmt.Errorf("解析时间%q失败: %w", s, err)
	}
	return t.Hour(), t.Minute(), nil
}

func at(date time.Time, hour, minute int) time.Time {
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, date.Location())
}
