package export

import (
	"fmt"
	"time"

	"LA28Sync/internal/model"

	"github.com/xuri/excelize/v2"
)

// 工作表顺序
const (
	SheetSessions = "Sessions"
	SheetEvents   = "Events"
	SheetSchedule = "Schedule"
	SheetSports   = "Sports"
	SheetVenues   = "Venues"
	SheetZones    = "Zones"
)

const maxColWidth = 50

type cellKind int

const (
	kindText cellKind = iota
	kindInt
	kindDate
)

// xcell 一个单元格；link 非空时写成超链接（内部位置如 Sports!A2，或外部 URL）
type xcell struct {
	value    interface{}
	kind     cellKind
	link     string
	external bool
}

type sheetData struct {
	name   string
	header []string
	rows   [][]xcell
	lists  map[int][]string // 列号(从1开始) → 下拉选项
}

type workbookStyles struct {
	header int
	body   int
	link   int
	date   int
	number int
}

const borderColor = "D9D9D9"

func newStyles(f *excelize.File) (*workbookStyles, error) {
	border := []excelize.Border{
		{Type: "left", Color: borderColor, Style: 1},
		{Type: "right", Color: borderColor, Style: 1},
		{Type: "top", Color: borderColor, Style: 1},
		{Type: "bottom", Color: borderColor, Style: 1},
	}
	dateFmt := "yyyy-mm-dd hh:mm"
	numFmt := "0"

	var st workbookStyles
	var err error
	if st.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	}); err != nil {
		return nil, err
	}
	if st.body, err = f.NewStyle(&excelize.Style{Border: border}); err != nil {
		return nil, err
	}
	if st.link, err = f.NewStyle(&excelize.Style{
		Border: border,
		Font:   &excelize.Font{Color: "0563C1", Underline: "single"},
	}); err != nil {
		return nil, err
	}
	if st.date, err = f.NewStyle(&excelize.Style{Border: border, CustomNumFmt: &dateFmt}); err != nil {
		return nil, err
	}
	if st.number, err = f.NewStyle(&excelize.Style{Border: border, CustomNumFmt: &numFmt}); err != nil {
		return nil, err
	}
	return &st, nil
}

// writeWorkbook 写出多工作表 XLSX，返回每个工作表的数据行数
func writeWorkbook(path string, s *snapshot) (map[string]int, error) {
	f := excelize.NewFile()
	defer f.Close()

	styles, err := newStyles(f)
	if err != nil {
		return nil, fmt.Errorf("创建表格样式失败: %w", err)
	}

	sheets := []sheetData{
		sessionsSheet(s),
		eventsSheet(s),
		scheduleSheet(s),
		sportsSheet(s),
		venuesSheet(s),
		zonesSheet(s),
	}
	counts := make(map[string]int, len(sheets))
	for i, sd := range sheets {
		if i == 0 {
			if err := f.SetSheetName("Sheet1", sd.name); err != nil {
				return nil, err
			}
		} else if _, err := f.NewSheet(sd.name); err != nil {
			return nil, err
		}
		if err := writeSheet(f, styles, sd); err != nil {
			return nil, fmt.Errorf("写入工作表%s失败: %w", sd.name, err)
		}
		counts[sd.name] = len(sd.rows)
	}
	f.SetActiveSheet(0)

	if err := f.SaveAs(path); err != nil {
		return nil, fmt.Errorf("保存%s失败: %w", path, err)
	}
	return counts, nil
}

func writeSheet(f *excelize.File, st *workbookStyles, sd sheetData) error {
	widths := make([]int, len(sd.header))
	for i, h := range sd.header {
		widths[i] = len(h)
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(sd.name, cell, h); err != nil {
			return err
		}
	}
	lastCol, _ := excelize.ColumnNumberToName(len(sd.header))
	if err := f.SetCellStyle(sd.name, "A1", lastCol+"1", st.header); err != nil {
		return err
	}

	for r, row := range sd.rows {
		for c, x := range row {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if x.value == nil {
				if err := f.SetCellStyle(sd.name, cell, cell, st.body); err != nil {
					return err
				}
				continue
			}
			if err := f.SetCellValue(sd.name, cell, x.value); err != nil {
				return err
			}
			style := st.body
			switch {
			case x.link != "":
				linkType := "Location"
				if x.external {
					linkType = "External"
				}
				if err := f.SetCellHyperLink(sd.name, cell, x.link, linkType); err != nil {
					return err
				}
				style = st.link
			case x.kind == kindDate:
				style = st.date
			case x.kind == kindInt:
				style = st.number
			}
			if err := f.SetCellStyle(sd.name, cell, cell, style); err != nil {
				return err
			}
			if w := displayWidth(x); w > widths[c] {
				widths[c] = w
			}
		}
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := w + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(sd.name, col, col, float64(width)); err != nil {
			return err
		}
	}

	if err := f.SetPanes(sd.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return err
	}

	lastRow := len(sd.rows) + 1
	if len(sd.rows) > 0 {
		if err := f.AutoFilter(sd.name, fmt.Sprintf("A1:%s%d", lastCol, lastRow), nil); err != nil {
			return err
		}
	}
	for col, options := range sd.lists {
		if len(sd.rows) == 0 {
			break
		}
		name, _ := excelize.ColumnNumberToName(col)
		dv := excelize.NewDataValidation(true)
		dv.Sqref = fmt.Sprintf("%s2:%s%d", name, name, lastRow)
		if err := dv.SetDropList(options); err != nil {
			return err
		}
		if err := f.AddDataValidation(sd.name, dv); err != nil {
			return err
		}
	}
	return nil
}

func displayWidth(x xcell) int {
	switch v := x.value.(type) {
	case string:
		return len([]rune(v))
	case time.Time:
		return 16
	default:
		return len(fmt.Sprint(v))
	}
}

func text(s string) xcell { return xcell{value: s} }

func optText(s *string) xcell {
	if s == nil {
		return xcell{}
	}
	return xcell{value: *s}
}

func number(n int) xcell { return xcell{value: n, kind: kindInt} }

func optFloat(f *float64) xcell {
	if f == nil {
		return xcell{}
	}
	return xcell{value: *f}
}

// wallClock Excel 没有时区，按当地挂钟时间写入
func wallClock(t time.Time) xcell {
	return xcell{
		value: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.UTC),
		kind:  kindDate,
	}
}

// internalLink 指向另一工作表 A 列的单元格；目标不存在时退回纯文本
func internalLink(value, sheet string, rows map[string]int) xcell {
	row, ok := rows[value]
	if !ok || value == "" {
		return text(value)
	}
	return xcell{value: value, link: fmt.Sprintf("%s!A%d", sheet, row)}
}

func externalLink(label string, url *string) xcell {
	if url == nil {
		return xcell{}
	}
	return xcell{value: label, link: *url, external: true}
}

// rowIndex 名称 → 工作表行号（表头占第 1 行）
func rowIndex(names []string) map[string]int {
	idx := make(map[string]int, len(names))
	for i, n := range names {
		idx[n] = i + 2
	}
	return idx
}

type sheetLinks struct {
	sports, venues, zones, sessions map[string]int
}

func links(s *snapshot) sheetLinks {
	names := func(n int, get func(int) string) []string {
		out := make([]string, n)
		for i := range out {
			out[i] = get(i)
		}
		return out
	}
	return sheetLinks{
		sports:   rowIndex(names(len(s.sports), func(i int) string { return s.sports[i].Name })),
		venues:   rowIndex(names(len(s.venues), func(i int) string { return s.venues[i].Name })),
		zones:    rowIndex(names(len(s.zones), func(i int) string { return s.zones[i].Name })),
		sessions: rowIndex(names(len(s.sessions), func(i int) string { return s.sessions[i].Code })),
	}
}

func eventTypeOptions() []string {
	seeds := model.DefaultEventTypes()
	out := make([]string, 0, len(seeds))
	for _, t := range seeds {
		out = append(out, t.Type)
	}
	return out
}

var sexOptions = []string{model.SexMen, model.SexWomen, model.SexMixed, model.SexAndOr, model.SexOr}

func sessionsSheet(s *snapshot) sheetData {
	l := links(s)
	sd := sheetData{
		name: SheetSessions,
		header: []string{"code", "day", "sport", "venue", "zone", "type", "starts_at", "ends_at",
			"timezone", "duration_min", "ticketed", "in_okc", "num_events"},
	}
	for _, sess := range s.sessions {
		sd.rows = append(sd.rows, []xcell{
			text(sess.Code),
			number(sess.Day),
			internalLink(sess.SportName, SheetSports, l.sports),
			internalLink(sess.VenueName, SheetVenues, l.venues),
			internalLink(s.zoneOf(sess.VenueName), SheetZones, l.zones),
			optText(sess.Type),
			wallClock(sess.LocalStart()),
			wallClock(sess.LocalEnd()),
			text(sess.Timezone),
			number(sess.DurationMinutes()),
			{value: sess.Ticketed},
			{value: s.inOKC(sess.VenueName)},
			number(len(s.eventsBySession[sess.Code])),
		})
	}
	return sd
}

func eventsSheet(s *snapshot) sheetData {
	l := links(s)
	sd := sheetData{
		name: SheetEvents,
		header: []string{"event_number", "code", "day", "sport", "venue", "zone", "starts_at",
			"sex", "description", "type", "order", "total"},
		lists: map[int][]string{8: sexOptions, 10: eventTypeOptions()},
	}
	for _, ev := range s.events {
		row := []xcell{
			number(ev.EventNumber),
			internalLink(ev.SessionCode, SheetSessions, l.sessions),
			{}, {}, {}, {}, {},
			text(ev.Sex),
			text(ev.Description),
			optText(ev.Type),
			number(ev.OrderInSession),
			number(ev.TotalInSession),
		}
		if sess, ok := s.sessionByCode[ev.SessionCode]; ok {
			row[2] = number(sess.Day)
			row[3] = internalLink(sess.SportName, SheetSports, l.sports)
			row[4] = internalLink(sess.VenueName, SheetVenues, l.venues)
			row[5] = internalLink(s.zoneOf(sess.VenueName), SheetZones, l.zones)
			row[6] = wallClock(sess.LocalStart())
		}
		sd.rows = append(sd.rows, row)
	}
	return sd
}

func scheduleSheet(s *snapshot) sheetData {
	l := links(s)
	sd := sheetData{
		name: SheetSchedule,
		header: []string{"event_number", "session_code", "date", "starts_at", "ends_at", "sport", "venue",
			"zone", "sex", "type", "description", "ticketed", "in_okc", "google_maps", "apple_maps", "waze", "osm"},
	}
	for _, r := range s.schedule {
		sd.rows = append(sd.rows, []xcell{
			number(r.EventNumber),
			internalLink(r.SessionCode, SheetSessions, l.sessions),
			text(r.Date),
			wallClock(r.StartsAt),
			wallClock(r.EndsAt),
			internalLink(r.Sport, SheetSports, l.sports),
			internalLink(r.Venue, SheetVenues, l.venues),
			internalLink(r.Zone, SheetZones, l.zones),
			text(r.EventSex),
			optText(r.EventType),
			text(r.EventDescription),
			{value: r.Ticketed},
			{value: r.InOKC},
			externalLink("Google Maps", r.GoogleMapsURL),
			externalLink("Apple Maps", r.AppleMapsURL),
			externalLink("Waze", r.WazeURL),
			externalLink("OpenStreetMap", r.OSMURL),
		})
	}
	return sd
}

func sportsSheet(s *snapshot) sheetData {
	sd := sheetData{name: SheetSports, header: []string{"sport", "description", "icon", "num_venues"}}
	for _, sp := range s.sports {
		sd.rows = append(sd.rows, []xcell{
			text(sp.Name),
			optText(sp.Description),
			optText(sp.Icon),
			number(len(s.venuesBySport[sp.Name])),
		})
	}
	return sd
}

func venuesSheet(s *snapshot) sheetData {
	l := links(s)
	sd := sheetData{
		name:   SheetVenues,
		header: []string{"venue", "zone", "address", "capacity", "latitude", "longitude", "geohash", "in_okc", "num_sports", "map"},
	}
	for _, v := range s.venues {
		google, _, _, _ := model.MapLinks(v.Name, v.Latitude, v.Longitude)
		capacity := xcell{}
		if v.Capacity != nil {
			capacity = number(*v.Capacity)
		}
		sd.rows = append(sd.rows, []xcell{
			text(v.Name),
			internalLink(v.ZoneName, SheetZones, l.zones),
			optText(v.Address),
			capacity,
			optFloat(v.Latitude),
			optFloat(v.Longitude),
			optText(v.Geohash),
			{value: v.InOKC},
			number(len(s.sportsByVenue[v.Name])),
			externalLink("Google Maps", google),
		})
	}
	return sd
}

func zonesSheet(s *snapshot) sheetData {
	sd := sheetData{name: SheetZones, header: []string{"zone", "description", "num_venues"}}
	for _, z := range s.zones {
		sd.rows = append(sd.rows, []xcell{
			text(z.Name),
			optText(z.Description),
			number(len(s.venuesByZone[z.Name])),
		})
	}
	return sd
}
