package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type csvTable struct {
	name   string
	header []string
	rows   [][]string
}

func csvTables(s *snapshot) []csvTable {
	return []csvTable{
		sessionsCSV(s),
		eventsCSV(s),
		sportsCSV(s),
		venuesCSV(s),
		zonesCSV(s),
		scheduleCSV(s),
	}
}

func sessionsCSV(s *snapshot) csvTable {
	t := csvTable{
		name: "sessions.csv",
		header: []string{"code", "day", "date", "sport", "venue", "zone", "type", "starts_at", "ends_at",
			"timezone", "duration_minutes", "ticketed", "in_okc", "num_events", "session_number", "sport_session_number"},
	}
	for _, sess := range s.sessions {
		t.rows = append(t.rows, []string{
			sess.Code,
			strconv.Itoa(sess.Day),
			sess.Date,
			sess.SportName,
			sess.VenueName,
			s.zoneOf(sess.VenueName),
			str(sess.Type),
			isoTime(sess.LocalStart()),
			isoTime(sess.LocalEnd()),
			sess.Timezone,
			strconv.Itoa(sess.DurationMinutes()),
			strconv.FormatBool(sess.Ticketed),
			strconv.FormatBool(s.inOKC(sess.VenueName)),
			strconv.Itoa(len(s.eventsBySession[sess.Code])),
			strconv.Itoa(sess.SessionNumber),
			strconv.Itoa(sess.SportSessionNumber),
		})
	}
	return t
}

func eventsCSV(s *snapshot) csvTable {
	t := csvTable{
		name: "events.csv",
		header: []string{"code", "day", "sport", "venue", "zone", "starts_at", "sex", "description", "type",
			"order_in_session", "event_number", "sport_event_number"},
	}
	for _, ev := range s.events {
		var day, sport, venue, zone, start string
		if sess, ok := s.sessionByCode[ev.SessionCode]; ok {
			day = strconv.Itoa(sess.Day)
			sport, venue = sess.SportName, sess.VenueName
			zone = s.zoneOf(sess.VenueName)
			start = isoTime(sess.LocalStart())
		}
		t.rows = append(t.rows, []string{
			ev.SessionCode, day, sport, venue, zone, start,
			ev.Sex,
			ev.Description,
			str(ev.Type),
			strconv.Itoa(ev.OrderInSession),
			strconv.Itoa(ev.EventNumber),
			strconv.Itoa(ev.SportEventNumber),
		})
	}
	return t
}

func sportsCSV(s *snapshot) csvTable {
	t := csvTable{name: "sports.csv", header: []string{"sport", "description", "icon", "venues"}}
	for _, sp := range s.sports {
		t.rows = append(t.rows, []string{sp.Name, str(sp.Description), str(sp.Icon), strings.Join(s.venuesBySport[sp.Name], "; ")})
	}
	return t
}

func venuesCSV(s *snapshot) csvTable {
	t := csvTable{
		name:   "venues.csv",
		header: []string{"venue", "zone", "address", "capacity", "latitude", "longitude", "geohash", "in_okc", "sports"},
	}
	for _, v := range s.venues {
		t.rows = append(t.rows, []string{
			v.Name,
			v.ZoneName,
			str(v.Address),
			intStr(v.Capacity),
			floatStr(v.Latitude),
			floatStr(v.Longitude),
			str(v.Geohash),
			strconv.FormatBool(v.InOKC),
			strings.Join(s.sportsByVenue[v.Name], "; "),
		})
	}
	return t
}

func zonesCSV(s *snapshot) csvTable {
	t := csvTable{name: "zones.csv", header: []string{"zone", "description", "venues"}}
	for _, z := range s.zones {
		t.rows = append(t.rows, []string{z.Name, str(z.Description), strings.Join(s.venuesByZone[z.Name], "; ")})
	}
	return t
}

func scheduleCSV(s *snapshot) csvTable {
	t := csvTable{
		name: "schedule.csv",
		header: []string{"event_number", "session_code", "day", "date", "starts_at", "ends_at", "timezone",
			"sport", "venue", "zone", "in_okc", "ticketed", "sex", "event_type", "event_description",
			"order_in_session", "total_in_session", "latitude", "longitude", "google_maps_url"},
	}
	for _, r := range s.schedule {
		t.rows = append(t.rows, []string{
			strconv.Itoa(r.EventNumber),
			r.SessionCode,
			strconv.Itoa(r.Day),
			r.Date,
			isoTime(r.StartsAt),
			isoTime(r.EndsAt),
			r.Timezone,
			r.Sport,
			r.Venue,
			r.Zone,
			strconv.FormatBool(r.InOKC),
			strconv.FormatBool(r.Ticketed),
			r.EventSex,
			str(r.EventType),
			r.EventDescription,
			strconv.Itoa(r.OrderInSession),
			strconv.Itoa(r.TotalInSession),
			floatStr(r.VenueLatitude),
			floatStr(r.VenueLongitude),
			str(r.GoogleMapsURL),
		})
	}
	return t
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("创建%s失败: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("写入%s表头失败: %w", path, err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("写入%s失败: %w", path, err)
	}
	return f.Close()
}

func str(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func intStr(n *int) string {
	if n == nil {
		return ""
	}
	return strconv.Itoa(*n)
}

func floatStr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

func isoTime(t time.Time) string {
	return t.Format(time.RFC3339)
}
