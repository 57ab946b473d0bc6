package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"testing"

	"LA28Sync/internal/config"
	"LA28Sync/internal/database"
	"LA28Sync/internal/model"
	"LA28Sync/internal/parsing"
	"LA28Sync/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// seedRepo 两个时段：ATH01（洛杉矶，两项赛事）与 SBL01（OKC，一项赛事），场馆已有经纬度
func seedRepo(t *testing.T) repository.ScheduleRepository {
	t.Helper()
	db, err := database.Open(&config.DatabaseConfig{
		Driver:   database.DriverSQLite,
		DSN:      filepath.Join(t.TempDir(), "la28.db"),
		LogLevel: "silent",
	}, quietLogger())
	require.NoError(t, err)
	require.NoError(t, database.Init(db))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	repo := repository.NewScheduleRepository(db)

	n, err := parsing.NewNormalizer(&config.ScheduleConfig{
		Year:              2028,
		PrimaryTimezone:   "America/Los_Angeles",
		SecondaryTimezone: "America/Chicago",
		SecondaryMarker:   "(CT)",
		NotTicketedMarker: "Not Ticketed",
	})
	require.NoError(t, err)

	rows := []model.RawScheduleRow{
		{
			Sport: "Athletics", Venue: "LA Memorial Coliseum", Zone: "Exposition Park",
			SessionCode: "ATH01", Date: "Friday, July 14", GamesDay: "1",
			StartTime: "09:00", EndTime: "12:00",
			Description: "Men's 100m Heats\nWomen's 100m Final",
		},
		{
			Sport: "Softball", Venue: "OKC Softball Park", Zone: "Oklahoma City",
			SessionCode: "SBL01", Date: "Saturday, July 15", GamesDay: "2",
			SessionType: "Gold Medal", StartTime: "11:00\n(CT)", EndTime: "14:00\n(CT)",
			Description: "Women's Gold Medal Game",
		},
	}
	ctx := testContext(t)
	for i, raw := range rows {
		row, err := n.Normalize(i, raw)
		require.NoError(t, err)
		require.NoError(t, repo.SaveRow(ctx, row))
	}

	sessions, err := repo.ListSessions(ctx)
	require.NoError(t, err)
	events, err := repo.ListEvents(ctx)
	require.NoError(t, err)
	for i, e := range events {
		e.EventNumber = i + 1
	}
	for i, s := range sessions {
		s.SessionNumber = i + 1
	}
	require.NoError(t, repo.SaveNumbering(ctx, sessions, events))

	lat, lng, addr := 34.0141, -118.2879, "3911 S Figueroa St"
	require.NoError(t, repo.UpdateVenueGeo(ctx, &model.Venue{Name: "LA Memorial Coliseum", Address: &addr, Latitude: &lat, Longitude: &lng}))
	return repo
}

func TestExportAllCounts(t *testing.T) {
	repo := seedRepo(t)
	dir := filepath.Join(t.TempDir(), "out")
	exp := NewExporter(repo, &config.ExportConfig{Indent: 2}, quietLogger())

	counts, err := exp.ExportAll(testContext(t), dir)
	require.NoError(t, err)

	want := map[string]int{
		"sessions.json": 2, "sessions.csv": 2,
		"events.json": 3, "events.csv": 3,
		"sports.json": 2, "sports.csv": 2,
		"venues.json": 2, "venues.csv": 2,
		"zones.json": 2, "zones.csv": 2,
		"schedule.json": 3, "schedule.csv": 3,
		"la28.xlsx/Sessions": 2, "la28.xlsx/Events": 3, "la28.xlsx/Schedule": 3,
		"la28.xlsx/Sports": 2, "la28.xlsx/Venues": 2, "la28.xlsx/Zones": 2,
	}
	assert.Equal(t, want, counts)
	for name := range want {
		if filepath.Dir(name) == "la28.xlsx" {
			continue
		}
		assert.FileExists(t, filepath.Join(dir, name))
	}
}

func TestExportSessionsJSON(t *testing.T) {
	repo := seedRepo(t)
	dir := t.TempDir()
	_, err := NewExporter(repo, &config.ExportConfig{Indent: 2}, quietLogger()).ExportAll(testContext(t), dir)
	require.NoError(t, err)

	data, err := os.ReadFile(filepath.Join(dir, "sessions.json"))
	require.NoError(t, err)
	var sessions []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &sessions))
	require.Len(t, sessions, 2)

	ath := sessions[0]
	assert.Equal(t, "ATH01", ath["code"])
	assert.Equal(t, "Exposition Park", ath["zone"])
	assert.Equal(t, "2028-07-14T09:00:00-07:00", ath["startsAt"])
	assert.EqualValues(t, 180, ath["durationMinutes"])
	assert.Len(t, ath["events"], 2)

	sbl := sessions[1]
	assert.Equal(t, true, sbl["inOKC"])
	assert.Equal(t, "2028-07-15T11:00:00-05:00", sbl["startsAt"])
}

func TestExportVenuesCSV(t *testing.T) {
	repo := seedRepo(t)
	dir := t.TempDir()
	_, err := NewExporter(repo, nil, quietLogger()).ExportAll(testContext(t), dir)
	require.NoError(t, err)

	f, err := os.Open(filepath.Join(dir, "venues.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "venue", records[0][0])
	assert.Equal(t, []string{"LA Memorial Coliseum", "Exposition Park", "3911 S Figueroa St", "", "34.0141", "-118.2879", "", "false", "Athletics"}, records[1])
	assert.Equal(t, "true", records[2][7])
}

func TestExportWorkbookLinks(t *testing.T) {
	repo := seedRepo(t)
	dir := t.TempDir()
	_, err := NewExporter(repo, nil, quietLogger()).ExportAll(testContext(t), dir)
	require.NoError(t, err)

	f, err := excelize.OpenFile(filepath.Join(dir, WorkbookName))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{SheetSessions, SheetEvents, SheetSchedule, SheetSports, SheetVenues, SheetZones}, f.GetSheetList())

	header, err := f.GetCellValue(SheetSessions, "A1")
	require.NoError(t, err)
	assert.Equal(t, "code", header)

	// Sessions!C2 链接到 Sports 工作表中 Athletics 所在行
	ok, target, err := f.GetCellHyperLink(SheetSessions, "C2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "Sports!A2", target)

	// 有经纬度的场馆带外部地图链接，没有的为空
	ok, target, err = f.GetCellHyperLink(SheetSchedule, "N2")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Contains(t, target, "google.com/maps")
	ok, _, err = f.GetCellHyperLink(SheetSchedule, "N4")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestExportSchedule(t *testing.T) {
	repo := seedRepo(t)
	path := filepath.Join(t.TempDir(), "nested", "okc.json")
	n, err := NewExporter(repo, nil, quietLogger()).ExportSchedule(testContext(t), repo.Query().InOKC(), path)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var rows []model.ScheduleView
	require.NoError(t, json.Unmarshal(data, &rows))
	require.Len(t, rows, 1)
	assert.Equal(t, "SBL01", rows[0].SessionCode)
	assert.Nil(t, rows[0].GoogleMapsURL)
}

// testContext stands in for t.Context (Go 1.24+): cancelled when the test ends.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
