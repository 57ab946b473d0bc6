package service

import (
	"context"
	"io"
	"path/filepath"
	"testing"

	"LA28Sync/internal/config"
	"LA28Sync/internal/database"
	"LA28Sync/internal/model"
	"LA28Sync/internal/repository"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func newTestRepo(t *testing.T) repository.ScheduleRepository {
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
	return repository.NewScheduleRepository(db)
}

func testScheduleConfig() *config.ScheduleConfig {
	return &config.ScheduleConfig{
		Source:            "file",
		Year:              2028,
		PrimaryTimezone:   "America/Los_Angeles",
		SecondaryTimezone: "America/Chicago",
		SecondaryMarker:   "(CT)",
		NotTicketedMarker: "Not Ticketed",
	}
}

// fixtureRows 三个时段共六个赛事：
// ATH01 07-14 16:00Z，SBL01 07-15 16:00Z，ATH02 07-16 01:00Z（当地 07-15 18:00）
func fixtureRows() []model.RawScheduleRow {
	return []model.RawScheduleRow{
		{
			Sport: "Athletics", Venue: "LA Memorial Coliseum", Zone: "Exposition Park",
			SessionCode: "ATH02", Date: "Saturday, July 15", GamesDay: "2",
			SessionType: "Final", StartTime: "18:00", EndTime: "21:00",
			Description: "Women's 100m Final B\nWomen's 100m Final\nMen's 4x100m Relay Semifinal",
		},
		{
			Sport: "Athletics", Venue: "LA Memorial Coliseum", Zone: "Exposition Park",
			SessionCode: "ATH01", Date: "Friday, July 14", GamesDay: "1",
			SessionType: "Preliminary", StartTime: "09:00", EndTime: "12:00",
			Description: "Not Ticketed\nMen's 100m Heats",
		},
		{
			Sport: "Softball", Venue: "OKC Softball Park", Zone: "Oklahoma City",
			SessionCode: "SBL01", Date: "Saturday, July 15", GamesDay: "2",
			SessionType: "Bronze Medal", StartTime: "11:00\n(CT)", EndTime: "14:00\n(CT)",
			Description: "Women's Bronze Medal Game\nWomen's Gold Medal Game",
		},
	}
}

// seedService 导入 fixtureRows 并完成编号
func seedService(t *testing.T) repository.ScheduleRepository {
	t.Helper()
	repo := newTestRepo(t)
	svc, err := NewIngestService(testScheduleConfig(), repo, quietLogger())
	require.NoError(t, err)
	_, err = svc.IngestRows(testContext(t), "fixture", fixtureRows())
	require.NoError(t, err)
	return repo
}

func floatPtr(f float64) *float64 { return &f }

func strPtr(s string) *string { return &s }

// testContext stands in for t.Context (Go 1.24+): cancelled when the test ends.
func testContext(t *testing.T) context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	return ctx
}
