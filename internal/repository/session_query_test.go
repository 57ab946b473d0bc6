package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionQueryFilters(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t)

	count := func(q SessionQuery) int64 {
		t.Helper()
		n, err := q.Count(ctx)
		require.NoError(t, err)
		return n
	}

	assert.EqualValues(t, 3, count(repo.Sessions()))
	assert.EqualValues(t, 2, count(repo.Sessions().BySport("Athletics")))
	assert.EqualValues(t, 2, count(repo.Sessions().ByVenue("LA Memorial Coliseum")))
	assert.EqualValues(t, 1, count(repo.Sessions().ByZone("Oklahoma City")))
	assert.EqualValues(t, 2, count(repo.Sessions().ByDay(2)))
	assert.EqualValues(t, 3, count(repo.Sessions().ByDays(1, 2)))
	assert.EqualValues(t, 2, count(repo.Sessions().ByDate(time.Date(2028, 7, 15, 0, 0, 0, 0, time.UTC))))
	assert.EqualValues(t, 2, count(repo.Sessions().Ticketed()))

	final, err := repo.Sessions().ByType("Final").First(ctx)
	require.NoError(t, err)
	require.NotNil(t, final)
	assert.Equal(t, "ATH02", final.Code)

	// ATH02 当地 07-15 18:00，UTC 已是 07-16
	utcDay, err := repo.Sessions().Between(
		time.Date(2028, 7, 15, 0, 0, 0, 0, time.UTC),
		time.Date(2028, 7, 15, 23, 59, 0, 0, time.UTC),
	).Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, utcDay, 1)
	assert.Equal(t, "SBL01", utcDay[0].Code)

	athletics := repo.Sessions().BySport("Athletics")
	assert.EqualValues(t, 1, count(athletics.ByDay(1)))
	assert.EqualValues(t, 2, count(athletics))

	none, err := repo.Sessions().BySport("Surfing").First(ctx)
	require.NoError(t, err)
	assert.Nil(t, none)
}

func TestSessionQueryOrderingAndRelations(t *testing.T) {
	ctx := context.Background()
	repo := seedRepo(t)

	list, err := repo.Sessions().Fetch(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, []string{"ATH01", "SBL01", "ATH02"}, []string{list[0].Code, list[1].Code, list[2].Code})

	latest, err := repo.Sessions().OrderByStart(true).First(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ATH02", latest.Code)
	assert.Empty(t, latest.Events)

	sbl, err := repo.Sessions().WithRelations().BySport("Softball").First(ctx)
	require.NoError(t, err)
	require.NotNil(t, sbl.Venue)
	require.NotNil(t, sbl.Venue.Zone)
	assert.Equal(t, "Oklahoma City", sbl.Venue.Zone.Name)
	require.NotNil(t, sbl.Sport)
	assert.Equal(t, "Softball", sbl.Sport.Name)
	require.Len(t, sbl.Events, 2)
	assert.Equal(t, 1, sbl.Events[0].OrderInSession)
	assert.Equal(t, 2, sbl.Events[1].OrderInSession)
}
