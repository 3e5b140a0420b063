package transit

import (
	"testing"
	"time"

	"github.com/OneBusAway/go-gtfs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"siriproxy.transitrt.org/internal/testutil"
)

func demoModel(t *testing.T) *Model {
	t.Helper()
	static, err := gtfs.ParseStatic(testutil.DemoGTFS(t), gtfs.ParseStaticOptions{})
	require.NoError(t, err)
	model, err := NewModel(static)
	require.NoError(t, err)
	return model
}

func TestNewModelIndexes(t *testing.T) {
	model := demoModel(t)

	stopIdx, ok := model.StopPointIdxByID("EMSI")
	require.True(t, ok)
	assert.Equal(t, "E Main St / S Irving St (Demo)", model.StopPoints[stopIdx].Name)

	_, ok = model.StopPointIdxByID("UNKNOWN")
	assert.False(t, ok)

	vjIdx, ok := model.VehicleJourneyIdxByID("CITY1")
	require.True(t, ok)
	vj := model.VehicleJourneys[vjIdx]
	assert.Equal(t, "FULLW", vj.ServiceID)
	require.Len(t, vj.StopTimes, 5)
	assert.Equal(t, uint32(5), vj.StopTimes[4].Sequence)
	assert.Equal(t, 6*time.Hour+26*time.Minute, vj.StopTimes[4].Arrival)
	assert.Equal(t, 6*time.Hour+28*time.Minute, vj.StopTimes[4].Departure)
}

func TestNewModelSplitsRoutesPerDirection(t *testing.T) {
	model := demoModel(t)

	forward, ok := model.RouteIdxByID("CITY")
	require.True(t, ok)
	assert.Equal(t, 0, model.Routes[forward].DirectionID)
	assert.Equal(t, "CITY", model.Routes[forward].LineID)

	backward, ok := model.RouteIdxByID("CITY_R")
	require.True(t, ok)
	assert.Equal(t, 1, model.Routes[backward].DirectionID)
	assert.Equal(t, "CITY", model.Routes[backward].LineID)

	city1, _ := model.VehicleJourneyIdxByID("CITY1")
	city2, _ := model.VehicleJourneyIdxByID("CITY2")
	assert.Contains(t, model.VehicleJourneysOfRoute(forward), city1)
	assert.Contains(t, model.VehicleJourneysOfRoute(backward), city2)
}

func TestCalendarExpansion(t *testing.T) {
	model := demoModel(t)

	calendar, ok := model.Calendars["FULLW"]
	require.True(t, ok)
	assert.True(t, calendar.ActiveOn(NewDate(2018, time.December, 15)))
	assert.True(t, calendar.ActiveOn(NewDate(2019, time.December, 31)))
	assert.False(t, calendar.ActiveOn(NewDate(2020, time.January, 1)))
	assert.False(t, calendar.ActiveOn(NewDate(2017, time.December, 31)))
}

func TestTimezone(t *testing.T) {
	model := demoModel(t)

	tz, err := model.Timezone()
	require.NoError(t, err)
	assert.Equal(t, "America/Los_Angeles", tz.String())
}

func TestTimezoneMissing(t *testing.T) {
	model := &Model{Networks: []Network{{ID: "n", Name: "no tz"}}}
	_, err := model.Timezone()
	assert.ErrorIs(t, err, ErrNoTimezone)
}

func TestRoutesServingStop(t *testing.T) {
	model := demoModel(t)

	stopIdx, ok := model.StopPointIdxByID("BEATTY_AIRPORT")
	require.True(t, ok)

	var ids []string
	for _, routeIdx := range model.RoutesServingStop(stopIdx) {
		ids = append(ids, model.Routes[routeIdx].ID)
	}
	assert.ElementsMatch(t, []string{"AB", "STBA"}, ids)
}

func TestStopPointsInBox(t *testing.T) {
	model := demoModel(t)

	// a box around the town center, excluding the airport and Amargosa Valley
	found := model.StopPointsInBox(-116.8, 36.90, -116.74, 36.92)

	var ids []string
	for _, idx := range found {
		ids = append(ids, model.StopPoints[idx].ID)
	}
	assert.ElementsMatch(t, []string{"STAGECOACH", "NANAA", "NADAV", "DADAN", "EMSI"}, ids)

	// results come back in stable collection order
	for i := 1; i < len(found); i++ {
		assert.Less(t, int(found[i-1]), int(found[i]))
	}

	all := model.StopPointsInBox(-180, -90, 180, 90)
	assert.Len(t, all, len(model.StopPoints))
}
