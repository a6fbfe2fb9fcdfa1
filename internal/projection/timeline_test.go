package projection

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grocery-tracker/internal/week"
)

func TestBuildTimeline(t *testing.T) {
	ref := time.Date(2025, time.March, 5, 18, 0, 0, 0, time.UTC) // 2025-W10
	p := New(milkScenario(), Options{IncludePendingOrders: true})

	timeline, err := p.BuildTimeline(ref, 4)
	require.NoError(t, err)
	require.Len(t, timeline, 5)

	want := []week.ID{"2025-W10", "2025-W11", "2025-W12", "2025-W13", "2025-W14"}
	for i, entry := range timeline {
		assert.Equal(t, i, entry.Offset)
		assert.Equal(t, want[i], entry.WeekID)
		assert.Equal(t, want[i], entry.Stats.WeekID)
	}

	assert.Empty(t, timeline[0].Stats.InventoryAtStart, "nothing was delivered before 2025-W10")
	for i := 1; i < len(timeline); i++ {
		assert.Equal(t, timeline[i-1].Stats.InventoryAtEnd, timeline[i].Stats.InventoryAtStart)
	}
	assert.Len(t, timeline[0].Stats.ConsumptionInWeek, 1)
	assert.Len(t, timeline[1].Stats.ConsumptionInWeek, 1)
	assert.Empty(t, timeline[2].Stats.ConsumptionInWeek)
}

func TestBuildTimelineMatchesSequentialEvaluation(t *testing.T) {
	recs := milkScenario()
	recs.Orders = append(recs.Orders, recs.Orders[0])
	recs.Orders[1].ID = "o2"
	recs.Orders[1].WeekID = "2025-W12"
	recs.Orders[1].EstDuration = 3

	p := New(recs, Options{IncludePendingOrders: true})
	ref := time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC)
	timeline, err := p.BuildTimeline(ref, 8)
	require.NoError(t, err)

	prev, err := p.ComputeWeek("2025-W09")
	require.NoError(t, err)
	for _, entry := range timeline {
		s, err := p.ComputeWeek(entry.WeekID)
		require.NoError(t, err)
		s.InventoryAtStart = prev.InventoryAtEnd
		assert.Equal(t, s, entry.Stats, entry.WeekID)
		prev = s
	}
}

func TestBuildTimelineAcrossYearBoundary(t *testing.T) {
	ref := time.Date(2024, time.December, 27, 12, 0, 0, 0, time.UTC)
	timeline, err := BuildTimeline(ref, 2, Records{}, Options{})
	require.NoError(t, err)
	require.Len(t, timeline, 3)
	assert.Equal(t, week.ID("2024-W52"), timeline[0].WeekID)
	assert.Equal(t, week.ID("2025-W01"), timeline[1].WeekID)
	assert.Equal(t, week.ID("2025-W02"), timeline[2].WeekID)
}

func TestBuildTimelineZeroHorizon(t *testing.T) {
	now := time.Now()
	timeline, err := BuildTimeline(now, 0, milkScenario(), Options{})
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, week.Current(now), timeline[0].WeekID)
}

func TestBuildTimelineRejectsNegativeHorizon(t *testing.T) {
	_, err := BuildTimeline(time.Now(), -1, Records{}, Options{})
	assert.Error(t, err)
}
