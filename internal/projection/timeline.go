package projection

import (
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"grocery-tracker/internal/week"
)

// DefaultHorizon is the number of weeks shown after the current one.
const DefaultHorizon = 4

// TimelineEntry is one week of a timeline; Offset 0 is the current week.
type TimelineEntry struct {
	WeekID week.ID   `json:"weekId"`
	Offset int       `json:"offset"`
	Stats  WeekStats `json:"stats"`
}

// BuildTimeline returns the week containing ref followed by horizon further
// weeks. Each entry's InventoryAtStart is the previous week's InventoryAtEnd;
// the first entry starts from the week before ref.
//
// Weeks are computed concurrently; every week depends only on the snapshot,
// so the result equals a sequential evaluation.
func (p *Projector) BuildTimeline(ref time.Time, horizon int) ([]TimelineEntry, error) {
	if horizon < 0 {
		return nil, fmt.Errorf("horizon must not be negative, got %d", horizon)
	}

	current := week.FromDate(ref)
	currentAbs, err := week.Absolute(current)
	if err != nil {
		return nil, err
	}

	// index 0 is the week before the current one
	stats := make([]WeekStats, horizon+2)
	var g errgroup.Group
	for i := range stats {
		g.Go(func() error {
			s, err := p.ComputeWeek(week.FromAbsolute(currentAbs + i - 1))
			if err != nil {
				return err
			}
			stats[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	timeline := make([]TimelineEntry, 0, horizon+1)
	for offset := 0; offset <= horizon; offset++ {
		s := stats[offset+1]
		s.InventoryAtStart = stats[offset].InventoryAtEnd
		timeline = append(timeline, TimelineEntry{
			WeekID: s.WeekID,
			Offset: offset,
			Stats:  s,
		})
	}
	return timeline, nil
}

// BuildTimeline is a one-shot helper around Projector.BuildTimeline.
func BuildTimeline(ref time.Time, horizon int, recs Records, opts Options) ([]TimelineEntry, error) {
	return New(recs, opts).BuildTimeline(ref, horizon)
}
