package projection

import (
	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

// DueForCompletion returns the open consumption records whose estimated
// window ended before the current week. The depletion sweep marks them
// completed with effDuration = estDuration.
func (p *Projector) DueForCompletion(current week.ID) ([]models.Consumption, error) {
	currentAbs, err := week.Absolute(current)
	if err != nil {
		return nil, err
	}
	var due []models.Consumption
	for _, c := range p.recs.Consumption {
		if c.Completed {
			continue
		}
		startAbs, ok := p.consumptionAbs[c.ID]
		if !ok {
			continue
		}
		if currentAbs > startAbs+c.EstDuration-1 {
			due = append(due, c)
		}
	}
	return due, nil
}
