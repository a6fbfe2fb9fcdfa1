package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type SourceType string

const (
	SourceDelivery SourceType = "delivery"
	SourceAdhoc    SourceType = "adhoc"
)

func (s SourceType) Valid() bool {
	return s == SourceDelivery || s == SourceAdhoc
}

// Consumption: the depletion period of a delivered or otherwise acquired
// batch. Cost is the total cost of the batch, not a unit price.
type Consumption struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	SourceID    string          `gorm:"size:36;index;not null" json:"sourceId"`
	SourceType  SourceType      `gorm:"size:20;not null" json:"sourceType"`
	Name        string          `gorm:"size:100" json:"name"`
	Qty         float64         `gorm:"not null" json:"qty"`
	Cost        decimal.Decimal `gorm:"type:decimal(14,4);not null" json:"cost"`
	StartDate   string          `gorm:"size:8;index;not null" json:"startDate"` // week id
	EstDuration int             `gorm:"not null;default:1" json:"estDuration"`
	EffDuration *int            `json:"effDuration"` // actual weeks, set on completion
	Completed   bool            `gorm:"not null;default:false;index" json:"completed"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Duration is the length of the consumption window in weeks: the effective
// duration once completed, the estimate otherwise.
func (c Consumption) Duration() int {
	if c.Completed && c.EffDuration != nil {
		return *c.EffDuration
	}
	return c.EstDuration
}

func (c Consumption) Validate() error {
	if c.SourceID == "" {
		return fmt.Errorf("%w: sourceId is required", ErrInvalidRecord)
	}
	if !c.SourceType.Valid() {
		return fmt.Errorf("%w: sourceType must be %q or %q", ErrInvalidRecord, SourceDelivery, SourceAdhoc)
	}
	if err := validateWeekID(c.StartDate); err != nil {
		return err
	}
	if c.Cost.IsNegative() {
		return fmt.Errorf("%w: cost cannot be negative", ErrInvalidRecord)
	}
	if c.EstDuration < 1 {
		return fmt.Errorf("%w: estDuration must be at least 1", ErrInvalidRecord)
	}
	if c.EffDuration != nil {
		if *c.EffDuration < 1 {
			return fmt.Errorf("%w: effDuration must be at least 1", ErrInvalidRecord)
		}
		if !c.Completed {
			return fmt.Errorf("%w: effDuration is only allowed on completed consumption", ErrInvalidRecord)
		}
	}
	return nil
}
