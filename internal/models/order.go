package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Order: intent to acquire goods in a given week.
type Order struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	ProductID   string          `gorm:"size:36;index;not null" json:"productId"`
	Name        string          `gorm:"size:100" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"` // unit price
	Qty         float64         `gorm:"not null" json:"qty"`
	WeekID      string          `gorm:"size:8;index;not null" json:"weekId"`
	EstDuration int             `gorm:"not null;default:1" json:"estDuration"` // weeks the goods should last
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// Total is price × qty.
func (o Order) Total() decimal.Decimal {
	return o.Price.Mul(decimal.NewFromFloat(o.Qty))
}

func (o Order) Validate() error {
	if o.ProductID == "" {
		return fmt.Errorf("%w: productId is required", ErrInvalidRecord)
	}
	if err := validateWeekID(o.WeekID); err != nil {
		return err
	}
	if o.Qty <= 0 {
		return fmt.Errorf("%w: qty must be greater than 0", ErrInvalidRecord)
	}
	if o.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidRecord)
	}
	if o.EstDuration < 1 {
		return fmt.Errorf("%w: estDuration must be at least 1", ErrInvalidRecord)
	}
	return nil
}
