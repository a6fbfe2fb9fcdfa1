package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Delivery: goods physically received. OrderID is nil for ad-hoc entries
// (gifts, existing stock). At most one delivery references a given order.
type Delivery struct {
	ID          string          `gorm:"primaryKey;size:36" json:"id"`
	OrderID     *string         `gorm:"size:36;uniqueIndex" json:"orderId"`
	ProductID   string          `gorm:"size:36;index;not null" json:"productId"`
	Name        string          `gorm:"size:100" json:"name"`
	Price       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"price"`
	Qty         float64         `gorm:"not null" json:"qty"`
	WeekID      string          `gorm:"size:8;index;not null" json:"weekId"`
	EstDuration int             `gorm:"not null;default:1" json:"estDuration"`
	Variant     string          `gorm:"size:255" json:"variant"` // free-text note
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

func (d Delivery) Total() decimal.Decimal {
	return d.Price.Mul(decimal.NewFromFloat(d.Qty))
}

// IsAdhoc reports whether the delivery was entered without an order.
func (d Delivery) IsAdhoc() bool {
	return d.OrderID == nil || *d.OrderID == ""
}

func (d Delivery) Validate() error {
	if d.ProductID == "" {
		return fmt.Errorf("%w: productId is required", ErrInvalidRecord)
	}
	if err := validateWeekID(d.WeekID); err != nil {
		return err
	}
	if d.Qty <= 0 {
		return fmt.Errorf("%w: qty must be greater than 0", ErrInvalidRecord)
	}
	if d.Price.IsNegative() {
		return fmt.Errorf("%w: price cannot be negative", ErrInvalidRecord)
	}
	if d.EstDuration < 1 {
		return fmt.Errorf("%w: estDuration must be at least 1", ErrInvalidRecord)
	}
	return nil
}
