package projection

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

type HistoryView string

const (
	ViewOrders     HistoryView = "orders"
	ViewDeliveries HistoryView = "deliveries"
)

// HistoryRow is one order or delivery in the history list.
type HistoryRow struct {
	ID        string          `json:"id"`
	WeekID    string          `json:"weekId"`
	Name      string          `json:"name"`
	Qty       float64         `json:"qty"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
	Variant   string          `json:"variant,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}

// History lists orders or deliveries whose name or week id contains query
// (case-insensitive), newest first.
func (p *Projector) History(view HistoryView, query string) []HistoryRow {
	q := strings.ToLower(strings.TrimSpace(query))
	matches := func(name, weekID string) bool {
		return q == "" || strings.Contains(strings.ToLower(name), q) || strings.Contains(strings.ToLower(weekID), q)
	}

	rows := []HistoryRow{}
	switch view {
	case ViewOrders:
		for _, o := range p.recs.Orders {
			name := o.Name
			if name == "" {
				name = p.DisplayName(o.ProductID)
			}
			if matches(name, o.WeekID) {
				rows = append(rows, HistoryRow{ID: o.ID, WeekID: o.WeekID, Name: name, Qty: o.Qty, Price: o.Price, Total: o.Total(), CreatedAt: o.CreatedAt})
			}
		}
	default:
		for _, d := range p.recs.Deliveries {
			name := d.Name
			if name == "" {
				name = p.DisplayName(d.ProductID)
			}
			if matches(name, d.WeekID) {
				rows = append(rows, HistoryRow{ID: d.ID, WeekID: d.WeekID, Name: name, Qty: d.Qty, Price: d.Price, Total: d.Total(), Variant: d.Variant, CreatedAt: d.CreatedAt})
			}
		}
	}

	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].CreatedAt.After(rows[j].CreatedAt)
	})
	return rows
}

type WeekTotals struct {
	Orders      decimal.Decimal `json:"orders"`
	Deliveries  decimal.Decimal `json:"deliveries"`
	Consumption decimal.Decimal `json:"consumption"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
}

// WeekBucket groups the records that belong to one week: orders and
// deliveries by their week id, consumption by its start week.
type WeekBucket struct {
	WeekID      string               `json:"weekId"`
	Orders      []models.Order       `json:"orders"`
	Deliveries  []models.Delivery    `json:"deliveries"`
	Consumption []models.Consumption `json:"consumption"`
	Totals      WeekTotals           `json:"totals"`
}

// WeeklyHistory returns one bucket per week that has records, newest week
// first. Records with malformed week ids are left out (see Issues).
func (p *Projector) WeeklyHistory() []WeekBucket {
	buckets := make(map[int]*WeekBucket)
	get := func(abs int) *WeekBucket {
		b, ok := buckets[abs]
		if !ok {
			b = &WeekBucket{
				WeekID:      week.FromAbsolute(abs).String(),
				Orders:      []models.Order{},
				Deliveries:  []models.Delivery{},
				Consumption: []models.Consumption{},
				Totals:      WeekTotals{Orders: decimal.Zero, Deliveries: decimal.Zero, Consumption: decimal.Zero, GrandTotal: decimal.Zero},
			}
			buckets[abs] = b
		}
		return b
	}

	for _, o := range p.recs.Orders {
		if abs, ok := p.orderAbs[o.ID]; ok {
			b := get(abs)
			b.Orders = append(b.Orders, o)
			b.Totals.Orders = b.Totals.Orders.Add(o.Total())
		}
	}
	for _, d := range p.recs.Deliveries {
		if abs, ok := p.deliveryAbs[d.ID]; ok {
			b := get(abs)
			b.Deliveries = append(b.Deliveries, d)
			b.Totals.Deliveries = b.Totals.Deliveries.Add(d.Total())
		}
	}
	for _, c := range p.recs.Consumption {
		if abs, ok := p.consumptionAbs[c.ID]; ok {
			b := get(abs)
			b.Consumption = append(b.Consumption, c)
			b.Totals.Consumption = b.Totals.Consumption.Add(c.Cost)
		}
	}

	abss := make([]int, 0, len(buckets))
	for abs := range buckets {
		abss = append(abss, abs)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(abss)))

	out := make([]WeekBucket, 0, len(abss))
	for _, abs := range abss {
		b := buckets[abs]
		b.Totals.GrandTotal = b.Totals.Orders.Add(b.Totals.Deliveries).Add(b.Totals.Consumption)
		sort.SliceStable(b.Orders, func(i, j int) bool { return b.Orders[i].CreatedAt.After(b.Orders[j].CreatedAt) })
		sort.SliceStable(b.Deliveries, func(i, j int) bool { return b.Deliveries[i].CreatedAt.After(b.Deliveries[j].CreatedAt) })
		sort.SliceStable(b.Consumption, func(i, j int) bool { return b.Consumption[i].CreatedAt.After(b.Consumption[j].CreatedAt) })
		out = append(out, *b)
	}
	return out
}
