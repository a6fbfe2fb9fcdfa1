package projection

import (
	"github.com/shopspring/decimal"

	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

// SourceOrder marks consumption items projected from pending orders.
const SourceOrder = "order"

// stockEpsilon absorbs float noise in quantity sums.
const stockEpsilon = 1e-9

// ConsumptionItem is one batch being consumed during a week.
type ConsumptionItem struct {
	ID                 string          `json:"id"`
	SourceID           string          `json:"sourceId"`
	SourceType         string          `json:"sourceType"`
	DisplayName        string          `json:"displayName"`
	Qty                float64         `json:"qty"`
	Cost               decimal.Decimal `json:"cost"`
	WeeklyCost         decimal.Decimal `json:"weeklyCost"`
	StartDate          string          `json:"startDate"`
	Duration           int             `json:"duration"`
	EstDuration        int             `json:"estDuration"`
	EffDuration        *int            `json:"effDuration"`
	Completed          bool            `json:"completed"`
	WeeksSincePurchase int             `json:"weeksSincePurchase"`
	Projected          bool            `json:"projected"`
}

// InventoryLine is the stock of one product at a week boundary.
type InventoryLine struct {
	ProductID string  `json:"productId"`
	Name      string  `json:"name"`
	Stock     float64 `json:"stock"`
}

// WeekStats is everything shown for one week of the timeline.
type WeekStats struct {
	WeekID               week.ID           `json:"weekId"`
	Orders               []models.Order    `json:"orders"`
	OrderTotal           decimal.Decimal   `json:"orderTotal"`
	Deliveries           []models.Delivery `json:"deliveries"`
	DeliveryTotal        decimal.Decimal   `json:"deliveryTotal"`
	ConsumptionInWeek    []ConsumptionItem `json:"consumptionInWeek"`
	TotalConsumptionCost decimal.Decimal   `json:"totalConsumptionCost"`
	InventoryAtStart     []InventoryLine   `json:"inventoryAtStart,omitempty"`
	InventoryAtEnd       []InventoryLine   `json:"inventoryAtEnd"`
	Issues               []Issue           `json:"issues,omitempty"`
}

// ComputeWeek is a one-shot helper for callers that need a single week.
func ComputeWeek(id week.ID, recs Records, opts Options) (WeekStats, error) {
	return New(recs, opts).ComputeWeek(id)
}

// ComputeWeek returns the statistics of week id. It only fails when id itself
// is malformed.
func (p *Projector) ComputeWeek(id week.ID) (WeekStats, error) {
	targetAbs, err := week.Absolute(id)
	if err != nil {
		return WeekStats{}, err
	}

	stats := WeekStats{
		WeekID:            id,
		Orders:            []models.Order{},
		OrderTotal:        decimal.Zero,
		Deliveries:        []models.Delivery{},
		DeliveryTotal:     decimal.Zero,
		ConsumptionInWeek: []ConsumptionItem{},
		Issues:            p.Issues(),
	}

	for _, o := range p.recs.Orders {
		if abs, ok := p.orderAbs[o.ID]; ok && abs == targetAbs {
			stats.Orders = append(stats.Orders, o)
			stats.OrderTotal = stats.OrderTotal.Add(o.Total())
		}
	}
	for _, d := range p.recs.Deliveries {
		if abs, ok := p.deliveryAbs[d.ID]; ok && abs == targetAbs {
			stats.Deliveries = append(stats.Deliveries, d)
			stats.DeliveryTotal = stats.DeliveryTotal.Add(d.Total())
		}
	}

	stats.ConsumptionInWeek = p.activeConsumption(targetAbs)
	total := decimal.Zero
	for _, item := range stats.ConsumptionInWeek {
		total = total.Add(item.WeeklyCost)
	}
	stats.TotalConsumptionCost = total
	stats.InventoryAtEnd = p.inventoryAt(targetAbs)

	return stats, nil
}

func inWindow(target, start, duration int) bool {
	return target >= start && target <= start+duration-1
}

// activeConsumption lists the batches whose window covers targetAbs. The
// window length is the effective duration for completed records and the
// estimate for open ones; it never grows with elapsed time.
func (p *Projector) activeConsumption(targetAbs int) []ConsumptionItem {
	items := []ConsumptionItem{}

	for _, c := range p.recs.Consumption {
		startAbs, ok := p.consumptionAbs[c.ID]
		if !ok {
			continue
		}
		duration := c.Duration()
		if !inWindow(targetAbs, startAbs, duration) {
			continue
		}
		items = append(items, ConsumptionItem{
			ID:                 c.ID,
			SourceID:           c.SourceID,
			SourceType:         string(c.SourceType),
			DisplayName:        p.consumptionName(c),
			Qty:                c.Qty,
			Cost:               c.Cost,
			WeeklyCost:         c.Cost.Div(decimal.NewFromInt(int64(duration))),
			StartDate:          c.StartDate,
			Duration:           duration,
			EstDuration:        c.EstDuration,
			EffDuration:        c.EffDuration,
			Completed:          c.Completed,
			WeeksSincePurchase: targetAbs - startAbs + 1,
		})
	}

	if !p.opts.IncludePendingOrders {
		return items
	}

	for _, o := range p.recs.Orders {
		startAbs, ok := p.orderAbs[o.ID]
		if !ok || !p.isPending(o) {
			continue
		}
		if !inWindow(targetAbs, startAbs, o.EstDuration) {
			continue
		}
		name := p.DisplayName(o.ProductID)
		if name == "" {
			name = o.Name
		}
		cost := o.Total()
		items = append(items, ConsumptionItem{
			ID:                 "order-" + o.ID,
			SourceID:           o.ID,
			SourceType:         SourceOrder,
			DisplayName:        name,
			Qty:                o.Qty,
			Cost:               cost,
			WeeklyCost:         cost.Div(decimal.NewFromInt(int64(o.EstDuration))),
			StartDate:          o.WeekID,
			Duration:           o.EstDuration,
			EstDuration:        o.EstDuration,
			WeeksSincePurchase: targetAbs - startAbs + 1,
			Projected:          true,
		})
	}

	return items
}

// inventoryAt projects end-of-week stock per product: everything received
// (and, in prospective mode, ordered) up to the week, minus batches whose
// window has closed by then. Open batches are assumed used up at the end of
// their estimated window; their stored fields are left untouched.
func (p *Projector) inventoryAt(targetAbs int) []InventoryLine {
	stock := make(map[string]float64, len(p.productIDs))

	for _, d := range p.recs.Deliveries {
		if abs, ok := p.deliveryAbs[d.ID]; ok && abs <= targetAbs {
			stock[d.ProductID] += d.Qty
		}
	}

	for _, c := range p.recs.Consumption {
		startAbs, ok := p.consumptionAbs[c.ID]
		if !ok {
			continue
		}
		d, ok := p.sourceDelivery(c)
		if !ok {
			continue
		}
		if startAbs+c.Duration()-1 <= targetAbs {
			stock[d.ProductID] -= c.Qty
		}
	}

	if p.opts.IncludePendingOrders {
		for _, o := range p.recs.Orders {
			abs, ok := p.orderAbs[o.ID]
			if !ok || !p.isPending(o) {
				continue
			}
			if abs <= targetAbs {
				stock[o.ProductID] += o.Qty
			}
			if abs+o.EstDuration-1 <= targetAbs {
				stock[o.ProductID] -= o.Qty
			}
		}
	}

	lines := []InventoryLine{}
	for _, id := range p.sortedProductIDs() {
		if s := stock[id]; s > stockEpsilon {
			lines = append(lines, InventoryLine{ProductID: id, Name: p.DisplayName(id), Stock: s})
		}
	}
	return lines
}
