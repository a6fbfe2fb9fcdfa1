package projection

import (
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

// Stock status thresholds, in units.
const lowStockBelow = 2

type StockStatus string

const (
	StatusOutOfStock StockStatus = "out_of_stock"
	StatusLowStock   StockStatus = "low_stock"
	StatusInStock    StockStatus = "in_stock"
)

func statusFor(stock float64) StockStatus {
	switch {
	case stock <= stockEpsilon:
		return StatusOutOfStock
	case stock < lowStockBelow:
		return StatusLowStock
	default:
		return StatusInStock
	}
}

// StockItem is the actual (not projected) stock of a product: everything
// delivered so far minus what was marked used up.
type StockItem struct {
	ProductID          string      `json:"productId"`
	Name               string      `json:"name"`
	Stock              float64     `json:"stock"`
	Delivered          float64     `json:"delivered"`
	Consumed           float64     `json:"consumed"`
	Status             StockStatus `json:"status"`
	WeeksSincePurchase *int        `json:"weeksSincePurchase"` // of the oldest delivery still in stock
	EstDuration        *int        `json:"estDuration"`
}

// completedBySource sums completed consumption per source delivery.
func (p *Projector) completedBySource() map[string]float64 {
	out := make(map[string]float64)
	for _, c := range p.recs.Consumption {
		if c.Completed && c.SourceID != "" {
			out[c.SourceID] += c.Qty
		}
	}
	return out
}

// CurrentInventory lists products with stock left as of the current week.
// Deliveries dated after current are not received yet and do not count.
func (p *Projector) CurrentInventory(current week.ID) ([]StockItem, error) {
	currentAbs, err := week.Absolute(current)
	if err != nil {
		return nil, err
	}
	consumed := p.completedBySource()

	byProduct := make(map[string][]*models.Delivery)
	for i := range p.recs.Deliveries {
		d := &p.recs.Deliveries[i]
		byProduct[d.ProductID] = append(byProduct[d.ProductID], d)
	}

	items := []StockItem{}
	for _, id := range p.sortedProductIDs() {
		var delivered, used float64
		var oldest *models.Delivery
		oldestAbs := 0
		for _, d := range byProduct[id] {
			abs, ok := p.deliveryAbs[d.ID]
			if !ok || abs > currentAbs {
				continue
			}
			delivered += d.Qty
			used += consumed[d.ID]
			if d.Qty-consumed[d.ID] <= stockEpsilon {
				continue
			}
			if oldest == nil || abs < oldestAbs {
				oldest, oldestAbs = d, abs
			}
		}
		stock := delivered - used
		if stock <= stockEpsilon {
			continue
		}
		item := StockItem{
			ProductID: id,
			Name:      p.DisplayName(id),
			Stock:     stock,
			Delivered: delivered,
			Consumed:  used,
			Status:    statusFor(stock),
		}
		if oldest != nil {
			since := currentAbs - oldestAbs + 1
			est := oldest.EstDuration
			item.WeeksSincePurchase = &since
			item.EstDuration = &est
		}
		items = append(items, item)
	}
	return items, nil
}

// ProductSummary aggregates all products that share a display name
// (case-insensitively), as duplicates appear when the same goods are entered
// twice under slightly different products.
type ProductSummary struct {
	Name         string          `json:"name"`
	ProductIDs   []string        `json:"productIds"`
	Stock        float64         `json:"stock"`
	RecentPrice  decimal.Decimal `json:"recentPrice"`
	AvgDuration  *float64        `json:"avgDuration"` // mean effective duration of completed batches
	Status       StockStatus     `json:"status"`
	NextIncoming *string         `json:"nextIncoming"` // earliest future delivery or pending order week
}

// ProductSummaries groups products by display name, sorted by name. Stock
// counts deliveries received by current; later ones show as NextIncoming.
func (p *Projector) ProductSummaries(current week.ID) ([]ProductSummary, error) {
	currentAbs, err := week.Absolute(current)
	if err != nil {
		return nil, err
	}
	consumed := p.completedBySource()

	groups := make(map[string]*ProductSummary)
	var keys []string
	groupOf := make(map[string]*ProductSummary)
	for _, id := range p.sortedProductIDs() {
		name := p.DisplayName(id)
		key := strings.ToLower(strings.TrimSpace(name))
		g, ok := groups[key]
		if !ok {
			g = &ProductSummary{Name: name, RecentPrice: decimal.Zero}
			groups[key] = g
			keys = append(keys, key)
		}
		g.ProductIDs = append(g.ProductIDs, id)
		groupOf[id] = g
	}

	type latest struct {
		abs   int
		price decimal.Decimal
		set   bool
	}
	lastDelivery := make(map[*ProductSummary]*latest)
	lastOrder := make(map[*ProductSummary]*latest)
	next := make(map[*ProductSummary]int)
	durSum := make(map[*ProductSummary]float64)
	durCount := make(map[*ProductSummary]int)

	note := func(m map[*ProductSummary]*latest, g *ProductSummary, abs int, price decimal.Decimal) {
		l, ok := m[g]
		if !ok {
			l = &latest{}
			m[g] = l
		}
		if !l.set || abs >= l.abs {
			l.abs, l.price, l.set = abs, price, true
		}
	}
	noteNext := func(g *ProductSummary, abs int) {
		if abs <= currentAbs {
			return
		}
		if n, ok := next[g]; !ok || abs < n {
			next[g] = abs
		}
	}

	for _, d := range p.recs.Deliveries {
		g := groupOf[d.ProductID]
		if g == nil {
			continue
		}
		abs, ok := p.deliveryAbs[d.ID]
		if !ok {
			continue
		}
		if abs <= currentAbs {
			g.Stock += d.Qty - consumed[d.ID]
		}
		note(lastDelivery, g, abs, d.Price)
		noteNext(g, abs)
	}
	for _, o := range p.recs.Orders {
		g := groupOf[o.ProductID]
		if g == nil {
			continue
		}
		abs, ok := p.orderAbs[o.ID]
		if !ok {
			continue
		}
		note(lastOrder, g, abs, o.Price)
		if p.isPending(o) {
			noteNext(g, abs)
		}
	}
	for _, c := range p.recs.Consumption {
		if !c.Completed || c.EffDuration == nil {
			continue
		}
		d, ok := p.sourceDelivery(c)
		if !ok {
			continue
		}
		if g := groupOf[d.ProductID]; g != nil {
			durSum[g] += float64(*c.EffDuration)
			durCount[g]++
		}
	}

	out := make([]ProductSummary, 0, len(keys))
	for _, key := range keys {
		g := groups[key]
		ld, lo := lastDelivery[g], lastOrder[g]
		switch {
		case ld != nil && lo != nil:
			if ld.abs >= lo.abs {
				g.RecentPrice = ld.price
			} else {
				g.RecentPrice = lo.price
			}
		case ld != nil:
			g.RecentPrice = ld.price
		case lo != nil:
			g.RecentPrice = lo.price
		}
		if n := durCount[g]; n > 0 {
			avg := durSum[g] / float64(n)
			g.AvgDuration = &avg
		}
		if abs, ok := next[g]; ok {
			id := week.FromAbsolute(abs).String()
			g.NextIncoming = &id
		}
		g.Status = statusFor(g.Stock)
		out = append(out, *g)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out, nil
}
