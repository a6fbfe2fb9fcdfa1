// Package projection derives weekly statistics from a snapshot of orders,
// deliveries and consumption records: what was ordered and delivered in a
// week, which batches are being consumed and at what weekly cost, and how
// much stock is left at the end of the week.
//
// Every function here is pure over its Records snapshot, so weeks can be
// computed independently, in any order and concurrently.
package projection

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"grocery-tracker/internal/models"
	"grocery-tracker/internal/week"
)

// ErrInvalidDuration is reported for windows shorter than one week.
var ErrInvalidDuration = errors.New("invalid duration")

// UnknownItemName is shown for consumption whose source cannot be resolved.
const UnknownItemName = "Unknown item"

// Records is the full record set as of one point in time.
type Records struct {
	Products    []models.Product     `json:"products"`
	Orders      []models.Order       `json:"orders"`
	Deliveries  []models.Delivery    `json:"deliveries"`
	Consumption []models.Consumption `json:"consumption"`
}

// Options selects the projection mode.
type Options struct {
	// IncludePendingOrders treats orders without a delivery as incoming
	// stock and projects their consumption over their estimated window.
	IncludePendingOrders bool
}

// Issue describes a record that was skipped because its data is unusable.
type Issue struct {
	RecordType string `json:"recordType"`
	ID         string `json:"id"`
	Reason     string `json:"reason"`
}

// Projector answers weekly questions about one Records snapshot. It is
// read-only after New and safe for concurrent use.
type Projector struct {
	recs Records
	opts Options

	orderAbs       map[string]int
	deliveryAbs    map[string]int
	consumptionAbs map[string]int

	deliveryByID    map[string]*models.Delivery
	deliveredOrders map[string]bool
	displayNames    map[string]string
	productIDs      []string

	issues []Issue
}

// New indexes recs. Records with malformed week ids are excluded from every
// computation and listed in Issues.
func New(recs Records, opts Options) *Projector {
	p := &Projector{
		recs:            recs,
		opts:            opts,
		orderAbs:        make(map[string]int, len(recs.Orders)),
		deliveryAbs:     make(map[string]int, len(recs.Deliveries)),
		consumptionAbs:  make(map[string]int, len(recs.Consumption)),
		deliveryByID:    make(map[string]*models.Delivery, len(recs.Deliveries)),
		deliveredOrders: make(map[string]bool),
		displayNames:    make(map[string]string),
	}

	for i := range recs.Orders {
		o := &recs.Orders[i]
		if abs, err := week.Absolute(week.ID(o.WeekID)); err != nil {
			p.report(models.EntityOrder, o.ID, err)
		} else {
			p.orderAbs[o.ID] = abs
		}
	}
	for i := range recs.Deliveries {
		d := &recs.Deliveries[i]
		p.deliveryByID[d.ID] = d
		if !d.IsAdhoc() {
			p.deliveredOrders[*d.OrderID] = true
		}
		if abs, err := week.Absolute(week.ID(d.WeekID)); err != nil {
			p.report(models.EntityDelivery, d.ID, err)
		} else {
			p.deliveryAbs[d.ID] = abs
		}
	}
	for i := range recs.Consumption {
		c := &recs.Consumption[i]
		abs, err := week.Absolute(week.ID(c.StartDate))
		if err != nil {
			p.report(models.EntityConsumption, c.ID, err)
			continue
		}
		if c.Duration() < 1 {
			p.report(models.EntityConsumption, c.ID, fmt.Errorf("%w: %d weeks", ErrInvalidDuration, c.Duration()))
			continue
		}
		p.consumptionAbs[c.ID] = abs
	}
	if opts.IncludePendingOrders {
		for _, o := range recs.Orders {
			if _, ok := p.orderAbs[o.ID]; ok && !p.deliveredOrders[o.ID] && o.EstDuration < 1 {
				p.report(models.EntityOrder, o.ID, fmt.Errorf("%w: %d weeks", ErrInvalidDuration, o.EstDuration))
				delete(p.orderAbs, o.ID)
			}
		}
	}

	p.indexNames()
	return p
}

func (p *Projector) report(recordType, id string, err error) {
	p.issues = append(p.issues, Issue{RecordType: recordType, ID: id, Reason: err.Error()})
}

// Issues lists the records New had to skip.
func (p *Projector) Issues() []Issue {
	out := make([]Issue, len(p.issues))
	copy(out, p.issues)
	return out
}

// indexNames resolves the display name of every known product: the newest
// named delivery wins, then the newest named order, then the product itself.
func (p *Projector) indexNames() {
	seen := make(map[string]bool)
	addID := func(id string) {
		if id != "" && !seen[id] {
			seen[id] = true
			p.productIDs = append(p.productIDs, id)
		}
	}

	productNames := make(map[string]string, len(p.recs.Products))
	for _, pr := range p.recs.Products {
		productNames[pr.ID] = pr.Name
		addID(pr.ID)
	}

	orderNames := make(map[string]*models.Order)
	for i := range p.recs.Orders {
		o := &p.recs.Orders[i]
		addID(o.ProductID)
		if o.Name == "" {
			continue
		}
		if prev, ok := orderNames[o.ProductID]; !ok || !o.CreatedAt.Before(prev.CreatedAt) {
			orderNames[o.ProductID] = o
		}
	}

	deliveryNames := make(map[string]*models.Delivery)
	for i := range p.recs.Deliveries {
		d := &p.recs.Deliveries[i]
		addID(d.ProductID)
		if d.Name == "" {
			continue
		}
		if prev, ok := deliveryNames[d.ProductID]; !ok || !d.CreatedAt.Before(prev.CreatedAt) {
			deliveryNames[d.ProductID] = d
		}
	}

	for _, id := range p.productIDs {
		switch {
		case deliveryNames[id] != nil:
			p.displayNames[id] = deliveryNames[id].Name
		case orderNames[id] != nil:
			p.displayNames[id] = orderNames[id].Name
		default:
			p.displayNames[id] = productNames[id]
		}
	}
}

// DisplayName returns the resolved name of a product, or "" if none of its
// records carries a name.
func (p *Projector) DisplayName(productID string) string {
	return p.displayNames[productID]
}

// sourceDelivery returns the delivery a consumption record was spawned from.
func (p *Projector) sourceDelivery(c models.Consumption) (*models.Delivery, bool) {
	d, ok := p.deliveryByID[c.SourceID]
	return d, ok
}

func (p *Projector) consumptionName(c models.Consumption) string {
	if d, ok := p.sourceDelivery(c); ok {
		if name := p.DisplayName(d.ProductID); name != "" {
			return name
		}
		if d.Name != "" {
			return d.Name
		}
	}
	if c.Name != "" {
		return c.Name
	}
	return UnknownItemName
}

func (p *Projector) isPending(o models.Order) bool {
	return !p.deliveredOrders[o.ID]
}

// sortedProductIDs returns product ids ordered by display name, then id.
func (p *Projector) sortedProductIDs() []string {
	ids := make([]string, len(p.productIDs))
	copy(ids, p.productIDs)
	sort.SliceStable(ids, func(i, j int) bool {
		ni := strings.ToLower(p.displayNames[ids[i]])
		nj := strings.ToLower(p.displayNames[ids[j]])
		if ni != nj {
			return ni < nj
		}
		return ids[i] < ids[j]
	})
	return ids
}
