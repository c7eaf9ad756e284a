// Package revise splits each customer's service time between its delivery and
// pickup legs and shifts time windows that can no longer hold the visit.
package revise

import (
	"math"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

type Reviser struct {
	BaseOperationFactor  float64
	PickupHandlingFactor float64
	Decimals             int
}

func New(cfg config.ServiceConfig) Reviser {
	return Reviser{
		BaseOperationFactor:  cfg.BaseOperationFactor,
		PickupHandlingFactor: cfg.PickupHandlingFactor,
		Decimals:             cfg.Decimals,
	}
}

// Split returns the delivery and pickup service times for one customer.
//
// A share base = factor*st covers positioning and paperwork; the remainder is
// split by quantity share. The base goes to the delivery leg, or to the
// pickup leg for return-only visits. Each returned item adds the handling
// surcharge to the pickup leg, so the total is always st + h*P.
func (r Reviser) Split(c domain.Customer) (delivery, pickup float64) {
	st := c.ServiceTime
	base := r.BaseOperationFactor * st
	rem := st - base
	total := c.DeliveryQty + c.PickupQty
	if total == 0 {
		return st, 0
	}
	dShare := float64(c.DeliveryQty) / float64(total)
	pShare := float64(c.PickupQty) / float64(total)
	handling := r.PickupHandlingFactor * float64(c.PickupQty)
	if c.DeliveryQty == 0 {
		return 0, base + rem + handling
	}
	if c.PickupQty == 0 {
		return st, 0
	}
	return base + rem*dShare, rem*pShare + handling
}

// Apply revises every customer and returns how many windows were shifted.
func (r Reviser) Apply(customers []domain.Customer) int {
	shifted := 0
	for i := range customers {
		c := &customers[i]
		delivery, pickup := r.Split(*c)
		if c.PickupQty == 0 {
			// Nothing to split: the original service time stays exact.
			c.DeliveryServiceTime = delivery
			c.PickupServiceTime = 0
			c.TotalServiceTime = delivery
		} else {
			c.DeliveryServiceTime = r.round(delivery)
			c.PickupServiceTime = r.round(pickup)
			c.TotalServiceTime = r.round(c.DeliveryServiceTime + c.PickupServiceTime)
		}
		c.OriginalLatest = c.Latest
		if c.Earliest+c.TotalServiceTime > c.Latest {
			c.Latest = math.Ceil(c.Earliest + c.TotalServiceTime)
			shifted++
		}
	}
	return shifted
}

func (r Reviser) round(v float64) float64 {
	p := math.Pow(10, float64(r.Decimals))
	return math.Round(v*p) / p
}
