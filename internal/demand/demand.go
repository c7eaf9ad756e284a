// Package demand categorizes customers and derives their pickup and delivery
// quantities.
//
// Each customer consumes exactly two values from the stream, in customer
// order: the category draw, then the ratio (A, B) or integer (C) draw.
package demand

import (
	"fmt"
	"math"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/rng"
)

// Repair records one capacity repair.
type Repair struct {
	Customer     int
	PickupBefore int
	PickupAfter  int
}

// Synthesizer mutates customers in place.
type Synthesizer struct {
	Categories config.CategoryConfig
	Pickup     config.PickupConfig
	// MinCapacity is the smallest synthesized vehicle-class capacity.
	MinCapacity int
	// OnRepair, if set, observes every capacity repair.
	OnRepair func(Repair)
}

func New(cfg *config.Config, minCapacity int) *Synthesizer {
	return &Synthesizer{Categories: cfg.Categories, Pickup: cfg.Pickup, MinCapacity: minCapacity}
}

// Categorize maps a uniform value to a category.
func Categorize(u float64, c config.CategoryConfig) domain.Category {
	switch {
	case u < c.AThreshold:
		return domain.CategoryA
	case u < c.BThreshold:
		return domain.CategoryB
	default:
		return domain.CategoryC
	}
}

// Apply assigns category and quantities to every customer and returns the
// number of capacity repairs.
func (s *Synthesizer) Apply(customers []domain.Customer, src rng.Source) (int, error) {
	if s.MinCapacity <= 0 {
		return 0, fmt.Errorf("demand: minimum vehicle capacity not set")
	}
	repairs := 0
	for i := range customers {
		c := &customers[i]
		c.Category = Categorize(src.Float64(), s.Categories)
		switch c.Category {
		case domain.CategoryA:
			c.DeliveryQty = c.Demand
			c.PickupQty = ceilQty(rng.Uniform(src, s.Pickup.ARatio.Min, s.Pickup.ARatio.Max), c.DeliveryQty)
		case domain.CategoryB:
			c.DeliveryQty = c.Demand
			c.PickupQty = ceilQty(rng.Uniform(src, s.Pickup.BRatio.Min, s.Pickup.BRatio.Max), c.DeliveryQty)
		default:
			c.DeliveryQty = 0
			c.PickupQty = rng.IntInclusive(src, s.Pickup.ReturnOnly.Min, s.Pickup.ReturnOnly.Max)
		}
		if c.DeliveryQty > s.MinCapacity {
			return repairs, &domain.MalformedError{Customer: c.ID,
				Msg: fmt.Sprintf("delivery %d exceeds smallest vehicle capacity %d", c.DeliveryQty, s.MinCapacity)}
		}
		if c.DeliveryQty+c.PickupQty > s.MinCapacity {
			r := Repair{Customer: c.ID, PickupBefore: c.PickupQty}
			c.PickupQty = max(0, s.MinCapacity-c.DeliveryQty)
			r.PickupAfter = c.PickupQty
			repairs++
			if s.OnRepair != nil {
				s.OnRepair(r)
			}
		}
	}
	return repairs, nil
}

func ceilQty(ratio float64, qty int) int {
	return int(math.Ceil(ratio * float64(qty)))
}
