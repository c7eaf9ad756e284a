package transform

import (
	"fmt"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// Verify compares a converted instance with the source it came from and
// reports every structural mismatch or broken invariant. An empty result
// means the pair is consistent.
func Verify(source, converted *domain.Instance) []string {
	var problems []string
	report := func(format string, args ...any) {
		problems = append(problems, fmt.Sprintf(format, args...))
	}
	if converted.Format != domain.Extended {
		report("converted file has type %d, want %d", converted.Format, domain.Extended)
	}
	if len(source.Customers) != len(converted.Customers) {
		report("customer count %d, source has %d", len(converted.Customers), len(source.Customers))
	}
	if len(source.Depots) != len(converted.Depots) {
		report("depot count %d, source has %d", len(converted.Depots), len(source.Depots))
	}
	if len(problems) > 0 {
		return problems
	}

	for i, d := range converted.Depots {
		s := source.Depots[i]
		if d.ID != s.ID || d.X != s.X || d.Y != s.Y {
			report("depot %d: location (%v,%v) differs from source depot %d (%v,%v)", d.ID, d.X, d.Y, s.ID, s.X, s.Y)
		}
		prev := 0
		for _, vc := range d.Fleet {
			if vc.Capacity <= prev {
				report("depot %d: class %d capacity %d not above previous %d", d.ID, vc.Index, vc.Capacity, prev)
			}
			prev = vc.Capacity
		}
	}

	qmin := converted.MinCapacity()
	for i, c := range converted.Customers {
		s := source.Customers[i]
		if c.ID != s.ID || c.X != s.X || c.Y != s.Y {
			report("customer %d: location (%v,%v) differs from source customer %d (%v,%v)", c.ID, c.X, c.Y, s.ID, s.X, s.Y)
		}
		if c.DeliveryQty != 0 && c.DeliveryQty != s.Demand {
			report("customer %d: delivery %d, source demand %d", c.ID, c.DeliveryQty, s.Demand)
		}
		if c.DeliveryQty+c.PickupQty > qmin {
			report("customer %d: load %d exceeds smallest capacity %d", c.ID, c.DeliveryQty+c.PickupQty, qmin)
		}
		if c.Earliest != s.Earliest {
			report("customer %d: earliest %v, source %v", c.ID, c.Earliest, s.Earliest)
		}
		if c.Latest < s.Latest {
			report("customer %d: latest %v moved before source %v", c.ID, c.Latest, s.Latest)
		}
		if c.Earliest+c.TotalServiceTime > c.Latest+1e-9 {
			report("customer %d: window [%v,%v] cannot hold service %v", c.ID, c.Earliest, c.Latest, c.TotalServiceTime)
		}
	}
	return problems
}
