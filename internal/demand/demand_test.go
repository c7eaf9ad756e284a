package demand_test

import (
	"errors"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/demand"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// scripted replays fixed draws and fails the test if it runs dry.
type scripted struct {
	t    *testing.T
	vals []float64
	n    int
}

func (s *scripted) Float64() float64 {
	if s.n >= len(s.vals) {
		s.t.Fatalf("stream exhausted after %d draws", s.n)
	}
	v := s.vals[s.n]
	s.n++
	return v
}

func TestCategorize(t *testing.T) {
	c := config.Default().Categories
	cases := []struct {
		u    float64
		want domain.Category
	}{
		{0, domain.CategoryA},
		{0.69, domain.CategoryA},
		{0.70, domain.CategoryB},
		{0.89, domain.CategoryB},
		{0.90, domain.CategoryC},
		{0.999, domain.CategoryC},
	}
	for _, tc := range cases {
		if got := demand.Categorize(tc.u, c); got != tc.want {
			t.Fatalf("Categorize(%v) = %s, want %s", tc.u, got, tc.want)
		}
	}
}

func TestCategorizeThresholdMonotonic(t *testing.T) {
	low := config.CategoryConfig{AThreshold: 0.6, BThreshold: 0.9}
	high := config.CategoryConfig{AThreshold: 0.75, BThreshold: 0.9}
	for i := 0; i < 1000; i++ {
		u := float64(i) / 1000
		before, after := demand.Categorize(u, low), demand.Categorize(u, high)
		if before == domain.CategoryA && after != domain.CategoryA {
			t.Fatalf("u=%v left category A when its threshold grew", u)
		}
		if before != after && after != domain.CategoryA {
			t.Fatalf("u=%v moved from %s to %s", u, before, after)
		}
	}
}

func TestApplyQuantitiesAndRepair(t *testing.T) {
	customers := []domain.Customer{
		{ID: 1, Demand: 40},
		{ID: 2, Demand: 48},
		{ID: 3, Demand: 10},
		{ID: 4, Demand: 7},
	}
	src := &scripted{t: t, vals: []float64{
		0.5, 0.3, // A, ratio 0.095 -> ceil(3.8)
		0.5, 0.3, // A, ratio 0.095 -> ceil(4.56), repaired
		0.8, 0.5, // B, ratio 0.35 -> ceil(3.5)
		0.95, 0.99, // C, 1 + floor(2.97)
	}}
	var seen []demand.Repair
	syn := demand.New(config.Default(), 50)
	syn.OnRepair = func(r demand.Repair) { seen = append(seen, r) }
	repairs, err := syn.Apply(customers, src)
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if src.n != 2*len(customers) {
		t.Fatalf("expected %d draws, got %d", 2*len(customers), src.n)
	}
	want := []struct {
		cat  domain.Category
		d, p int
	}{
		{domain.CategoryA, 40, 4},
		{domain.CategoryA, 48, 2},
		{domain.CategoryB, 10, 4},
		{domain.CategoryC, 0, 3},
	}
	for i, w := range want {
		c := customers[i]
		if c.Category != w.cat || c.DeliveryQty != w.d || c.PickupQty != w.p {
			t.Fatalf("customer %d: got %s D=%d P=%d, want %s D=%d P=%d", c.ID, c.Category, c.DeliveryQty, c.PickupQty, w.cat, w.d, w.p)
		}
		if c.DeliveryQty+c.PickupQty > 50 {
			t.Fatalf("customer %d exceeds capacity", c.ID)
		}
	}
	if repairs != 1 || len(seen) != 1 || seen[0] != (demand.Repair{Customer: 2, PickupBefore: 5, PickupAfter: 2}) {
		t.Fatalf("unexpected repairs %d %+v", repairs, seen)
	}
}

func TestApplyRejectsOversizedDelivery(t *testing.T) {
	customers := []domain.Customer{{ID: 9, Demand: 60}}
	src := &scripted{t: t, vals: []float64{0.1, 0.1}}
	_, err := demand.New(config.Default(), 50).Apply(customers, src)
	if !errors.Is(err, domain.ErrMalformedInstance) {
		t.Fatalf("expected malformed error, got %v", err)
	}
	var me *domain.MalformedError
	if !errors.As(err, &me) || me.Customer != 9 {
		t.Fatalf("expected error for customer 9, got %v", err)
	}
}

func TestApplyReturnOnlyIgnoresOversizedDemand(t *testing.T) {
	customers := []domain.Customer{{ID: 3, Demand: 60}}
	src := &scripted{t: t, vals: []float64{0.95, 0}}
	if _, err := demand.New(config.Default(), 50).Apply(customers, src); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if customers[0].DeliveryQty != 0 || customers[0].PickupQty != 1 {
		t.Fatalf("unexpected quantities %+v", customers[0])
	}
}

func TestApplyRequiresCapacity(t *testing.T) {
	if _, err := demand.New(config.Default(), 0).Apply(nil, &scripted{t: t}); err == nil {
		t.Fatalf("expected error without a minimum capacity")
	}
}
