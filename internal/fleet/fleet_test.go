package fleet_test

import (
	"errors"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/fleet"
)

func TestClassesFromDefaults(t *testing.T) {
	cfg := config.Default().Fleet
	classes, err := fleet.Classes(domain.Depot{ID: 1, Capacity: 200, RouteDuration: 500}, cfg)
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	wantCap := []int{50, 100, 160, 240}
	wantFixed := []float64{60, 120, 180, 240}
	wantVar := []float64{0.45, 0.6, 0.75, 0.9}
	for i, vc := range classes {
		if vc.Index != i+1 || vc.Capacity != wantCap[i] {
			t.Fatalf("class %d: capacity %d, want %d", vc.Index, vc.Capacity, wantCap[i])
		}
		if vc.FixedCost != wantFixed[i] || vc.VariableCost != wantVar[i] {
			t.Fatalf("class %d: costs %v/%v, want %v/%v", vc.Index, vc.FixedCost, vc.VariableCost, wantFixed[i], wantVar[i])
		}
		if vc.RouteDuration != 500 {
			t.Fatalf("class %d: route duration %v", vc.Index, vc.RouteDuration)
		}
	}
	if classes[0].Name != "Class1" || classes[3].Description != "7.5-t truck" {
		t.Fatalf("unexpected labels: %+v", classes)
	}
}

func TestClassesStayStrictlyIncreasing(t *testing.T) {
	classes, err := fleet.Classes(domain.Depot{ID: 1, Capacity: 3}, config.Default().Fleet)
	if err != nil {
		t.Fatalf("classes: %v", err)
	}
	want := []int{1, 2, 3, 4}
	for i, vc := range classes {
		if vc.Capacity != want[i] {
			t.Fatalf("class %d: capacity %d, want %d", i+1, vc.Capacity, want[i])
		}
	}
}

func TestSynthesizeReturnsMinimum(t *testing.T) {
	inst := &domain.Instance{Name: "p", Depots: []domain.Depot{{ID: 1, Capacity: 200}, {ID: 2, Capacity: 160}}}
	qmin, err := fleet.Synthesize(inst, config.Default().Fleet)
	if err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if qmin != 40 {
		t.Fatalf("expected min capacity 40, got %d", qmin)
	}
	if len(inst.Depots[0].Fleet) != 4 || len(inst.Depots[1].Fleet) != 4 {
		t.Fatalf("fleet not attached to every depot")
	}
}

func TestSynthesizeRejectsEmptyDepot(t *testing.T) {
	inst := &domain.Instance{Name: "p", Depots: []domain.Depot{{ID: 1, Capacity: 0}}}
	_, err := fleet.Synthesize(inst, config.Default().Fleet)
	if !errors.Is(err, domain.ErrMalformedInstance) {
		t.Fatalf("expected malformed error, got %v", err)
	}
}
