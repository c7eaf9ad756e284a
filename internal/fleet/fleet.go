package fleet

import (
	"fmt"
	"math"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// Classes derives the vehicle classes of one depot from its original
// capacity. Capacities are floor(factor*Q) but never repeat: a class that
// would tie its predecessor is bumped by one unit.
func Classes(d domain.Depot, cfg config.FleetConfig) ([]domain.VehicleClass, error) {
	if d.Capacity <= 0 {
		return nil, fmt.Errorf("depot %d: non-positive capacity %d", d.ID, d.Capacity)
	}
	classes := make([]domain.VehicleClass, len(cfg.CapacityFactors))
	prev := 0
	for i, factor := range cfg.CapacityFactors {
		k := float64(i)
		capacity := int(math.Floor(factor * float64(d.Capacity)))
		if capacity <= prev {
			capacity = prev + 1
		}
		prev = capacity
		classes[i] = domain.VehicleClass{
			Index:          i + 1,
			Name:           pick(cfg.Names, i, fmt.Sprintf("Class%d", i+1)),
			Description:    pick(cfg.Descriptions, i, ""),
			CapacityFactor: factor,
			Capacity:       capacity,
			FixedCost:      round4(cfg.FixedCost.Base + cfg.FixedCost.Step*k),
			VariableCost:   round4(cfg.VariableCost.Base + cfg.VariableCost.Step*k),
			RouteDuration:  d.RouteDuration,
		}
	}
	return classes, nil
}

// Synthesize attaches a fleet to every depot and returns the smallest class
// capacity across all of them.
func Synthesize(inst *domain.Instance, cfg config.FleetConfig) (int, error) {
	for i := range inst.Depots {
		classes, err := Classes(inst.Depots[i], cfg)
		if err != nil {
			return 0, &domain.MalformedError{File: inst.Name, Msg: "fleet synthesis", Err: err}
		}
		inst.Depots[i].Fleet = classes
	}
	return inst.MinCapacity(), nil
}

func pick(values []string, i int, fallback string) string {
	if i < len(values) && values[i] != "" {
		return values[i]
	}
	return fallback
}

// round4 keeps 0.45+0.15*2 from printing as 0.7500000000000001.
func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
