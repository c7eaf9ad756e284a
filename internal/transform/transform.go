// Package transform runs the conversion pipeline on a parsed instance:
// fleet synthesis, demand synthesis with capacity repair, then service-time
// revision with window repair.
package transform

import (
	"errors"
	"fmt"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/config"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/demand"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/fleet"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/revise"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/rng"
)

// Options hooks observers into the pipeline. The zero value is valid.
type Options struct {
	OnRepair func(demand.Repair)
}

// Transform mutates inst into a revised instance and returns its statistics.
// Instances already in the extended format are rejected.
func Transform(inst *domain.Instance, cfg *config.Config, src rng.Source, opts Options) (domain.Stats, error) {
	if inst.Format == domain.Extended {
		return domain.Stats{}, fmt.Errorf("instance %s is already converted", inst.Name)
	}
	qmin, err := fleet.Synthesize(inst, cfg.Fleet)
	if err != nil {
		return domain.Stats{}, err
	}
	syn := demand.New(cfg, qmin)
	syn.OnRepair = opts.OnRepair
	repairs, err := syn.Apply(inst.Customers, src)
	if err != nil {
		var me *domain.MalformedError
		if errors.As(err, &me) && me.File == "" {
			me.File = inst.Name
		}
		return domain.Stats{}, err
	}
	shifted := revise.New(cfg.Service).Apply(inst.Customers)

	inst.Format = domain.Extended
	stats := Summarize(inst)
	stats.MinCapacity = qmin
	stats.CapacityRepairs = repairs
	stats.WindowRepairs = shifted
	return stats, nil
}

// Summarize counts categories and totals the quantities of inst.
func Summarize(inst *domain.Instance) domain.Stats {
	var s domain.Stats
	for _, c := range inst.Customers {
		switch c.Category {
		case domain.CategoryA:
			s.CategoryA++
		case domain.CategoryB:
			s.CategoryB++
		case domain.CategoryC:
			s.CategoryC++
		}
		s.TotalDelivery += c.DeliveryQty
		s.TotalPickup += c.PickupQty
	}
	if s.TotalDelivery > 0 {
		s.PickupRatio = float64(s.TotalPickup) / float64(s.TotalDelivery)
	}
	s.MinCapacity = inst.MinCapacity()
	return s
}
