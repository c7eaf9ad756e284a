package cordeau

import (
	"encoding/json"
	"fmt"
	"io"
	"math"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// Document is the JSON rendering of a converted instance.
type Document struct {
	Metadata     Metadata      `json:"metadata"`
	VehicleTypes []VehicleType `json:"vehicleTypes"`
	Depots       []DepotDoc    `json:"depots"`
	Customers    []CustomerDoc `json:"customers"`
}

type Metadata struct {
	InstanceName  string     `json:"instanceName"`
	RandomSeed    int64      `json:"randomSeed"`
	CustomerCount int        `json:"customerCount"`
	DepotCount    int        `json:"depotCount"`
	Statistics    Statistics `json:"statistics"`
}

type Statistics struct {
	DeliveryWithLowReturn         int      `json:"nb_DeliveryWithLowReturn"`
	DeliveryWithSignificantReturn int      `json:"nb_DeliveryWithSignificantReturn"`
	ReturnOnly                    int      `json:"nb_ReturnOnly"`
	TotalDeliveryQuantity         int      `json:"totalDeliveryQuantity"`
	TotalPickupQuantity           int      `json:"totalPickupQuantity"`
	PickupToDeliveryRatio         *float64 `json:"pickupToDeliveryRatio"`
	CapacityRepairs               int      `json:"capacityRepairs"`
	WindowRepairs                 int      `json:"windowRepairs"`
}

type VehicleType struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	CapacityFactor float64 `json:"capacityFactor"`
	FixedCost      float64 `json:"fixedCost"`
	VariableCost   float64 `json:"variableCost"`
}

type DepotDoc struct {
	ID          int          `json:"id"`
	X           float64      `json:"x"`
	Y           float64      `json:"y"`
	MaxDuration float64      `json:"maxDuration"`
	Vehicles    []VehicleDoc `json:"vehicles"`
}

type VehicleDoc struct {
	TypeID      string  `json:"typeId"`
	Capacity    int     `json:"capacity"`
	Count       string  `json:"count"`
	MaxDuration float64 `json:"maxDuration"`
}

type TimeWindow struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

type CustomerDoc struct {
	ID                  int        `json:"id"`
	X                   float64    `json:"x"`
	Y                   float64    `json:"y"`
	TotalServiceTime    float64    `json:"TotalServiceTime"`
	DeliveryServiceTime float64    `json:"deliveryServiceTime"`
	PickupServiceTime   float64    `json:"pickupServiceTime"`
	DeliveryQuantity    int        `json:"deliveryQuantity"`
	PickupQuantity      int        `json:"pickupQuantity"`
	Category            string     `json:"category"`
	TimeWindow          TimeWindow `json:"timeWindow"`
}

// NewDocument builds the JSON view; vehicle types are taken from the first
// depot's fleet since every depot carries the same classes.
func NewDocument(inst *domain.Instance, stats domain.Stats, seed int64) (Document, error) {
	if len(inst.Depots) == 0 || len(inst.Depots[0].Fleet) == 0 {
		return Document{}, fmt.Errorf("instance %s has no synthesized fleet", inst.Name)
	}
	doc := Document{
		Metadata: Metadata{
			InstanceName:  inst.Name,
			RandomSeed:    seed,
			CustomerCount: len(inst.Customers),
			DepotCount:    len(inst.Depots),
			Statistics: Statistics{
				DeliveryWithLowReturn:         stats.CategoryA,
				DeliveryWithSignificantReturn: stats.CategoryB,
				ReturnOnly:                    stats.CategoryC,
				TotalDeliveryQuantity:         stats.TotalDelivery,
				TotalPickupQuantity:           stats.TotalPickup,
				CapacityRepairs:               stats.CapacityRepairs,
				WindowRepairs:                 stats.WindowRepairs,
			},
		},
	}
	if stats.TotalDelivery > 0 {
		ratio := math.Round(stats.PickupRatio*1000) / 10
		doc.Metadata.Statistics.PickupToDeliveryRatio = &ratio
	}
	for _, vc := range inst.Depots[0].Fleet {
		doc.VehicleTypes = append(doc.VehicleTypes, VehicleType{
			ID:             typeID(vc.Index),
			Name:           vc.Name,
			Description:    vc.Description,
			CapacityFactor: vc.CapacityFactor,
			FixedCost:      vc.FixedCost,
			VariableCost:   vc.VariableCost,
		})
	}
	for _, d := range inst.Depots {
		dd := DepotDoc{ID: d.ID, X: d.X, Y: d.Y, MaxDuration: d.RouteDuration}
		for _, vc := range d.Fleet {
			dd.Vehicles = append(dd.Vehicles, VehicleDoc{
				TypeID:      typeID(vc.Index),
				Capacity:    vc.Capacity,
				Count:       "unlimited",
				MaxDuration: vc.RouteDuration,
			})
		}
		doc.Depots = append(doc.Depots, dd)
	}
	for _, c := range inst.Customers {
		doc.Customers = append(doc.Customers, CustomerDoc{
			ID:                  c.ID,
			X:                   c.X,
			Y:                   c.Y,
			TotalServiceTime:    c.TotalServiceTime,
			DeliveryServiceTime: c.DeliveryServiceTime,
			PickupServiceTime:   c.PickupServiceTime,
			DeliveryQuantity:    c.DeliveryQty,
			PickupQuantity:      c.PickupQty,
			Category:            string(c.Category),
			TimeWindow:          TimeWindow{Start: c.Earliest, End: c.Latest},
		})
	}
	return doc, nil
}

// WriteJSON writes the indented JSON document.
func WriteJSON(w io.Writer, inst *domain.Instance, stats domain.Stats, seed int64) error {
	doc, err := NewDocument(inst, stats, seed)
	if err != nil {
		return err
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return err
	}
	b = append(b, '\n')
	_, err = w.Write(b)
	return err
}

func typeID(index int) string {
	return fmt.Sprintf("Type%d", index)
}

