package domain

// TimeLayout is the fixed-width UTC timestamp stored in the ledger. Equal
// widths keep lexical order in SQLite identical to chronological order.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Format is the type code found on the first line of an instance file.
type Format int

const (
	Untimed      Format = 2
	TimeWindowed Format = 6
	Extended     Format = 7
)

func (f Format) String() string {
	switch f {
	case Untimed:
		return "mdvrp"
	case TimeWindowed:
		return "mdvrptw"
	case Extended:
		return "mdhf-vrptw-spd"
	default:
		return "unknown"
	}
}

// Category is the demand archetype assigned to a customer.
type Category string

const (
	CategoryA Category = "A" // delivery with low return
	CategoryB Category = "B" // delivery with significant return
	CategoryC Category = "C" // return only
)

type Instance struct {
	Name          string     `json:"name"`
	Format        Format     `json:"format"`
	VehicleCount  int        `json:"vehicle_count"`
	CustomerCount int        `json:"customer_count"`
	DepotCount    int        `json:"depot_count"`
	Depots        []Depot    `json:"depots"`
	Customers     []Customer `json:"customers"`
}

type Depot struct {
	ID            int            `json:"id"`
	X             float64        `json:"x"`
	Y             float64        `json:"y"`
	RouteDuration float64        `json:"route_duration"`
	Capacity      int            `json:"capacity"`
	Fleet         []VehicleClass `json:"fleet,omitempty"`
}

type Customer struct {
	ID          int     `json:"id"`
	X           float64 `json:"x"`
	Y           float64 `json:"y"`
	ServiceTime float64 `json:"service_time"`
	Demand      int     `json:"demand"`
	Earliest    float64 `json:"earliest"`
	Latest      float64 `json:"latest"`

	Category            Category `json:"category,omitempty"`
	DeliveryQty         int      `json:"delivery_qty"`
	PickupQty           int      `json:"pickup_qty"`
	DeliveryServiceTime float64  `json:"delivery_service_time"`
	PickupServiceTime   float64  `json:"pickup_service_time"`
	TotalServiceTime    float64  `json:"total_service_time"`
	OriginalLatest      float64  `json:"original_latest"`
}

type VehicleClass struct {
	Index          int     `json:"index"`
	Name           string  `json:"name"`
	Description    string  `json:"description,omitempty"`
	CapacityFactor float64 `json:"capacity_factor"`
	Capacity       int     `json:"capacity"`
	FixedCost      float64 `json:"fixed_cost"`
	VariableCost   float64 `json:"variable_cost"`
	RouteDuration  float64 `json:"route_duration"`
}

// Stats summarizes one conversion.
type Stats struct {
	CategoryA       int     `json:"nb_delivery_with_low_return"`
	CategoryB       int     `json:"nb_delivery_with_significant_return"`
	CategoryC       int     `json:"nb_return_only"`
	TotalDelivery   int     `json:"total_delivery_quantity"`
	TotalPickup     int     `json:"total_pickup_quantity"`
	PickupRatio     float64 `json:"pickup_to_delivery_ratio"`
	MinCapacity     int     `json:"min_capacity"`
	CapacityRepairs int     `json:"capacity_repairs"`
	WindowRepairs   int     `json:"window_repairs"`
}

// MinCapacity is the smallest vehicle-class capacity across all depots, or 0
// when no fleet has been synthesized.
func (in *Instance) MinCapacity() int {
	qmin := 0
	for _, d := range in.Depots {
		for _, vc := range d.Fleet {
			if qmin == 0 || vc.Capacity < qmin {
				qmin = vc.Capacity
			}
		}
	}
	return qmin
}

// Run is one recorded conversion.
type Run struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Input      string `json:"input"`
	Output     string `json:"output,omitempty"`
	Format     string `json:"format" enum:"text,json"`
	Seed       int64  `json:"seed"`
	Status     string `json:"status" enum:"running,succeeded,failed"`
	Error      string `json:"error,omitempty"`
	Customers  int    `json:"customers"`
	Depots     int    `json:"depots"`
	Stats      *Stats `json:"stats,omitempty"`
	ConfigYAML string `json:"config_yaml,omitempty"`
	Host       string `json:"host,omitempty"`
	StartedAt  string `json:"started_at" format:"date-time"`
	FinishedAt string `json:"finished_at,omitempty" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}

type APIKey struct {
	ID        string `json:"id"`
	ActorID   string `json:"actor_id"`
	Name      string `json:"name,omitempty"`
	KeyHash   string `json:"key_hash"`
	CreatedAt string `json:"created_at" format:"date-time"`
}
