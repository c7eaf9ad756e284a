package cordeau

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// VehicleCountPlaceholder fills the m field of the extended header; fleets
// are unlimited per class.
const VehicleCountPlaceholder = 999

// Write serializes a revised instance in the extended text format:
//
//	7 999 n d k
//	D Q F VC          k lines per depot
//	i x y st D P e l  one line per customer
//	id x y 0 0 0 0 0  one line per depot
func Write(w io.Writer, inst *domain.Instance) error {
	classes := 0
	for i, d := range inst.Depots {
		if i == 0 {
			classes = len(d.Fleet)
		}
		if len(d.Fleet) == 0 || len(d.Fleet) != classes {
			return fmt.Errorf("depot %d: fleet not synthesized or inconsistent (%d classes)", d.ID, len(d.Fleet))
		}
	}
	bw := bufio.NewWriter(w)
	writeLine(bw, strconv.Itoa(int(domain.Extended)), strconv.Itoa(VehicleCountPlaceholder),
		strconv.Itoa(len(inst.Customers)), strconv.Itoa(len(inst.Depots)), strconv.Itoa(classes))
	for _, d := range inst.Depots {
		for _, vc := range d.Fleet {
			writeLine(bw, num(vc.RouteDuration), strconv.Itoa(vc.Capacity), num(vc.FixedCost), num(vc.VariableCost))
		}
	}
	for _, c := range inst.Customers {
		writeLine(bw, strconv.Itoa(c.ID), num(c.X), num(c.Y), num(c.TotalServiceTime),
			strconv.Itoa(c.DeliveryQty), strconv.Itoa(c.PickupQty), num(c.Earliest), num(c.Latest))
	}
	for _, d := range inst.Depots {
		writeLine(bw, strconv.Itoa(d.ID), num(d.X), num(d.Y), "0", "0", "0", "0", "0")
	}
	return bw.Flush()
}

func writeLine(w *bufio.Writer, fields ...string) {
	w.WriteString(strings.Join(fields, " "))
	w.WriteByte('\n')
}

// num renders the shortest representation that parses back to v.
func num(v float64) string {
	if v == 0 {
		return "0"
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
