// Package cordeau reads Cordeau multi-depot benchmark files and writes the
// extended heterogeneous-fleet pickup-and-delivery variant.
package cordeau

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

// ReadOptions tune how untimed instances are completed.
type ReadOptions struct {
	// DefaultHorizon closes synthesized windows when no depot has a route
	// duration limit.
	DefaultHorizon float64
}

type record struct {
	line   int
	fields []string
}

type parser struct {
	file    string
	records []record
}

// ParseFile opens path and parses it. The handle is released on every path.
func ParseFile(path string, opts ReadOptions) (*domain.Instance, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return Parse(filepath.Base(path), f, opts)
}

// Parse reads an instance of type 2, 6 or 7 from r. name is used for error
// context and becomes Instance.Name.
func Parse(name string, r io.Reader, opts ReadOptions) (*domain.Instance, error) {
	p := &parser{file: name}
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	line := 0
	for sc.Scan() {
		line++
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		p.records = append(p.records, record{line: line, fields: fields})
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	if len(p.records) == 0 {
		return nil, p.fail(0, "empty file")
	}
	head := p.records[0]
	if len(head.fields) < 4 {
		return nil, p.fail(head.line, "header needs at least 4 fields (type m n t)")
	}
	code, err := p.atoi(head, 0, "type")
	if err != nil {
		return nil, err
	}
	inst := &domain.Instance{Name: name, Format: domain.Format(code)}
	if inst.VehicleCount, err = p.atoi(head, 1, "vehicle count"); err != nil {
		return nil, err
	}
	if inst.CustomerCount, err = p.atoi(head, 2, "customer count"); err != nil {
		return nil, err
	}
	if inst.DepotCount, err = p.atoi(head, 3, "depot count"); err != nil {
		return nil, err
	}
	if inst.CustomerCount < 1 || inst.DepotCount < 1 {
		return nil, p.fail(head.line, "customer and depot counts must be positive")
	}

	switch inst.Format {
	case domain.Untimed, domain.TimeWindowed:
		err = p.parseCordeau(inst, opts)
	case domain.Extended:
		classes := 4
		if len(head.fields) > 4 {
			if classes, err = p.atoi(head, 4, "fleet class count"); err != nil {
				return nil, err
			}
			if classes < 1 {
				return nil, p.fail(head.line, "fleet class count must be positive")
			}
		}
		err = p.parseExtended(inst, classes)
	default:
		return nil, p.fail(head.line, fmt.Sprintf("unrecognized type code %d", code))
	}
	if err != nil {
		return nil, err
	}
	return inst, nil
}

func (p *parser) expect(total int) error {
	if len(p.records) < total {
		last := p.records[len(p.records)-1].line
		return p.fail(last, fmt.Sprintf("expected %d records, found %d", total, len(p.records)))
	}
	if len(p.records) > total {
		return p.fail(p.records[total].line, fmt.Sprintf("unexpected record after the last depot (expected %d records)", total))
	}
	return nil
}

// parseCordeau handles: header, t "D Q" lines, n customers, t depot coordinates.
func (p *parser) parseCordeau(inst *domain.Instance, opts ReadOptions) error {
	n, t := inst.CustomerCount, inst.DepotCount
	if err := p.expect(1 + t + n + t); err != nil {
		return err
	}
	inst.Depots = make([]domain.Depot, t)
	horizon := 0.0
	for k := 0; k < t; k++ {
		rec := p.records[1+k]
		if err := p.need(rec, 2); err != nil {
			return err
		}
		duration, err := p.float(rec, 0, "route duration")
		if err != nil {
			return err
		}
		capacity, err := p.atoi(rec, 1, "capacity")
		if err != nil {
			return err
		}
		if capacity <= 0 {
			return p.fail(rec.line, fmt.Sprintf("depot %d has non-positive capacity %d", k+1, capacity))
		}
		inst.Depots[k].RouteDuration = duration
		inst.Depots[k].Capacity = capacity
		if duration > horizon {
			horizon = duration
		}
	}
	if horizon <= 0 {
		horizon = opts.DefaultHorizon
	}
	if horizon <= 0 {
		horizon = 1000
	}

	minFields := 5
	if inst.Format == domain.TimeWindowed {
		minFields = 7
	}
	inst.Customers = make([]domain.Customer, n)
	for i := 0; i < n; i++ {
		rec := p.records[1+t+i]
		if err := p.need(rec, minFields); err != nil {
			return err
		}
		c, err := p.customerBase(rec)
		if err != nil {
			return err
		}
		if inst.Format == domain.TimeWindowed {
			last := len(rec.fields) - 1
			if c.Earliest, err = p.float(rec, last-1, "earliest"); err != nil {
				return err
			}
			if c.Latest, err = p.float(rec, last, "latest"); err != nil {
				return err
			}
		} else {
			c.Earliest, c.Latest = 0, horizon
		}
		c.OriginalLatest = c.Latest
		inst.Customers[i] = c
	}

	return p.depotCoordinates(inst, 1+t+n)
}

// parseExtended reads this tool's own output back.
func (p *parser) parseExtended(inst *domain.Instance, classes int) error {
	n, t := inst.CustomerCount, inst.DepotCount
	fleetLines := t * classes
	if err := p.expect(1 + fleetLines + n + t); err != nil {
		return err
	}
	inst.Depots = make([]domain.Depot, t)
	for k := 0; k < fleetLines; k++ {
		rec := p.records[1+k]
		if err := p.need(rec, 4); err != nil {
			return err
		}
		var (
			vc  domain.VehicleClass
			err error
		)
		vc.Index = k%classes + 1
		if vc.RouteDuration, err = p.float(rec, 0, "route duration"); err != nil {
			return err
		}
		if vc.Capacity, err = p.atoi(rec, 1, "capacity"); err != nil {
			return err
		}
		if vc.FixedCost, err = p.float(rec, 2, "fixed cost"); err != nil {
			return err
		}
		if vc.VariableCost, err = p.float(rec, 3, "variable cost"); err != nil {
			return err
		}
		d := &inst.Depots[k/classes]
		d.RouteDuration = vc.RouteDuration
		d.Fleet = append(d.Fleet, vc)
		if vc.Capacity > d.Capacity {
			d.Capacity = vc.Capacity
		}
	}

	inst.Customers = make([]domain.Customer, n)
	for i := 0; i < n; i++ {
		rec := p.records[1+fleetLines+i]
		if err := p.need(rec, 8); err != nil {
			return err
		}
		c, err := p.customerBase(rec)
		if err != nil {
			return err
		}
		c.TotalServiceTime = c.ServiceTime
		c.DeliveryQty = c.Demand
		if c.PickupQty, err = p.atoi(rec, 5, "pickup quantity"); err != nil {
			return err
		}
		if c.Earliest, err = p.float(rec, 6, "earliest"); err != nil {
			return err
		}
		if c.Latest, err = p.float(rec, 7, "latest"); err != nil {
			return err
		}
		c.OriginalLatest = c.Latest
		if c.DeliveryQty == 0 && c.PickupQty > 0 {
			c.Category = domain.CategoryC
		}
		inst.Customers[i] = c
	}

	return p.depotCoordinates(inst, 1+fleetLines+n)
}

func (p *parser) customerBase(rec record) (domain.Customer, error) {
	var (
		c   domain.Customer
		err error
	)
	if c.ID, err = p.atoi(rec, 0, "customer id"); err != nil {
		return c, err
	}
	if c.X, err = p.float(rec, 1, "x"); err != nil {
		return c, err
	}
	if c.Y, err = p.float(rec, 2, "y"); err != nil {
		return c, err
	}
	if c.ServiceTime, err = p.float(rec, 3, "service time"); err != nil {
		return c, err
	}
	if c.Demand, err = p.atoi(rec, 4, "demand"); err != nil {
		return c, err
	}
	if c.ServiceTime < 0 || c.Demand < 0 {
		return c, p.fail(rec.line, fmt.Sprintf("customer %d has negative service time or demand", c.ID))
	}
	return c, nil
}

func (p *parser) depotCoordinates(inst *domain.Instance, start int) error {
	for k := range inst.Depots {
		rec := p.records[start+k]
		if err := p.need(rec, 3); err != nil {
			return err
		}
		var err error
		d := &inst.Depots[k]
		if d.ID, err = p.atoi(rec, 0, "depot id"); err != nil {
			return err
		}
		if d.X, err = p.float(rec, 1, "x"); err != nil {
			return err
		}
		if d.Y, err = p.float(rec, 2, "y"); err != nil {
			return err
		}
	}
	return nil
}

func (p *parser) need(rec record, n int) error {
	if len(rec.fields) < n {
		return p.fail(rec.line, fmt.Sprintf("record has %d fields, need at least %d", len(rec.fields), n))
	}
	return nil
}

// atoi accepts integral values written as floats ("12.0") as well.
func (p *parser) atoi(rec record, idx int, what string) (int, error) {
	s := rec.fields[idx]
	if v, err := strconv.Atoi(s); err == nil {
		return v, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, &domain.MalformedError{File: p.file, Line: rec.line, Msg: fmt.Sprintf("%s %q is not an integer", what, s), Err: err}
	}
	return int(f), nil
}

func (p *parser) float(rec record, idx int, what string) (float64, error) {
	s := rec.fields[idx]
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, &domain.MalformedError{File: p.file, Line: rec.line, Msg: fmt.Sprintf("%s %q is not numeric", what, s), Err: err}
	}
	return v, nil
}

func (p *parser) fail(line int, msg string) error {
	return &domain.MalformedError{File: p.file, Line: line, Msg: msg}
}
