package cordeau_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/cordeau"
	"github.com/anasstaha/MDHF-VRPTW-SPD-Instances/internal/domain"
)

func TestParseTimeWindowed(t *testing.T) {
	inst, err := cordeau.ParseFile("testdata/p01-mini.txt", cordeau.ReadOptions{DefaultHorizon: 1000})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inst.Name != "p01-mini.txt" || inst.Format != domain.TimeWindowed {
		t.Fatalf("unexpected header: %+v", inst)
	}
	if len(inst.Customers) != 6 || len(inst.Depots) != 2 {
		t.Fatalf("expected 6 customers and 2 depots, got %d/%d", len(inst.Customers), len(inst.Depots))
	}
	c := inst.Customers[0]
	if c.ID != 1 || c.X != -10 || c.Y != 20 || c.ServiceTime != 25 || c.Demand != 40 {
		t.Fatalf("customer 1 mismatch: %+v", c)
	}
	if c.Earliest != 10 || c.Latest != 30 || c.OriginalLatest != 30 {
		t.Fatalf("customer 1 window mismatch: %+v", c)
	}
	d := inst.Depots[1]
	if d.ID != 8 || d.X != 10 || d.Y != 10 || d.Capacity != 240 || d.RouteDuration != 450 {
		t.Fatalf("depot 2 mismatch: %+v", d)
	}
}

func TestParseUntimedSynthesizesWindows(t *testing.T) {
	inst, err := cordeau.ParseFile("testdata/p02-untimed.txt", cordeau.ReadOptions{DefaultHorizon: 720})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inst.Format != domain.Untimed {
		t.Fatalf("expected untimed format, got %v", inst.Format)
	}
	for _, c := range inst.Customers {
		if c.Earliest != 0 || c.Latest != 720 {
			t.Fatalf("customer %d: expected [0,720], got [%v,%v]", c.ID, c.Earliest, c.Latest)
		}
	}
}

func TestParseUntimedUsesRouteDuration(t *testing.T) {
	src := "2 1 1 1\n300 50\n1 1 1 5 10 1 1 1\n2 0 0 0 0\n"
	inst, err := cordeau.Parse("x", strings.NewReader(src), cordeau.ReadOptions{DefaultHorizon: 720})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if inst.Customers[0].Latest != 300 {
		t.Fatalf("expected horizon 300, got %v", inst.Customers[0].Latest)
	}
}

func TestParseMalformed(t *testing.T) {
	cases := []struct {
		name string
		src  string
		line int
	}{
		{"empty", "\n\n", 0},
		{"short header", "6 1 1\n", 1},
		{"unknown type", "4 1 1 1\n", 1},
		{"missing customer", "6 1 2 1\n100 50\n1 0 0 5 10 1 1 1 0 100\n3 0 0 0 0\n", 4},
		{"non-numeric demand", "6 1 1 1\n100 50\n1 0 0 5 ten 1 1 1 0 100\n2 0 0 0 0\n", 3},
		{"short customer", "6 1 1 1\n100 50\n1 0 0 5 10 0\n2 0 0 0 0\n", 3},
		{"zero capacity", "6 1 1 1\n100 0\n1 0 0 5 10 1 1 1 0 100\n2 0 0 0 0\n", 2},
		{"trailing record", "6 1 1 1\n100 50\n1 0 0 5 10 1 1 1 0 100\n2 0 0 0 0\n9 9 9\n", 5},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := cordeau.Parse("bad.txt", strings.NewReader(tc.src), cordeau.ReadOptions{})
			if !errors.Is(err, domain.ErrMalformedInstance) {
				t.Fatalf("expected malformed error, got %v", err)
			}
			var me *domain.MalformedError
			if !errors.As(err, &me) {
				t.Fatalf("expected *MalformedError, got %T", err)
			}
			if me.File != "bad.txt" || me.Line != tc.line {
				t.Fatalf("expected bad.txt:%d, got %s:%d", tc.line, me.File, me.Line)
			}
		})
	}
}

func TestParseFileMissing(t *testing.T) {
	if _, err := cordeau.ParseFile("testdata/does-not-exist.txt", cordeau.ReadOptions{}); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
