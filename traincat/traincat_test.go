package traincat

import (
	"os"
	"testing"

	"github.com/google/go-cmp/cmp"
	"nyiyui.ca/railopt"
)

func TestAddAssignsIndicesInOrder(t *testing.T) {
	c := New()
	i0, err := c.Add(Train{Name: "tr1", Length: 100, MaxSpeed: 30, Acceleration: 1, Deceleration: 1})
	if err != nil {
		t.Fatalf("Add tr1: %s", err)
	}
	i1, err := c.Add(Train{Name: "tr2", Length: 120, MaxSpeed: 25, Acceleration: 1, Deceleration: 1, Tim: true})
	if err != nil {
		t.Fatalf("Add tr2: %s", err)
	}
	if i0 != 0 || i1 != 1 {
		t.Fatalf("got indices %d, %d; want 0, 1", i0, i1)
	}
	if c.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", c.Len())
	}
	if got := c.Train(i1).Tim; !got {
		t.Fatalf("tr2.Tim = %v, want true", got)
	}
}

func TestAddDuplicateName(t *testing.T) {
	c := New()
	if _, err := c.Add(Train{Name: "tr1", Length: 100, MaxSpeed: 30, Acceleration: 1, Deceleration: 1}); err != nil {
		t.Fatalf("first Add: %s", err)
	}
	_, err := c.Add(Train{Name: "tr1", Length: 50, MaxSpeed: 20, Acceleration: 1, Deceleration: 1})
	if !railopt.Is(err, railopt.Duplicate) {
		t.Fatalf("Add duplicate: got %v, want Duplicate", err)
	}
}

func TestAddRejectsNonPositiveAttributes(t *testing.T) {
	base := Train{Name: "tr1", Length: 100, MaxSpeed: 30, Acceleration: 1, Deceleration: 1}
	cases := []struct {
		name string
		mut  func(*Train)
	}{
		{"length", func(tr *Train) { tr.Length = 0 }},
		{"max_speed", func(tr *Train) { tr.MaxSpeed = -1 }},
		{"acceleration", func(tr *Train) { tr.Acceleration = 0 }},
		{"deceleration", func(tr *Train) { tr.Deceleration = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := New()
			tr := base
			tc.mut(&tr)
			_, err := c.Add(tr)
			if !railopt.Is(err, railopt.InvalidInput) {
				t.Fatalf("Add with bad %s: got %v, want InvalidInput", tc.name, err)
			}
		})
	}
}

func TestByNameNotFound(t *testing.T) {
	c := New()
	if _, err := c.ByName("ghost"); !railopt.Is(err, railopt.NotFound) {
		t.Fatalf("ByName(ghost): got %v, want NotFound", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	c := New()
	c.Add(Train{Name: "tr1", Length: 100, MaxSpeed: 30, Acceleration: 1, Deceleration: 1.5})
	c.Add(Train{Name: "tr2", Length: 120, MaxSpeed: 25, Acceleration: 0.8, Deceleration: 1, Tim: true})

	dir, err := os.MkdirTemp("", "traincat-test-*")
	if err != nil {
		t.Fatalf("MkdirTemp: %s", err)
	}
	defer os.RemoveAll(dir)

	if err := c.Export(dir); err != nil {
		t.Fatalf("Export: %s", err)
	}
	got, err := Import(dir)
	if err != nil {
		t.Fatalf("Import: %s", err)
	}
	if diff := cmp.Diff(c.All(), got.All()); diff != "" {
		t.Fatalf("round trip mismatch (-want +got):\n%s", diff)
	}
}
