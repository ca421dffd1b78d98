// Package traincat implements the train catalogue of spec.md §4.2: an
// append-only list of Train records keyed by a unique name, with validation
// of physical attributes at insertion time.
package traincat

import (
	"nyiyui.ca/railopt"
)

// Train is a physical train type, per spec.md §3.
type Train struct {
	Index        int
	Name         string
	Length       float64
	MaxSpeed     float64
	Acceleration float64
	Deceleration float64
	// Tim marks a train as subject to "timetable is mandatory" scheduling
	// (spec.md §3's boolean tim attribute).
	Tim bool
}

// Catalogue is an append-only, name-indexed list of Train records. The zero
// value is not usable; construct one with New.
type Catalogue struct {
	trains []Train
	byName map[string]int
}

// New returns an empty Catalogue.
func New() *Catalogue {
	return &Catalogue{byName: map[string]int{}}
}

// Add validates t's attributes and appends it, returning its stable index.
// Fails with railopt.Duplicate if t.Name is already in use, or
// railopt.InvalidInput if any numeric attribute is non-positive.
func (c *Catalogue) Add(t Train) (int, error) {
	const op = "traincat.Add"
	if _, ok := c.byName[t.Name]; ok {
		return 0, railopt.Newf(railopt.Duplicate, op, "train name %q already exists", t.Name)
	}
	if t.Length <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "length must be positive, got %v", t.Length)
	}
	if t.MaxSpeed <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "max_speed must be positive, got %v", t.MaxSpeed)
	}
	if t.Acceleration <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "acceleration must be positive, got %v", t.Acceleration)
	}
	if t.Deceleration <= 0 {
		return 0, railopt.Newf(railopt.InvalidInput, op, "deceleration must be positive, got %v", t.Deceleration)
	}
	idx := len(c.trains)
	t.Index = idx
	c.trains = append(c.trains, t)
	c.byName[t.Name] = idx
	return idx, nil
}

// Train returns the train at index i.
func (c *Catalogue) Train(i int) Train { return c.trains[i] }

// ByName looks a train up by its unique name.
func (c *Catalogue) ByName(name string) (int, error) {
	if idx, ok := c.byName[name]; ok {
		return idx, nil
	}
	return 0, railopt.Newf(railopt.NotFound, "traincat.ByName", "no train named %q", name)
}

// Len returns the number of trains in the catalogue.
func (c *Catalogue) Len() int { return len(c.trains) }

// All returns the trains in insertion order. The returned slice must not be
// mutated by the caller.
func (c *Catalogue) All() []Train { return c.trains }
