package traincat

import (
	"encoding/json"
	"os"
	"path/filepath"

	"nyiyui.ca/railopt"
)

type trainJSON struct {
	Name         string  `json:"name"`
	Length       float64 `json:"length"`
	MaxSpeed     float64 `json:"max_speed"`
	Acceleration float64 `json:"acceleration"`
	Deceleration float64 `json:"deceleration"`
	Tim          bool    `json:"tim,omitempty"`
}

// Export writes trains.json into dir, per spec.md §6.
func (c *Catalogue) Export(dir string) error {
	const op = "traincat.Export"
	ts := make([]trainJSON, len(c.trains))
	for i, t := range c.trains {
		ts[i] = trainJSON{
			Name:         t.Name,
			Length:       t.Length,
			MaxSpeed:     t.MaxSpeed,
			Acceleration: t.Acceleration,
			Deceleration: t.Deceleration,
			Tim:          t.Tim,
		}
	}
	data, err := json.MarshalIndent(ts, "", "  ")
	if err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "trains.json"), data, 0o644); err != nil {
		return railopt.Wrap(railopt.IoFailure, op, err)
	}
	return nil
}

// Import reads trains.json from dir and rebuilds a Catalogue with the same
// insertion order (and therefore the same indices) as the file.
func Import(dir string) (*Catalogue, error) {
	const op = "traincat.Import"
	data, err := os.ReadFile(filepath.Join(dir, "trains.json"))
	if err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	var ts []trainJSON
	if err := json.Unmarshal(data, &ts); err != nil {
		return nil, railopt.Wrap(railopt.IoFailure, op, err)
	}
	c := New()
	for _, t := range ts {
		if _, err := c.Add(Train{
			Name:         t.Name,
			Length:       t.Length,
			MaxSpeed:     t.MaxSpeed,
			Acceleration: t.Acceleration,
			Deceleration: t.Deceleration,
			Tim:          t.Tim,
		}); err != nil {
			return nil, railopt.Wrap(railopt.IoFailure, op, err)
		}
	}
	return c, nil
}
