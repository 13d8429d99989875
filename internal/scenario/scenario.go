package scenario

import "fmt"

// Scenario is one named axis of the ensemble, e.g. ten hydrology traces.
type Scenario struct {
	Name string
	Size int
}

// Index addresses one member of the ensemble during evaluation.
type Index struct {
	// GlobalID is the position of this combination in the flattened
	// ensemble, starting at 0.
	GlobalID int
	// Values holds the per-axis indices in collection order. Empty when the
	// model defines no scenarios.
	Values []int
}

// Collection is the ordered set of scenario axes of a model. The ensemble is
// the cross product of all axes; iteration order varies the last axis
// fastest. A collection with no scenarios still yields a single index with
// global id 0 so models always run at least once.
type Collection struct {
	scenarios []Scenario
}

// NewCollection creates an empty scenario collection.
func NewCollection() *Collection {
	return &Collection{}
}

// Add appends a scenario axis to the collection.
func (c *Collection) Add(name string, size int) error {
	if name == "" {
		return fmt.Errorf("scenario: name must not be empty")
	}
	if size < 1 {
		return fmt.Errorf("scenario %q: size must be at least 1, got %d", name, size)
	}
	for _, s := range c.scenarios {
		if s.Name == name {
			return fmt.Errorf("scenario %q: already defined", name)
		}
	}
	c.scenarios = append(c.scenarios, Scenario{Name: name, Size: size})
	return nil
}

// Scenarios returns the axes in definition order.
func (c *Collection) Scenarios() []Scenario {
	return c.scenarios
}

// Size returns the number of ensemble members, at least 1.
func (c *Collection) Size() int {
	size := 1
	for _, s := range c.scenarios {
		size *= s.Size
	}
	return size
}

// Indices materializes the ensemble in global id order.
func (c *Collection) Indices() []Index {
	if len(c.scenarios) == 0 {
		return []Index{{GlobalID: 0}}
	}

	total := c.Size()
	indices := make([]Index, total)
	values := make([]int, len(c.scenarios))

	for gid := 0; gid < total; gid++ {
		combo := make([]int, len(values))
		copy(combo, values)
		indices[gid] = Index{GlobalID: gid, Values: combo}

		// Advance the odometer, last axis fastest.
		for axis := len(values) - 1; axis >= 0; axis-- {
			values[axis]++
			if values[axis] < c.scenarios[axis].Size {
				break
			}
			values[axis] = 0
		}
	}
	return indices
}
