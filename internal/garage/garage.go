package garage

import (
	"fmt"
	"slices"
)

const (
	DefaultCapacity = 10

	// DefaultMaxCapacity is the largest garage callers create unless
	// configured otherwise.
	DefaultMaxCapacity = 1000
)

// Garage is a single-lane parking garage with one gate. Vehicles are stacked
// in arrival order; only the top vehicle can leave without moving others.
//
// A Garage is not safe for concurrent use.
type Garage struct {
	capacity   int
	stack      []string
	movements  map[string]int
	arrivals   int
	departures int
}

// NewGarage returns an empty garage. A non-positive capacity selects
// DefaultCapacity.
func NewGarage(capacity int) *Garage {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}

	return &Garage{
		capacity:  capacity,
		stack:     []string{},
		movements: make(map[string]int),
	}
}

func (g *Garage) Capacity() int {
	return g.capacity
}

func (g *Garage) Len() int {
	return len(g.stack)
}

func (g *Garage) Available() int {
	return g.capacity - len(g.stack)
}

func (g *Garage) IsFull() bool {
	return len(g.stack) >= g.capacity
}

func (g *Garage) Contains(plate string) bool {
	return slices.Contains(g.stack, plate)
}

// Movements reports how many times plate has been pushed or popped.
func (g *Garage) Movements(plate string) int {
	return g.movements[plate]
}

// Blocking returns the vehicles that must be moved out of the way for plate
// to leave, nearest the gate first. It returns nil when plate is on top or
// not parked.
func (g *Garage) Blocking(plate string) []string {
	topFirst := reversed(g.stack)
	idx := slices.Index(topFirst, plate)
	if idx <= 0 {
		return nil
	}
	return topFirst[:idx]
}

func (g *Garage) Arrive(plate string) Result {
	if g.IsFull() {
		return Result{
			Success: false,
			Message: "Sorry, parking is full!",
			Err:     ErrCapacityExceeded,
		}
	}

	g.stack = append(g.stack, plate)
	g.movements[plate]++
	g.arrivals++

	return Result{
		Success: true,
		Message: fmt.Sprintf("Car with plate number %s has arrived and parked.", plate),
	}
}

// Depart removes plate from the garage. Every vehicle above it is popped
// through the gate and pushed back afterwards in its original order; each of
// those moves counts as a departure and an arrival respectively.
func (g *Garage) Depart(plate string) Result {
	if len(g.stack) == 0 {
		return Result{
			Success: false,
			Message: "Error: Parking is empty!",
			Err:     ErrEmptyGarage,
		}
	}

	if !g.Contains(plate) {
		return Result{
			Success: false,
			Message: fmt.Sprintf("Error: Car with plate number %s is not in the parking garage.", plate),
			Err:     ErrNotFound,
		}
	}

	var displaced []string
	found := false

	for len(g.stack) > 0 {
		top := g.pop()
		if top == plate {
			found = true
			break
		}
		displaced = append(displaced, top)
		g.departures++
		g.movements[top]++
	}

	for i := len(displaced) - 1; i >= 0; i-- {
		car := displaced[i]
		g.stack = append(g.stack, car)
		g.arrivals++
		g.movements[car]++
	}

	if !found {
		return Result{
			Success:   false,
			Message:   "Error: Something went wrong during departure.",
			Displaced: displaced,
			Err:       ErrInternalInconsistency,
		}
	}

	g.departures++
	g.movements[plate]++

	return Result{
		Success:   true,
		Message:   fmt.Sprintf("Car with plate number %s has departed.", plate),
		Displaced: displaced,
	}
}

func (g *Garage) Status() Snapshot {
	total := 0
	for _, n := range g.movements {
		total += n
	}

	return Snapshot{
		ParkedCars:      slices.Clone(g.stack),
		TotalArrivals:   g.arrivals,
		TotalDepartures: g.departures,
		TotalMovements:  total,
	}
}

func (g *Garage) pop() string {
	last := len(g.stack) - 1
	top := g.stack[last]
	g.stack = g.stack[:last]
	return top
}

func reversed(s []string) []string {
	out := slices.Clone(s)
	slices.Reverse(out)
	return out
}
