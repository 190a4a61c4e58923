package garage

import "errors"

var (
	ErrCapacityExceeded      = errors.New("capacity exceeded")
	ErrEmptyGarage           = errors.New("garage is empty")
	ErrNotFound              = errors.New("vehicle not found")
	ErrInternalInconsistency = errors.New("internal inconsistency")
)

// Result is the outcome of an arrival or departure. Failures are reported
// through Success=false, a human-readable Message and one of the Err*
// sentinels in Err.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	// Displaced lists the vehicles moved out of the way during a departure,
	// nearest the gate first.
	Displaced []string `json:"displaced,omitempty"`
	Err       error    `json:"-"`
}

// Reason returns a stable label for the failure, or "" on success.
func (r Result) Reason() string {
	switch {
	case r.Err == nil:
		return ""
	case errors.Is(r.Err, ErrCapacityExceeded):
		return "capacity_exceeded"
	case errors.Is(r.Err, ErrEmptyGarage):
		return "empty_garage"
	case errors.Is(r.Err, ErrNotFound):
		return "not_found"
	case errors.Is(r.Err, ErrInternalInconsistency):
		return "internal_inconsistency"
	default:
		return "unknown"
	}
}

type Snapshot struct {
	ParkedCars      []string `json:"parked_cars"`
	TotalArrivals   int      `json:"total_arrivals"`
	TotalDepartures int      `json:"total_departures"`
	TotalMovements  int      `json:"total_movements"`
}
