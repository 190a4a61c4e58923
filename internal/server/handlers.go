package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"parking-garage/internal/garage"
	"parking-garage/internal/session"
)

type Handler struct {
	sessions        *session.Manager
	serviceName     string
	defaultCapacity int
	maxCapacity     int
}

// NewHandler returns the API handlers. A non-positive maxCapacity selects
// garage.DefaultMaxCapacity.
func NewHandler(sessions *session.Manager, serviceName string, defaultCapacity, maxCapacity int) *Handler {
	if maxCapacity <= 0 {
		maxCapacity = garage.DefaultMaxCapacity
	}
	return &Handler{
		sessions:        sessions,
		serviceName:     serviceName,
		defaultCapacity: defaultCapacity,
		maxCapacity:     maxCapacity,
	}
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, HealthResponse{
		Status:   "healthy",
		Service:  h.serviceName,
		Sessions: h.sessions.Count(),
		Meta:     extractMeta(r.Context()),
	})
}

func (h *Handler) CreateGarage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req GarageCreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if req.Capacity < 0 {
		WriteError(ctx, w, http.StatusBadRequest, "Capacity must be greater than 0")
		return
	}
	if req.Capacity > h.maxCapacity {
		WriteError(ctx, w, http.StatusBadRequest, fmt.Sprintf("Capacity must not exceed %d", h.maxCapacity))
		return
	}
	if req.Capacity == 0 {
		req.Capacity = h.defaultCapacity
	}

	s, err := h.sessions.Create(ctx, req.Capacity)
	if err != nil {
		if errors.Is(err, session.ErrTooManySessions) {
			WriteError(ctx, w, http.StatusServiceUnavailable, "Too many garages, try again later")
			return
		}
		WriteError(ctx, w, http.StatusInternalServerError, "Failed to create garage")
		return
	}

	info := s.Info()
	WriteSuccessWithStatus(ctx, w, http.StatusCreated, "Garage created successfully", GarageCreateResponse{
		ID:       info.ID,
		Capacity: info.Capacity,
	})
}

func (h *Handler) ListGarages(w http.ResponseWriter, r *http.Request) {
	list := h.sessions.List()
	infos := make([]session.Info, 0, len(list))
	for _, s := range list {
		infos = append(infos, s.Info())
	}
	WriteSuccess(r.Context(), w, "Garages retrieved successfully", infos)
}

func (h *Handler) DeleteGarage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")

	if err := h.sessions.Delete(ctx, id); err != nil {
		WriteError(ctx, w, http.StatusNotFound, "Garage not found")
		return
	}

	WriteSuccess(ctx, w, "Garage deleted successfully", map[string]any{"id": id})
}

func (h *Handler) Arrive(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func(g *garage.InstrumentedGarage, plate string) garage.Result {
		return g.Arrive(r.Context(), plate)
	})
}

func (h *Handler) Depart(w http.ResponseWriter, r *http.Request) {
	h.move(w, r, func(g *garage.InstrumentedGarage, plate string) garage.Result {
		return g.Depart(r.Context(), plate)
	})
}

func (h *Handler) move(w http.ResponseWriter, r *http.Request, op func(*garage.InstrumentedGarage, string) garage.Result) {
	ctx := r.Context()

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var req PlateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		WriteError(ctx, w, http.StatusBadRequest, "Invalid request body")
		return
	}

	plate := garage.SanitizePlate(req.Plate)
	if plate == "" {
		WriteError(ctx, w, http.StatusBadRequest, "Please enter a license plate number.")
		return
	}

	var (
		res  garage.Result
		resp MovementResponse
	)
	err := s.Do(func(g *garage.InstrumentedGarage) {
		res = op(g, plate)
		resp = MovementResponse{
			Plate:     plate,
			Displaced: res.Displaced,
			Occupied:  g.Len(),
			Available: g.Available(),
		}
	})
	if err != nil {
		writeGarageNotFound(ctx, w)
		return
	}

	if !res.Success {
		WriteError(ctx, w, statusForResult(res), res.Message)
		return
	}

	WriteSuccess(ctx, w, res.Message, resp)
}

func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	s, ok := h.lookup(w, r)
	if !ok {
		return
	}

	var response StatusResponse
	err := s.Do(func(g *garage.InstrumentedGarage) {
		snapshot := g.Status(ctx)
		spaces := make([]SpaceStatus, g.Capacity())
		for i := range spaces {
			spaces[i] = SpaceStatus{Position: i + 1}
			if i < len(snapshot.ParkedCars) {
				spaces[i].Plate = snapshot.ParkedCars[i]
				spaces[i].Occupied = true
			}
		}

		response = StatusResponse{
			Snapshot:  snapshot,
			Capacity:  g.Capacity(),
			Occupied:  len(snapshot.ParkedCars),
			Available: g.Available(),
			Spaces:    spaces,
		}
	})
	if err != nil {
		writeGarageNotFound(ctx, w)
		return
	}

	WriteSuccess(ctx, w, "Status retrieved successfully", response)
}

func (h *Handler) RandomPlate(w http.ResponseWriter, r *http.Request) {
	WriteSuccess(r.Context(), w, "Random plate generated", RandomPlateResponse{
		Plate: garage.RandomPlate(),
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.sessions.Get(chi.URLParam(r, "id"))
	if err != nil {
		writeGarageNotFound(r.Context(), w)
		return nil, false
	}
	return s, true
}

func writeGarageNotFound(ctx context.Context, w http.ResponseWriter) {
	WriteError(ctx, w, http.StatusNotFound, "Garage not found. Create a garage first")
}

func statusForResult(res garage.Result) int {
	switch {
	case errors.Is(res.Err, garage.ErrCapacityExceeded), errors.Is(res.Err, garage.ErrEmptyGarage):
		return http.StatusConflict
	case errors.Is(res.Err, garage.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
