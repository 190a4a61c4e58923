package server

import (
	"context"
	"encoding/json"
	"net/http"

	"go.opentelemetry.io/otel/trace"

	"parking-garage/internal/garage"
	"parking-garage/internal/logging"
)

type Meta struct {
	TraceID   string `json:"trace_id,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

type Response struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
	Meta    *Meta  `json:"meta,omitempty"`
}

type HealthResponse struct {
	Status   string `json:"status"`
	Service  string `json:"service"`
	Sessions int    `json:"sessions"`
	Meta     *Meta  `json:"meta,omitempty"`
}

type GarageCreateRequest struct {
	Capacity int `json:"capacity"`
}

type GarageCreateResponse struct {
	ID       string `json:"id"`
	Capacity int    `json:"capacity"`
}

type PlateRequest struct {
	Plate string `json:"plate"`
}

type MovementResponse struct {
	Plate     string   `json:"plate"`
	Displaced []string `json:"displaced,omitempty"`
	Occupied  int      `json:"occupied"`
	Available int      `json:"available"`
}

type SpaceStatus struct {
	Position int    `json:"position"`
	Plate    string `json:"plate,omitempty"`
	Occupied bool   `json:"occupied"`
}

type StatusResponse struct {
	garage.Snapshot
	Capacity  int           `json:"capacity"`
	Occupied  int           `json:"occupied"`
	Available int           `json:"available"`
	Spaces    []SpaceStatus `json:"spaces"`
}

type RandomPlateResponse struct {
	Plate string `json:"plate"`
}

func WriteJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func extractMeta(ctx context.Context) *Meta {
	meta := &Meta{}

	span := trace.SpanFromContext(ctx)
	if span.SpanContext().HasTraceID() {
		meta.TraceID = span.SpanContext().TraceID().String()
	}

	if reqID, ok := logging.RequestIDFromContext(ctx); ok {
		meta.RequestID = reqID
	}

	return meta
}

func WriteSuccess(ctx context.Context, w http.ResponseWriter, message string, data any) {
	WriteSuccessWithStatus(ctx, w, http.StatusOK, message, data)
}

func WriteSuccessWithStatus(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	WriteJSON(w, status, Response{
		Success: true,
		Message: message,
		Data:    data,
		Meta:    extractMeta(ctx),
	})
}

func WriteError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, Response{
		Success: false,
		Error:   message,
		Meta:    extractMeta(ctx),
	})
}
