package garage

import (
	"context"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-garage/internal/logging"
)

type InstrumentedGarage struct {
	*Garage
	telemetry *TelemetryProvider

	// Metrics
	arrivalOperations   metric.Int64Counter
	departureOperations metric.Int64Counter
	displacedVehicles   metric.Int64Counter
	occupancyGauge      metric.Int64UpDownCounter
	operationDuration   metric.Float64Histogram
	totalSpacesGauge    metric.Int64UpDownCounter
}

func NewInstrumentedGarage(capacity int, telemetry *TelemetryProvider) (*InstrumentedGarage, error) {
	base := NewGarage(capacity)

	meter := telemetry.Meter()

	arrivalOperations, err := meter.Int64Counter("garage_arrival_operations_total",
		metric.WithDescription("Total number of arrival requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	departureOperations, err := meter.Int64Counter("garage_departure_operations_total",
		metric.WithDescription("Total number of departure requests"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	displacedVehicles, err := meter.Int64Counter("garage_displaced_vehicles_total",
		metric.WithDescription("Vehicles temporarily moved out to let another vehicle leave"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("garage_occupancy",
		metric.WithDescription("Current number of parked vehicles"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("garage_operation_duration_seconds",
		metric.WithDescription("Duration of garage operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSpacesGauge, err := meter.Int64UpDownCounter("garage_total_spaces",
		metric.WithDescription("Total number of parking spaces"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ig := &InstrumentedGarage{
		Garage:              base,
		telemetry:           telemetry,
		arrivalOperations:   arrivalOperations,
		departureOperations: departureOperations,
		displacedVehicles:   displacedVehicles,
		occupancyGauge:      occupancyGauge,
		operationDuration:   operationDuration,
		totalSpacesGauge:    totalSpacesGauge,
	}

	totalSpacesGauge.Add(context.Background(), int64(base.Capacity()))

	return ig, nil
}

// Close withdraws this garage's spaces and vehicles from the shared gauges.
func (ig *InstrumentedGarage) Close(ctx context.Context) {
	ig.totalSpacesGauge.Add(ctx, -int64(ig.Capacity()))
	ig.occupancyGauge.Add(ctx, -int64(ig.Len()))
}

func (ig *InstrumentedGarage) Arrive(ctx context.Context, plate string) Result {
	ctx, span := ig.telemetry.Tracer().Start(ctx, "garage.arrive",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
			attribute.Int("garage.occupancy", ig.Len()),
		))
	defer span.End()

	start := time.Now()

	res := ig.Garage.Arrive(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "arrive"),
	}

	if !res.Success {
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Message)
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", res.Reason()),
		)
		logging.Warn(ctx, "arrival rejected", logging.Plate(plate), logging.Reason(res.Reason()))
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("vehicle_parked", trace.WithAttributes(
			attribute.Int("stack_position", ig.Len()-1),
		))
		ig.occupancyGauge.Add(ctx, 1)
		logging.Info(ctx, "vehicle arrived", logging.Plate(plate), "occupancy", ig.Len(), "capacity", ig.Capacity())
	}

	ig.arrivalOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ig.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return res
}

func (ig *InstrumentedGarage) Depart(ctx context.Context, plate string) Result {
	ctx, span := ig.telemetry.Tracer().Start(ctx, "garage.depart",
		trace.WithAttributes(
			attribute.String("vehicle.plate", plate),
			attribute.Int("garage.occupancy", ig.Len()),
		))
	defer span.End()

	start := time.Now()

	if blocking := ig.Blocking(plate); len(blocking) > 0 {
		span.AddEvent("displacing_vehicles", trace.WithAttributes(
			attribute.StringSlice("vehicle.blocking", blocking),
		))
	}

	res := ig.Garage.Depart(plate)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "depart"),
	}

	switch {
	case res.Success:
		labels = append(labels, attribute.String("status", "success"))
		span.SetAttributes(attribute.Int("vehicle.displaced_count", len(res.Displaced)))
		span.AddEvent("vehicle_departed")
		ig.occupancyGauge.Add(ctx, -1)
		if len(res.Displaced) > 0 {
			ig.displacedVehicles.Add(ctx, int64(len(res.Displaced)))
		}
		logging.Info(ctx, "vehicle departed",
			logging.Plate(plate),
			"displaced", strings.Join(res.Displaced, ","),
			"occupancy", ig.Len(),
		)
	default:
		span.RecordError(res.Err)
		span.SetStatus(codes.Error, res.Message)
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", res.Reason()),
		)
		if res.Reason() == "internal_inconsistency" {
			logging.Error(ctx, "departure lost track of vehicle", logging.Plate(plate), logging.Reason(res.Reason()))
		} else {
			logging.Warn(ctx, "departure rejected", logging.Plate(plate), logging.Reason(res.Reason()))
		}
	}

	ig.departureOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ig.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return res
}

func (ig *InstrumentedGarage) Status(ctx context.Context) Snapshot {
	ctx, span := ig.telemetry.Tracer().Start(ctx, "garage.status")
	defer span.End()

	start := time.Now()

	snapshot := ig.Garage.Status()

	duration := time.Since(start).Seconds()

	span.SetAttributes(
		attribute.Int("garage.occupancy", len(snapshot.ParkedCars)),
		attribute.Int("garage.capacity", ig.Capacity()),
		attribute.Int("garage.total_movements", snapshot.TotalMovements),
	)

	labels := []attribute.KeyValue{
		attribute.String("operation", "status"),
		attribute.String("status", "success"),
	}

	ig.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return snapshot
}
