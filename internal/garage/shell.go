package garage

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const emptyPlateMessage = "Please enter a license plate number."

// Shell drives a single garage from line-oriented commands. It owns its
// garage and runs commands one at a time.
type Shell struct {
	garage      *InstrumentedGarage
	scanner     *bufio.Scanner
	out         io.Writer
	telemetry   *TelemetryProvider
	capacity    int
	maxCapacity int
}

// NewShell returns a shell whose first garage has the given capacity.
// create_garage accepts capacities up to maxCapacity.
func NewShell(telemetry *TelemetryProvider, capacity, maxCapacity int, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		scanner:     bufio.NewScanner(in),
		out:         out,
		telemetry:   telemetry,
		capacity:    capacity,
		maxCapacity: maxCapacity,
	}
}

func (s *Shell) Run(ctx context.Context) error {
	tracer := s.telemetry.Tracer()
	ctx, span := tracer.Start(ctx, "shell.run")
	defer span.End()

	garage, err := NewInstrumentedGarage(s.capacity, s.telemetry)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("create garage: %w", err)
	}
	s.garage = garage
	defer func() { s.garage.Close(context.WithoutCancel(ctx)) }()

	span.AddEvent("shell_started")
	s.printf("Parking garage ready with %d spaces. Type 'help' for commands.\n", s.garage.Capacity())

	for ctx.Err() == nil && s.scanner.Scan() {
		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		quit := s.processCommand(cmdCtx, input)
		cmdSpan.End()

		if quit {
			break
		}
	}

	span.AddEvent("shell_ended")
	return s.scanner.Err()
}

func (s *Shell) processCommand(ctx context.Context, input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}

	command := parts[0]
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("command.name", command))

	switch command {
	case "create_garage":
		s.handleCreateGarage(ctx, parts)
	case "arrive", "park":
		s.handleArrive(ctx, parts)
	case "depart", "leave":
		s.handleDepart(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "random":
		s.printf("%s\n", RandomPlate())
	case "arrive_random":
		s.arrive(ctx, RandomPlate())
	case "help":
		s.printHelp()
	case "exit", "quit":
		return true
	default:
		span.AddEvent("unknown_command", trace.WithAttributes(
			attribute.String("unknown_command", command),
		))
		s.printf("Unknown command: %s\n", command)
	}
	return false
}

func (s *Shell) handleCreateGarage(ctx context.Context, parts []string) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.create_garage")
	defer span.End()

	if len(parts) != 2 {
		span.AddEvent("invalid_arguments")
		s.printf("Usage: create_garage <capacity>\n")
		return
	}

	capacity, err := strconv.Atoi(parts[1])
	if err != nil || capacity <= 0 {
		span.RecordError(fmt.Errorf("invalid capacity: %s", parts[1]))
		span.AddEvent("invalid_capacity")
		s.printf("Invalid capacity\n")
		return
	}

	span.SetAttributes(attribute.Int("garage.capacity", capacity))

	if capacity > s.maxCapacity {
		span.AddEvent("capacity_too_large")
		s.printf("Capacity must not exceed %d\n", s.maxCapacity)
		return
	}

	garage, err := NewInstrumentedGarage(capacity, s.telemetry)
	if err != nil {
		span.RecordError(err)
		s.printf("Error creating garage: %s\n", err.Error())
		return
	}

	s.garage.Close(ctx)
	s.garage = garage
	span.AddEvent("garage_created")
	s.printf("Created a parking garage with %d spaces\n", capacity)
}

func (s *Shell) handleArrive(ctx context.Context, parts []string) {
	if len(parts) < 2 {
		s.printf("Usage: arrive <plate>\n")
		return
	}
	s.arrive(ctx, strings.Join(parts[1:], " "))
}

func (s *Shell) arrive(ctx context.Context, input string) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.arrive_command")
	defer span.End()

	plate := SanitizePlate(input)
	if plate == "" {
		span.AddEvent("empty_plate")
		s.printf("%s\n", emptyPlateMessage)
		return
	}
	span.SetAttributes(attribute.String("vehicle.plate", plate))

	res := s.garage.Arrive(ctx, plate)
	s.printf("%s\n", res.Message)
}

func (s *Shell) handleDepart(ctx context.Context, parts []string) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.depart_command")
	defer span.End()

	if len(parts) < 2 {
		span.AddEvent("invalid_arguments")
		s.printf("Usage: depart <plate>\n")
		return
	}

	plate := SanitizePlate(strings.Join(parts[1:], " "))
	if plate == "" {
		span.AddEvent("empty_plate")
		s.printf("%s\n", emptyPlateMessage)
		return
	}
	span.SetAttributes(attribute.String("vehicle.plate", plate))

	res := s.garage.Depart(ctx, plate)
	if len(res.Displaced) > 0 {
		s.printf("Moved out through the gate and back: %s\n", strings.Join(res.Displaced, ", "))
	}
	s.printf("%s\n", res.Message)
}

func (s *Shell) handleStatus(ctx context.Context) {
	ctx, span := s.telemetry.Tracer().Start(ctx, "shell.status_command")
	defer span.End()

	status := s.garage.Status(ctx)
	span.SetAttributes(attribute.Int("garage.occupied", len(status.ParkedCars)))

	s.printf("Available Spaces: %d/%d\n", s.garage.Available(), s.garage.Capacity())
	s.printf("Total Arrivals: %d\n", status.TotalArrivals)
	s.printf("Total Departures: %d\n", status.TotalDepartures)
	s.printf("Total Movements: %d\n", status.TotalMovements)

	if len(status.ParkedCars) == 0 {
		s.printf("No cars currently parked\n")
		return
	}

	for i := range status.ParkedCars {
		s.printf("%d. %s\n", i+1, status.ParkedCars[len(status.ParkedCars)-1-i])
	}
}

func (s *Shell) printHelp() {
	s.printf(`Commands:
  arrive <plate>            park a vehicle at the gate
  depart <plate>            let a vehicle leave, moving the ones above it
  status                    show occupancy and counters (top of the stack first)
  random                    print a random plate
  arrive_random             park a vehicle with a random plate
  create_garage <capacity>  start over with an empty garage
  exit                      leave the shell
`)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}
