// Command client walks through the reservation API against a running server:
// it finds or creates a client, books the first free slot of the next day,
// reads it back and cancels it.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"slotbook/internal/grpcapi"

	"github.com/rs/zerolog"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	clientName  = "Foo Bar"
	clientEmail = "foo-bar@example.com"
)

func main() {
	defaultAddr := os.Getenv("SLOTBOOK_ADDR")
	if defaultAddr == "" {
		defaultAddr = "localhost:50051"
	}
	addr := flag.String("addr", defaultAddr, "server address")
	flag.Parse()

	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}).With().Timestamp().Logger()

	conn, err := grpc.NewClient(*addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to server")
	}
	defer conn.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := run(ctx, grpcapi.NewReservationClient(conn)); err != nil {
		logger.Fatal().Err(err).Msg("demo failed")
	}
}

func run(ctx context.Context, api *grpcapi.ReservationClient) error {
	fmt.Println("\n--- Setting up client ---")
	clientID, err := findOrCreateClient(ctx, api)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	window := &grpcapi.TimeRange{
		StartTime: timestamppb.New(now),
		EndTime:   timestamppb.New(now.Add(24 * time.Hour)),
	}

	fmt.Println("\n--- Looking for available slots ---")
	slots, err := api.ListAvailableSlots(ctx, window)
	if err != nil {
		return fmt.Errorf("list available slots: %w", err)
	}
	fmt.Printf("Found %d available slots\n", len(slots.Slots))

	fmt.Println("\n--- Creating a reservation ---")
	for _, slot := range slots.Slots {
		reservation, err := api.CreateReservation(ctx, &grpcapi.ReservationRequest{
			ClientID: clientID,
			Slot:     slot,
			Notes:    "Example reservation",
		})
		if status.Code(err) == codes.AlreadyExists {
			// Taken since the listing; try the next one.
			continue
		}
		if err != nil {
			return fmt.Errorf("create reservation: %w", err)
		}
		printReservation("Created reservation", reservation)

		fmt.Println("\n--- Getting reservation details ---")
		details, err := api.GetReservation(ctx, &grpcapi.ReservationID{ID: reservation.ID})
		if err != nil {
			return fmt.Errorf("get reservation: %w", err)
		}
		printReservation("Reservation details", details)

		fmt.Println("\n--- Listing client reservations ---")
		if err := listReservations(ctx, api, clientID); err != nil {
			return err
		}

		fmt.Println("\n--- Cancelling reservation ---")
		if err := api.CancelReservation(ctx, &grpcapi.ReservationID{ID: reservation.ID}); err != nil {
			return fmt.Errorf("cancel reservation: %w", err)
		}
		fmt.Printf("Reservation %s cancelled successfully!\n", reservation.ID)

		fmt.Println("\n--- Listing client reservations after cancellation ---")
		return listReservations(ctx, api, clientID)
	}

	fmt.Println("No slot could be booked")
	return nil
}

func findOrCreateClient(ctx context.Context, api *grpcapi.ReservationClient) (string, error) {
	clients, err := api.ListClients(ctx)
	if err != nil {
		return "", fmt.Errorf("list clients: %w", err)
	}
	for _, c := range clients.Clients {
		if c.Name == clientName {
			fmt.Printf("Found existing client: ID=%s, Name=%s\n", c.ID, c.Name)
			return c.ID, nil
		}
	}

	created, err := api.CreateClient(ctx, &grpcapi.ClientRequest{Name: clientName, Email: clientEmail})
	if err != nil {
		return "", fmt.Errorf("create client: %w", err)
	}
	fmt.Printf("Created client: ID=%s, Name=%s, Email=%s\n", created.ID, created.Name, created.Email)
	return created.ID, nil
}

func listReservations(ctx context.Context, api *grpcapi.ReservationClient, clientID string) error {
	list, err := api.ListClientReservations(ctx, &grpcapi.ClientID{ID: clientID})
	if err != nil {
		return fmt.Errorf("list client reservations: %w", err)
	}
	fmt.Printf("Client has %d reservations:\n", len(list.Reservations))
	for i, r := range list.Reservations {
		fmt.Printf("  #%d: ID=%s, Status=%s\n", i+1, r.ID, r.Status)
	}
	return nil
}

func printReservation(label string, r *grpcapi.Reservation) {
	const layout = "2006-01-02 15:04:05"
	fmt.Printf("%s: ID=%s, From=%s, To=%s, Status=%s\n",
		label, r.ID,
		r.Slot.StartTime.AsTime().Format(layout),
		r.Slot.EndTime.AsTime().Format(layout),
		r.Status,
	)
}
