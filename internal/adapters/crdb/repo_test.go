package crdb_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/robertarktes/ticket-checkout/internal/adapters/crdb"
	"github.com/robertarktes/ticket-checkout/internal/domain"
)

func startCRDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { crdbContainer.Terminate(ctx) })

	host, err := crdbContainer.Host(ctx)
	if err != nil {
		t.Fatal(err)
	}
	port, err := crdbContainer.MappedPort(ctx, "26257")
	if err != nil {
		t.Fatal(err)
	}

	pool, err := pgxpool.New(ctx, fmt.Sprintf("postgresql://root@%s:%s/defaultdb?sslmode=disable", host, port.Port()))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	if err := crdb.Migrate(ctx, pool); err != nil {
		t.Fatal(err)
	}
	return pool
}

func booking(t *testing.T, reference string) domain.Booking {
	t.Helper()
	b, err := domain.NewBooking(domain.BookingRequest{
		EventTitle:      "Show",
		EventDate:       "October 16, 2025",
		TicketName:      "General Admission",
		Quantity:        2,
		UnitPrice:       decimal.RequireFromString("12.00"),
		TotalPrice:      decimal.RequireFromString("24.00"),
		CustomerEmail:   "a@b.com",
		PaymentMethodID: "pm_card_visa",
	}, domain.PaymentConfirmation{Reference: reference, Status: domain.PaymentSucceeded},
		"Peadar Kearney's Pub - Cellar", "eur", time.Now())
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func TestRepository_SaveBooking(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(startCRDB(t))

	b := booking(t, "pi_123")
	if err := repo.SaveBooking(ctx, b); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	fetched, err := repo.GetBookingByReference(ctx, "pi_123")
	if err != nil {
		t.Fatal(err)
	}
	if fetched.ID != b.ID || fetched.Quantity != 2 || !fetched.TotalPrice.Equal(decimal.NewFromInt(24)) {
		t.Errorf("unexpected booking %+v", fetched)
	}
	if fetched.AmountMinor != 2400 || fetched.Venue != "Peadar Kearney's Pub - Cellar" {
		t.Errorf("unexpected amount or venue %+v", fetched)
	}

	err = repo.SaveBooking(ctx, booking(t, "pi_123"))
	if !errors.Is(err, domain.ErrConflict) {
		t.Errorf("expected conflict error, got %v", err)
	}

	_, err = repo.GetBookingByReference(ctx, "pi_missing")
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestRepository_PublishPending(t *testing.T) {
	ctx := context.Background()
	repo := crdb.NewRepository(startCRDB(t))

	if err := repo.SaveBooking(ctx, booking(t, "pi_1")); err != nil {
		t.Fatal(err)
	}
	if err := repo.SaveBooking(ctx, booking(t, "pi_2")); err != nil {
		t.Fatal(err)
	}

	oldest, err := repo.OldestUnpublished(ctx)
	if err != nil || oldest == nil {
		t.Fatalf("expected an unpublished record, got %v %v", oldest, err)
	}

	var seen []domain.BookingConfirmed
	n, err := repo.PublishPending(ctx, 10, func(rec crdb.OutboxRecord) error {
		if rec.EventType != domain.EventBookingConfirmed {
			t.Errorf("unexpected event type %s", rec.EventType)
		}
		var evt domain.BookingConfirmed
		if err := json.Unmarshal(rec.Payload, &evt); err != nil {
			return err
		}
		if evt.PaymentReference == "pi_2" {
			return errors.New("broker unavailable")
		}
		seen = append(seen, evt)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 || len(seen) != 1 || seen[0].TotalPrice != "24.00" {
		t.Fatalf("expected one published event, got %d %+v", n, seen)
	}

	n, err = repo.PublishPending(ctx, 10, func(crdb.OutboxRecord) error { return nil })
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expected the failed record to be retried, got %d", n)
	}

	oldest, err = repo.OldestUnpublished(ctx)
	if err != nil || oldest != nil {
		t.Errorf("expected empty outbox, got %v %v", oldest, err)
	}
}
