package crdb

import (
	"context"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/cockroachdb/errors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

const (
	SerializationFailureCode = "40001"
	UniqueViolationCode      = "23505"
)

type Repository struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func (r *Repository) WithTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	start := time.Now()
	defer func() { observability.DBTxDuration.Observe(time.Since(start).Seconds()) }()

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, "SET TRANSACTION ISOLATION LEVEL SERIALIZABLE")
	if err != nil {
		return err
	}

	err = fn(tx)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == SerializationFailureCode {
			return domain.ErrSerializationFailure
		}
		return err
	}

	return tx.Commit(ctx)
}

// SaveBooking stores the booking and its booking.confirmed outbox event atomically.
func (r *Repository) SaveBooking(ctx context.Context, b domain.Booking) error {
	rec, err := bookingConfirmedRecord(b)
	if err != nil {
		return err
	}
	return r.WithTx(ctx, func(tx pgx.Tx) error {
		if err := r.CreateBooking(ctx, tx, b); err != nil {
			return err
		}
		return r.InsertOutbox(ctx, tx, rec)
	})
}

func (r *Repository) CreateBooking(ctx context.Context, tx pgx.Tx, b domain.Booking) error {
	sqlStr, args, err := r.sb.
		Insert("bookings").
		Columns(
			"id", "payment_reference", "event_title", "event_date", "ticket_name", "venue",
			"quantity", "unit_price", "total_price", "currency", "amount_minor",
			"customer_email", "status", "created_at",
		).
		Values(
			b.ID, b.PaymentReference, b.EventTitle, b.EventDate, b.TicketName, b.Venue,
			b.Quantity, b.UnitPrice.StringFixed(2), b.TotalPrice.StringFixed(2), b.Currency, b.AmountMinor,
			b.CustomerEmail, b.Status, b.CreatedAt,
		).
		ToSql()
	if err != nil {
		return err
	}

	_, err = tx.Exec(ctx, sqlStr, args...)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == UniqueViolationCode {
		return errors.Wrapf(domain.ErrConflict, "booking for payment %s exists", b.PaymentReference)
	}
	return err
}

func (r *Repository) GetBookingByReference(ctx context.Context, reference string) (*domain.Booking, error) {
	sqlStr, args, err := r.sb.
		Select(
			"id", "payment_reference", "event_title", "event_date", "ticket_name", "venue",
			"quantity", "unit_price::TEXT", "total_price::TEXT", "currency", "amount_minor",
			"customer_email", "status", "created_at",
		).
		From("bookings").
		Where(sq.Eq{"payment_reference": reference}).
		ToSql()
	if err != nil {
		return nil, err
	}

	var (
		b          domain.Booking
		unit, total string
	)
	err = r.pool.QueryRow(ctx, sqlStr, args...).Scan(
		&b.ID, &b.PaymentReference, &b.EventTitle, &b.EventDate, &b.TicketName, &b.Venue,
		&b.Quantity, &unit, &total, &b.Currency, &b.AmountMinor,
		&b.CustomerEmail, &b.Status, &b.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if b.UnitPrice, err = decimal.NewFromString(unit); err != nil {
		return nil, errors.Wrap(err, "unit_price")
	}
	if b.TotalPrice, err = decimal.NewFromString(total); err != nil {
		return nil, errors.Wrap(err, "total_price")
	}
	b.CreatedAt = b.CreatedAt.UTC()
	return &b, nil
}
