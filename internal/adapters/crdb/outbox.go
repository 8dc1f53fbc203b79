package crdb

import (
	"context"
	"encoding/json"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/robertarktes/ticket-checkout/internal/domain"
)

type OutboxRecord struct {
	ID            uuid.UUID
	AggregateType string
	AggregateID   uuid.UUID
	EventType     string
	Payload       []byte
	CreatedAt     time.Time
	PublishedAt   *time.Time
	Status        string // NEW, PUBLISHED, FAILED
	DedupeKey     string
}

func bookingConfirmedRecord(b domain.Booking) (OutboxRecord, error) {
	payload, err := json.Marshal(b.ConfirmedEvent())
	if err != nil {
		return OutboxRecord{}, err
	}
	return OutboxRecord{
		ID:            uuid.New(),
		AggregateType: "booking",
		AggregateID:   b.ID,
		EventType:     domain.EventBookingConfirmed,
		Payload:       payload,
		DedupeKey:     domain.EventBookingConfirmed + ":" + b.PaymentReference,
	}, nil
}

func (r *Repository) InsertOutbox(ctx context.Context, tx pgx.Tx, record OutboxRecord) error {
	sqlStr, args, err := r.sb.
		Insert("outbox").
		Columns("id", "aggregate_type", "aggregate_id", "event_type", "payload_json", "status", "dedupe_key").
		Values(record.ID, record.AggregateType, record.AggregateID, record.EventType, string(record.Payload), "NEW", record.DedupeKey).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlStr, args...)
	return err
}

// PublishPending locks up to limit NEW records, hands each to publish and marks
// the ones that went out as PUBLISHED. It returns how many were published.
func (r *Repository) PublishPending(ctx context.Context, limit int, publish func(OutboxRecord) error) (int, error) {
	published := 0
	err := r.WithTx(ctx, func(tx pgx.Tx) error {
		published = 0
		records, err := r.lockUnpublished(ctx, tx, limit)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := publish(rec); err != nil {
				continue
			}
			if err := r.markPublished(ctx, tx, rec.ID, time.Now()); err != nil {
				return err
			}
			published++
		}
		return nil
	})
	return published, err
}

// OldestUnpublished returns the creation time of the oldest NEW record, or nil.
func (r *Repository) OldestUnpublished(ctx context.Context) (*time.Time, error) {
	sqlStr, args, err := r.sb.
		Select("min(created_at)").
		From("outbox").
		Where(sq.Eq{"status": "NEW"}).
		ToSql()
	if err != nil {
		return nil, err
	}
	var oldest *time.Time
	if err := r.pool.QueryRow(ctx, sqlStr, args...).Scan(&oldest); err != nil {
		return nil, err
	}
	return oldest, nil
}

func (r *Repository) lockUnpublished(ctx context.Context, tx pgx.Tx, limit int) ([]OutboxRecord, error) {
	sqlStr, args, err := r.sb.
		Select("id", "aggregate_type", "aggregate_id", "event_type", "payload_json::TEXT", "created_at", "published_at", "status", "dedupe_key").
		From("outbox").
		Where(sq.Eq{"status": "NEW"}).
		OrderBy("created_at ASC").
		Limit(uint64(limit)).
		Suffix("FOR UPDATE SKIP LOCKED").
		ToSql()
	if err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []OutboxRecord
	for rows.Next() {
		var rec OutboxRecord
		var payload string
		err := rows.Scan(&rec.ID, &rec.AggregateType, &rec.AggregateID, &rec.EventType, &payload, &rec.CreatedAt, &rec.PublishedAt, &rec.Status, &rec.DedupeKey)
		if err != nil {
			return nil, err
		}
		rec.Payload = []byte(payload)
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *Repository) markPublished(ctx context.Context, tx pgx.Tx, id uuid.UUID, publishedAt time.Time) error {
	sqlStr, args, err := r.sb.
		Update("outbox").
		Set("status", "PUBLISHED").
		Set("published_at", publishedAt).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, sqlStr, args...)
	return err
}
