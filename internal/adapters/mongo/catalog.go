package mongo

import (
	"context"
	"encoding/json"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/robertarktes/ticket-checkout/internal/domain"
	"github.com/robertarktes/ticket-checkout/internal/observability"
)

type CatalogRepository struct {
	coll   *mongo.Collection
	logger observability.Logger
}

func NewCatalogRepository(db *mongo.Database, logger observability.Logger) *CatalogRepository {
	return &CatalogRepository{
		coll:   db.Collection("events"),
		logger: logger,
	}
}

type EventDoc struct {
	ID          string          `bson:"_id" json:"id,omitempty"`
	Title       string          `bson:"title" json:"title"`
	Description string          `bson:"description" json:"description,omitempty"`
	Venue       string          `bson:"venue" json:"venue"`
	Date        time.Time       `bson:"date" json:"date"`
	TicketTypes []TicketTypeDoc `bson:"ticket_types" json:"ticket_types,omitempty"`
	CreatedAt   time.Time       `bson:"created_at" json:"-"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"-"`
}

type TicketTypeDoc struct {
	Name  string `bson:"name" json:"name"`
	Price string `bson:"price" json:"price"`
}

// DecodeEvents reads a JSON array of catalog events. Every event needs a
// title and a venue.
func DecodeEvents(r io.Reader) ([]EventDoc, error) {
	var events []EventDoc
	if err := json.NewDecoder(r).Decode(&events); err != nil {
		return nil, errors.Wrap(err, "decode events")
	}
	for i, e := range events {
		if strings.TrimSpace(e.Title) == "" || strings.TrimSpace(e.Venue) == "" {
			return nil, errors.Mark(errors.Newf("event %d: title and venue are required", i), domain.ErrInvalidRequest)
		}
	}
	return events, nil
}

func (c *CatalogRepository) EnsureIndexes(ctx context.Context) error {
	_, err := c.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "title", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	return err
}

func (c *CatalogRepository) GetEventByTitle(ctx context.Context, title string) (*EventDoc, error) {
	var event EventDoc
	err := c.coll.FindOne(ctx, bson.M{"title": title}).Decode(&event)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		c.logger.WithField("title", title).Error("failed to get event", err)
		return nil, err
	}
	return &event, nil
}

// VenueFor returns the venue of the event with the given title.
func (c *CatalogRepository) VenueFor(ctx context.Context, eventTitle string) (string, error) {
	event, err := c.GetEventByTitle(ctx, eventTitle)
	if err != nil {
		return "", err
	}
	return event.Venue, nil
}

// UpsertEvent creates the event or replaces the fields of the event with the
// same title. The id and creation time of an existing event are kept.
func (c *CatalogRepository) UpsertEvent(ctx context.Context, event EventDoc) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	now := time.Now()
	_, err := c.coll.UpdateOne(
		ctx,
		bson.M{"title": event.Title},
		bson.M{
			"$set": bson.M{
				"description":  event.Description,
				"venue":        event.Venue,
				"date":         event.Date,
				"ticket_types": event.TicketTypes,
				"updated_at":   now,
			},
			"$setOnInsert": bson.M{"_id": event.ID, "created_at": now},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		c.logger.WithField("title", event.Title).Error("failed to upsert event", err)
		return err
	}
	return nil
}

// Seed upserts every event read from r and returns how many were written.
func (c *CatalogRepository) Seed(ctx context.Context, r io.Reader) (int, error) {
	events, err := DecodeEvents(r)
	if err != nil {
		return 0, err
	}
	for i, e := range events {
		if err := c.UpsertEvent(ctx, e); err != nil {
			return i, errors.Wrapf(err, "upsert event %q", e.Title)
		}
	}
	return len(events), nil
}
